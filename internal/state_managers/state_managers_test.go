package state_managers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/benmeehan/rssi-collector/internal/mocks"
	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/pkg/beacon"
	"github.com/benmeehan/rssi-collector/pkg/file"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testRegistry() *beacon.Registry {
	return beacon.NewRegistry([]beacon.Beacon{
		{MAC: "AA:00:00:00:00:01", Toado: "0,0"},
		{MAC: "AA:00:00:00:00:02", Toado: "4,0"},
	})
}

func TestRSSIStateManager_SnapshotAndFresh(t *testing.T) {
	sm := NewRSSIStateManager(testRegistry())
	assert.True(t, sm.Empty())

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sm.Update("aa:00:00:00:00:01", -60, "", now.Add(-2*time.Second))
	sm.Update("AA:00:00:00:00:02", -70, "", now.Add(-45*time.Second))
	sm.Update("BB:00:00:00:00:09", -80, "u1", now.Add(-1250*time.Millisecond))

	assert.Equal(t, 3, sm.Len())
	assert.Equal(t, []string{"AA:00:00:00:00:01", "AA:00:00:00:00:02", "BB:00:00:00:00:09"}, sm.MACs())

	snap := sm.Snapshot(now)
	require.Contains(t, snap, "beacon1")
	require.Contains(t, snap, "beacon2")
	require.Contains(t, snap, "BB:00:00:00:00:09")
	assert.Equal(t, -60, snap["beacon1"].RSSI)
	assert.Equal(t, 2.0, snap["beacon1"].AgeSeconds)
	assert.Equal(t, 1.3, snap["BB:00:00:00:00:09"].AgeSeconds)

	fresh := sm.Fresh(now, 30*time.Second)
	assert.Len(t, fresh, 2)
	assert.NotContains(t, fresh, "AA:00:00:00:00:02")

	sm.Reset()
	assert.True(t, sm.Empty())
}

func TestRSSIStateManager_IgnoresOlderReading(t *testing.T) {
	sm := NewRSSIStateManager(testRegistry())
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	_, applied := sm.Update("AA:00:00:00:00:01", -50, "", now)
	assert.True(t, applied)

	stored, applied := sm.Update("AA:00:00:00:00:01", -90, "", now.Add(-2*time.Second))
	assert.False(t, applied)
	assert.Equal(t, -50, stored.RSSI)

	snap := sm.Snapshot(now)
	assert.Equal(t, -50, snap["beacon1"].RSSI)
	assert.Equal(t, 0.0, snap["beacon1"].AgeSeconds)

	avg, ok := sm.Smoothed("AA:00:00:00:00:01")
	require.True(t, ok)
	assert.Equal(t, -50.0, avg)

	_, applied = sm.Update("AA:00:00:00:00:01", -55, "", now)
	assert.True(t, applied)
}

func TestRSSIStateManager_FreshAtStaleBoundary(t *testing.T) {
	sm := NewRSSIStateManager(testRegistry())
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	sm.Update("AA:00:00:00:00:01", -60, "", now.Add(-30*time.Second))
	sm.Update("AA:00:00:00:00:02", -70, "", now.Add(-30*time.Second-time.Millisecond))

	fresh := sm.Fresh(now, 30*time.Second)
	assert.Contains(t, fresh, "AA:00:00:00:00:01")
	assert.NotContains(t, fresh, "AA:00:00:00:00:02")
}

func TestRSSIStateManager_Smoothed(t *testing.T) {
	sm := NewRSSIStateManager(testRegistry())
	now := time.Now()
	sm.Update("AA:00:00:00:00:01", -60, "", now)
	sm.Update("AA:00:00:00:00:01", -70, "", now)

	avg, ok := sm.Smoothed("aa:00:00:00:00:01")
	require.True(t, ok)
	assert.Equal(t, -65.0, avg)
	assert.Equal(t, -70, sm.All()["AA:00:00:00:00:01"].RSSI)
}

func TestFingerprintStateManager_PersistRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprints.json")
	fs := file.NewFileService()

	sm := NewFingerprintStateManager(path, fs, zerolog.Nop())
	require.NoError(t, sm.LoadState())
	assert.Equal(t, 0, sm.Count())

	fp := models.Fingerprint{
		ID:        "id-1",
		Timestamp: "2026-01-02 03:04:05",
		Location:  models.Point{X: 1, Y: 2},
		Readings:  map[string]models.BeaconReading{"beacon1": {MAC: "AA", RSSI: -60}},
	}
	require.NoError(t, sm.Append(fp))

	reloaded := NewFingerprintStateManager(path, fs, zerolog.Nop())
	require.NoError(t, reloaded.LoadState())
	assert.Equal(t, []models.Fingerprint{fp}, reloaded.List())

	require.NoError(t, reloaded.Clear())
	assert.Equal(t, 0, reloaded.Count())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}

func TestFingerprintStateManager_ListIsCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprints.json")
	sm := NewFingerprintStateManager(path, file.NewFileService(), zerolog.Nop())
	require.NoError(t, sm.Append(models.Fingerprint{ID: "a"}))

	list := sm.List()
	list[0].ID = "mutated"
	assert.Equal(t, "a", sm.List()[0].ID)
}

func TestFingerprintStateManager_WriteFailureKeepsState(t *testing.T) {
	fileClient := new(mocks.MockFileOperations)
	fileClient.On("WriteJsonFile", "fp.json", mock.Anything).Return(errors.New("disk full"))

	sm := NewFingerprintStateManager("fp.json", fileClient, zerolog.Nop())
	err := sm.Append(models.Fingerprint{ID: "a"})
	assert.Error(t, err)
	assert.Equal(t, 0, sm.Count())
	fileClient.AssertExpectations(t)
}

func TestFingerprintStateManager_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fingerprints.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	sm := NewFingerprintStateManager(path, file.NewFileService(), zerolog.Nop())
	assert.Error(t, sm.LoadState())
}
