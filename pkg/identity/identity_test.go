package identity

import (
	"path/filepath"
	"testing"

	"github.com/benmeehan/rssi-collector/pkg/file"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStationInfo_GeneratesAndPersistsID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.json")
	fs := file.NewFileService()

	first := NewStationInfo(path, fs)
	require.NoError(t, first.LoadStationInfo())
	_, err := uuid.Parse(first.GetStationID())
	require.NoError(t, err)

	second := NewStationInfo(path, fs)
	require.NoError(t, second.LoadStationInfo())
	assert.Equal(t, first.GetStationID(), second.GetStationID())
}

func TestStationInfo_KeepsConfiguredID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.json")
	fs := file.NewFileService()
	require.NoError(t, fs.WriteJsonFile(path, Identity{ID: "lab-3", Name: "Lab 3"}))

	s := NewStationInfo(path, fs)
	require.NoError(t, s.LoadStationInfo())
	assert.Equal(t, "lab-3", s.GetStationID())
	assert.Equal(t, "Lab 3", s.GetStationIdentity().Name)
}
