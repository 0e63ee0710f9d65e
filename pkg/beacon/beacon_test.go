package beacon

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/benmeehan/rssi-collector/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBeacons() []Beacon {
	return []Beacon{
		{MAC: "aa:bb:cc:00:00:01", Toado: "0,0"},
		{MAC: "AA:BB:CC:00:00:02", Toado: "5, 0"},
		{MAC: "AA:BB:CC:00:00:03", Toado: "0,5"},
	}
}

func TestRegistry_NameAndLocation(t *testing.T) {
	r := NewRegistry(testBeacons())

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, "beacon1", r.Name("AA:BB:CC:00:00:01"))
	assert.Equal(t, "beacon2", r.Name("aa:bb:cc:00:00:02"))
	assert.Equal(t, "11:22:33:44:55:66", r.Name("11:22:33:44:55:66"))
	assert.Equal(t, "5, 0", r.Location("AA:BB:CC:00:00:02"))
	assert.Equal(t, UnknownLocation, r.Location("11:22:33:44:55:66"))
	assert.True(t, r.Known("aa:bb:cc:00:00:03"))
}

func TestRegistry_DuplicateMACKeepsFirst(t *testing.T) {
	r := NewRegistry([]Beacon{
		{MAC: "AA:00:00:00:00:01", Toado: "1,1"},
		{MAC: "aa:00:00:00:00:01", Toado: "9,9"},
	})
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "1,1", r.Location("AA:00:00:00:00:01"))
}

func TestBeacon_Position(t *testing.T) {
	x, y, err := Beacon{Toado: "2.5, 3"}.Position()
	require.NoError(t, err)
	assert.Equal(t, 2.5, x)
	assert.Equal(t, 3.0, y)

	for _, bad := range []string{"", "1", "1,2,3", "a,1", "1,b"} {
		_, _, err := Beacon{Toado: bad}.Position()
		assert.True(t, errors.Is(err, ErrInvalidPosition), bad)
	}
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bencons.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"beacons":[{"mac":"aa:01","toado":"1,2"}]}`), 0600))

	r, err := LoadRegistry(path, file.NewFileService())
	require.NoError(t, err)
	assert.Equal(t, "beacon1", r.Name("AA:01"))

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte(`{"beacons":[]}`), 0600))
	_, err = LoadRegistry(empty, file.NewFileService())
	assert.ErrorIs(t, err, ErrNoBeacons)
}

func TestParsePayload(t *testing.T) {
	tests := []struct {
		in     string
		user   string
		rssi   int
		hasErr bool
	}{
		{in: "-67", rssi: -67},
		{in: " -70\n", rssi: -70},
		{in: "user7:-55", user: "user7", rssi: -55},
		{in: "u:-40:extra", user: "u", rssi: -40},
		{in: "", hasErr: true},
		{in: "abc", hasErr: true},
		{in: "user:abc", hasErr: true},
	}
	for _, tt := range tests {
		n, err := ParsePayload([]byte(tt.in))
		if tt.hasErr {
			assert.ErrorIs(t, err, ErrInvalidPayload, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.user, n.UserID)
		assert.Equal(t, tt.rssi, n.RSSI)
	}
}

func TestEstimateDistance(t *testing.T) {
	d, ok := EstimateDistance(-59, -59, 2)
	require.True(t, ok)
	assert.InDelta(t, 1.0, d, 1e-9)

	d, ok = EstimateDistance(-79, -59, 2)
	require.True(t, ok)
	assert.InDelta(t, 10.0, d, 1e-9)

	_, ok = EstimateDistance(0, -59, 2)
	assert.False(t, ok)
}
