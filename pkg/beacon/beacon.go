package beacon

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/benmeehan/rssi-collector/pkg/file"
)

// UnknownLocation is reported for beacons without a configured coordinate.
const UnknownLocation = "unknown"

var (
	// ErrInvalidPosition is returned when a beacon coordinate is not "x,y".
	ErrInvalidPosition = errors.New("invalid beacon position")
	// ErrNoBeacons is returned when the beacon file lists no beacons.
	ErrNoBeacons = errors.New("no beacons configured")
)

// Beacon is a fixed transmitter at a known coordinate.
type Beacon struct {
	MAC   string `json:"mac"`
	Toado string `json:"toado"` // coordinate as "x,y"
}

// Position parses the beacon coordinate.
func (b Beacon) Position() (x, y float64, err error) {
	parts := strings.Split(b.Toado, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPosition, b.Toado)
	}
	x, err = strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPosition, b.Toado)
	}
	y, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidPosition, b.Toado)
	}
	return x, y, nil
}

// Location returns the raw coordinate string, or UnknownLocation.
func (b Beacon) Location() string {
	if strings.TrimSpace(b.Toado) == "" {
		return UnknownLocation
	}
	return b.Toado
}

// File mirrors the on-disk beacon configuration document.
type File struct {
	Beacons []Beacon `json:"beacons"`
}

// Registry resolves beacon MACs to their configuration and display names.
// It is immutable after construction.
type Registry struct {
	beacons []Beacon
	index   map[string]int
}

// NormalizeMAC upper-cases and trims a MAC address.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}

// NewRegistry builds a registry preserving configuration order.
func NewRegistry(beacons []Beacon) *Registry {
	r := &Registry{
		beacons: make([]Beacon, 0, len(beacons)),
		index:   make(map[string]int, len(beacons)),
	}
	for _, b := range beacons {
		b.MAC = NormalizeMAC(b.MAC)
		if _, dup := r.index[b.MAC]; dup {
			continue
		}
		r.index[b.MAC] = len(r.beacons)
		r.beacons = append(r.beacons, b)
	}
	return r
}

// LoadRegistry reads a beacon file through the given file client.
func LoadRegistry(path string, fileClient file.FileOperations) (*Registry, error) {
	var f File
	if err := fileClient.ReadJsonFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to read beacon file %s: %w", path, err)
	}
	if len(f.Beacons) == 0 {
		return nil, ErrNoBeacons
	}
	return NewRegistry(f.Beacons), nil
}

// Beacons returns the configured beacons in order.
func (r *Registry) Beacons() []Beacon {
	out := make([]Beacon, len(r.beacons))
	copy(out, r.beacons)
	return out
}

// Len returns the number of configured beacons.
func (r *Registry) Len() int {
	return len(r.beacons)
}

// Lookup returns the beacon configured for mac.
func (r *Registry) Lookup(mac string) (Beacon, bool) {
	i, ok := r.index[NormalizeMAC(mac)]
	if !ok {
		return Beacon{}, false
	}
	return r.beacons[i], true
}

// Known reports whether mac is configured.
func (r *Registry) Known(mac string) bool {
	_, ok := r.index[NormalizeMAC(mac)]
	return ok
}

// Name returns "beacon{n}" for the n-th configured beacon, or the MAC itself.
func (r *Registry) Name(mac string) string {
	normalized := NormalizeMAC(mac)
	if i, ok := r.index[normalized]; ok {
		return fmt.Sprintf("beacon%d", i+1)
	}
	return normalized
}

// Location returns the coordinate string of mac, or UnknownLocation.
func (r *Registry) Location(mac string) string {
	b, ok := r.Lookup(mac)
	if !ok {
		return UnknownLocation
	}
	return b.Location()
}
