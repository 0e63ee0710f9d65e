package state_managers

import (
	"math"
	"sort"
	"time"

	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/pkg/beacon"
	"github.com/benmeehan/rssi-collector/pkg/positioning"
	cmap "github.com/orcaman/concurrent-map/v2"
)

// RSSIStateManager holds the latest reading per beacon MAC.
type RSSIStateManager struct {
	registry *beacon.Registry
	readings cmap.ConcurrentMap[string, models.Reading]
	smoother *positioning.Smoother
}

// NewRSSIStateManager creates an empty readings state.
func NewRSSIStateManager(registry *beacon.Registry) *RSSIStateManager {
	return &RSSIStateManager{
		registry: registry,
		readings: cmap.New[models.Reading](),
		smoother: positioning.NewSmoother(positioning.DefaultWindow),
	}
}

// Update replaces the reading of mac unless the stored one is newer than at.
// It reports whether the reading was applied.
func (sm *RSSIStateManager) Update(mac string, rssi int, userID string, at time.Time) (models.Reading, bool) {
	mac = beacon.NormalizeMAC(mac)
	r := models.Reading{MAC: mac, RSSI: rssi, UserID: userID, Timestamp: at}

	applied := false
	stored := sm.readings.Upsert(mac, r, func(exist bool, current, next models.Reading) models.Reading {
		if exist && next.Timestamp.Before(current.Timestamp) {
			return current
		}
		applied = true
		sm.smoother.Add(mac, float64(next.RSSI))
		return next
	})
	return stored, applied
}

// Len returns the number of beacons that have reported at least once.
func (sm *RSSIStateManager) Len() int {
	return sm.readings.Count()
}

// Empty reports whether no reading was ever received.
func (sm *RSSIStateManager) Empty() bool {
	return sm.readings.IsEmpty()
}

// MACs returns the MACs with a reading, sorted.
func (sm *RSSIStateManager) MACs() []string {
	keys := sm.readings.Keys()
	sort.Strings(keys)
	return keys
}

// All returns every reading keyed by MAC.
func (sm *RSSIStateManager) All() map[string]models.Reading {
	return sm.readings.Items()
}

// Snapshot returns the current readings keyed by beacon name.
func (sm *RSSIStateManager) Snapshot(now time.Time) map[string]models.CurrentReading {
	out := make(map[string]models.CurrentReading, sm.readings.Count())
	for mac, r := range sm.readings.Items() {
		out[sm.registry.Name(mac)] = models.CurrentReading{
			MAC:        mac,
			RSSI:       r.RSSI,
			Timestamp:  unixSeconds(r.Timestamp),
			AgeSeconds: math.Round(now.Sub(r.Timestamp).Seconds()*10) / 10,
		}
	}
	return out
}

// Fresh returns readings no older than maxAge, keyed by MAC.
func (sm *RSSIStateManager) Fresh(now time.Time, maxAge time.Duration) map[string]models.Reading {
	out := make(map[string]models.Reading)
	for mac, r := range sm.readings.Items() {
		if now.Sub(r.Timestamp) <= maxAge {
			out[mac] = r
		}
	}
	return out
}

// Smoothed returns the moving-average RSSI of mac.
func (sm *RSSIStateManager) Smoothed(mac string) (float64, bool) {
	return sm.smoother.Average(beacon.NormalizeMAC(mac))
}

// Reset drops every reading.
func (sm *RSSIStateManager) Reset() {
	sm.readings.Clear()
	sm.smoother.Reset()
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
