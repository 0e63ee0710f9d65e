package models

import "github.com/benmeehan/rssi-collector/pkg/beacon"

// RawReading is a reading as held in memory, for diagnostics.
type RawReading struct {
	RSSI      int     `json:"rssi"`
	Timestamp float64 `json:"timestamp"`
}

// DebugInfo reports server state for troubleshooting beacon connectivity.
type DebugInfo struct {
	BeaconsConfigured int                   `json:"beacons_configured"`
	BeaconsWithData   int                   `json:"beacons_with_data"`
	CurrentRSSI       map[string]RawReading `json:"current_rssi"`
	FingerprintsCount int                   `json:"fingerprints_count"`
	ServerTime        string                `json:"server_time"`
	ConnectedClients  int                   `json:"connected_clients"`
	StationID         string                `json:"station_id,omitempty"`
	System            *SystemMetrics        `json:"system,omitempty"`
}

// StatusInfo is the liveness response.
type StatusInfo struct {
	Status            string `json:"status"`
	Time              string `json:"time"`
	BeaconsConfigured int    `json:"beacons_configured"`
}

// PositionEstimate is a trilateration result from the live readings.
type PositionEstimate struct {
	X              float64          `json:"x"`
	Y              float64          `json:"y"`
	Accuracy       float64          `json:"accuracy"`
	Confidence     float64          `json:"confidence"`
	BeaconsUsed    int              `json:"beacons_used"`
	ClosestBeacons []BeaconDistance `json:"closest_beacons"`
}

// BeaconDistance is the estimated range to one beacon.
type BeaconDistance struct {
	Name     string  `json:"name"`
	MAC      string  `json:"mac"`
	RSSI     float64 `json:"rssi"`
	Distance float64 `json:"distance"`
}

// PageData is injected into the browser page templates.
type PageData struct {
	Title          string
	Beacons        []beacon.Beacon
	BeaconNames    map[string]string
	Fingerprints   []Fingerprint
	PollIntervalMS int64
	StaleAfterSec  float64
	Grid           GridExtent
}

// GridExtent bounds the selectable coordinate grid. Cells start at (0, 0).
type GridExtent struct {
	MaxX int     `json:"max_x"`
	MaxY int     `json:"max_y"`
	Step float64 `json:"step"`
}
