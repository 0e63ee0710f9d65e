package models

import "time"

// Reading is the latest RSSI observed from one beacon.
type Reading struct {
	MAC       string    `json:"mac"`
	RSSI      int       `json:"rssi"`
	UserID    string    `json:"user_id,omitempty"`
	Timestamp time.Time `json:"-"`
}

// CurrentReading is one entry of the current readings snapshot, keyed by beacon name.
type CurrentReading struct {
	MAC        string  `json:"mac"`
	RSSI       int     `json:"rssi"`
	Timestamp  float64 `json:"timestamp"`
	AgeSeconds float64 `json:"age_seconds"`
}

// RSSIUpdate is broadcast to browser clients for every accepted notification.
type RSSIUpdate struct {
	BeaconMAC  string `json:"beacon_mac"`
	BeaconName string `json:"beacon_name"`
	RSSI       int    `json:"rssi"`
	Location   string `json:"location"`
	Timestamp  string `json:"timestamp"`
}

// Notification is a raw beacon report as delivered by an ingestion source.
type Notification struct {
	MAC        string
	Payload    []byte
	Source     string
	ReceivedAt time.Time
}
