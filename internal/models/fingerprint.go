package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/benmeehan/rssi-collector/pkg/beacon"
)

// Point is a coordinate on the collection floor plan.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BeaconReading is one beacon's contribution to a fingerprint.
type BeaconReading struct {
	MAC  string `json:"mac"`
	RSSI int    `json:"rssi"`
}

// Fingerprint pairs a location with the beacon readings observed there.
type Fingerprint struct {
	ID        string                   `json:"id,omitempty"`
	Timestamp string                   `json:"timestamp"`
	Location  Point                    `json:"location"`
	Readings  map[string]BeaconReading `json:"readings"`
	StationID string                   `json:"station_id,omitempty"`
}

// Coordinate accepts a JSON number or a numeric string such as "2.5".
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid coordinate %s", data)
	}
	*c = Coordinate(v)
	return nil
}

// SaveFingerprintRequest is the body of a save request.
type SaveFingerprintRequest struct {
	X *Coordinate `json:"x" validate:"required"`
	Y *Coordinate `json:"y" validate:"required"`
}

// ExportInfo describes an export document.
type ExportInfo struct {
	Timestamp           string          `json:"timestamp"`
	TotalFingerprints   int             `json:"total_fingerprints"`
	BeaconConfiguration []beacon.Beacon `json:"beacon_configuration"`
	FormatVersion       string          `json:"format_version,omitempty"`
	StationID           string          `json:"station_id,omitempty"`
}

// Export is the downloadable fingerprint document.
type Export struct {
	ExportInfo   ExportInfo    `json:"export_info"`
	Fingerprints []Fingerprint `json:"fingerprints"`
}

// ImportResult summarizes an import.
type ImportResult struct {
	Status   string `json:"status"`
	Mode     string `json:"mode"`
	Imported int    `json:"imported"`
	Total    int    `json:"total"`
}
