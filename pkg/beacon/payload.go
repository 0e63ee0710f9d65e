package beacon

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidPayload is returned for notifications that carry no RSSI value.
var ErrInvalidPayload = errors.New("invalid beacon payload")

// Notification is one parsed beacon report.
type Notification struct {
	UserID string
	RSSI   int
}

// ParsePayload accepts "rssi" or "user_id:rssi".
func ParsePayload(data []byte) (Notification, error) {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return Notification{}, fmt.Errorf("%w: empty", ErrInvalidPayload)
	}

	if !strings.Contains(s, ":") {
		rssi, err := strconv.Atoi(s)
		if err != nil {
			return Notification{}, fmt.Errorf("%w: %q", ErrInvalidPayload, s)
		}
		return Notification{RSSI: rssi}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return Notification{}, fmt.Errorf("%w: %q", ErrInvalidPayload, s)
	}
	rssi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Notification{}, fmt.Errorf("%w: %q", ErrInvalidPayload, s)
	}
	return Notification{UserID: strings.TrimSpace(parts[0]), RSSI: rssi}, nil
}

// EstimateDistance converts RSSI to meters with the log-distance path loss model.
// ok is false when rssi is 0, which beacons report for "no signal".
func EstimateDistance(rssi, txPower, envFactor float64) (meters float64, ok bool) {
	if rssi == 0 || envFactor == 0 {
		return 0, false
	}
	return math.Pow(10, (txPower-rssi)/(10*envFactor)), true
}
