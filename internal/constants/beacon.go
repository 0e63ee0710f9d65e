package constants

import "time"

const (
	// DefaultStaleAfter is how old a reading may be and still be saved into a fingerprint.
	DefaultStaleAfter = 30 * time.Second

	// DefaultTxPower is the RSSI measured at 1m from a beacon.
	DefaultTxPower = -59.0

	// DefaultEnvFactor is the path loss exponent of the environment.
	DefaultEnvFactor = 2.0

	// DefaultReconnectDelay is the wait before reopening a failed gateway link.
	DefaultReconnectDelay = 5 * time.Second

	// DefaultSummaryInterval is the period of the readings summary log.
	DefaultSummaryInterval = 30 * time.Second

	// DefaultPollInterval is how often the browser polls current readings.
	DefaultPollInterval = 1 * time.Second

	// DefaultMQTTTopic carries one RSSI notification per message; "+" is the beacon MAC.
	DefaultMQTTTopic = "beacons/+/rssi"

	// DefaultMaxPayloadBytes bounds a single beacon notification.
	DefaultMaxPayloadBytes = 256

	// MinBeaconsForPosition is the number of beacons trilateration needs.
	MinBeaconsForPosition = 3
)
