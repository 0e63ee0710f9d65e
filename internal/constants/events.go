package constants

// Push event types sent to browser clients.
const (
	EventRSSIUpdate = "rssi_update"
	EventStatus     = "status"
	EventPing       = "ping"
	EventPong       = "pong"
	EventCleared    = "fingerprints_cleared"
	EventSaved      = "fingerprint_saved"
)
