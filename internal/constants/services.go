package constants

// Middleware names
const (
	RecoveryMiddleware     = "recovery"
	PayloadLimitMiddleware = "payload_limit"
)

// Service names, in start order
const (
	HubService          = "websocket_hub"
	MQTTIngestService   = "mqtt_ingest"
	SerialIngestService = "serial_ingest"
	SummaryService      = "summary"
	BackupService       = "backup"
	HTTPService         = "http"
)
