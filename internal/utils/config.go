package utils

import (
	"fmt"
	"time"

	"github.com/benmeehan/rssi-collector/internal/constants"
	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/pkg/file"
	"github.com/go-playground/validator/v10"
)

// Config represents the structure of the configuration file.
type Config struct {
	Logging struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=trace debug info warn error"` // zerolog level name
		Pretty bool   `yaml:"pretty"`                                                       // Human readable console output
	} `yaml:"logging"`

	HTTP struct {
		ListenAddr         string        `yaml:"listen_addr" validate:"required"`        // Address of the web server
		AllowedOrigins     []string      `yaml:"allowed_origins"`                        // CORS and websocket origins
		RateLimitPerMinute int           `yaml:"rate_limit_per_minute" validate:"gte=0"` // Per client API limit, 0 disables
		PollInterval       time.Duration `yaml:"poll_interval"`                          // Browser polling period
		ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`                       // Grace period for in-flight requests
	} `yaml:"http"`

	Beacons struct {
		ConfigFile string        `yaml:"config_file" validate:"required"` // Path to the beacon list
		StaleAfter time.Duration `yaml:"stale_after"`                     // Max reading age saved into a fingerprint
		TxPower    float64       `yaml:"tx_power"`                        // RSSI at 1m
		EnvFactor  float64       `yaml:"env_factor" validate:"gte=0"`     // Path loss exponent
	} `yaml:"beacons"`

	Grid struct {
		MaxX int     `yaml:"max_x" validate:"gte=0"` // Grid width in cells
		MaxY int     `yaml:"max_y" validate:"gte=0"` // Grid height in cells
		Step float64 `yaml:"step" validate:"gte=0"`  // Meters per cell
	} `yaml:"grid"`

	Storage struct {
		FingerprintsFile string `yaml:"fingerprints_file" validate:"required"` // Fingerprint database
		IdentityFile     string `yaml:"identity_file" validate:"required"`     // Station identity
	} `yaml:"storage"`

	MQTT struct {
		Enabled         bool   `yaml:"enabled"`                                    // Enable MQTT ingestion
		Broker          string `yaml:"broker" validate:"required_if=Enabled true"` // MQTT broker address
		ClientID        string `yaml:"client_id"`                                  // MQTT client ID prefix
		CACertificate   string `yaml:"ca_certificate"`                             // Path to the CA certificate
		Username        string `yaml:"username"`                                   // Broker username
		Password        string `yaml:"password"`                                   // Broker password
		Topic           string `yaml:"topic"`                                      // Subscription, "+" matches the beacon MAC
		QOS             int    `yaml:"qos" validate:"gte=0,lte=2"`                 // MQTT QoS level
		Workers         int    `yaml:"workers" validate:"gte=0"`                   // Message handling workers
		MaxPayloadBytes int    `yaml:"max_payload_bytes" validate:"gte=0"`         // Larger messages are dropped, 0 disables
	} `yaml:"mqtt"`

	Serial struct {
		Enabled        bool          `yaml:"enabled"`                                  // Enable serial gateway ingestion
		Port           string        `yaml:"port" validate:"required_if=Enabled true"` // Device path of the gateway
		BaudRate       int           `yaml:"baud_rate"`                                // Gateway baud rate
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`                          // Wait before reopening the port
	} `yaml:"serial"`

	Summary struct {
		Enabled  bool          `yaml:"enabled"`  // Enable the periodic readings summary
		Interval time.Duration `yaml:"interval"` // Time between summaries
	} `yaml:"summary"`

	Backup struct {
		Enabled   bool          `yaml:"enabled"`                                      // Enable object storage backups
		Endpoint  string        `yaml:"endpoint" validate:"required_if=Enabled true"` // S3 compatible endpoint
		AccessKey string        `yaml:"access_key"`                                   // Access key ID
		SecretKey string        `yaml:"secret_key"`                                   // Secret access key
		UseSSL    bool          `yaml:"use_ssl"`                                      // Use TLS for the endpoint
		Bucket    string        `yaml:"bucket" validate:"required_if=Enabled true"`   // Target bucket
		Interval  time.Duration `yaml:"interval"`                                     // 0 uploads only on demand
	} `yaml:"backup"`

	Metrics models.MetricsConfig `yaml:"metrics"`
}

// LoadConfig loads the YAML configuration from the specified file,
// applies defaults and validates the result.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	config.ApplyDefaults()

	if err := validator.New().Struct(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// ApplyDefaults fills unset values.
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":5000"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"*"}
	}
	if c.HTTP.PollInterval <= 0 {
		c.HTTP.PollInterval = constants.DefaultPollInterval
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 5 * time.Second
	}
	if c.Beacons.ConfigFile == "" {
		c.Beacons.ConfigFile = "configs/bencons.json"
	}
	if c.Beacons.StaleAfter <= 0 {
		c.Beacons.StaleAfter = constants.DefaultStaleAfter
	}
	if c.Beacons.TxPower == 0 {
		c.Beacons.TxPower = constants.DefaultTxPower
	}
	if c.Beacons.EnvFactor == 0 {
		c.Beacons.EnvFactor = constants.DefaultEnvFactor
	}
	if c.Grid.MaxX == 0 {
		c.Grid.MaxX = 10
	}
	if c.Grid.MaxY == 0 {
		c.Grid.MaxY = 10
	}
	if c.Grid.Step == 0 {
		c.Grid.Step = 1
	}
	if c.Storage.FingerprintsFile == "" {
		c.Storage.FingerprintsFile = "fingerprints.json"
	}
	if c.Storage.IdentityFile == "" {
		c.Storage.IdentityFile = "station.json"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "rssi-collector"
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = constants.DefaultMQTTTopic
	}
	if c.MQTT.Workers == 0 {
		c.MQTT.Workers = 4
	}
	if c.MQTT.MaxPayloadBytes == 0 {
		c.MQTT.MaxPayloadBytes = constants.DefaultMaxPayloadBytes
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = 115200
	}
	if c.Serial.ReconnectDelay <= 0 {
		c.Serial.ReconnectDelay = constants.DefaultReconnectDelay
	}
	if c.Summary.Interval <= 0 {
		c.Summary.Interval = constants.DefaultSummaryInterval
	}
}
