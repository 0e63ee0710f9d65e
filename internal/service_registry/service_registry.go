package service_registry

import (
	"errors"
	"fmt"

	"github.com/benmeehan/rssi-collector/internal/constants"
	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/internal/registry"
	"github.com/benmeehan/rssi-collector/internal/services"
	"github.com/benmeehan/rssi-collector/internal/state_managers"
	"github.com/benmeehan/rssi-collector/internal/utils"
	"github.com/benmeehan/rssi-collector/internal/web"
	"github.com/benmeehan/rssi-collector/pkg/s3"
	"github.com/rs/zerolog"
)

// Components are the shared objects services are built from.
type Components struct {
	Readings   *state_managers.RSSIStateManager
	Ingestor   *services.Ingestor
	Collector  *services.Collector
	Hub        *web.Hub
	Pages      *web.Pages
	Subscriber services.MessageSubscriber // nil unless MQTT is enabled
	Storage    s3.ObjectStorageClient     // nil unless backup is enabled
	SerialOpen services.PortOpener        // nil opens a real serial port
}

// ServiceRegistry manages the lifecycle of the collector services.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry.
func NewServiceRegistry(logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services: make(map[string]registry.Service),
		Logger:   logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// Service returns a registered service by name.
func (sr *ServiceRegistry) Service(name string) (registry.Service, bool) {
	svc, ok := sr.services[name]
	return svc, ok
}

// Names returns the registered service names in start order.
func (sr *ServiceRegistry) Names() []string {
	return append([]string(nil), sr.serviceKeys...)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers enabled services based on configuration.
// The HTTP server is registered last so every source of data is running
// before the first page is served.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, c Components) error {
	var backup web.Backuper

	servicesInOrder := []struct {
		name        string
		enabled     bool
		constructor func() (registry.Service, error)
	}{
		{
			name:    constants.HubService,
			enabled: true,
			constructor: func() (registry.Service, error) {
				if c.Hub == nil {
					return nil, errors.New("websocket hub is required")
				}
				return c.Hub, nil
			},
		},
		{
			name:    constants.MQTTIngestService,
			enabled: config.MQTT.Enabled,
			constructor: func() (registry.Service, error) {
				if c.Subscriber == nil {
					return nil, errors.New("mqtt subscriber is required")
				}
				return services.NewMQTTIngestService(
					config.MQTT.Topic,
					config.MQTT.QOS,
					config.MQTT.Workers,
					c.Subscriber,
					c.Ingestor,
					sr.Logger,
				), nil
			},
		},
		{
			name:    constants.SerialIngestService,
			enabled: config.Serial.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewSerialIngestService(
					config.Serial.Port,
					config.Serial.BaudRate,
					config.Serial.ReconnectDelay,
					c.SerialOpen,
					c.Ingestor,
					sr.Logger,
				), nil
			},
		},
		{
			name:    constants.SummaryService,
			enabled: config.Summary.Enabled,
			constructor: func() (registry.Service, error) {
				return services.NewSummaryService(config.Summary.Interval, c.Readings, c.Ingestor, sr.Logger), nil
			},
		},
		{
			name:    constants.BackupService,
			enabled: config.Backup.Enabled,
			constructor: func() (registry.Service, error) {
				if c.Storage == nil {
					return nil, errors.New("object storage client is required")
				}
				svc := services.NewBackupService(services.BackupOptions{
					Endpoint:  config.Backup.Endpoint,
					AccessKey: config.Backup.AccessKey,
					SecretKey: config.Backup.SecretKey,
					UseSSL:    config.Backup.UseSSL,
					Bucket:    config.Backup.Bucket,
					Interval:  config.Backup.Interval,
				}, c.Storage, c.Collector, sr.Logger)
				backup = svc
				return svc, nil
			},
		},
		{
			name:    constants.HTTPService,
			enabled: true,
			constructor: func() (registry.Service, error) {
				if c.Pages == nil {
					return nil, errors.New("page templates are required")
				}
				router := web.NewRouter(c.Collector, c.Hub, backup, c.Pages, web.Options{
					AllowedOrigins:     config.HTTP.AllowedOrigins,
					RateLimitPerMinute: config.HTTP.RateLimitPerMinute,
					PollInterval:       config.HTTP.PollInterval,
					Grid: models.GridExtent{
						MaxX: config.Grid.MaxX,
						MaxY: config.Grid.MaxY,
						Step: config.Grid.Step,
					},
				}, sr.Logger)
				return web.NewServer(config.HTTP.ListenAddr, router, config.HTTP.ShutdownTimeout, sr.Logger), nil
			},
		},
	}

	for _, svc := range servicesInOrder {
		if !svc.enabled {
			sr.Logger.Debug().Str("service", svc.name).Msg("Service is disabled, skipping")
			continue
		}
		instance, err := svc.constructor()
		if err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to initialize %s service", svc.name)
			return fmt.Errorf("failed to initialize %s service: %w", svc.name, err)
		}
		sr.RegisterService(svc.name, instance)
	}

	return nil
}
