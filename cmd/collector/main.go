package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/benmeehan/rssi-collector/internal/constants"
	"github.com/benmeehan/rssi-collector/internal/metrics_collectors"
	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/internal/service_registry"
	"github.com/benmeehan/rssi-collector/internal/services"
	"github.com/benmeehan/rssi-collector/internal/state_managers"
	"github.com/benmeehan/rssi-collector/internal/utils"
	"github.com/benmeehan/rssi-collector/internal/web"
	"github.com/benmeehan/rssi-collector/pkg/beacon"
	"github.com/benmeehan/rssi-collector/pkg/file"
	http_utils "github.com/benmeehan/rssi-collector/pkg/httpUtils"
	"github.com/benmeehan/rssi-collector/pkg/identity"
	"github.com/benmeehan/rssi-collector/pkg/mqtt"
	"github.com/benmeehan/rssi-collector/pkg/s3"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "rssi-collector",
	Short:         "Collect labeled RSSI fingerprints from BLE beacons",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var importMode string

var restoreCmd = &cobra.Command{
	Use:   "restore <file|url>",
	Short: "Import an export document from a file or a presigned backup URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write the fingerprint export document without starting the server",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runExport,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/config.yaml", "Path to the configuration file")
	restoreCmd.Flags().StringVar(&importMode, "mode", constants.ImportModeAppend, "append or replace the stored fingerprints")
	rootCmd.AddCommand(exportCmd, restoreCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// app holds the state shared by the commands.
type app struct {
	config       *utils.Config
	logger       zerolog.Logger
	fileClient   file.FileOperations
	registry     *beacon.Registry
	station      *identity.StationInfo
	readings     *state_managers.RSSIStateManager
	fingerprints *state_managers.FingerprintStateManager
}

func loadApp() (*app, error) {
	fileClient := file.NewFileService()

	config, err := utils.LoadConfig(configFile, fileClient)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger(config.Logging.Level, config.Logging.Pretty)

	registry, err := beacon.LoadRegistry(config.Beacons.ConfigFile, fileClient)
	if err != nil {
		return nil, fmt.Errorf("failed to load beacon configuration: %w", err)
	}
	for _, b := range registry.Beacons() {
		logger.Info().
			Str("beacon", registry.Name(b.MAC)).
			Str("mac", b.MAC).
			Str("location", b.Location()).
			Msg("Beacon configured")
	}

	station := identity.NewStationInfo(config.Storage.IdentityFile, fileClient)
	if err := station.LoadStationInfo(); err != nil {
		return nil, fmt.Errorf("failed to load station identity: %w", err)
	}

	fingerprints := state_managers.NewFingerprintStateManager(config.Storage.FingerprintsFile, fileClient, logger)
	if err := fingerprints.LoadState(); err != nil {
		return nil, fmt.Errorf("failed to load fingerprints: %w", err)
	}

	return &app{
		config:       config,
		logger:       logger,
		fileClient:   fileClient,
		registry:     registry,
		station:      station,
		readings:     state_managers.NewRSSIStateManager(registry),
		fingerprints: fingerprints,
	}, nil
}

func (a *app) collector(metrics *metrics_collectors.MetricsRegistry, broadcaster services.Broadcaster) *services.Collector {
	return services.NewCollector(a.registry, a.readings, a.fingerprints, a.station, metrics, broadcaster, services.CollectorOptions{
		StaleAfter: a.config.Beacons.StaleAfter,
		TxPower:    a.config.Beacons.TxPower,
		EnvFactor:  a.config.Beacons.EnvFactor,
	}, a.logger)
}

func runServe(_ *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	log := a.logger
	config := a.config

	log.Info().
		Str("station_id", a.station.GetStationID()).
		Int("beacons", a.registry.Len()).
		Int("fingerprints", a.fingerprints.Count()).
		Msg("Starting RSSI collector")

	hub := web.NewHub(log)
	pages, err := web.LoadPages()
	if err != nil {
		return err
	}

	metrics := metrics_collectors.NewDefaultMetricsRegistry(config.Metrics, log)
	collector := a.collector(metrics, hub)
	ingestor := services.NewIngestor(a.registry, a.readings, hub, log)

	serviceRegistry := service_registry.NewServiceRegistry(log)
	components := service_registry.Components{
		Readings:  a.readings,
		Ingestor:  ingestor,
		Collector: collector,
		Hub:       hub,
		Pages:     pages,
	}

	var mqttClient *mqtt.MqttService
	if config.MQTT.Enabled {
		// Unique client ID per process so restarts do not kick each other off the broker
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		log.Info().Str("client_id", clientID).Msg("Using MQTT client ID")

		mqttClient = mqtt.NewMqttService(a.fileClient, log)
		if err := mqttClient.Initialize(mqtt.Options{
			Broker:        config.MQTT.Broker,
			ClientID:      clientID,
			CACertificate: config.MQTT.CACertificate,
			Username:      config.MQTT.Username,
			Password:      config.MQTT.Password,
		}); err != nil {
			return fmt.Errorf("failed to initialize MQTT connection: %w", err)
		}
		components.Subscriber = serviceRegistry.InitializeMiddlewares(config, mqttClient)
	}
	if config.Backup.Enabled {
		components.Storage = s3.NewObjectStorage()
	}

	if err := serviceRegistry.RegisterServices(config, components); err != nil {
		return err
	}
	if err := serviceRegistry.StartServices(); err != nil {
		if mqttClient != nil {
			mqttClient.Disconnect(250)
		}
		return err
	}
	log.Info().Str("addr", config.HTTP.ListenAddr).Msg("All services started successfully")

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stopCh

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")
	stopErr := serviceRegistry.StopServices()
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
	return stopErr
}

func runExport(_ *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	data, name, err := a.collector(nil, nil).ExportJSON()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		name = args[0]
	}
	if err := a.fileClient.WriteFileRaw(name, data); err != nil {
		return err
	}

	a.logger.Info().Str("file", name).Int("fingerprints", a.fingerprints.Count()).Msg("Fingerprints exported")
	return nil
}

func runRestore(_ *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	source := args[0]
	var data []byte
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = http_utils.DownloadByPresignedURL(context.Background(), source, 64<<20)
	} else {
		data, err = a.fileClient.ReadFileRaw(source)
	}
	if err != nil {
		return err
	}

	var doc models.Export
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid export document: %w", err)
	}

	res, err := a.collector(nil, nil).Import(doc, importMode)
	if err != nil {
		return err
	}
	a.logger.Info().
		Str("source", source).
		Str("mode", res.Mode).
		Int("imported", res.Imported).
		Int("total", res.Total).
		Msg("Fingerprints restored")
	return nil
}
