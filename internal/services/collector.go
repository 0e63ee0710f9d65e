package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/benmeehan/rssi-collector/internal/constants"
	"github.com/benmeehan/rssi-collector/internal/metrics_collectors"
	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/internal/state_managers"
	"github.com/benmeehan/rssi-collector/pkg/beacon"
	"github.com/benmeehan/rssi-collector/pkg/identity"
	"github.com/benmeehan/rssi-collector/pkg/positioning"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrNoReadings is returned when no beacon has reported yet.
	ErrNoReadings = errors.New("No RSSI data available. Make sure beacons are connected and sending data.")
	// ErrNoRecentReadings is returned when every reading is older than the stale limit.
	ErrNoRecentReadings = errors.New("No recent RSSI data available")
	// ErrUnsupportedFormat is returned for imports with an incompatible format version.
	ErrUnsupportedFormat = errors.New("unsupported export format version")
	// ErrInvalidImportMode is returned for an unknown import mode.
	ErrInvalidImportMode = errors.New("invalid import mode")
	// ErrPositionUnavailable is returned when the live readings cannot locate the user.
	ErrPositionUnavailable = errors.New("position cannot be estimated")
)

// CollectorOptions tunes fingerprint collection.
type CollectorOptions struct {
	StaleAfter time.Duration
	TxPower    float64
	EnvFactor  float64
}

// Collector implements the fingerprint operations behind the web pages.
type Collector struct {
	registry     *beacon.Registry
	readings     *state_managers.RSSIStateManager
	fingerprints *state_managers.FingerprintStateManager
	station      identity.StationInfoInterface
	metrics      *metrics_collectors.MetricsRegistry
	broadcaster  Broadcaster
	opts         CollectorOptions
	logger       zerolog.Logger

	now func() time.Time
}

// NewCollector creates a Collector. metrics, station and broadcaster may be nil.
func NewCollector(
	registry *beacon.Registry,
	readings *state_managers.RSSIStateManager,
	fingerprints *state_managers.FingerprintStateManager,
	station identity.StationInfoInterface,
	metrics *metrics_collectors.MetricsRegistry,
	broadcaster Broadcaster,
	opts CollectorOptions,
	logger zerolog.Logger,
) *Collector {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = constants.DefaultStaleAfter
	}
	if opts.TxPower == 0 {
		opts.TxPower = constants.DefaultTxPower
	}
	if opts.EnvFactor == 0 {
		opts.EnvFactor = constants.DefaultEnvFactor
	}
	return &Collector{
		registry:     registry,
		readings:     readings,
		fingerprints: fingerprints,
		station:      station,
		metrics:      metrics,
		broadcaster:  broadcaster,
		opts:         opts,
		logger:       logger.With().Str("component", "collector").Logger(),
		now:          time.Now,
	}
}

// SetClock overrides the time source.
func (c *Collector) SetClock(now func() time.Time) {
	c.now = now
}

// Registry returns the beacon registry.
func (c *Collector) Registry() *beacon.Registry {
	return c.registry
}

// StaleAfter returns the maximum reading age saved into a fingerprint.
func (c *Collector) StaleAfter() time.Duration {
	return c.opts.StaleAfter
}

func (c *Collector) stationID() string {
	if c.station == nil {
		return ""
	}
	return c.station.GetStationID()
}

// SaveFingerprint records the fresh readings at (x, y).
func (c *Collector) SaveFingerprint(x, y float64) (models.Fingerprint, error) {
	if c.readings.Empty() {
		return models.Fingerprint{}, ErrNoReadings
	}

	now := c.now()
	fresh := c.readings.Fresh(now, c.opts.StaleAfter)
	if len(fresh) == 0 {
		return models.Fingerprint{}, fmt.Errorf("%w. All data older than %s. Current beacons: [%s]",
			ErrNoRecentReadings, c.opts.StaleAfter, strings.Join(c.readings.MACs(), ", "))
	}

	fp := models.Fingerprint{
		ID:        uuid.New().String(),
		Timestamp: now.Format(constants.TimestampLayout),
		Location:  models.Point{X: x, Y: y},
		Readings:  make(map[string]models.BeaconReading, len(fresh)),
		StationID: c.stationID(),
	}
	for mac, r := range fresh {
		fp.Readings[c.registry.Name(mac)] = models.BeaconReading{MAC: mac, RSSI: r.RSSI}
	}

	if err := c.fingerprints.Append(fp); err != nil {
		return models.Fingerprint{}, err
	}

	c.logger.Info().
		Float64("x", x).
		Float64("y", y).
		Int("readings", len(fp.Readings)).
		Msg("Saved fingerprint")

	if c.broadcaster != nil {
		c.broadcaster.Broadcast(constants.EventSaved, fp)
	}
	return fp, nil
}

// Fingerprints returns every stored fingerprint.
func (c *Collector) Fingerprints() []models.Fingerprint {
	return c.fingerprints.List()
}

// ClearFingerprints removes every stored fingerprint.
func (c *Collector) ClearFingerprints() error {
	if err := c.fingerprints.Clear(); err != nil {
		return err
	}
	c.logger.Info().Msg("All fingerprints cleared")
	if c.broadcaster != nil {
		c.broadcaster.Broadcast(constants.EventCleared, nil)
	}
	return nil
}

// CurrentReadings returns the live readings keyed by beacon name.
func (c *Collector) CurrentReadings() map[string]models.CurrentReading {
	return c.readings.Snapshot(c.now())
}

// Export builds the download document and its file name.
func (c *Collector) Export() (models.Export, string) {
	now := c.now()
	fps := c.fingerprints.List()
	return models.Export{
		ExportInfo: models.ExportInfo{
			Timestamp:           now.Format(constants.TimestampLayout),
			TotalFingerprints:   len(fps),
			BeaconConfiguration: c.registry.Beacons(),
			FormatVersion:       constants.ExportFormatVersion,
			StationID:           c.stationID(),
		},
		Fingerprints: fps,
	}, now.Format(constants.ExportFileLayout)
}

// ExportJSON renders the export document as indented JSON.
func (c *Collector) ExportJSON() ([]byte, string, error) {
	doc, name := c.Export()
	data, err := encodeExport(doc)
	if err != nil {
		return nil, "", err
	}
	return data, name, nil
}

func encodeExport(doc models.Export) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode export: %w", err)
	}
	return buf.Bytes(), nil
}

// Import loads fingerprints from an export document.
// Documents without a format version predate versioning and are accepted as 1.0.0.
func (c *Collector) Import(doc models.Export, mode string) (models.ImportResult, error) {
	if mode == "" {
		mode = constants.ImportModeAppend
	}
	if mode != constants.ImportModeAppend && mode != constants.ImportModeReplace {
		return models.ImportResult{}, fmt.Errorf("%w: %q", ErrInvalidImportMode, mode)
	}

	if err := checkFormatVersion(doc.ExportInfo.FormatVersion); err != nil {
		return models.ImportResult{}, err
	}

	incoming := make([]models.Fingerprint, 0, len(doc.Fingerprints))
	for _, fp := range doc.Fingerprints {
		if fp.ID == "" {
			fp.ID = uuid.New().String()
		}
		if fp.Readings == nil {
			fp.Readings = map[string]models.BeaconReading{}
		}
		incoming = append(incoming, fp)
	}

	var err error
	if mode == constants.ImportModeReplace {
		err = c.fingerprints.Replace(incoming)
	} else {
		err = c.fingerprints.Append(incoming...)
	}
	if err != nil {
		return models.ImportResult{}, err
	}

	total := c.fingerprints.Count()
	c.logger.Info().
		Str("mode", mode).
		Int("imported", len(incoming)).
		Int("total", total).
		Msg("Fingerprints imported")

	return models.ImportResult{
		Status:   constants.StatusSuccess,
		Mode:     mode,
		Imported: len(incoming),
		Total:    total,
	}, nil
}

func checkFormatVersion(raw string) error {
	if raw == "" {
		raw = "1.0.0"
	}
	v, err := semver.NewVersion(raw)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
	constraint, err := semver.NewConstraint(constants.SupportedImportVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s does not satisfy %s", ErrUnsupportedFormat, v, constants.SupportedImportVersions)
	}
	return nil
}

// EstimatePosition trilaterates the user from the smoothed fresh readings.
func (c *Collector) EstimatePosition() (models.PositionEstimate, error) {
	fresh := c.readings.Fresh(c.now(), c.opts.StaleAfter)

	var (
		anchors   []positioning.Anchor
		distances []models.BeaconDistance
	)
	for _, b := range c.registry.Beacons() {
		if _, ok := fresh[b.MAC]; !ok {
			continue
		}
		avg, ok := c.readings.Smoothed(b.MAC)
		if !ok {
			continue
		}
		d, ok := beacon.EstimateDistance(avg, c.opts.TxPower, c.opts.EnvFactor)
		if !ok {
			continue
		}
		x, y, err := b.Position()
		if err != nil {
			c.logger.Warn().Err(err).Str("mac", b.MAC).Msg("Skipping beacon without a usable position")
			continue
		}
		anchors = append(anchors, positioning.Anchor{ID: b.MAC, X: x, Y: y, Distance: d})
		distances = append(distances, models.BeaconDistance{
			Name:     c.registry.Name(b.MAC),
			MAC:      b.MAC,
			RSSI:     positioning.Round(avg, 1),
			Distance: positioning.Round(d, 2),
		})
	}

	if len(anchors) < constants.MinBeaconsForPosition {
		return models.PositionEstimate{}, fmt.Errorf("%w: %d/%d beacons with recent data",
			ErrPositionUnavailable, len(anchors), constants.MinBeaconsForPosition)
	}

	// Nearest beacons first; trilateration uses the first three.
	order := make([]int, len(anchors))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return anchors[order[a]].Distance < anchors[order[b]].Distance })
	sortedAnchors := make([]positioning.Anchor, len(anchors))
	sortedDistances := make([]models.BeaconDistance, len(anchors))
	for i, idx := range order {
		sortedAnchors[i] = anchors[idx]
		sortedDistances[i] = distances[idx]
	}

	p, err := positioning.Trilaterate(sortedAnchors)
	if err != nil {
		return models.PositionEstimate{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	confidence := float64(len(anchors)) / float64(constants.MinBeaconsForPosition) * 100
	if confidence > 100 {
		confidence = 100
	}

	return models.PositionEstimate{
		X:              positioning.Round(p.X, 2),
		Y:              positioning.Round(p.Y, 2),
		Accuracy:       positioning.Round(positioning.Accuracy(p, sortedAnchors[:constants.MinBeaconsForPosition]), 2),
		Confidence:     positioning.Round(confidence, 1),
		BeaconsUsed:    len(anchors),
		ClosestBeacons: sortedDistances,
	}, nil
}

// Status reports liveness for the test endpoint.
func (c *Collector) Status() models.StatusInfo {
	return models.StatusInfo{
		Status:            "Server is running",
		Time:              c.now().Format(constants.TimestampLayout),
		BeaconsConfigured: c.registry.Len(),
	}
}

// Debug gathers server state for troubleshooting.
func (c *Collector) Debug(ctx context.Context) models.DebugInfo {
	raw := make(map[string]models.RawReading)
	for mac, r := range c.readings.All() {
		raw[mac] = models.RawReading{
			RSSI:      r.RSSI,
			Timestamp: float64(r.Timestamp.UnixNano()) / float64(time.Second),
		}
	}

	info := models.DebugInfo{
		BeaconsConfigured: c.registry.Len(),
		BeaconsWithData:   len(raw),
		CurrentRSSI:       raw,
		FingerprintsCount: c.fingerprints.Count(),
		ServerTime:        c.now().Format(constants.TimestampLayout),
		StationID:         c.stationID(),
	}
	if c.broadcaster != nil {
		info.ConnectedClients = c.broadcaster.ClientCount()
	}
	if c.metrics != nil {
		info.System = c.metrics.Collect(ctx)
	}
	return info
}
