package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benmeehan/rssi-collector/internal/constants"
	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/internal/state_managers"
	"github.com/benmeehan/rssi-collector/pkg/beacon"
	"github.com/rs/zerolog"
)

// Broadcaster pushes events to connected browser clients.
type Broadcaster interface {
	Broadcast(eventType string, data interface{})
	ClientCount() int
}

// UserCoverage reports which beacons have heard a user.
type UserCoverage struct {
	UserID   string         `json:"user_id"`
	Readings map[string]int `json:"readings"`
	Beacons  int            `json:"beacons"`
	Of       int            `json:"of"`
}

// Ingestor turns raw beacon notifications into readings and push events.
// It is shared by every ingestion source.
type Ingestor struct {
	registry    *beacon.Registry
	readings    *state_managers.RSSIStateManager
	broadcaster Broadcaster
	logger      zerolog.Logger

	mu    sync.Mutex
	users map[string]map[string]int
}

// NewIngestor creates an Ingestor. broadcaster may be nil.
func NewIngestor(registry *beacon.Registry, readings *state_managers.RSSIStateManager, broadcaster Broadcaster, logger zerolog.Logger) *Ingestor {
	return &Ingestor{
		registry:    registry,
		readings:    readings,
		broadcaster: broadcaster,
		logger:      logger.With().Str("component", "ingestor").Logger(),
		users:       make(map[string]map[string]int),
	}
}

// Handle parses one notification and records it.
func (i *Ingestor) Handle(n models.Notification) error {
	if n.MAC == "" {
		return fmt.Errorf("%w: missing beacon address", beacon.ErrInvalidPayload)
	}

	parsed, err := beacon.ParsePayload(n.Payload)
	if err != nil {
		i.logger.Warn().
			Err(err).
			Str("mac", n.MAC).
			Str("source", n.Source).
			Msg("Cannot parse RSSI payload")
		return err
	}

	at := n.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}

	reading, applied := i.readings.Update(n.MAC, parsed.RSSI, parsed.UserID, at)
	if !applied {
		i.logger.Debug().
			Str("mac", reading.MAC).
			Time("received_at", at).
			Time("stored_at", reading.Timestamp).
			Msg("Discarding out-of-order reading")
		return nil
	}
	name := i.registry.Name(reading.MAC)
	location := i.registry.Location(reading.MAC)

	if parsed.UserID != "" {
		i.recordUser(parsed.UserID, name, parsed.RSSI)
	}

	i.logger.Debug().
		Str("beacon", name).
		Str("mac", reading.MAC).
		Int("rssi", parsed.RSSI).
		Str("location", location).
		Str("source", n.Source).
		Msg("RSSI received")

	if i.broadcaster != nil {
		i.broadcaster.Broadcast(constants.EventRSSIUpdate, models.RSSIUpdate{
			BeaconMAC:  reading.MAC,
			BeaconName: name,
			RSSI:       parsed.RSSI,
			Location:   location,
			Timestamp:  at.Format(constants.ClockLayout),
		})
	}
	return nil
}

func (i *Ingestor) recordUser(userID, beaconName string, rssi int) {
	i.mu.Lock()
	defer i.mu.Unlock()

	readings, ok := i.users[userID]
	if !ok {
		readings = make(map[string]int)
		i.users[userID] = readings
	}
	readings[beaconName] = rssi
}

// Users returns per-user beacon coverage sorted by user id.
func (i *Ingestor) Users() []UserCoverage {
	i.mu.Lock()
	defer i.mu.Unlock()

	out := make([]UserCoverage, 0, len(i.users))
	for id, readings := range i.users {
		copied := make(map[string]int, len(readings))
		for k, v := range readings {
			copied[k] = v
		}
		out = append(out, UserCoverage{
			UserID:   id,
			Readings: copied,
			Beacons:  len(copied),
			Of:       i.registry.Len(),
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].UserID < out[b].UserID })
	return out
}

// ResetUsers forgets all per-user coverage.
func (i *Ingestor) ResetUsers() {
	i.mu.Lock()
	i.users = make(map[string]map[string]int)
	i.mu.Unlock()
}
