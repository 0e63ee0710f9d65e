package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/rssi-collector/internal/state_managers"
	"github.com/rs/zerolog"
)

// SummaryService periodically logs the live readings and per-user beacon coverage.
type SummaryService struct {
	interval time.Duration
	readings *state_managers.RSSIStateManager
	ingestor *Ingestor
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSummaryService creates a new SummaryService.
func NewSummaryService(interval time.Duration, readings *state_managers.RSSIStateManager, ingestor *Ingestor, logger zerolog.Logger) *SummaryService {
	return &SummaryService{
		interval: interval,
		readings: readings,
		ingestor: ingestor,
		logger:   logger.With().Str("service", "summary").Logger(),
	}
}

// Start begins the summary loop.
func (s *SummaryService) Start() error {
	if s.ctx != nil {
		s.logger.Warn().Msg("SummaryService is already running")
		return errors.New("summary service is already running")
	}
	if s.interval <= 0 {
		return errors.New("summary interval must be positive")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.LogSummary(time.Now())
			case <-s.ctx.Done():
				return
			}
		}
	}()

	s.logger.Info().Dur("interval", s.interval).Msg("SummaryService started")
	return nil
}

// Stop ends the summary loop.
func (s *SummaryService) Stop() error {
	if s.ctx == nil {
		s.logger.Warn().Msg("SummaryService is not running")
		return errors.New("summary service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.logger.Info().Msg("SummaryService stopped")
	return nil
}

// LogSummary writes one summary of the state at now.
func (s *SummaryService) LogSummary(now time.Time) {
	snapshot := s.readings.Snapshot(now)
	s.logger.Info().Int("beacons_with_data", len(snapshot)).Msg("Reading summary")

	for name, r := range snapshot {
		s.logger.Info().
			Str("beacon", name).
			Str("mac", r.MAC).
			Int("rssi", r.RSSI).
			Float64("age_seconds", r.AgeSeconds).
			Msg("Beacon reading")
	}

	for _, u := range s.ingestor.Users() {
		s.logger.Info().
			Str("user_id", u.UserID).
			Int("beacons", u.Beacons).
			Int("of", u.Of).
			Interface("readings", u.Readings).
			Msgf("User %s seen by %d/%d beacons", u.UserID, u.Beacons, u.Of)
	}
}
