package services

import (
	"bytes"
	"context"
	"errors"
	"path"
	"sync"
	"time"

	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/pkg/s3"
	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// ErrBackupDisabled is returned when no backup target is configured.
var ErrBackupDisabled = errors.New("fingerprint backup is not configured")

// BackupOptions configures the object storage target.
type BackupOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Interval  time.Duration
}

// BackupService uploads the fingerprint export to S3-compatible storage,
// on demand and optionally on a fixed interval.
type BackupService struct {
	opts      BackupOptions
	storage   s3.ObjectStorageClient
	collector *Collector
	logger    zerolog.Logger

	mu         sync.Mutex
	connected  bool
	backedUp   bool
	lastDigest uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBackupService creates a new BackupService.
func NewBackupService(opts BackupOptions, storage s3.ObjectStorageClient, collector *Collector, logger zerolog.Logger) *BackupService {
	return &BackupService{
		opts:      opts,
		storage:   storage,
		collector: collector,
		logger:    logger.With().Str("service", "backup").Str("bucket", opts.Bucket).Logger(),
	}
}

// Start connects to object storage and starts the periodic backup when an
// interval is configured.
func (s *BackupService) Start() error {
	if s.ctx != nil {
		s.logger.Warn().Msg("BackupService is already running")
		return errors.New("backup service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	if err := s.connect(s.ctx); err != nil {
		s.cancel()
		s.ctx, s.cancel = nil, nil
		return err
	}

	if s.opts.Interval > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			ticker := time.NewTicker(s.opts.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ticker.C:
					s.periodic()
				case <-s.ctx.Done():
					return
				}
			}
		}()
	}

	s.logger.Info().Dur("interval", s.opts.Interval).Msg("BackupService started")
	return nil
}

// Stop ends the periodic backup.
func (s *BackupService) Stop() error {
	if s.ctx == nil {
		s.logger.Warn().Msg("BackupService is not running")
		return errors.New("backup service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.logger.Info().Msg("BackupService stopped")
	return nil
}

func (s *BackupService) connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.storage.Connect(connectCtx, s.opts.Endpoint, s.opts.AccessKey, s.opts.SecretKey, s.opts.UseSSL); err != nil {
		s.logger.Error().Err(err).Str("endpoint", s.opts.Endpoint).Msg("Failed to connect to object storage")
		return err
	}
	s.connected = true
	return nil
}

// fingerprintDigest hashes the stored fingerprints so any edit, not only a
// change in count, triggers the next periodic upload.
func fingerprintDigest(fps []models.Fingerprint) (uint64, error) {
	data, err := json.Marshal(fps)
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// periodic skips the upload when the fingerprints are unchanged since the last backup.
func (s *BackupService) periodic() {
	fps := s.collector.Fingerprints()
	digest, err := fingerprintDigest(fps)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to hash fingerprints")
		return
	}

	s.mu.Lock()
	unchanged := s.backedUp && digest == s.lastDigest
	s.mu.Unlock()
	if unchanged {
		s.logger.Debug().Int("fingerprints", len(fps)).Msg("No fingerprint changes, skipping backup")
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, time.Minute)
	defer cancel()
	if _, err := s.Backup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Periodic backup failed")
	}
}

// Backup uploads the current export document.
func (s *BackupService) Backup(ctx context.Context) (s3.UploadInfo, error) {
	if err := s.connect(ctx); err != nil {
		return s3.UploadInfo{}, err
	}

	doc, name := s.collector.Export()
	digest, err := fingerprintDigest(doc.Fingerprints)
	if err != nil {
		return s3.UploadInfo{}, err
	}
	data, err := encodeExport(doc)
	if err != nil {
		return s3.UploadInfo{}, err
	}

	objectName := name
	if id := s.collector.stationID(); id != "" {
		objectName = path.Join(id, name)
	}

	info, err := s.storage.UploadObject(ctx, s.opts.Bucket, objectName, bytes.NewReader(data), int64(len(data)), "application/json")
	if err != nil {
		s.logger.Error().Err(err).Str("object", objectName).Msg("Failed to upload fingerprint backup")
		return s3.UploadInfo{}, err
	}

	s.mu.Lock()
	s.backedUp = true
	s.lastDigest = digest
	s.mu.Unlock()

	s.logger.Info().
		Str("object", info.Key).
		Int64("size", info.Size).
		Msg("Fingerprint backup uploaded")
	return info, nil
}
