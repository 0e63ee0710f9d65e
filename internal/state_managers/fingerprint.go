package state_managers

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/pkg/file"
	"github.com/rs/zerolog"
)

// FingerprintStateManager handles file-based fingerprint persistence.
// Every mutation rewrites the whole document.
type FingerprintStateManager struct {
	filePath   string
	fileClient file.FileOperations
	logger     zerolog.Logger

	mu           sync.RWMutex
	fingerprints []models.Fingerprint
}

// NewFingerprintStateManager initializes a new FingerprintStateManager
func NewFingerprintStateManager(filePath string, fileClient file.FileOperations, logger zerolog.Logger) *FingerprintStateManager {
	return &FingerprintStateManager{
		filePath:     filePath,
		fileClient:   fileClient,
		logger:       logger,
		fingerprints: []models.Fingerprint{},
	}
}

// LoadState reads the fingerprints from the file. A missing file is an empty list.
func (sm *FingerprintStateManager) LoadState() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	var loaded []models.Fingerprint
	if err := sm.fileClient.ReadJsonFile(sm.filePath, &loaded); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			sm.fingerprints = []models.Fingerprint{}
			return nil
		}
		sm.logger.Error().Err(err).Str("file", sm.filePath).Msg("Failed to read fingerprint file")
		return fmt.Errorf("failed to load fingerprints: %w", err)
	}
	if loaded == nil {
		loaded = []models.Fingerprint{}
	}
	sm.fingerprints = loaded
	sm.logger.Info().Int("count", len(loaded)).Str("file", sm.filePath).Msg("Fingerprints loaded")
	return nil
}

// saveLocked writes next to disk and swaps it in on success. Callers hold mu.
func (sm *FingerprintStateManager) saveLocked(next []models.Fingerprint) error {
	if err := sm.fileClient.WriteJsonFile(sm.filePath, next); err != nil {
		sm.logger.Error().Err(err).Str("file", sm.filePath).Msg("Failed to write fingerprint file")
		return fmt.Errorf("failed to save fingerprints: %w", err)
	}
	sm.fingerprints = next
	return nil
}

// Append adds fingerprints and persists the list.
func (sm *FingerprintStateManager) Append(fps ...models.Fingerprint) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	next := make([]models.Fingerprint, 0, len(sm.fingerprints)+len(fps))
	next = append(next, sm.fingerprints...)
	next = append(next, fps...)
	return sm.saveLocked(next)
}

// Replace swaps the whole list and persists it.
func (sm *FingerprintStateManager) Replace(fps []models.Fingerprint) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	next := make([]models.Fingerprint, len(fps))
	copy(next, fps)
	return sm.saveLocked(next)
}

// Clear removes every fingerprint.
func (sm *FingerprintStateManager) Clear() error {
	return sm.Replace(nil)
}

// List returns a copy of the stored fingerprints.
func (sm *FingerprintStateManager) List() []models.Fingerprint {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make([]models.Fingerprint, len(sm.fingerprints))
	copy(out, sm.fingerprints)
	return out
}

// Count returns the number of stored fingerprints.
func (sm *FingerprintStateManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.fingerprints)
}
