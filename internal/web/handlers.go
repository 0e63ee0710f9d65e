package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/benmeehan/rssi-collector/internal/constants"
	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/internal/services"
	"github.com/benmeehan/rssi-collector/pkg/s3"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

const maxImportBytes = 16 << 20

// Backuper uploads the fingerprint export on demand.
type Backuper interface {
	Backup(ctx context.Context) (s3.UploadInfo, error)
}

// Handler serves the pages and the JSON API.
type Handler struct {
	collector *services.Collector
	backup    Backuper
	pages     *Pages
	validate  *validator.Validate
	opts      Options
	logger    zerolog.Logger
}

func newHandler(collector *services.Collector, backup Backuper, pages *Pages, opts Options, logger zerolog.Logger) *Handler {
	return &Handler{
		collector: collector,
		backup:    backup,
		pages:     pages,
		validate:  validator.New(),
		opts:      opts,
		logger:    logger,
	}
}

func (h *Handler) pageData(title string) models.PageData {
	registry := h.collector.Registry()
	names := make(map[string]string, registry.Len())
	for _, b := range registry.Beacons() {
		names[b.MAC] = registry.Name(b.MAC)
	}
	return models.PageData{
		Title:          title,
		Beacons:        registry.Beacons(),
		BeaconNames:    names,
		Fingerprints:   h.collector.Fingerprints(),
		PollIntervalMS: h.opts.PollInterval.Milliseconds(),
		StaleAfterSec:  h.collector.StaleAfter().Seconds(),
		Grid:           h.opts.Grid,
	}
}

func (h *Handler) render(w http.ResponseWriter, name string, data models.PageData) {
	var buf bytes.Buffer
	if err := h.pages.Execute(&buf, name, data); err != nil {
		h.logger.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// Index renders the readings and collection page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, "index.html", h.pageData("RSSI Fingerprint Collector"))
}

// Grid renders the clickable grid page.
func (h *Handler) Grid(w http.ResponseWriter, r *http.Request) {
	h.render(w, "grid.html", h.pageData("RSSI Fingerprint Grid"))
}

// Test reports liveness.
func (h *Handler) Test(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.collector.Status())
}

// CurrentRSSI returns the live readings keyed by beacon name.
func (h *Handler) CurrentRSSI(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.collector.CurrentReadings())
}

// Debug returns server diagnostics.
func (h *Handler) Debug(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.collector.Debug(r.Context()))
}

type saveFingerprintResponse struct {
	Status      string             `json:"status"`
	Fingerprint models.Fingerprint `json:"fingerprint"`
}

// SaveFingerprint labels the fresh readings with the posted coordinates.
func (h *Handler) SaveFingerprint(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 64<<10))
	if err != nil || len(bytes.TrimSpace(body)) == 0 {
		respondError(w, h.logger, http.StatusBadRequest, "No JSON data provided")
		return
	}

	// null and {} carry no data either
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid JSON: x and y must be numbers")
		return
	}
	if len(fields) == 0 {
		respondError(w, h.logger, http.StatusBadRequest, "No JSON data provided")
		return
	}

	var req models.SaveFingerprintRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid JSON: x and y must be numbers")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Both x and y coordinates are required")
		return
	}

	fp, err := h.collector.SaveFingerprint(float64(*req.X), float64(*req.Y))
	switch {
	case errors.Is(err, services.ErrNoReadings), errors.Is(err, services.ErrNoRecentReadings):
		h.logger.Warn().Err(err).Msg("Fingerprint rejected")
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("Failed to save fingerprint")
		respondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Server error: %v", err))
		return
	}

	respondJSON(w, h.logger, http.StatusOK, saveFingerprintResponse{Status: constants.StatusSuccess, Fingerprint: fp})
}

// Fingerprints lists every stored fingerprint.
func (h *Handler) Fingerprints(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, h.logger, http.StatusOK, h.collector.Fingerprints())
}

// Export downloads the fingerprint database with its metadata.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, name, err := h.collector.ExportJSON()
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to export fingerprints")
		respondError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", "attachment; filename="+name)
	_, _ = w.Write(data)
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Clear deletes every stored fingerprint.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.collector.ClearFingerprints(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to clear fingerprints")
		respondError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, h.logger, http.StatusOK, statusMessage{Status: constants.StatusSuccess, Message: "All fingerprints cleared"})
}

// Import loads a previously exported document.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var doc models.Export
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err := dec.Decode(&doc); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid export document")
		return
	}

	mode := strings.ToLower(r.URL.Query().Get("mode"))
	res, err := h.collector.Import(doc, mode)
	switch {
	case errors.Is(err, services.ErrInvalidImportMode):
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrUnsupportedFormat):
		respondError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		h.logger.Error().Err(err).Msg("Failed to import fingerprints")
		respondError(w, h.logger, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, h.logger, http.StatusOK, res)
}

type backupResponse struct {
	Status string        `json:"status"`
	Object s3.UploadInfo `json:"object"`
}

// Backup uploads the export to object storage.
func (h *Handler) Backup(w http.ResponseWriter, r *http.Request) {
	if h.backup == nil {
		respondError(w, h.logger, http.StatusServiceUnavailable, services.ErrBackupDisabled.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Minute)
	defer cancel()

	info, err := h.backup.Backup(ctx)
	if err != nil {
		respondError(w, h.logger, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, h.logger, http.StatusOK, backupResponse{Status: constants.StatusSuccess, Object: info})
}

// Position estimates the user's location from the live readings.
func (h *Handler) Position(w http.ResponseWriter, r *http.Request) {
	pos, err := h.collector.EstimatePosition()
	if err != nil {
		respondError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondJSON(w, h.logger, http.StatusOK, pos)
}
