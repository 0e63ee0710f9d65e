package web

import (
	"net/http"
	"time"

	"github.com/benmeehan/rssi-collector/internal/models"
	"github.com/benmeehan/rssi-collector/internal/services"
	"github.com/benmeehan/rssi-collector/internal/utils"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

// Options configures the HTTP surface.
type Options struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	PollInterval       time.Duration
	Grid               models.GridExtent
}

// NewRouter wires the pages, the JSON API and the push channel.
// backup may be nil when object storage is not configured.
func NewRouter(collector *services.Collector, hub *Hub, backup Backuper, pages *Pages, opts Options, logger zerolog.Logger) http.Handler {
	h := newHandler(collector, backup, pages, opts, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         86400,
	}))

	r.Get("/", h.Index)
	r.Get("/grid", h.Grid)
	r.Get("/test", h.Test)
	r.Handle("/static/*", staticHandler())
	r.Get("/ws", hub.ServeWS(Upgrader(utils.SliceToSet(opts.AllowedOrigins))))

	r.Route("/api", func(r chi.Router) {
		if opts.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(opts.RateLimitPerMinute, time.Minute))
		}

		r.Get("/current_rssi", h.CurrentRSSI)
		r.Get("/debug", h.Debug)
		r.Get("/position", h.Position)
		r.Post("/save_fingerprint", h.SaveFingerprint)

		r.Route("/fingerprints", func(r chi.Router) {
			r.Get("/", h.Fingerprints)
			r.Get("/export", h.Export)
			r.Post("/clear", h.Clear)
			r.Post("/import", h.Import)
			r.Post("/backup", h.Backup)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, logger, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, logger, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}

// requestLogger logs one line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			ev := logger.Debug()
			if status >= http.StatusInternalServerError {
				ev = logger.Error()
			} else if status >= http.StatusBadRequest {
				ev = logger.Warn()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Msg("HTTP request")
		})
	}
}
