// Package api serves the HTTP control and health endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/combinedd/internal/combined"
	"github.com/dokzlo13/combinedd/internal/ledger"
)

const (
	defaultLedgerLimit = 50
	maxLedgerLimit     = 1000
	requestTimeout     = 30 * time.Second
)

// Controller is the combined light as seen by the API.
type Controller interface {
	TurnOn(ctx context.Context, brightness *uint8) error
	TurnOff(ctx context.Context) error
	State() combined.State
}

// LedgerReader lists recent ledger entries.
type LedgerReader interface {
	GetRecent(eventType ledger.EventType, limit int) ([]*ledger.Entry, error)
}

// Deps are the collaborators behind the routes. Everything but Controller is optional.
type Deps struct {
	Controller  Controller
	Ledger      LedgerReader
	Ready       func() bool
	Hub         *Hub     // enables GET /api/light/ws
	CORSOrigins []string // empty disables CORS headers
}

type handlers struct {
	deps Deps
}

// NewRouter builds the chi router.
func NewRouter(deps Deps) http.Handler {
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: deps.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}).Handler)
	}

	// The state stream is long-lived and stays outside the request timeout.
	if deps.Hub != nil {
		r.Get("/api/light/ws", h.stream)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Get("/health", h.health)
		r.Get("/ready", h.ready)

		r.Route("/api", func(r chi.Router) {
			r.Get("/light", h.getLight)
			r.Post("/light/on", h.turnOn)
			r.Post("/light/off", h.turnOff)
			r.Get("/ledger", h.getLedger)
		})
	})

	return r
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ready != nil && !h.deps.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handlers) getLight(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Controller.State())
}

func (h *handlers) stream(w http.ResponseWriter, r *http.Request) {
	h.deps.Hub.serve(w, r, h.deps.Controller.State())
}

type turnOnRequest struct {
	Brightness *int `json:"brightness"`
}

func (h *handlers) turnOn(w http.ResponseWriter, r *http.Request) {
	var req turnOnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	var brightness *uint8
	if req.Brightness != nil {
		if *req.Brightness < 0 || *req.Brightness > 255 {
			writeError(w, http.StatusBadRequest, "brightness must be between 0 and 255")
			return
		}
		b := uint8(*req.Brightness)
		brightness = &b
	}

	if err := h.deps.Controller.TurnOn(r.Context(), brightness); err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Controller.State())
}

func (h *handlers) turnOff(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Controller.TurnOff(r.Context()); err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Controller.State())
}

func (h *handlers) getLedger(w http.ResponseWriter, r *http.Request) {
	if h.deps.Ledger == nil {
		writeError(w, http.StatusNotFound, "ledger disabled")
		return
	}

	eventType, err := ledger.ParseEventType(r.URL.Query().Get("type"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := defaultLedgerLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLedgerLimit)
	}

	entries, err := h.deps.Ledger.GetRecent(eventType, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read ledger")
		writeError(w, http.StatusInternalServerError, "failed to read ledger")
		return
	}
	if entries == nil {
		entries = []*ledger.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, combined.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

// requestLogger logs one line per request through zerolog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
