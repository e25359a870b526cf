package collector

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/rumwatch/shield"
)

// maxPayload bounds one beacon body. Records are small; anything bigger is
// not ours.
const maxPayload = 64 << 10

// Server is the HTTP intake surface.
type Server struct {
	store  *Store
	logger *slog.Logger
	router *chi.Mux
}

// NewServer creates the intake server around a store.
func NewServer(store *Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
	r.Use(shield.MaxBody(maxPayload + 1024))
	r.Use(shield.NewRateLimiter(600, time.Minute, logger).Middleware)

	r.Post("/.rum/{weight}", s.handleIntake)
	r.Get("/records", s.handleRecent)
	r.Get("/stats", s.handleStats)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleIntake accepts one beacon POST. Cross-origin senders arrive as
// text/plain without a preflight, so the content type is not checked; the
// payload is parsed as JSON either way.
func (s *Server) handleIntake(w http.ResponseWriter, r *http.Request) {
	weight, err := strconv.Atoi(chi.URLParam(r, "weight"))
	if err != nil || weight <= 0 {
		http.Error(w, "invalid weight", http.StatusBadRequest)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxPayload+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(payload) > maxPayload {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	intakeID, err := s.store.Insert(r.Context(), weight, r.RemoteAddr, payload)
	if err != nil {
		s.logger.Warn("collector: intake rejected", "error", err)
		http.Error(w, "invalid record", http.StatusBadRequest)
		return
	}

	s.logger.Debug("collector: record stored", "intake_id", intakeID, "weight", weight)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := s.store.Recent(r.Context(), limit)
	if err != nil {
		s.logger.Error("collector: recent query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, recs)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountByKind(r.Context())
	if err != nil {
		s.logger.Error("collector: stats query failed", "error", err)
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, counts)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
