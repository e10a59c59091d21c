// Package api exposes session management over HTTP for the dashboards.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"garagepro/internal/activity"
	"garagepro/internal/metrics"
	"garagepro/internal/session"
)

// Sessions is the subset of session.Manager the API needs.
type Sessions interface {
	Open(ctx context.Context, req session.OpenRequest) (session.Info, error)
	Touch(ctx context.Context, id, kind string) error
	Close(ctx context.Context, id, reason string) error
	Get(id string) (session.Info, error)
	List() []session.Info
	Len() int
}

// Server is the session API server.
type Server struct {
	sessions  Sessions
	authToken string
	logger    *slog.Logger
	startAt   time.Time
}

func NewServer(sessions Sessions, authToken string, logger *slog.Logger) *Server {
	l := logger.With("component", "api")
	if authToken == "" {
		l.Warn("session API has no auth token configured, all requests will be allowed")
	}
	return &Server{
		sessions:  sessions,
		authToken: authToken,
		logger:    l,
		startAt:   time.Now(),
	}
}

// Handler returns the routed http.Handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/sessions").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("", s.listSessions).Methods(http.MethodGet)
	api.HandleFunc("", s.openSession).Methods(http.MethodPost)
	api.HandleFunc("/{id}", s.getSession).Methods(http.MethodGet)
	api.HandleFunc("/{id}", s.closeSession).Methods(http.MethodDelete)
	api.HandleFunc("/{id}/activity", s.touchSession).Methods(http.MethodPost)

	// Subrouters do not inherit these from the parent.
	for _, router := range []*mux.Router{r, api} {
		router.NotFoundHandler = http.HandlerFunc(notFound)
		router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
	}
	return r
}

// authMiddleware checks for a valid Bearer token if one is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+s.authToken {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"uptime":   time.Since(s.startAt).Round(time.Second).String(),
		"sessions": s.sessions.Len(),
	})
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.List())
}

func (s *Server) openSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req session.OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	info, err := s.sessions.Open(r.Context(), req)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	s.logger.Info("session opened via API", "session", info.ID, "role", info.Role)
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.sessions.Get(mux.Vars(r)["id"])
	if err != nil {
		s.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type touchRequest struct {
	Kind string `json:"kind"`
}

func (s *Server) touchSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	var req touchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.sessions.Touch(r.Context(), mux.Vars(r)["id"], req.Kind); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) closeSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.Context(), mux.Vars(r)["id"], session.ReasonLogout); err != nil {
		s.writeSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeSessionError maps domain errors onto HTTP status codes.
func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrInvalidRole),
		errors.Is(err, session.ErrMissingUser),
		errors.Is(err, activity.ErrUnknownKind):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("session request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
