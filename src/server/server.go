// Package server exposes the summarizer session over HTTP: JSON endpoints
// for analysis and history, plus a server-sent-events endpoint that relays
// streaming partial text to the browser.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pagelens/pagelens"
	"github.com/pagelens/pagelens/src/summary"
)

// Options configure the HTTP layer.
type Options struct {
	Session *pagelens.Session
	Logger  *logrus.Logger

	// RateLimit is requests per second per client IP. Zero disables limiting.
	RateLimit rate.Limit
	RateBurst int
	// RequestTimeout bounds each non-streaming analysis.
	RequestTimeout time.Duration
}

// Server routes HTTP requests into the session.
type Server struct {
	session *pagelens.Session
	logger  *logrus.Logger
	timeout time.Duration
	limiter *RateLimiter
}

func New(opts Options) (*Server, error) {
	if opts.Session == nil {
		return nil, fmt.Errorf("server requires a session")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	s := &Server{
		session: opts.Session,
		logger:  logger,
		timeout: timeout,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = int(opts.RateLimit)
			if burst < 1 {
				burst = 1
			}
		}
		s.limiter = NewRateLimiter(opts.RateLimit, burst)
	}
	return s, nil
}

// Handler assembles the routed handler with CORS, logging, and rate limiting.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(loggingMiddleware(s.logger))
	if s.limiter != nil {
		api.Use(s.limiter.Middleware)
	}

	api.HandleFunc("/analyze", s.handleAnalyze).Methods(http.MethodPost)
	api.HandleFunc("/analyze/stream", s.handleAnalyzeStream).Methods(http.MethodPost)
	api.HandleFunc("/history", s.handleHistoryList).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistoryClear).Methods(http.MethodDelete)
	api.HandleFunc("/history/{id}", s.handleHistoryDelete).Methods(http.MethodDelete)

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}).Handler(r)
}

// analyzeRequest is the JSON body of both analyze endpoints.
type analyzeRequest struct {
	Input       string `json:"input"`
	Mode        string `json:"mode,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

func (req analyzeRequest) toSession() pagelens.Request {
	return pagelens.Request{
		Input:       req.Input,
		Mode:        pagelens.Mode(req.Mode),
		ContentType: req.ContentType,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "input is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	rec, err := s.session.Analyze(ctx, req.toSession())
	if err != nil {
		s.writeAnalysisError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleAnalyzeStream relays the analysis over server-sent events: "partial"
// events carry the growing accumulated text, one final "result" event carries
// the normalized record, and "error" ends a failed run.
func (s *Server) handleAnalyzeStream(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "input is required"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rec, err := s.session.AnalyzeStream(r.Context(), req.toSession(), func(text string) {
		writeEvent(w, "partial", map[string]string{"text": text})
		flusher.Flush()
	})
	if err != nil {
		writeEvent(w, "error", errorResponse{Error: pagelens.ClassifyNetworkError(err)})
		flusher.Flush()
		return
	}
	writeEvent(w, "result", rec)
	flusher.Flush()
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	store := s.session.History()
	if store == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	entries, err := store.Get(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("history list failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "history unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	store := s.session.History()
	if store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history not configured"})
		return
	}
	id := mux.Vars(r)["id"]
	if err := store.Delete(r.Context(), id); err != nil {
		s.logger.WithError(err).Error("history delete failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "delete failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	store := s.session.History()
	if store == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "history not configured"})
		return
	}
	if err := store.Clear(r.Context()); err != nil {
		s.logger.WithError(err).Error("history clear failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "clear failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeAnalysisError(w http.ResponseWriter, err error) {
	var formatErr *summary.FormatError
	status := http.StatusBadGateway
	if errors.As(err, &formatErr) {
		status = http.StatusUnprocessableEntity
	}
	s.logger.WithError(err).Error("analysis failed")
	writeJSON(w, status, errorResponse{Error: pagelens.ClassifyNetworkError(err)})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeEvent(w http.ResponseWriter, event string, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
