package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cwbudde/ssimcompare/internal/ssim"
	"github.com/cwbudde/ssimcompare/internal/store"
)

// maxRequestBytes caps the JSON body of a compare request.
const maxRequestBytes = 1 << 20

// Server represents the HTTP server
type Server struct {
	store      store.Store
	comparator *ssim.Comparator
	addr       string
	server     *http.Server
}

// NewServer creates a new HTTP server. st may be nil, in which case
// reports are returned but not persisted.
func NewServer(addr string, st store.Store, comparator *ssim.Comparator) *Server {
	if comparator == nil {
		comparator = ssim.NewComparator(ssim.Options{})
	}
	s := &Server{
		store:      st,
		comparator: comparator,
		addr:       addr,
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped with middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/compare", s.handleCompare)
	mux.HandleFunc("/api/v1/reports", s.handleReports)
	mux.HandleFunc("/api/v1/reports/", s.handleReportsWithID)

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server. It returns http.ErrServerClosed once
// Shutdown has been called, including when Shutdown ran first.
func (s *Server) Start() error {
	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// handleCompare handles POST /api/v1/compare
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	outcome, err := RunComparison(r.Context(), req, s.comparator)
	if err != nil {
		var reqErr *RequestError
		switch {
		case errors.As(err, &reqErr):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case isInputError(err):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			slog.Error("Comparison failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if s.store != nil {
		if err := SaveOutcome(s.store, outcome); err != nil {
			slog.Error("Failed to save report", "id", outcome.Report.ID, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, outcome.Report)
}

// handleReports handles GET /api/v1/reports
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.store == nil {
		writeJSON(w, http.StatusOK, []store.Report{})
		return
	}

	reports, err := s.store.ListReports()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Timestamp.After(reports[j].Timestamp)
	})

	writeJSON(w, http.StatusOK, reports)
}

// handleReportsWithID handles /api/v1/reports/:id/*
func (s *Server) handleReportsWithID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/v1/reports/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Report ID required", http.StatusBadRequest)
		return
	}
	if s.store == nil {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	id := parts[0]
	switch {
	case len(parts) == 1:
		s.handleGetReport(w, id)
	case len(parts) == 2 && parts[1] == "map.png":
		s.handleGetScoreMap(w, id)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleGetReport handles GET /api/v1/reports/:id
func (s *Server) handleGetReport(w http.ResponseWriter, id string) {
	report, err := s.store.LoadReport(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleGetScoreMap handles GET /api/v1/reports/:id/map.png
func (s *Server) handleGetScoreMap(w http.ResponseWriter, id string) {
	entries, err := s.store.ReadWindows(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "No window scores for report", http.StatusNotFound)
		return
	} else if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	img := ScoreMap(entries)
	if img == nil {
		http.Error(w, "No window scores for report", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := png.Encode(w, img); err != nil {
		slog.Error("Failed to encode PNG", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
