package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/tariffdesk/stacking/exemptions"
	"github.com/tariffdesk/stacking/internal/logger"
	"github.com/tariffdesk/stacking/questions"
	"github.com/tariffdesk/stacking/tariff"
)

type Server struct {
	db      *sql.DB // nil unless the catalog is postgres-backed
	catalog *exemptions.Catalog
	router  *chi.Mux
}

// NewServer wires the exemption catalog from the configured source.
// CATALOG_SOURCE selects it: "builtin" (default), "file:<path>" for a YAML
// catalog, or "postgres" (requires DATABASE_URL).
func NewServer(catalogSource string) (*Server, error) {
	var store exemptions.RuleStore
	var db *sql.DB

	switch {
	case catalogSource == "" || catalogSource == "builtin":
		store = exemptions.NewBuiltinRuleStore()

	case strings.HasPrefix(catalogSource, "file:"):
		path := strings.TrimPrefix(catalogSource, "file:")
		fileStore, err := exemptions.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load catalog file: %w", err)
		}
		store = fileStore

	case catalogSource == "postgres":
		databaseURL := os.Getenv("DATABASE_URL")
		if databaseURL == "" {
			return nil, fmt.Errorf("CATALOG_SOURCE=postgres requires DATABASE_URL")
		}
		var err error
		db, err = sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store = exemptions.NewPostgresRuleStore(db)

	default:
		return nil, fmt.Errorf("unknown catalog source %q", catalogSource)
	}

	catalog, err := exemptions.NewCatalog(store)
	if err != nil {
		return nil, fmt.Errorf("failed to build exemption catalog: %w", err)
	}

	s := &Server{
		db:      db,
		catalog: catalog,
	}
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/questions", s.handleQuestions)
	r.Post("/api/v1/evaluate", s.handleEvaluate)
	r.Post("/api/v1/screen", s.handleScreen)
	r.Get("/api/v1/exemptions/{category}", s.handleListExemptions)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"evaluations": logger.EvaluationsRun.Load(),
	})
}

// Question generation handler
func (s *Server) handleQuestions(w http.ResponseWriter, r *http.Request) {
	var req QuestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if len(req.Tariffs) == 0 {
		respondError(w, http.StatusBadRequest, "tariffs are required", nil)
		return
	}
	if req.Product.OriginCountry == "" {
		respondError(w, http.StatusBadRequest, "product_info.origin_country is required", nil)
		return
	}

	qs := questions.Plan(req.Tariffs, req.Product.OriginCountry)
	respondJSON(w, http.StatusOK, QuestionsResponse{Questions: qs})
}

// Evaluation handler: plans the question set, normalizes the raw answers
// against it, and runs the stacking evaluator.
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if len(req.Tariffs) == 0 {
		respondError(w, http.StatusBadRequest, "tariffs are required", nil)
		return
	}
	if req.Product.Value < 0 {
		respondError(w, http.StatusBadRequest, "product_info.value must be non-negative", nil)
		return
	}

	qs := questions.Plan(req.Tariffs, req.Product.OriginCountry)
	answers := questions.Normalize(qs, req.Answers)

	start := time.Now()
	result := tariff.Evaluate(req.Tariffs, answers, req.Product)
	logger.EvaluationsRun.Add(1)

	fingerprint, err := result.Fingerprint()
	if err != nil {
		// The result is still usable without its fingerprint.
		logger.Warn("failed to fingerprint result", "error", err)
	}

	logger.Info("stacking evaluation complete",
		"origin", req.Product.OriginCountry,
		"tariffs", len(req.Tariffs),
		"savings", result.Savings,
		"duration", time.Since(start).String(),
	)

	respondJSON(w, http.StatusOK, EvaluateResponse{
		AnalysisID:    uuid.NewString(),
		StackingOrder: result.Results,
		TotalBefore:   result.TotalBefore,
		TotalAfter:    result.TotalAfter,
		Savings:       result.Savings,
		Fingerprint:   fingerprint,
	})
}

// Simplified single-pass screening handler
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	var req ScreenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if len(req.Tariffs) == 0 {
		respondError(w, http.StatusBadRequest, "tariffs are required", nil)
		return
	}

	qs := questions.Plan(req.Tariffs, req.Product.OriginCountry)
	answers := questions.Normalize(qs, req.Answers)

	result, err := s.catalog.Analyze(req.Product, req.Tariffs, answers)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "screening failed", err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Exemption catalog listing handler
func (s *Server) handleListExemptions(w http.ResponseWriter, r *http.Request) {
	category := tariff.Category(chi.URLParam(r, "category"))

	rules, err := s.catalog.ForCategory(category)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list exemptions", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"category":   category,
		"exemptions": rules,
	})
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

func main() {
	server, err := NewServer(os.Getenv("CATALOG_SOURCE"))
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(ctx); err != nil {
		logger.Error("logger shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
