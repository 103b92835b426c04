package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"

	"github.com/openbilling/invoiceflow/expr"
	"github.com/openbilling/invoiceflow/internal/logger"
	"github.com/openbilling/invoiceflow/lookup"
	"github.com/openbilling/invoiceflow/pipeline"
	"github.com/openbilling/invoiceflow/rules"
)

type Config struct {
	DatabaseURL    string        `env:"DATABASE_URL"`
	Port           string        `env:"PORT" envDefault:"8080"`
	LookupTimeout  time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"2s"`
	LookupCacheTTL time.Duration `env:"LOOKUP_CACHE_TTL" envDefault:"5m"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
}

type Server struct {
	db        *sql.DB
	store     *rules.Store
	source    rules.Source
	processor *pipeline.Processor
	router    *chi.Mux
}

func NewServer(cfg Config) (*Server, error) {
	var db *sql.DB
	var refStore lookup.ReferenceStore
	var source rules.Source

	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.Ping(); err != nil {
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		refStore = lookup.NewPostgresStore(db)
		source = rules.NewPostgresSource(db)
	} else {
		logger.Warn("DATABASE_URL not set, running with built-in reference data and no rules")
		source = &rules.StaticSource{}
	}

	cache := lookup.NewCache(lookup.CacheConfig{TTL: cfg.LookupCacheTTL, MaxEntries: 4096})
	opts := []lookup.Option{lookup.WithCache(cache)}
	if cfg.LookupTimeout > 0 {
		opts = append(opts, lookup.WithTimeout(cfg.LookupTimeout))
	}
	resolver := lookup.NewResolver(refStore, lookup.NewStaticCatalog(), opts...)

	store := rules.NewStore()
	s := &Server{
		db:     db,
		store:  store,
		source: source,
		processor: pipeline.NewProcessor(
			rules.NewCompletionEngine(store, resolver),
			rules.NewValidationEngine(store, resolver),
		),
	}

	if err := s.reload(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	s.setupRoutes(cfg.RequestTimeout)
	return s, nil
}

func (s *Server) reload(ctx context.Context) error {
	completion, validation, err := s.source.LoadRules(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Load(completion, validation); err != nil {
		return err
	}
	logger.Info("rules loaded", "completion", len(completion), "validation", len(validation))
	return nil
}

func (s *Server) setupRoutes(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/api/v1/health", s.handleHealth)
	r.Post("/api/v1/invoices/process", s.handleProcess)
	r.Get("/api/v1/rules", s.handleListRules)
	r.Post("/api/v1/rules/reload", s.handleReloadRules)
	r.Post("/api/v1/expressions/validate", s.handleValidateExpression)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

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

	completion, validation := s.store.Count()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"completion_rules": completion,
		"validation_rules": validation,
	})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if len(req.Documents) == 0 {
		respondError(w, http.StatusBadRequest, "documents are required", nil)
		return
	}

	startTime := time.Now()
	result, err := s.processor.ProcessBatch(r.Context(), req.Documents, pipeline.Options{
		Merge: req.Merge,
		Split: req.Split,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, "processing failed", err)
		return
	}

	respondJSON(w, http.StatusOK, ProcessResponse{
		BatchID:        result.BatchID,
		Results:        result.Results,
		ProcessingTime: time.Since(startTime).String(),
	})
}

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	completion := s.store.ActiveCompletionRules()
	validation := s.store.ActiveValidationRules()

	resp := RulesListResponse{
		Completion: make([]CompletionRuleResponse, 0, len(completion)),
		Validation: make([]ValidationRuleResponse, 0, len(validation)),
	}
	for _, cr := range completion {
		resp.Completion = append(resp.Completion, CompletionRuleResponse{
			ID:          cr.Rule.ID,
			Name:        cr.Rule.Name,
			Priority:    cr.Rule.Priority,
			ApplyTo:     cr.Rule.ApplyTo,
			TargetField: cr.Rule.TargetField,
			Expression:  cr.Rule.Expression,
			Active:      cr.Rule.Active,
		})
	}
	for _, vr := range validation {
		resp.Validation = append(resp.Validation, ValidationRuleResponse{
			ID:           vr.Rule.ID,
			Name:         vr.Rule.Name,
			Priority:     vr.Rule.Priority,
			ApplyTo:      vr.Rule.ApplyTo,
			FieldPath:    vr.Rule.FieldPath,
			Expression:   vr.Rule.Expression,
			ErrorMessage: vr.Rule.ErrorMessage,
			Active:       vr.Rule.Active,
		})
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReloadRules(w http.ResponseWriter, r *http.Request) {
	if err := s.reload(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to reload rules", err)
		return
	}

	completion, validation := s.store.Count()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":           "reloaded",
		"completion_rules": completion,
		"validation_rules": validation,
	})
}

func (s *Server) handleValidateExpression(w http.ResponseWriter, r *http.Request) {
	var req ValidateExpressionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Expression == "" {
		respondError(w, http.StatusBadRequest, "expression is required", nil)
		return
	}

	if _, err := expr.Compile(req.Expression); err != nil {
		respondJSON(w, http.StatusOK, ValidateExpressionResponse{
			Valid: false,
			Error: err.Error(),
		})
		return
	}
	respondJSON(w, http.StatusOK, ValidateExpressionResponse{Valid: true})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]string{
		"error": message,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

func main() {
	defer logger.Shutdown(context.Background())

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal("failed to parse configuration", "error", err)
	}

	server, err := NewServer(cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if server.db != nil {
		defer server.db.Close()
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
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

	logger.Info("server stopped")
}
