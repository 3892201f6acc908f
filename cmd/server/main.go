package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/urfave/cli/v2"

	"github.com/liamcoop/costpredictor/inference"
	"github.com/liamcoop/costpredictor/internal/logger"
	"github.com/liamcoop/costpredictor/model"
)

var version = "dev"

type Server struct {
	cfg       Config
	models    *model.Holder
	predictor *inference.Service
	router    *chi.Mux
}

func NewServer(cfg Config, models *model.Holder, predictor *inference.Service) *Server {
	s := &Server{
		cfg:       cfg,
		models:    models,
		predictor: predictor,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(requestLogFormatter{}))
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.cfg.CORSOrigins))
	r.Use(requestSizeMiddleware(s.cfg.MaxBodySize))

	r.Post("/predict", s.handlePredict)
	r.Get("/health", s.handleHealth)
	r.Get("/model", s.handleModel)
	r.Get("/metrics", s.handleMetrics)

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Prediction handler
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, ErrorResponse{
				Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
				Kind:  "validation",
			})
			return
		}
		respondError(w, http.StatusBadRequest, ErrorResponse{Error: "failed to read request body", Kind: "validation"})
		return
	}

	req, err := inference.DecodeRequest(bytes.NewReader(body))
	if err == nil {
		var result inference.PredictionResult
		result, err = s.predictor.Predict(r.Context(), req)
		if err == nil {
			respondJSON(w, http.StatusOK, PredictResponse(result))
			return
		}
	}

	var verr *inference.ValidationError
	var merr *inference.ModelError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Kind: "validation", Fields: verr.Problems})
	case errors.As(err, &merr):
		logger.Warn("Prediction failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		respondError(w, http.StatusBadRequest, ErrorResponse{Error: merr.Error(), Kind: "model"})
	case errors.Is(err, inference.ErrModelNotLoaded):
		respondError(w, http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	default:
		logger.Error("Unexpected prediction error", "request_id", middleware.GetReqID(r.Context()), "error", err)
		respondError(w, http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	m := s.models.Current()
	if m == nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy"})
		return
	}

	loadedAt := m.LoadedAt()
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Model:    m.Name(),
		Instance: m.Instance().String(),
		LoadedAt: &loadedAt,
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	m := s.models.Current()
	if m == nil {
		respondError(w, http.StatusServiceUnavailable, ErrorResponse{Error: inference.ErrModelNotLoaded.Error()})
		return
	}
	respondJSON(w, http.StatusOK, newModelResponse(m))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, s.predictor.Metrics().Snapshot().PrometheusText())
	fmt.Fprintf(w,
		"costpredictor_http_4xx_total %d\n"+
			"costpredictor_http_400_total %d\n"+
			"costpredictor_http_404_total %d\n"+
			"costpredictor_http_5xx_total %d\n"+
			"costpredictor_http_503_total %d\n"+
			"costpredictor_log_errors_total %d\n"+
			"costpredictor_log_warnings_total %d\n",
		logger.Total4xxErrors.Load(),
		logger.Total400Errors.Load(),
		logger.Total404Errors.Load(),
		logger.Total5xxErrors.Load(),
		logger.Total503Errors.Load(),
		logger.TotalErrors.Load(),
		logger.TotalWarnings.Load(),
	)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, resp ErrorResponse) {
	switch {
	case status >= 500:
		logger.ErrorHttp5xx(status)
	case status >= 400:
		logger.WarnHttp4xx(status)
	}
	respondJSON(w, status, resp)
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "costpredictor",
		Usage:   "Serve travel cost predictions over HTTP",
		Version: version,
		Flags:   serverFlags(),
		Action:  run,
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := configFromCLI(c)
	if err != nil {
		return err
	}
	if err := logger.Setup(cfg.LoggerOptions()); err != nil {
		return err
	}
	defer logger.Shutdown(context.Background())

	metrics := inference.NewMetrics()
	holder := model.NewHolder(cfg.ModelPath, inference.Schema())
	holder.OnReload(func(_ *model.Model, err error) { metrics.RecordReload(err) })

	m, err := holder.Load()
	if err != nil {
		logger.Error("Failed to load model", "path", cfg.ModelPath, "error", err)
		return fmt.Errorf("failed to load model: %w", err)
	}
	logger.Info("Model loaded",
		"name", m.Name(),
		"path", m.Path(),
		"instance", m.Instance().String(),
		"derived", m.DerivedSources(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WatchModel {
		go func() {
			if err := holder.Watch(ctx, model.DefaultDebounce); err != nil {
				logger.Error("Model watcher stopped", "error", err)
			}
		}()
	}

	server := NewServer(cfg, holder, inference.NewService(holder, metrics))

	// No read/write timeouts: predictions are not cancelled or time-limited.
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "addr", cfg.Addr(), "version", version)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("Server failed to start", "error", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		return err
	}

	logger.Info("Server stopped")
	return nil
}
