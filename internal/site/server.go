package site

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"clinviz/internal/config"
	apierrors "clinviz/internal/errors"
	"clinviz/internal/middleware"
	"clinviz/pkg/contracts"
)

// Server hosts a rendered report site: static files, a small JSON API, a
// metrics endpoint and an optional live-reload channel backed by a filesystem
// watch on the site directory.
type Server struct {
	logger  *slog.Logger
	cfg     config.ServerConfig
	siteDir string
	hub     *reloadHub
	metrics *siteMetrics
	httpSrv *http.Server
}

// NewServer builds the server for a site directory. The directory must
// already contain a built report (at minimum an index.html).
func NewServer(logger *slog.Logger, cfg config.ServerConfig, siteDir string) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(siteDir)
	if err != nil || !info.IsDir() {
		return nil, apierrors.NewNotFoundError(fmt.Sprintf("site directory %s", siteDir))
	}

	metrics := newSiteMetrics()
	s := &Server{
		logger:  logger,
		cfg:     cfg,
		siteDir: siteDir,
		hub:     newReloadHub(logger, metrics),
		metrics: metrics,
	}
	s.httpSrv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

// Routes assembles the router with the standard middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.StructuredLogger(s.logger))
	r.Use(middleware.Recoverer(s.logger))
	r.Use(middleware.Metrics(s.metrics.requests, s.metrics.latency))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Compress(5))

	limiter := middleware.NewRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst, s.logger)
	r.Use(limiter.Handler)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/report", s.handleReport)
	r.Handle("/metrics", s.metrics.handler())

	if s.cfg.LiveReload {
		r.Get("/ws/reload", s.hub.handleWS)
		r.Get("/livereload.js", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/javascript")
			w.Write([]byte(reloadScript))
		})
	}

	r.Get("/*", s.handleStatic)
	return r
}

// Start runs the HTTP server and, when live reload is enabled, the site
// watcher. Blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("site server listening",
			slog.String("addr", s.httpSrv.Addr),
			slog.String("site_dir", s.siteDir),
			slog.Bool("live_reload", s.cfg.LiveReload))
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	watchCtx, cancelWatch := context.WithCancel(ctx)
	defer cancelWatch()
	if s.cfg.LiveReload {
		go func() {
			if err := watchSite(watchCtx, s.siteDir, s.logger, s.hub.broadcast); err != nil {
				s.logger.Error("site watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	select {
	case err := <-serveErr:
		return apierrors.NewStorageError("site server failed", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.hub.closeAll()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return apierrors.NewStorageError("site server shutdown failed", err)
	}
	s.logger.Info("site server stopped")
	return nil
}

type healthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

func (h *healthResponse) Render(w http.ResponseWriter, r *http.Request) error { return nil }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.Render(w, r, &healthResponse{
		Status:  "ok",
		Version: contracts.Version,
		Time:    time.Now().UTC(),
	})
}

// handleReport serves the metadata of the last built report.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(s.siteDir, "report.json")
	data, err := os.ReadFile(path)
	if err != nil {
		render.Render(w, r, apierrors.ErrReportNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// handleStatic serves site files. HTML pages get the live-reload snippet
// appended so a re-build refreshes connected browsers.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/")
	if rel == "" {
		rel = "index.html"
	}
	rel = filepath.Clean(rel)
	if strings.HasPrefix(rel, "..") {
		render.Render(w, r, apierrors.ErrNotFound)
		return
	}

	path := filepath.Join(s.siteDir, rel)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		render.Render(w, r, apierrors.ErrNotFound)
		return
	}

	if s.cfg.LiveReload && strings.HasSuffix(path, ".html") {
		data, err := os.ReadFile(path)
		if err != nil {
			render.Render(w, r, apierrors.ErrNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(data)
		w.Write([]byte(`<script src="/livereload.js"></script>`))
		return
	}

	http.ServeFile(w, r, path)
}
