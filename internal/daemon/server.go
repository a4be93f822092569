package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/codeeasy/internal/api"
	"github.com/felixgeelhaar/codeeasy/internal/config"
)

// PIDFileName is written to the data directory while the daemon runs
const PIDFileName = "codeeasyd.pid"

// Server represents the CodeEasy daemon HTTP server
type Server struct {
	cfg    *config.Config
	app    *api.App
	server *http.Server
	logger *slog.Logger
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config  *config.Config
	Logger  *slog.Logger
	Version string
}

// NewServer creates a new daemon server
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app, err := api.NewApp(ctx, api.AppConfig{
		Config:  cfg.Config,
		Logger:  logger,
		Version: cfg.Version,
	})
	if err != nil {
		return nil, err
	}

	// Synchronous submissions hold the connection for a full judge call
	writeTimeout := cfg.Config.JudgeTimeout() + 30*time.Second

	return &Server{
		cfg:    cfg.Config,
		app:    app,
		logger: logger,
		server: &http.Server{
			Addr:              cfg.Config.Addr(),
			Handler:           app.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       120 * time.Second,
		},
	}, nil
}

// App returns the wired application
func (s *Server) App() *api.App {
	return s.app
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts queue consumers and then the HTTP server. It blocks until
// the server stops and returns http.ErrServerClosed after Shutdown.
func (s *Server) Start(ctx context.Context) error {
	if err := s.app.Start(ctx); err != nil {
		return err
	}

	s.logger.Info("starting codeeasy daemon",
		"addr", s.server.Addr,
		"judge", s.app.Judge.Name(),
		"storage", s.cfg.Storage.Driver,
		"queue", s.app.Queue != nil,
		"content_root", s.cfg.Content.Root,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)
	return errors.Join(err, s.app.Close())
}

// WritePIDFile records the current process ID under dir
func WritePIDFile(dir string) (string, error) {
	path := filepath.Join(dir, PIDFileName)
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0644); err != nil {
		return "", fmt.Errorf("write pid file: %w", err)
	}
	return path, nil
}

// ReadPIDFile returns the process ID recorded under dir
func ReadPIDFile(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, PIDFileName))
	if err != nil {
		return 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid: %w", err)
	}
	return pid, nil
}
