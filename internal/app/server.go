package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/zoravur/bookshelf-live/internal/api"
	"github.com/zoravur/bookshelf-live/internal/config"
	"github.com/zoravur/bookshelf-live/internal/imagegen"
	"github.com/zoravur/bookshelf-live/internal/live"
	"github.com/zoravur/bookshelf-live/internal/store"
	"github.com/zoravur/bookshelf-live/internal/store/migrations"
)

type Server struct {
	httpServer *http.Server
	Registry   *live.Registry
	DB         *sql.DB

	cfg config.Config
	log *zap.Logger
}

func NewServer(ctx context.Context, cfg config.Config, log *zap.Logger) (*Server, error) {
	db, err := store.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrations.Up(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	st := store.New(db)
	reg := live.NewRegistry(log.Named("live"))

	if cfg.ImagegenSeed != 0 {
		imagegen.Seed(int64(cfg.ImagegenSeed))
	}
	images := imagegen.New(st, reg, cfg.ImagegenInterval, log.Named("imagegen"))

	mux := api.SetupRoutes(&api.Handlers{
		Store:    st,
		Registry: reg,
		Images:   images,
	}, api.RouteOptions{
		Origins:   cfg.Origins(),
		StaticDir: cfg.StaticDir,
	})

	return &Server{
		httpServer: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: mux,
		},
		Registry: reg,
		DB:       db,
		cfg:      cfg,
		log:      log,
	}, nil
}

// Run listens on the configured address and serves until SIGINT/SIGTERM.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve handles requests on ln until ctx is done, then drains HTTP, closes
// every live connection and the database.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.Stringer("addr", ln.Addr()))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		s.log.Info("shutting down")
	case runErr = <-errCh:
		s.log.Error("http server failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("http shutdown: %w", err))
	}
	// Shutdown does not track hijacked websocket conns.
	if n := s.Registry.CloseAll(); n > 0 {
		s.log.Info("closed live connections", zap.Int("count", n))
	}
	if err := s.DB.Close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close database: %w", err))
	}
	return runErr
}
