package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/parley-social/parley/gate"
	"github.com/parley-social/parley/models"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

type Config struct {
	Logger *slog.Logger
	Bind   string

	// bearer token for the /admin endpoints
	AdminPassword string

	// empty ref disables the automation allowlist
	AllowlistSecretRef string
	AllowlistTTL       time.Duration
	SystemOwnerTTL     time.Duration
}

type Server struct {
	echo   *echo.Echo
	httpd  *http.Server
	logger *slog.Logger
	db     *gorm.DB
	users  *models.UserStore

	allowlist   *gate.AllowlistCache
	sysAccounts *gate.SystemAccountCache
	blocks      *gate.BlockList

	adminPassword string
}

func NewServer(db *gorm.DB, kv gate.KVStore, secrets gate.SecretSource, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	if err := db.AutoMigrate(&models.User{}, &models.Agent{}); err != nil {
		return nil, err
	}

	allowlist := gate.NewAllowlistCache(secrets, gate.AllowlistConfig{
		SecretRef: config.AllowlistSecretRef,
		TTL:       config.AllowlistTTL,
		// a flapping secret store should not be hit on every request
		RefreshLimit: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}, logger)

	sysAccounts := gate.NewSystemAccountCache(
		models.NewUserStore(db),
		models.NewAgentStore(db),
		config.SystemOwnerTTL,
		logger,
	)

	blocks := gate.NewBlockList(kv, logger)

	srv := &Server{
		logger:        logger,
		db:            db,
		users:         models.NewUserStore(db),
		allowlist:     allowlist,
		sysAccounts:   sysAccounts,
		blocks:        blocks,
		adminPassword: config.AdminPassword,
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	// block check runs at the network boundary, before any handler
	e.Use(blocks.Middleware())
	e.Use(srv.principalMiddleware)
	e.HTTPErrorHandler = srv.errorHandler

	e.GET("/_health", srv.HandleHealthCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/api/me/capabilities", srv.HandleCapabilities)

	admin := e.Group("/admin", srv.checkAdminAuth)
	admin.POST("/ip/block", srv.HandleAdminBlockIP)
	admin.POST("/caches/reset", srv.HandleAdminResetCaches)
	admin.POST("/allowlist/warm", srv.HandleAdminWarmAllowlist)

	srv.echo = e
	srv.httpd = &http.Server{
		Handler:        e,
		Addr:           config.Bind,
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
		MaxHeaderBytes: 1 * 1024 * 1024,
	}
	return srv, nil
}

func (srv *Server) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	srv.echo.ServeHTTP(rw, req)
}

// RunAPI warms the allowlist, starts the HTTP listener, and blocks
// until an exit signal arrives.
func (srv *Server) RunAPI() error {
	// best-effort: serving does not wait on the secret store
	warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	srv.allowlist.Warm(warmCtx)
	cancel()

	srv.logger.Info("starting server", "bind", srv.httpd.Addr)
	go func() {
		if err := srv.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				srv.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	quit := make(chan struct{})
	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-exitSignals
		srv.logger.Info("received OS exit signal", "signal", sig)
		if err := srv.Shutdown(); err != nil {
			srv.logger.Error("HTTP server shutdown error", "err", err)
		}
		close(quit)
	}()
	<-quit
	srv.logger.Info("graceful shutdown complete")
	return nil
}

func (srv *Server) Shutdown() error {
	srv.logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.httpd.Shutdown(ctx)
}
