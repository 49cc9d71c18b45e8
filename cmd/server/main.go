package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/pflag"

	"github.com/arnavshah/rota-matcher/internal/config"
	"github.com/arnavshah/rota-matcher/internal/logging"
	"github.com/arnavshah/rota-matcher/internal/metrics"
	"github.com/arnavshah/rota-matcher/pkg/database"
	"github.com/arnavshah/rota-matcher/pkg/handlers"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("could not run server: %v", err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("rota-server", pflag.ContinueOnError)
	configPath := flags.String("config", "", "TOML config file (default $ROTA_CONFIG)")
	port := flags.String("port", "", "listen port, overrides PORT")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	if cfg.Server.GinMode == "" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(cfg.Server.GinMode)
	}

	logger := logging.New(cfg.Log.Verbosity).WithName("server")

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}

	metrics.Register()
	h := handlers.New(db, cfg, logger)
	if err := h.Auth.EnsureAdminExists(db, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}
	h.Start()
	defer h.Stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handlers.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
