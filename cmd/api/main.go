package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"fantasy-backtest/internal/api"
	"fantasy-backtest/internal/api/handlers"
	"fantasy-backtest/internal/app"
	"fantasy-backtest/internal/config"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}
	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer a.Close()
	log := a.Log

	if wd, err := os.Getwd(); err == nil {
		log.WithField("working_dir", wd).WithField("data_dir", cfg.Data.Dir).Info("starting API")
	}

	games, roster, err := a.LoadHistory()
	if err != nil {
		log.WithError(err).Error("failed to load history")
		os.Exit(1)
	}
	log.WithField("games", len(games)).WithField("roster", len(roster)).Info("history loaded")

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Tuner:       a.Tuner,
		History:     handlers.NewHistory(games, roster),
		Reload:      a.LoadHistory,
		Recorder:    a.Recorder,
		Log:         log,
		CORSOrigins: cfg.API.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		log.WithField("addr", srv.Addr).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
	log.Info("server stopped")
}
