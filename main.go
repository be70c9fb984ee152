package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/api"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/app"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logging)
	if err != nil {
		logging.Fatal("Initialisierung fehlgeschlagen", zap.Error(err))
	}
	defer a.Close()

	if err := a.RegisterStages(true); err != nil {
		logging.Fatal("Scheduler-Konfiguration ungültig", zap.Error(err))
	}
	a.Scheduler.Start()

	router := api.NewRouter(&api.Handler{
		Config:     cfg,
		Logger:     logging.Named("api"),
		Feed:       a.Feed,
		Jobs:       a.Scheduler,
		Runs:       a.Repo,
		Taxonomies: a.Taxonomies,
		Sources:    a.Sources,
	})

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("Failed to run server", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logging.Info("Fahre Server herunter.")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server-Shutdown fehlgeschlagen", zap.Error(err))
	}
	a.Scheduler.Stop(shutdownCtx)
}
