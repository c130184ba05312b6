package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/herzod/shelfview-cinema/internal/config"
	"github.com/herzod/shelfview-cinema/internal/container"
	"github.com/herzod/shelfview-cinema/internal/handlers"
	"github.com/herzod/shelfview-cinema/internal/logger"
)

func main() {
	logger.Init()
	log := logger.Get()

	err := godotenv.Load(".env.local")
	if err != nil {
		log.Info("No .env file found, using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx)
	if err != nil {
		// Startup failures land here with their cause spelled out, so a
		// missing key or unreachable store is diagnosable from the log.
		log.WithError(err).Fatal("Failed to start")
	}
	defer c.Close()

	port, origins := config.ServerConfig()
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handlers.New(c).Routes(origins),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  time.Minute,
	}

	go func() {
		log.Infof("shelfview starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown failed")
	}
}
