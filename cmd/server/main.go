package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/topogame/dice-dominion-sub000/internal/config"
	"github.com/topogame/dice-dominion-sub000/internal/logger"
	"github.com/topogame/dice-dominion-sub000/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", false)
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	port := flag.Int("port", cfg.Port, "Server port")
	dbPath := flag.String("db", cfg.DBPath, "Database path")
	dev := flag.Bool("dev", cfg.Dev, "Colour console logging")
	flag.Parse()

	cfg.Port = *port
	cfg.DBPath = *dbPath
	cfg.Dev = *dev

	logger.Init(cfg.LogLevel, cfg.Dev)

	// Use PORT env var if set (required for Render.com and similar platforms)
	if envPort := os.Getenv("PORT"); envPort != "" {
		p, err := strconv.Atoi(envPort)
		if err != nil {
			log.Fatal().Str("port", envPort).Msg("Invalid PORT")
		}
		cfg.Port = p
		log.Info().Int("port", p).Msg("Using PORT from environment")
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}

	// Handle shutdown gracefully
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("Server error")
			done <- syscall.SIGTERM
		}
	}()

	<-done
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	log.Info().Msg("Server stopped")
}
