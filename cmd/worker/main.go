package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"leadflow/internal/platform/config"
	"leadflow/internal/platform/database"
	"leadflow/internal/platform/repositories"
	"leadflow/internal/pkg/logger"
	"leadflow/internal/workers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.Logging)

	db, err := database.Open(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Dur("retention", cfg.Audit.Retention).
		Dur("interval", cfg.Audit.PruneInterval).
		Msg("Starting leadflow background workers")

	workers.RunPruner(ctx, repositories.NewExecutionLogRepository(db), cfg.Audit.Retention, cfg.Audit.PruneInterval)

	log.Info().Msg("Workers stopped")
}
