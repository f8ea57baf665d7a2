package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"xfeed/internal/infrastructure/config"
	"xfeed/internal/infrastructure/logger"
	"xfeed/internal/infrastructure/svc"
)

func main() {
	logger.Setup("info")

	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}
	logger.Setup(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("service initialization failed")
	}
	defer sc.Close()

	log.Info().
		Str("config", *configPath).
		Str("feed", cfg.Feed.Source).
		Str("instrument", cfg.Feed.Instrument).
		Int("history_limit", cfg.Feed.HistoryLimit).
		Int("print_every_min", cfg.App.PrintEveryMin).
		Msg("xfeed started")

	if err := sc.Run(ctx); err != nil {
		log.Error().Err(err).Msg("xfeed exited")
	}
}
