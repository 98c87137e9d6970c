package main

import (
	"github.com/paydeskhq/paydesk/internal/application/dialogue"
	"github.com/paydeskhq/paydesk/internal/application/moderation"
	"github.com/paydeskhq/paydesk/internal/infrastructure/database"
	"github.com/paydeskhq/paydesk/internal/infrastructure/notify"
	"github.com/paydeskhq/paydesk/internal/repositories/ledgerrepo"
	"github.com/paydeskhq/paydesk/internal/repositories/requestrepo"
	"github.com/paydeskhq/paydesk/internal/server"
	"github.com/paydeskhq/paydesk/internal/server/websocket"
	"github.com/paydeskhq/paydesk/pkg/config"
	"github.com/paydeskhq/paydesk/pkg/logger"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log = logger.NewWithConfig(logger.Config{
		Level:      cfg.Logger.Level,
		TimeFormat: cfg.Logger.TimeFormat,
		Pretty:     cfg.Logger.Pretty,
	})

	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	notifier, err := notify.New(cfg.AMQP, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to notification broker")
	}
	defer notifier.Close()

	feedHub := websocket.NewFeedHub(log)

	ledgerRepo := ledgerrepo.New(db, cfg.Payout, log)
	requestRepo := requestrepo.New(db, log)

	engine := dialogue.New(ledgerRepo, requestRepo, notifier, cfg.Payout, log)
	gateway := moderation.New(db, ledgerRepo, requestRepo, notifier, feedHub, cfg.Payout, cfg.Admin, log)

	srv := server.New(cfg, engine, gateway, ledgerRepo, requestRepo, log, feedHub)
	srv.Start()
}
