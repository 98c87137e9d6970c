package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/application/dialogue"
	"github.com/paydeskhq/paydesk/internal/application/moderation"
	"github.com/paydeskhq/paydesk/internal/repositories/ledgerrepo"
	"github.com/paydeskhq/paydesk/internal/repositories/requestrepo"
	"github.com/paydeskhq/paydesk/internal/server/handlers"
	"github.com/paydeskhq/paydesk/internal/server/websocket"
	"github.com/paydeskhq/paydesk/pkg/config"
)

type Server struct {
	Engine   *dialogue.Engine
	Gateway  *moderation.Gateway
	Ledger   ledgerrepo.ILedgerRepository
	Requests requestrepo.IRequestRepository
	Cfg      *config.Config
	Logger   zerolog.Logger
	Router   *gin.Engine
	FeedHub  *websocket.FeedHub

	httpServer *http.Server
}

func New(
	cfg *config.Config,
	engine *dialogue.Engine,
	gateway *moderation.Gateway,
	ledger ledgerrepo.ILedgerRepository,
	requests requestrepo.IRequestRepository,
	logger zerolog.Logger,
	feedHub *websocket.FeedHub,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		Engine:   engine,
		Gateway:  gateway,
		Ledger:   ledger,
		Requests: requests,
		Cfg:      cfg,
		Logger:   logger,
		Router:   router,
		FeedHub:  feedHub,
	}
}

func (s *Server) SetupRouter() {
	handler := handlers.New(
		s.Engine,
		s.Gateway,
		s.Ledger,
		s.Requests,
		s.Logger,
		s.Cfg,
		s.FeedHub,
	)
	handler.SetupHandlers(s.Router)
}

func (s *Server) Start() {
	s.SetupRouter()

	go s.FeedHub.Run()

	s.httpServer = &http.Server{
		Addr:         s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:      s.Router,
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
