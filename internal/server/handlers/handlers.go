package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/paydeskhq/paydesk/internal/application/dialogue"
	"github.com/paydeskhq/paydesk/internal/application/moderation"
	"github.com/paydeskhq/paydesk/internal/repositories/ledgerrepo"
	"github.com/paydeskhq/paydesk/internal/repositories/requestrepo"
	"github.com/paydeskhq/paydesk/internal/server/middleware"
	"github.com/paydeskhq/paydesk/internal/server/websocket"
	"github.com/paydeskhq/paydesk/pkg/config"
)

type Handlers struct {
	Engine   *dialogue.Engine
	Gateway  *moderation.Gateway
	Ledger   ledgerrepo.ILedgerRepository
	Requests requestrepo.IRequestRepository
	Logger   zerolog.Logger
	Config   *config.Config
	FeedHub  *websocket.FeedHub
}

func New(
	engine *dialogue.Engine,
	gateway *moderation.Gateway,
	ledger ledgerrepo.ILedgerRepository,
	requests requestrepo.IRequestRepository,
	logger zerolog.Logger,
	cfg *config.Config,
	feedHub *websocket.FeedHub,
) *Handlers {
	return &Handlers{
		Engine:   engine,
		Gateway:  gateway,
		Ledger:   ledger,
		Requests: requests,
		Logger:   logger,
		Config:   cfg,
		FeedHub:  feedHub,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(h.Config.JWT, h.Config.Admin, h.Logger)
	mw.SetupMiddleware(router)

	flowHandler := NewFlowHandler(h.Engine, h.Logger)
	accountHandler := NewAccountHandler(h.Ledger, h.Config.Payout, h.Logger)
	adminHandler := NewAdminHandler(h.Gateway, h.Requests, h.Logger)
	feedHandler := NewFeedHandler(h.FeedHub, h.Config.WebSocket, h.Logger)
	healthHandler := NewHealthHandler()

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	v1.Use(mw.AuthMiddleware())
	{
		v1.POST("/flow/advance", flowHandler.Advance)

		v1.POST("/accounts/register", accountHandler.Register)
		v1.GET("/profile", accountHandler.Profile)
		v1.GET("/refer", accountHandler.Refer)

		admin := v1.Group("/admin")
		admin.Use(mw.AdminMiddleware())
		{
			admin.GET("/withdrawals", adminHandler.ListPendingWithdrawals)
			admin.GET("/verifications", adminHandler.ListPendingVerifications)
			admin.POST("/requests/:kind/:id", adminHandler.Decide)
			admin.GET("/feed", feedHandler.HandleConnection)
		}
	}
}
