// Package api exposes the eligibility engine and the subsidy matcher over
// HTTP. Handlers stay thin: decode, validate bounds, call the engine or
// store, encode. The engine itself never errors, so 5xx responses can only
// come from the persistence layer.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/agrimatch/agrimatch/internal/core/auth"
	"github.com/agrimatch/agrimatch/internal/core/config"
	"github.com/agrimatch/agrimatch/internal/core/logger"
	"github.com/agrimatch/agrimatch/internal/core/metrics"
	"github.com/agrimatch/agrimatch/internal/core/store"
)

// API holds the service dependencies shared by all handlers.
type API struct {
	store     *store.Store
	logger    *zap.Logger
	collector *metrics.Collector
	cfg       *config.ServerConfig
	auth      *auth.Authenticator
}

// New creates the API service. auth may be nil, which disables
// authentication (local development and the offline CLI).
func New(st *store.Store, log *zap.Logger, collector *metrics.Collector, cfg *config.ServerConfig, authenticator *auth.Authenticator) *API {
	return &API{
		store:     st,
		logger:    log,
		collector: collector,
		cfg:       cfg,
		auth:      authenticator,
	}
}

// Router builds the gin engine with middleware and all routes mounted.
// /healthz and /metrics stay outside the authenticated group so probes
// and scrapers need no credentials.
func (a *API) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(logger.Recovery(a.logger))
	r.Use(logger.RequestLogger(a.logger))

	r.GET("/healthz", a.handleHealth)
	r.GET("/metrics", gin.WrapH(a.collector.Handler()))

	grp := r.Group("/api")
	if a.auth != nil {
		grp.Use(a.auth.Middleware())
	}

	grp.POST("/eligibility", a.handleEligibility)
	grp.PUT("/subsidies/:code/rules", a.handleSaveRules)
	grp.GET("/subsidies", a.handleListSubsidies)
	grp.POST("/match", a.handleMatch)
	grp.GET("/match/runs/:id", a.handleGetMatchRun)

	return r
}

func (a *API) handleHealth(c *gin.Context) {
	if err := a.store.Ping(); err != nil {
		a.logger.Error("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
