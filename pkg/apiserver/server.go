package apiserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/relaycrm/relaycrm/pkg/apiserver/handlers"
	"github.com/relaycrm/relaycrm/pkg/apiserver/middleware"
	"github.com/relaycrm/relaycrm/pkg/config"
	"github.com/relaycrm/relaycrm/pkg/eventbus"
	"github.com/relaycrm/relaycrm/pkg/store/postgres"
	redisclient "github.com/relaycrm/relaycrm/pkg/store/redis"
)

type Server struct {
	router *gin.Engine
	db     *postgres.Store
	redis  *redisclient.Client
	cfg    *config.Config
	logger *zap.Logger
	bus    *eventbus.Bus
}

func NewServer(db *postgres.Store, redis *redisclient.Client, cfg *config.Config, logger *zap.Logger, bus *eventbus.Bus) *Server {
	s := &Server{
		db:     db,
		redis:  redis,
		cfg:    cfg,
		logger: logger,
		bus:    bus,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.Use(middleware.Auth(s.cfg.Auth))

		var definitions handlers.DefinitionStore
		var executions handlers.ExecutionStore
		var settings handlers.SettingsStore
		if s.db != nil {
			definitions = postgres.NewDefinitionRepository(s.db.DB())
			executions = postgres.NewExecutionRepository(s.db.DB(), 0)
			settings = postgres.NewTenantRepository(s.db.DB())
		}

		eventHandler := handlers.NewEventHandler(s.bus, s.logger)
		api.POST("/events", eventHandler.Ingest)

		automationHandler := handlers.NewAutomationHandler(definitions, executions, s.logger)
		api.POST("/automations", automationHandler.Create)
		api.GET("/automations", automationHandler.List)
		api.GET("/automations/:id", automationHandler.Get)
		api.PUT("/automations/:id", automationHandler.Update)
		api.POST("/automations/:id/publish", automationHandler.Publish)
		api.DELETE("/automations/:id", automationHandler.Archive)
		api.GET("/automations/:id/executions", automationHandler.ListExecutions)

		executionHandler := handlers.NewExecutionHandler(executions, s.logger)
		api.GET("/executions/:id", executionHandler.Get)

		tenantHandler := handlers.NewTenantHandler(settings, s.logger)
		api.GET("/tenants/:id/settings", tenantHandler.GetSettings)
		api.PUT("/tenants/:id/settings", tenantHandler.UpdateSettings)
	}

	s.router = r
}

func (s *Server) Router() *gin.Engine {
	return s.router
}
