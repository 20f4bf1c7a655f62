package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kmledger/kmledger/internal/ratelimit"
	"github.com/kmledger/kmledger/internal/server/handlers"
	"github.com/kmledger/kmledger/internal/service/owners"
)

// Options configures the engine.
type Options struct {
	AdminToken  string
	CORSOrigins []string
	Limiter     ratelimit.Limiter
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AddAllowMethods("PATCH")
	cfg.AddAllowHeaders(APIKeyHeader, AdminTokenHeader)
	cfg.AddExposeHeaders("Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Content-Disposition")
	return cfg
}

// New wires the Gin engine with required routes and middlewares.
func New(h *handlers.Handler, ownerSvc *owners.Service, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/healthz", h.Healthz)

	v1 := r.Group("/api/v1")

	admin := v1.Group("", adminMiddleware(opts.AdminToken, logger))
	admin.POST("/owners", h.CreateOwner)
	admin.POST("/admin/messages", h.SendMessage)

	api := v1.Group("", authMiddleware(ownerSvc, logger))
	if opts.Limiter != nil {
		api.Use(rateLimitMiddleware(opts.Limiter, logger))
	}

	api.GET("/me", h.Me)
	api.PATCH("/me", h.UpdateMe)

	api.GET("/records", h.ListRecords)
	api.POST("/records", h.CreateRecord)
	api.GET("/records/:id", h.GetRecord)
	api.PUT("/records/:id", h.UpdateRecord)
	api.DELETE("/records/:id", h.DeleteRecord)

	api.GET("/fuel-logs", h.ListFuelLogs)
	api.POST("/fuel-logs", h.CreateFuelLog)
	api.DELETE("/fuel-logs/:id", h.DeleteFuelLog)

	api.GET("/maintenances", h.ListMaintenances)
	api.POST("/maintenances", h.CreateMaintenance)
	api.DELETE("/maintenances/:id", h.DeleteMaintenance)

	api.GET("/stats", h.Stats)

	api.GET("/goals", h.ListGoals)
	api.POST("/goals", h.CreateGoal)
	api.GET("/goals/progress", h.GoalProgress)
	api.PUT("/goals/:id", h.UpdateGoal)
	api.DELETE("/goals/:id", h.DeleteGoal)

	api.POST("/benchmark/submit", h.SubmitBenchmark)
	api.GET("/benchmark", h.CompareBenchmark)
	api.DELETE("/benchmark", h.WithdrawBenchmark)

	api.GET("/fiscal/:year", h.Fiscal)

	api.GET("/platforms", h.Platforms)
	api.GET("/platforms/evolution", h.PlatformEvolution)

	api.GET("/insights", h.Insights)

	api.GET("/alerts", h.ListAlerts)
	api.POST("/alerts/generate", h.GenerateAlerts)
	api.POST("/alerts/read-all", h.MarkAllAlertsRead)
	api.PATCH("/alerts/:id/read", h.MarkAlertRead)
	api.DELETE("/alerts/:id", h.DeleteAlert)

	api.GET("/achievements", h.ListAchievements)
	api.POST("/achievements/check", h.CheckAchievements)

	api.GET("/export", h.Export)
	api.POST("/import", h.Import)
	api.POST("/sheets/push", h.PushToSheet)
	api.POST("/sheets/import", h.ImportFromSheet)

	logger.Info("router initialized")
	return r
}
