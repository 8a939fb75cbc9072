package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"supermercado/ordercore/internal/config"
	"supermercado/ordercore/internal/handler/middleware"
	jwtpkg "supermercado/ordercore/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	searchHandler *SearchHandler,
	sessionHandler *SessionHandler,
	cartHandler *CartHandler,
	suggestionHandler *SuggestionHandler,
	infraHandler *InfraHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	if jwtManager != nil {
		api.Use(middleware.JWTAuth(jwtManager))
	}
	{
		api.POST("/search", searchHandler.Resolve)
		api.POST("/search/batch", searchHandler.ResolveBatch)

		api.GET("/sessions/:telefone", sessionHandler.Get)
		api.POST("/sessions/:telefone/context", sessionHandler.Context)
		api.POST("/sessions/:telefone/sent", sessionHandler.MarkSent)
		api.GET("/sessions/:telefone/can-modify", sessionHandler.CanModify)
		api.DELETE("/sessions/:telefone", sessionHandler.Clear)

		api.GET("/carts/:telefone", cartHandler.List)
		api.POST("/carts/:telefone/items", cartHandler.AddItem)
		api.DELETE("/carts/:telefone/items/:index", cartHandler.RemoveItem)
		api.POST("/carts/:telefone/items/:index/decrement", cartHandler.DecrementQuantity)
		api.DELETE("/carts/:telefone", cartHandler.Clear)

		api.GET("/suggestions/:telefone", suggestionHandler.Get)
		api.PUT("/suggestions/:telefone", suggestionHandler.Save)
		api.DELETE("/suggestions/:telefone", suggestionHandler.Clear)

		api.POST("/locks/acquire", infraHandler.AcquireLock)
		api.POST("/locks/release", infraHandler.ReleaseLock)

		api.GET("/circuit/:service", infraHandler.CircuitStatus)
		api.POST("/circuit/:service/failure", infraHandler.ReportFailure)
		api.POST("/circuit/:service/success", infraHandler.ReportSuccess)
	}

	return r
}
