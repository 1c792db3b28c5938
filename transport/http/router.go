package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wardenhq/warden/service"
)

// SetupRouter sets up the Gin router for the auth and registry surfaces.
func SetupRouter(auth *service.AuthService, registry *service.RegistryService, reconciler *service.Reconciler) *gin.Engine {
	router := gin.Default()

	handlers := NewHandlers(auth, registry, reconciler)

	authGroup := router.Group("/auth")
	{
		authGroup.POST("/nonce", handlers.Nonce)
		authGroup.POST("/verify", handlers.Verify)
		authGroup.POST("/refresh", handlers.Refresh)
		authGroup.POST("/logout", handlers.Logout)
		authGroup.GET("/me", AuthMiddleware(auth), handlers.Me)
	}

	reg := router.Group("/registry")
	{
		// Reads are unrestricted; writes require a session whose address
		// holds the Updater role.
		reg.GET("/reports/:address", handlers.GetReport)
		reg.POST("/reports", AuthMiddleware(auth), handlers.StoreReport)
		reg.POST("/reports/batch", AuthMiddleware(auth), handlers.StoreReportsBatch)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
