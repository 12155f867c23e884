package http

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SetupRouter sets up the Gin router
func SetupRouter(handlers *Handlers) *gin.Engine {
	router := gin.Default()

	// Signing endpoints, rate limited per client
	api := router.Group("/api")
	api.Use(RateLimitMiddleware(rate.Limit(10), 20))
	{
		api.POST("/verify-signature", handlers.VerifySignature)
		api.POST("/sign-action", handlers.SignAction)
	}

	// Session-authenticated routes
	if handlers.tokenizer != nil {
		session := router.Group("/api")
		session.Use(SessionMiddleware(handlers.tokenizer))
		{
			session.GET("/session", handlers.Session)
		}
	}

	return router
}
