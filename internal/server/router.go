// Package server hosts the two glue HTTP endpoints that share the
// repository with the console: CI event ingest and the contact form.
package server

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"qapi/internal/config"
)

// NewRouter assembles the gin engine with recovery, logging, CORS, and
// per-IP rate limiting around the two endpoint handlers.
func NewRouter(cfg *config.Config, mailer Mailer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())

	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.AllowedOrigins,
			AllowMethods:  []string{"POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders: []string{"Content-Length", "Content-Type"},
			MaxAge:        24 * time.Hour,
		}))
	}

	limiter := NewIPRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	ingest := NewIngestHandler(cfg)
	contact := NewContactHandler(cfg, mailer)

	router.GET("/healthz", ingest.Healthz)

	api := router.Group("/api", RateLimitMiddleware(limiter))
	{
		api.POST("/ci-events", ingest.HandleEvent)
		api.POST("/contact", contact.HandleContact)
	}

	return router
}

func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		log.Printf("%s %s - %d (%v)", c.Request.Method, path, c.Writer.Status(), duration)
	}
}
