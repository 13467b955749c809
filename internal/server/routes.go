// Package server wires HTTP handlers into a gin engine for the gocollab
// application via routing helpers.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// SetupRoutes configures and returns a gin engine with all application routes.
func SetupRoutes(h *Handlers, origins *originPolicy, metrics *Metrics, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/", h.Chat)
	router.GET("/document", h.Document)
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	login := router.Group("/login", cors(origins))
	login.POST("", h.Login)
	login.OPTIONS("", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	return router
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		log.Info("http request",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"addr", c.ClientIP(),
			"latency", time.Since(start),
		)
	}
}

// cors echoes allowed origins back so browser clients served from another
// port can call the JSON endpoints.
func cors(origins *originPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origins.allows(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type")
			c.Header("Vary", "Origin")
		}
		c.Next()
	}
}
