// internal/middleware/cors_middleware.go
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"printer-bridge/internal/config"
)

// CORSMiddleware lets point-of-sale pages served from other origins drive
// the bridge over HTTP and the event socket
func CORSMiddleware(security *config.SecurityConfig) gin.HandlerFunc {
	return cors.New(corsConfig(security))
}

// corsConfig builds the policy from security.allowed_origins. An empty list
// or a "*" entry admits every origin without credentials.
func corsConfig(security *config.SecurityConfig) cors.Config {
	c := cors.Config{
		AllowMethods:        []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:        []string{"Origin", "Content-Type", "Accept", RequestIDHeader},
		ExposeHeaders:       []string{"Content-Length", RequestIDHeader},
		AllowWebSockets:     true,
		AllowPrivateNetwork: true,
		MaxAge:              12 * time.Hour,
	}

	var origins []string
	for _, origin := range security.AllowedOrigins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
			continue
		case "*":
			c.AllowAllOrigins = true
			return c
		}
		origins = append(origins, origin)
	}
	if len(origins) == 0 {
		c.AllowAllOrigins = true
		return c
	}

	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}
