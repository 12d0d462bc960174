package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig defines CORS configuration options
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
	MaxAge       time.Duration
}

// DefaultCORSConfig allows the inspector to be driven from a local page
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"http://localhost", "http://127.0.0.1"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Accept",
			"Origin",
			"X-Trace-ID",
			"X-Span-ID",
		},
		MaxAge: 12 * time.Hour,
	}
}

// CORS creates a CORS middleware. Listed origins match on any port.
func CORS(cfg CORSConfig) gin.HandlerFunc {
	allowed := make([]string, len(cfg.AllowOrigins))
	copy(allowed, cfg.AllowOrigins)

	return cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			for _, o := range allowed {
				if o == "*" || origin == o || hasPortSuffix(origin, o) {
					return true
				}
			}
			return false
		},
		AllowMethods:  cfg.AllowMethods,
		AllowHeaders:  cfg.AllowHeaders,
		ExposeHeaders: []string{"X-Trace-ID", "X-Span-ID"},
		MaxAge:        cfg.MaxAge,
	})
}

func hasPortSuffix(origin, base string) bool {
	if len(origin) <= len(base)+1 || origin[:len(base)] != base || origin[len(base)] != ':' {
		return false
	}
	for _, r := range origin[len(base)+1:] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
