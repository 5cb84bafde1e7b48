package cors

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Headers exposed to and accepted from browsers.
var (
	allowedHeaders = []string{"Origin", "Content-Type", "X-Requested-With", "X-Request-ID", "X-Client-ID", "Sec-CH-Prefers-Color-Scheme"}
	exposedHeaders = []string{"X-Request-ID", "X-Cache", "Content-Disposition"}
)

// New restricts cross-origin calls to allowedOrigins, or allows every origin
// when the list is empty.
func New(allowedOrigins []string) gin.HandlerFunc {
	return cors.New(Config(allowedOrigins))
}

// Config builds the gin-contrib configuration used by New.
func Config(allowedOrigins []string) cors.Config {
	cfg := cors.DefaultConfig()
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimRight(strings.TrimSpace(origin), "/"); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = allowedHeaders
	cfg.ExposeHeaders = exposedHeaders
	cfg.MaxAge = 10 * time.Minute
	return cfg
}
