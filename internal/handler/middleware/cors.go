package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"bookhub/oauthbind/internal/config"
)

// CORS allows the configured front-end origins. The X-Requested-With header
// is always allowed since it selects JSON responses.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	headers := append([]string{"X-Requested-With"}, cfg.AllowedHeaders...)
	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     cfg.AllowedMethods,
		AllowHeaders:     headers,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
