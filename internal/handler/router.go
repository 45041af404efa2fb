package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bookhub/oauthbind/internal/config"
	"bookhub/oauthbind/internal/handler/middleware"
	"bookhub/oauthbind/internal/provider"
	jwtpkg "bookhub/oauthbind/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	registry *provider.Registry,
	authHandler *AuthHandler,
	oauth2Handler *OAuth2Handler,
	linkHandler *LinkHandler,
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

	accessCookie := cfg.Session.AccessCookie
	requireProvider := middleware.RequireProvider(registry)

	api := r.Group("/api/v1")
	api.GET("/session/flashes", oauth2Handler.Flashes)

	// OAuth2 login, anonymous or logged in
	auth := api.Group("/auth")
	auth.Use(middleware.OptionalAuth(jwtManager, accessCookie))
	{
		auth.GET("/oauth2/:provider/login", requireProvider, oauth2Handler.Login)
		auth.GET("/oauth2/:provider/callback", requireProvider, oauth2Handler.Callback)
		auth.POST("/logout", oauth2Handler.Logout)
		auth.POST("/refresh", authHandler.Refresh)
	}

	// Identity link management
	protected := api.Group("/identities")
	protected.Use(middleware.JWTAuth(jwtManager, accessCookie))
	{
		protected.GET("/oauth2", linkHandler.Status)
		protected.POST("/oauth2/claim", linkHandler.Claim)
		protected.DELETE("/oauth2/:provider", requireProvider, linkHandler.Unlink)
	}

	return r
}
