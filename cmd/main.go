package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bookhub/oauthbind/internal/config"
	"bookhub/oauthbind/internal/handler"
	"bookhub/oauthbind/internal/model"
	"bookhub/oauthbind/internal/provider"
	"bookhub/oauthbind/internal/repository"
	"bookhub/oauthbind/internal/service"
	"bookhub/oauthbind/internal/session"
	"bookhub/oauthbind/pkg/crypto"
	jwtpkg "bookhub/oauthbind/pkg/jwt"
)

func main() {
	// 1. Load configuration
	path := os.Getenv("OAUTHBIND_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. Connect to PostgreSQL
	db, err := config.NewPostgresDB(cfg.Database.Postgres)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.Postgres.AutoMigrate {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 6. Build the provider registry
	registry, err := provider.FromConfig(cfg.OAuth2)
	if err != nil {
		logger.Fatal("failed to configure oauth2 providers", zap.Error(err))
	}
	logger.Info("oauth2 providers registered",
		zap.Strings("providers", registry.Names()),
		zap.String("login_provider", registry.Primary()),
	)

	var sealer *crypto.Sealer
	if cfg.OAuth2.TokenEncryptionKey != "" {
		sealer, err = crypto.NewSealer(cfg.OAuth2.TokenEncryptionKey)
		if err != nil {
			logger.Fatal("failed to init token sealer", zap.Error(err))
		}
	} else {
		logger.Warn("oauth2.token_encryption_key is empty, provider tokens are stored unencrypted")
	}

	// 7. Initialize repositories
	userRepo := repository.NewPGUserRepository(db)
	linkRepo := repository.NewPGLinkRepository(db)

	// 8. Initialize JWT manager
	jwtManager := jwtpkg.NewManager(
		cfg.JWT.SigningKey,
		cfg.JWT.Issuer,
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)

	// 9. Initialize services
	linkService := service.NewLinkService(linkRepo, registry, cfg.Registration.PublicEnabled, logger)
	oauth2Service := service.NewOAuth2Service(
		registry, stateStore, linkService,
		service.NewTokenCodec(sealer), cfg.OAuth2.StateTTL, logger,
	)
	authService := service.NewAuthService(userRepo, jwtManager)

	// 10. Initialize handlers
	kit := &handler.SessionKit{
		Cookies: session.CookieOptions{
			Name:       cfg.Session.CookieName,
			AccessName: cfg.Session.AccessCookie,
			Domain:     cfg.Session.CookieDomain,
			Secure:     cfg.Session.CookieSecure,
			TTL:        cfg.Session.TTL,
		},
		Markers: session.NewMarkerStore(stateStore, cfg.Session.TTL),
		Flashes: session.NewFlashStore(stateStore, cfg.Session.TTL),
		Routes:  cfg.Routes,
		Logger:  logger,
	}
	authHandler := handler.NewAuthHandler(authService, logger)
	oauth2Handler := handler.NewOAuth2Handler(oauth2Service, linkService, authService, registry, kit, logger)
	linkHandler := handler.NewLinkHandler(linkService, registry, kit, logger)

	// 11. Setup router
	router := handler.SetupRouter(cfg, logger, jwtManager, registry, authHandler, oauth2Handler, linkHandler)

	// 12. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 13. Serve until interrupted, then shut down gracefully
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("server exited gracefully")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zcfg zap.Config
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}
