package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"videotube/internal/asset"
	"videotube/internal/config"
	"videotube/internal/database"
	"videotube/internal/handler"
	"videotube/internal/metrics"
	"videotube/internal/middleware"
	"videotube/internal/repository"
	"videotube/internal/router"
	"videotube/internal/service"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	logger       *slog.Logger
	cleanupFuncs []func()
}

type stores struct {
	users  service.UserStore
	videos service.VideoStore
	health *handler.HealthHandler
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}

	st, err := a.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	assets, staticDir, err := openAssetStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize asset store: %w", err)
	}
	assets = asset.NewImageNormalizer(assets, cfg.MaxImageDimension)

	tokens, err := service.NewTokenService(cfg.AccessTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenSecret, cfg.RefreshTokenTTL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	recorder := metrics.New()

	clientIPs, err := middleware.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	var shared middleware.SharedLimiter
	if cfg.RedisURL != "" {
		limiter, err := a.openRedisLimiter(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		shared = limiter
	}

	authService := service.NewAuthService(st.users, tokens, assets, cfg.BcryptCost, recorder, logger)
	userService := service.NewUserService(st.users, st.videos, assets, logger)
	videoService := service.NewVideoService(st.videos, assets, logger)

	cookies := handler.CookieConfig{
		Secure:     cfg.CookieSecure,
		AccessTTL:  tokens.AccessTTL(),
		RefreshTTL: tokens.RefreshTTL(),
	}

	appRouter := router.New(
		cfg,
		logger,
		recorder,
		clientIPs,
		middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, shared, clientIPs, recorder),
		middleware.NewAuthMiddleware(authService),
		handler.NewAuthHandler(authService, cookies, cfg.MaxUploadSize),
		handler.NewUserHandler(userService, cfg.MaxUploadSize),
		handler.NewVideoHandler(videoService, cfg.MaxUploadSize),
		st.health,
		staticDir,
	)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.UsesMemoryStore() {
		a.logger.Warn("using in-memory store; data is lost on restart")
		mem := repository.NewMemoryStore()
		return stores{
			users:  mem.Users(),
			videos: mem.Videos(),
			health: handler.NewHealthHandler(nil),
		}, nil
	}

	a.logger.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

	if err := db.Migrate(ctx); err != nil {
		a.Close()
		return stores{}, fmt.Errorf("failed to migrate database: %w", err)
	}

	return stores{
		users:  repository.NewUserRepository(db.Pool),
		videos: repository.NewVideoRepository(db.Pool),
		health: handler.NewHealthHandler(db),
	}, nil
}

// openAssetStore returns the configured store and, for the local backend,
// the directory to serve under /static/.
func openAssetStore(ctx context.Context, cfg *config.Config) (asset.Store, string, error) {
	switch cfg.AssetBackend {
	case config.AssetBackendS3:
		store, err := asset.NewS3Store(ctx, asset.S3Config{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.AssetBaseURL(),
		})
		if err != nil {
			return nil, "", err
		}
		return store, "", nil
	default:
		store, err := asset.NewLocalStore(cfg.LocalAssetRoot, cfg.AssetBaseURL())
		if err != nil {
			return nil, "", err
		}
		return store, store.RootAbs(), nil
	}
}

func (a *App) openRedisLimiter(ctx context.Context, redisURL string) (*middleware.RedisWindowLimiter, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	a.cleanupFuncs = append(a.cleanupFuncs, func() {
		if err := client.Close(); err != nil {
			a.logger.Warn("failed to close redis client", "error", err)
		}
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		a.logger.Warn("redis unreachable; auth rate limits fall back to local buckets", "error", err)
	}

	return middleware.NewRedisWindowLimiter(client, "videotube:ratelimit:"), nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Close releases the database pool and the redis client.
func (a *App) Close() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		a.Close()
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		a.logger.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := a.server.Shutdown(ctx)
	a.Close()
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	a.logger.Info("server stopped")
	return nil
}
