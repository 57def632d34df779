package router

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"videotube/internal/config"
	"videotube/internal/handler"
	"videotube/internal/metrics"
	"videotube/internal/middleware"
)

// New wires the middleware chain and routes. staticDir, when set, is served
// under /static/ for the local asset backend.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	recorder *metrics.Recorder,
	clientIPs *middleware.ClientIPResolver,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	videoHandler *handler.VideoHandler,
	healthHandler *handler.HealthHandler,
	staticDir string,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging(logger, clientIPs))
	r.Use(middleware.Metrics(recorder))
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", healthHandler.Health)
	r.Method(http.MethodGet, "/metrics", recorder.Handler())

	if staticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/users", func(users chi.Router) {
			users.Post("/register", authHandler.Register)
			users.Post("/login", authHandler.Login)
			users.Post("/refresh-token", authHandler.RefreshToken)

			users.Group(func(secured chi.Router) {
				secured.Use(authMiddleware.RequireAuth)
				secured.Post("/logout", authHandler.Logout)
				secured.Post("/change-password", authHandler.ChangePassword)
				secured.Get("/current-user", userHandler.CurrentUser)
				secured.Patch("/update-account", userHandler.UpdateAccount)
				secured.Patch("/avatar", userHandler.UpdateAvatar)
				secured.Patch("/cover-image", userHandler.UpdateCoverImage)
				secured.Get("/history", userHandler.WatchHistory)
			})
		})

		api.Route("/videos", func(videos chi.Router) {
			videos.Use(authMiddleware.RequireAuth)
			videos.Get("/", videoHandler.List)
			videos.Post("/", videoHandler.Publish)
			videos.Get("/{videoId}", videoHandler.Get)
			videos.Patch("/{videoId}", videoHandler.Update)
			videos.Delete("/{videoId}", videoHandler.Delete)
			videos.Patch("/toggle/publish/{videoId}", videoHandler.TogglePublish)
			videos.Get("/views/{videoId}", videoHandler.Views)
		})
	})

	return r
}
