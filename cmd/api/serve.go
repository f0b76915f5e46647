package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/georgemunganga/materialive/internal/attachment"
	"github.com/georgemunganga/materialive/internal/config"
	"github.com/georgemunganga/materialive/internal/database"
	"github.com/georgemunganga/materialive/internal/middleware"
	"github.com/georgemunganga/materialive/internal/modules/auth"
	"github.com/georgemunganga/materialive/internal/modules/board"
	"github.com/georgemunganga/materialive/internal/modules/location"
	"github.com/georgemunganga/materialive/internal/modules/purchasing"
	"github.com/georgemunganga/materialive/internal/modules/staging"
	erpsync "github.com/georgemunganga/materialive/internal/modules/sync"
	"github.com/georgemunganga/materialive/internal/modules/user"
	"github.com/georgemunganga/materialive/internal/web"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long:  "Migrates the schema, then serves the API until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	e, err := setup(ctx, true)
	if err != nil {
		return err
	}
	defer e.close()
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	e.log.Info("Starting materialive",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("driver", string(e.db.Dialect)))

	revoker, err := initRevoker(ctx, e.cfg.Redis, e.log)
	if err != nil {
		return err
	}
	signatures, err := attachment.NewMinIO(ctx, e.cfg.MinIO)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", e.cfg.Server.Port),
		Handler:      newRouter(e, revoker, signatures),
		ReadTimeout:  e.cfg.Server.ReadTimeout,
		WriteTimeout: e.cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		e.log.Info("Server starting", zap.Int("port", e.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	e.log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), e.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		e.log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	e.log.Info("Server exited")
	return nil
}

// initRevoker connects to redis when an address is configured. Without redis
// logout only ends the client session.
func initRevoker(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (auth.Revoker, error) {
	if cfg.Addr == "" {
		log.Warn("REDIS_ADDR not set; logged-out tokens stay valid until they expire")
		return auth.NopRevoker{}, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return auth.NewRedisRevoker(rdb), nil
}

func newRouter(e *env, revoker auth.Revoker, signatures attachment.Store) http.Handler {
	// ── Repositories & services ─────────────────────────────
	userRepo := user.NewRepository(e.db)
	userService := user.NewService(userRepo)

	tokens := auth.NewTokenManager(e.cfg.JWT.Secret, e.cfg.JWT.TTL, e.cfg.JWT.Issuer)
	authService := auth.NewService(userRepo, tokens, revoker, e.log)

	locationRepo := location.NewRepository(e.db)
	locationService := location.NewService(locationRepo, e.log)

	purchasingService := purchasing.NewService(purchasing.NewRepository(e.db))
	syncService := erpsync.NewService(erpsync.NewRepository(e.db), e.log)
	stagingService := staging.NewService(staging.NewRepository(e.db), signatures, e.log)
	boardService := board.NewService(board.NewRepository(e.db), locationRepo)

	authHandler := auth.NewHandler(authService)
	syncHandler := erpsync.NewHandler(syncService)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Use(middleware.Logger(e.log))

	router.Get("/health", health(e.db, e.log))
	authHandler.RegisterPublicRoutes(router)

	// ── ERP sync agent ──────────────────────────────────────
	router.Group(func(r chi.Router) {
		r.Use(middleware.SyncKey(e.cfg.Sync.APIKey))
		syncHandler.RegisterIngestRoutes(r)
	})

	// ── Signed-in users ─────────────────────────────────────
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(authService))
		authHandler.RegisterRoutes(r)
		syncHandler.RegisterRoutes(r)
		location.NewHandler(locationService).RegisterRoutes(r)
		purchasing.NewHandler(purchasingService).RegisterRoutes(r)
		staging.NewHandler(stagingService).RegisterRoutes(r)
		board.NewHandler(boardService).RegisterRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(user.RoleAdmin))
			user.NewHandler(userService).RegisterRoutes(r)
		})
	})

	return router
}

func health(db *database.DB, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			log.Error("Health check failed", zap.Error(err))
			web.Respond(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "unavailable"})
			return
		}
		web.Respond(w, http.StatusOK, map[string]string{"status": "ok", "database": "ok"})
	}
}
