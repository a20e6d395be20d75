package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cacheadapter "github.com/NabilMouzouna/NubleTrust-monorepo/internal/adapter/cache"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/application"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/bootstrap"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/config"
	httptransport "github.com/NabilMouzouna/NubleTrust-monorepo/internal/http"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/handler"
	httpmiddleware "github.com/NabilMouzouna/NubleTrust-monorepo/internal/http/middleware"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/metrics"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/password"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/risk"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/server"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/service"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/telemetry"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newSnowflake,
			newPGXPool,
			newSQLDB,
			newApplicationRepository,
			newUserRepository,
			newAppUserRepository,
			newSessionRepository,
			newRiskEventRepository,
			newRedisClient,
			newRefreshTokenStore,
			newKeyStore,
			newAccessGenerator,
			newRefreshSigner,
			newRiskEngine,
			metrics.New,
			newRateLimiter,
			application.NewVerifier,
			newPasswordHasher,
			newCredentialService,
			service.NewTokenService,
			newSessionService,
			handler.NewCookieConfig,
			handler.NewAuthHandler,
			handler.NewSessionHandler,
			handler.NewRiskHandler,
			handler.NewWellKnownHandler,
			newHealthHandler,
			newHandlers,
			httpmiddleware.NewAuth,
			httptransport.NewRouter,
			server.NewHTTPServer,
		),
		fx.Invoke(useTelemetry, bootstrap.EnsureApplication, startHTTPServer),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	logger = logger.With(zap.String("service", cfg.ServiceName))
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

func newSQLDB(lc fx.Lifecycle, pool *pgxpool.Pool, cfg config.Config, logger *zap.Logger) (*sql.DB, error) {
	db := repository.OpenDB(pool)
	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := repository.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("database migrations applied")
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return db.Close()
		},
	})
	return db, nil
}

func newApplicationRepository(db *sql.DB) repository.ApplicationRepository {
	return repository.NewPostgresApplicationRepo(db)
}

func newUserRepository(db *sql.DB) repository.UserRepository {
	return repository.NewPostgresUserRepo(db)
}

func newAppUserRepository(db *sql.DB) repository.AppUserRepository {
	return repository.NewPostgresAppUserRepo(db)
}

func newSessionRepository(db *sql.DB) repository.SessionRepository {
	return repository.NewPostgresSessionRepo(db)
}

func newRiskEventRepository(db *sql.DB) repository.RiskEventRepository {
	return repository.NewPostgresRiskEventRepo(db)
}

func newRedisClient(lc fx.Lifecycle, cfg config.Config) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func newRefreshTokenStore(client redis.UniversalClient) repository.RefreshTokenStore {
	return cacheadapter.NewRedisRefreshStore(client)
}

func newKeyStore(cfg config.Config) (*jwt.KeyStore, error) {
	keys, err := jwt.LoadKeyStore(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.RefreshTokenSecret)
	if err != nil {
		return nil, fmt.Errorf("load signing keys: %w", err)
	}
	return keys, nil
}

func newAccessGenerator(keys *jwt.KeyStore, cfg config.Config) *jwt.Generator {
	return jwt.NewGenerator(keys, cfg.AccessTokenTTL, jwt.WithIssuer(cfg.TokenIssuer))
}

func newRefreshSigner(keys *jwt.KeyStore, cfg config.Config) *jwt.RefreshSigner {
	return jwt.NewRefreshSigner(keys, cfg.RefreshTokenTTL, jwt.WithIssuer(cfg.TokenIssuer))
}

func newPasswordHasher(cfg config.Config) (*password.Hasher, error) {
	return password.NewHasher(password.Algorithm(cfg.PasswordHasher))
}

func newCredentialService(
	users repository.UserRepository,
	appUsers repository.AppUserRepository,
	hasher *password.Hasher,
	logger *zap.Logger,
) *service.CredentialService {
	return service.NewCredentialService(users, appUsers, logger, service.WithHasher(hasher))
}

func newRiskEngine(cfg config.Config, logger *zap.Logger) (*risk.Engine, error) {
	policy, err := risk.LoadPolicy(cfg.RiskPolicyFile)
	if err != nil {
		return nil, fmt.Errorf("load risk policy: %w", err)
	}
	logger.Info("risk policy loaded",
		zap.Int("high_risk_locations", len(policy.HighRiskLocations)),
		zap.Int("vpn_ranges", len(policy.VPNRanges)),
		zap.String("timezone", policy.Location().String()),
	)
	return risk.NewEngine(policy), nil
}

func newRateLimiter(cfg config.Config) *httpmiddleware.RateLimiter {
	return httpmiddleware.NewRateLimiter(cfg.RateLimitRPM)
}

func newSessionService(
	credentials *service.CredentialService,
	tokens *service.TokenService,
	engine *risk.Engine,
	sessions repository.SessionRepository,
	events repository.RiskEventRepository,
	node *snowflake.Node,
	cfg config.Config,
	m *metrics.Metrics,
	logger *zap.Logger,
) *service.SessionService {
	return service.NewSessionService(credentials, tokens, engine, sessions, events, node, cfg.RefreshTokenTTL, m, logger)
}

func newHealthHandler(db *sql.DB, client redis.UniversalClient) *handler.HealthHandler {
	pingRedis := func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	return handler.NewHealthHandler(map[string]handler.HealthCheck{
		"postgres": db.PingContext,
		"redis":    pingRedis,
	})
}

func newHandlers(
	auth *handler.AuthHandler,
	sessions *handler.SessionHandler,
	risks *handler.RiskHandler,
	wellKnown *handler.WellKnownHandler,
	health *handler.HealthHandler,
) httptransport.Handlers {
	return httptransport.Handlers{
		Auth:      auth,
		Sessions:  sessions,
		Risks:     risks,
		WellKnown: wellKnown,
		Health:    health,
	}
}

func startHTTPServer(lc fx.Lifecycle, srv *server.HTTPServer, logger *zap.Logger) {
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runCtx, stop := context.WithCancel(context.Background())
			cancel = stop
			done = make(chan struct{})

			go func() {
				if err := srv.Run(runCtx); err != nil {
					logger.Error("http server stopped", zap.Error(err))
				}
				close(done)
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if cancel != nil {
				cancel()
			}
			if done == nil {
				return nil
			}
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func useTelemetry(*telemetry.Provider) {}
