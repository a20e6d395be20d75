package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/config"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
)

// EnsureApplication seeds the application described by BOOTSTRAP_APP_* for
// local and e2e environments. Nothing is seeded unless it is configured.
func EnsureApplication(lc fx.Lifecycle, cfg config.Config, apps repository.ApplicationRepository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureApplication(ctx, cfg.BootstrapApp, apps, logger)
		},
	})
}

func ensureApplication(ctx context.Context, seed config.BootstrapApp, apps repository.ApplicationRepository, logger *zap.Logger) error {
	if !seed.Enabled() {
		return nil
	}
	if logger == nil {
		logger = zap.L()
	}

	if _, err := apps.GetByAPIKey(ctx, seed.APIKey); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("bootstrap lookup application: %w", err)
	}

	created, err := apps.Create(ctx, domain.Application{
		ID:             uuid.NewString(),
		Name:           seed.Name,
		APIKey:         seed.APIKey,
		AllowedOrigins: seed.AllowedOrigins,
	})
	if errors.Is(err, repository.ErrConflict) {
		// Another replica seeded it first.
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap create application: %w", err)
	}

	logger.Info("bootstrap application created",
		zap.String("app_id", created.ID),
		zap.String("name", created.Name),
		zap.Strings("allowed_origins", created.AllowedOrigins),
	)
	return nil
}
