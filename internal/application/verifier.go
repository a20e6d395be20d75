package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
)

var (
	// ErrMissingAPIKey is returned when the request carries no key.
	ErrMissingAPIKey = errors.New("application: missing api key")
	// ErrInvalidAPIKey is returned when the key matches no application.
	ErrInvalidAPIKey = errors.New("application: invalid api key")
)

// Context stores the resolved application for the request lifecycle.
type Context struct {
	Application domain.Application
}

// ID returns the application id.
func (c *Context) ID() string { return c.Application.ID }

// Verifier resolves applications from their API key.
type Verifier struct {
	repo   repository.ApplicationRepository
	logger *zap.Logger
}

// NewVerifier creates an API key verifier.
func NewVerifier(repo repository.ApplicationRepository, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.L()
	}
	return &Verifier{repo: repo, logger: logger}
}

// Verify looks up the application owning apiKey. Unknown keys yield
// ErrInvalidAPIKey; any other error means the backend failed.
func (v *Verifier) Verify(ctx context.Context, apiKey string) (*Context, error) {
	cleaned := strings.TrimSpace(apiKey)
	if cleaned == "" {
		return nil, ErrMissingAPIKey
	}

	app, err := v.repo.GetByAPIKey(ctx, cleaned)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			v.logger.Warn("api key rejected")
			return nil, ErrInvalidAPIKey
		}
		v.logger.Error("failed to resolve application", zap.Error(err))
		return nil, fmt.Errorf("resolve application: %w", err)
	}

	v.logger.Debug("application resolved", zap.String("app_id", app.ID))
	return &Context{Application: app}, nil
}
