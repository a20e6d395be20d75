package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/apperr"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/risk"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/telemetry"
)

const tracerName = "github.com/NabilMouzouna/NubleTrust-monorepo/internal/service"

// Client facing failures. Each is a distinct value so callers can tell them
// apart with errors.Is even where the message is shared.
var (
	ErrMissingCredentials = apperr.Validation("Email or Password are missing")
	ErrInvalidEmail       = apperr.Validation("Please provide a valid email address")
	ErrWeakPassword       = apperr.Validation("Password must be at least 8 characters")
	ErrAlreadyRegistered  = apperr.Conflict("This email is already registered. Please try logging in.")
	ErrNotRegistered      = apperr.NotFound("This email is not registered. Please try signing up.")
	ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")

	ErrRefreshMissing = apperr.Unauthorized("Refresh token not found")
	ErrTokenInvalid   = apperr.Unauthorized("Session expired. Please log in again.")
	ErrTokenExpired   = apperr.Unauthorized("Session expired. Please log in again.")
	ErrTokenReused    = apperr.Unauthorized("Session expired. Please log in again.")
	ErrTokenMismatch  = apperr.Unauthorized("Refresh token is not valid for this application")

	ErrSessionNotFound = apperr.NotFound("Session not found")
)

type instrumentation struct {
	logger *zap.Logger
	tracer trace.Tracer
}

func newInstrumentation(logger *zap.Logger) instrumentation {
	return instrumentation{logger: logger, tracer: otel.Tracer(tracerName)}
}

func (i instrumentation) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if i.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return i.tracer.Start(ctx, name)
}

// recordRisk tags span with the scored decision.
func recordRisk(span trace.Span, appID, appUserID, event string, assessment risk.Assessment, decision risk.Decision) {
	span.SetAttributes(telemetry.RiskDecision{
		AppID:     appID,
		AppUserID: appUserID,
		Event:     event,
		Score:     assessment.Score,
		Level:     string(decision.Level),
		Allowed:   decision.Allowed,
		StepUp:    decision.StepUp,
		Factors:   assessment.Factors,
	}.Attributes()...)
}

func (i instrumentation) audit(event string, attrs ...any) {
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for n := 0; n+1 < len(attrs); n += 2 {
		key, ok := attrs[n].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[n+1]))
	}
	i.log().Info("audit", fields...)
}

func (i instrumentation) log() *zap.Logger {
	if i.logger != nil {
		return i.logger
	}
	return zap.L()
}
