package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/apperr"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/application"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/metrics"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/risk"
)

const recentEventWindow = time.Minute

// SessionService orchestrates register, login, refresh and logout and owns
// session and risk event persistence.
type SessionService struct {
	credentials *CredentialService
	tokens      *TokenService
	engine      *risk.Engine
	sessions    repository.SessionRepository
	events      repository.RiskEventRepository
	node        *snowflake.Node
	sessionTTL  time.Duration
	metrics     *metrics.Metrics
	now         func() time.Time
	instrumentation
}

// SessionOption customises a SessionService.
type SessionOption func(*SessionService)

// WithSessionClock overrides the time source.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTracerProvider traces through tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) SessionOption {
	return func(s *SessionService) {
		if tp != nil {
			s.tracer = tp.Tracer(tracerName)
		}
	}
}

// NewSessionService wires dependencies. sessionTTL is the lifetime recorded on
// sessions created through the sessions API.
func NewSessionService(
	credentials *CredentialService,
	tokens *TokenService,
	engine *risk.Engine,
	sessions repository.SessionRepository,
	events repository.RiskEventRepository,
	node *snowflake.Node,
	sessionTTL time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
	opts ...SessionOption,
) *SessionService {
	s := &SessionService{
		credentials:     credentials,
		tokens:          tokens,
		engine:          engine,
		sessions:        sessions,
		events:          events,
		node:            node,
		sessionTTL:      sessionTTL,
		metrics:         m,
		now:             time.Now,
		instrumentation: newInstrumentation(logger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the app user, issues tokens and records the first session.
// The risk decision is reported but never blocks registration.
func (s *SessionService) Register(ctx context.Context, app *application.Context, email, password string, signals domain.SessionSignals) (AuthResult, error) {
	ctx, span := s.startSpan(ctx, "SessionService.Register")
	defer span.End()

	appUser, err := s.credentials.Register(ctx, app.ID(), email, password)
	if err != nil {
		return AuthResult{}, err
	}

	pair, err := s.tokens.Issue(ctx, appUser.ID, app.ID(), appUser.Email)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, err
	}

	signals = s.stamp(signals)
	assessment := s.engine.Score(signals, nil, nil)
	decision := risk.Decide(assessment.Score)
	recordRisk(span, app.ID(), appUser.ID, domain.EventRegister, assessment, decision)
	s.metrics.ObserveRisk(domain.EventRegister, string(decision.Level), assessment.Score)

	session, err := s.record(ctx, appUser.ID, pair.Refresh.TokenID, pair.Refresh.ExpiresAt, signals, assessment, decision, domain.EventRegister)
	if err != nil {
		span.RecordError(err)
		s.tokens.Revoke(ctx, "", pair.RefreshToken)
		return AuthResult{}, err
	}

	s.audit("session.register", "app_id", app.ID(), "app_user_id", appUser.ID, "risk_score", assessment.Score, "risk_level", decision.Level)
	return AuthResult{
		Tokens:  pair,
		User:    UserViewModel{ID: appUser.ID, AppID: app.ID(), Email: appUser.Email},
		Risk:    newRiskViewModel(assessment, decision),
		Session: session,
	}, nil
}

// Login authenticates, scores the request against the previous session and
// issues tokens only when the decision allows it. A denied login is recorded
// with an already expired session and returns a Forbidden error carrying the
// decision reason.
func (s *SessionService) Login(ctx context.Context, app *application.Context, email, password string, signals domain.SessionSignals) (AuthResult, error) {
	ctx, span := s.startSpan(ctx, "SessionService.Login")
	defer span.End()

	appUser, err := s.credentials.Authenticate(ctx, app.ID(), email, password)
	if err != nil {
		return AuthResult{}, err
	}

	signals = s.stamp(signals)
	assessment, err := s.score(ctx, appUser.ID, signals)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, err
	}
	decision := risk.Decide(assessment.Score)
	result := AuthResult{
		User: UserViewModel{ID: appUser.ID, AppID: app.ID(), Email: appUser.Email},
		Risk: newRiskViewModel(assessment, decision),
	}

	if !decision.Allowed {
		recordRisk(span, app.ID(), appUser.ID, domain.EventLoginDenied, assessment, decision)
		s.metrics.ObserveRisk(domain.EventLoginDenied, string(decision.Level), assessment.Score)
		session, err := s.record(ctx, appUser.ID, jwt.NewTokenID(signals.RequestedAt), signals.RequestedAt, signals, assessment, decision, domain.EventLoginDenied)
		if err != nil {
			span.RecordError(err)
			return AuthResult{}, err
		}
		result.Session = session
		s.audit("session.login.denied", "app_id", app.ID(), "app_user_id", appUser.ID, "risk_score", assessment.Score, "risk_level", decision.Level)
		return result, apperr.Forbidden(decision.Reason)
	}
	recordRisk(span, app.ID(), appUser.ID, domain.EventLogin, assessment, decision)
	s.metrics.ObserveRisk(domain.EventLogin, string(decision.Level), assessment.Score)

	pair, err := s.tokens.Issue(ctx, appUser.ID, app.ID(), appUser.Email)
	if err != nil {
		span.RecordError(err)
		return AuthResult{}, err
	}
	session, err := s.record(ctx, appUser.ID, pair.Refresh.TokenID, pair.Refresh.ExpiresAt, signals, assessment, decision, domain.EventLogin)
	if err != nil {
		span.RecordError(err)
		s.tokens.Revoke(ctx, "", pair.RefreshToken)
		return AuthResult{}, err
	}

	result.Tokens = pair
	result.Session = session
	s.audit("session.login", "app_id", app.ID(), "app_user_id", appUser.ID, "risk_score", assessment.Score, "risk_level", decision.Level)
	return result, nil
}

// Refresh rotates the refresh token. No risk scoring happens here.
func (s *SessionService) Refresh(ctx context.Context, app *application.Context, refreshToken string) (RefreshResult, error) {
	ctx, span := s.startSpan(ctx, "SessionService.Refresh")
	defer span.End()

	pair, err := s.tokens.Refresh(ctx, refreshToken, app.ID())
	if err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{
		Tokens: pair,
		User:   UserViewModel{ID: pair.Access.Subject, AppID: pair.Access.ApplicationID},
	}, nil
}

// Logout always succeeds.
func (s *SessionService) Logout(ctx context.Context, accessToken, refreshToken string) {
	ctx, span := s.startSpan(ctx, "SessionService.Logout")
	defer span.End()

	s.tokens.Revoke(ctx, accessToken, refreshToken)
}

func (s *SessionService) stamp(signals domain.SessionSignals) domain.SessionSignals {
	if signals.RequestedAt.IsZero() {
		signals.RequestedAt = s.now()
	}
	return signals
}

// score loads the baseline session and recent events and runs the engine.
func (s *SessionService) score(ctx context.Context, appUserID string, signals domain.SessionSignals) (risk.Assessment, error) {
	var previous *domain.Session
	latest, err := s.sessions.LatestActive(ctx, appUserID, signals.RequestedAt)
	switch {
	case err == nil:
		previous = &latest
	case errors.Is(err, repository.ErrNotFound):
	default:
		return risk.Assessment{}, fmt.Errorf("load previous session: %w", err)
	}

	recent, err := s.events.ListRecentByAppUser(ctx, appUserID, signals.RequestedAt.Add(-recentEventWindow))
	if err != nil {
		return risk.Assessment{}, fmt.Errorf("load recent risk events: %w", err)
	}
	return s.engine.Score(signals, previous, recent), nil
}

// record persists the session and its risk event.
func (s *SessionService) record(
	ctx context.Context,
	appUserID, tokenID string,
	expiresAt time.Time,
	signals domain.SessionSignals,
	assessment risk.Assessment,
	decision risk.Decision,
	eventType string,
) (domain.Session, error) {
	session, err := s.sessions.Create(ctx, domain.Session{
		ID:                uuid.NewString(),
		AppUserID:         appUserID,
		JWTTokenID:        tokenID,
		RiskScore:         assessment.Score,
		DeviceFingerprint: signals.Fingerprint(),
		IPAddress:         signals.IPAddress,
		Location:          signals.Location,
		UserAgent:         signals.UserAgent,
		ExpiresAt:         expiresAt,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("persist session: %w", err)
	}

	details := assessment.Details()
	details["level"] = string(decision.Level)
	details["allowed"] = decision.Allowed
	if _, err := s.events.Create(ctx, domain.RiskEvent{
		ID:             s.node.Generate().Int64(),
		SessionID:      session.ID,
		EventType:      eventType,
		Severity:       decision.Level.Severity(),
		RiskFactors:    details,
		CalculatedRisk: assessment.Score,
	}); err != nil {
		return domain.Session{}, fmt.Errorf("persist risk event: %w", err)
	}
	return session, nil
}
