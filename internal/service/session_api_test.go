package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/apperr"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/risk"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/service"
)

func registerPrincipal(t *testing.T, h *harness, email string) (*jwt.Payload, service.AuthResult) {
	t.Helper()
	res, err := h.sessions.Register(context.Background(), h.app, email, "password123", laptop())
	require.NoError(t, err)
	principal, err := h.tokens.Verify(context.Background(), res.Tokens.AccessToken)
	require.NoError(t, err)
	return principal, res
}

func TestCreateAndListSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	principal, reg := registerPrincipal(t, h, "user@example.com")

	h.now = h.now.Add(2 * time.Minute)
	signals := laptop()
	signals.Location = "Rabat, MA"
	created, err := h.sessions.CreateSession(ctx, principal, signals)
	require.NoError(t, err)
	require.Equal(t, 25, created.Risk.Score)
	require.True(t, created.Factors[risk.FactorLocationChange])
	require.True(t, created.Decision.Allowed)
	require.True(t, created.Session.Active)
	require.Equal(t, h.now.Add(7*24*time.Hour), created.Session.ExpiresAt)
	require.Len(t, eventsOfType(h.store, domain.EventSession), 1)

	list, err := h.sessions.ListSessions(ctx, principal)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, created.Session.ID, list[0].ID)
	require.Equal(t, reg.Session.ID, list[1].ID)
}

func TestListSessionsOnlyReturnsOwnSessions(t *testing.T) {
	h := newHarness(t)
	alice, _ := registerPrincipal(t, h, "alice@example.com")
	_, _ = registerPrincipal(t, h, "bob@example.com")

	list, err := h.sessions.ListSessions(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestReportAndListRisks(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	principal, reg := registerPrincipal(t, h, "user@example.com")

	score := 70
	ev, err := h.sessions.ReportRisk(ctx, principal, service.RiskReport{
		SessionID: reg.Session.ID,
		Type:      "impossible_travel",
		Severity:  domain.SeverityHigh,
		Details:   domain.RiskDetails{"reason": "two continents in an hour"},
		Score:     &score,
	})
	require.NoError(t, err)
	require.NotEmpty(t, ev.ID)
	require.Equal(t, 70, ev.CalculatedRisk)

	// Without an explicit score the session's own score is recorded.
	ev2, err := h.sessions.ReportRisk(ctx, principal, service.RiskReport{
		SessionID: reg.Session.ID,
		Type:      "manual_review",
		Severity:  domain.SeverityLow,
	})
	require.NoError(t, err)
	require.Equal(t, reg.Session.RiskScore, ev2.CalculatedRisk)
	require.NotNil(t, ev2.RiskFactors)

	events, err := h.sessions.ListRisks(ctx, principal, reg.Session.ID)
	require.NoError(t, err)
	// Registration event plus the two reports, newest first.
	require.Len(t, events, 3)
	require.Equal(t, "manual_review", events[0].EventType)
	require.Equal(t, "impossible_travel", events[1].EventType)
	require.Equal(t, domain.EventRegister, events[2].EventType)
}

func TestReportRiskValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	principal, reg := registerPrincipal(t, h, "user@example.com")

	_, err := h.sessions.ReportRisk(ctx, principal, service.RiskReport{SessionID: reg.Session.ID, Type: "x"})
	requireKind(t, err, apperr.KindValidation)

	_, err = h.sessions.ReportRisk(ctx, principal, service.RiskReport{SessionID: reg.Session.ID, Type: "x", Severity: "extreme"})
	requireKind(t, err, apperr.KindValidation)

	bad := 101
	_, err = h.sessions.ReportRisk(ctx, principal, service.RiskReport{SessionID: reg.Session.ID, Type: "x", Severity: "low", Score: &bad})
	requireKind(t, err, apperr.KindValidation)

	_, err = h.sessions.ListRisks(ctx, principal, "")
	requireKind(t, err, apperr.KindValidation)
}

func TestRisksRequireSessionOwnership(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice, _ := registerPrincipal(t, h, "alice@example.com")
	_, bob := registerPrincipal(t, h, "bob@example.com")

	_, err := h.sessions.ReportRisk(ctx, alice, service.RiskReport{SessionID: bob.Session.ID, Type: "x", Severity: "low"})
	require.True(t, errors.Is(err, service.ErrSessionNotFound))

	_, err = h.sessions.ListRisks(ctx, alice, bob.Session.ID)
	require.True(t, errors.Is(err, service.ErrSessionNotFound))

	_, err = h.sessions.ListRisks(ctx, alice, "not-a-uuid")
	require.True(t, errors.Is(err, service.ErrSessionNotFound))
}
