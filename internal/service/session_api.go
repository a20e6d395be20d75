package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/apperr"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/risk"
)

const sessionListLimit = 50

// CreateSession scores the signals for the token subject and stores a new
// session. Unlike login it never denies; the decision is returned to the caller.
func (s *SessionService) CreateSession(ctx context.Context, principal *jwt.Payload, signals domain.SessionSignals) (SessionResult, error) {
	ctx, span := s.startSpan(ctx, "SessionService.CreateSession")
	defer span.End()

	signals = s.stamp(signals)
	assessment, err := s.score(ctx, principal.Subject, signals)
	if err != nil {
		span.RecordError(err)
		return SessionResult{}, err
	}
	decision := risk.Decide(assessment.Score)
	recordRisk(span, principal.ApplicationID, principal.Subject, domain.EventSession, assessment, decision)
	s.metrics.ObserveRisk(domain.EventSession, string(decision.Level), assessment.Score)

	session, err := s.record(ctx, principal.Subject, jwt.NewTokenID(signals.RequestedAt), signals.RequestedAt.Add(s.sessionTTL), signals, assessment, decision, domain.EventSession)
	if err != nil {
		span.RecordError(err)
		return SessionResult{}, err
	}

	s.audit("session.create", "app_id", principal.ApplicationID, "app_user_id", principal.Subject, "session_id", session.ID, "risk_score", assessment.Score)
	return SessionResult{
		Session:  NewSessionViewModel(session, signals.RequestedAt),
		Risk:     newRiskViewModel(assessment, decision),
		Factors:  assessment.Factors,
		Decision: decision,
	}, nil
}

// ListSessions returns the subject's sessions, newest first.
func (s *SessionService) ListSessions(ctx context.Context, principal *jwt.Payload) ([]SessionViewModel, error) {
	ctx, span := s.startSpan(ctx, "SessionService.ListSessions")
	defer span.End()

	sessions, err := s.sessions.ListByAppUser(ctx, principal.Subject, sessionListLimit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	now := s.now()
	out := make([]SessionViewModel, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, NewSessionViewModel(sess, now))
	}
	return out, nil
}

// ReportRisk appends an externally reported event to one of the subject's sessions.
func (s *SessionService) ReportRisk(ctx context.Context, principal *jwt.Payload, report RiskReport) (RiskEventViewModel, error) {
	ctx, span := s.startSpan(ctx, "SessionService.ReportRisk")
	defer span.End()

	if report.SessionID == "" || report.Type == "" || report.Severity == "" {
		return RiskEventViewModel{}, apperr.Validation("Missing required fields: sessionId, type, severity")
	}
	if !domain.ValidSeverity(report.Severity) {
		return RiskEventViewModel{}, apperr.Validation("severity must be one of low, medium, high, critical")
	}

	session, err := s.ownedSession(ctx, principal, report.SessionID)
	if err != nil {
		return RiskEventViewModel{}, err
	}

	score := session.RiskScore
	if report.Score != nil {
		score = *report.Score
	}
	if score < 0 || score > 100 {
		return RiskEventViewModel{}, apperr.Validation("score must be between 0 and 100")
	}
	details := report.Details
	if details == nil {
		details = domain.RiskDetails{}
	}

	event, err := s.events.Create(ctx, domain.RiskEvent{
		ID:             s.node.Generate().Int64(),
		SessionID:      session.ID,
		EventType:      report.Type,
		Severity:       report.Severity,
		RiskFactors:    details,
		CalculatedRisk: score,
	})
	if err != nil {
		span.RecordError(err)
		return RiskEventViewModel{}, fmt.Errorf("persist risk event: %w", err)
	}

	s.audit("risk.report", "app_user_id", principal.Subject, "session_id", session.ID, "type", report.Type, "severity", report.Severity)
	return NewRiskEventViewModel(event), nil
}

// ListRisks returns the events recorded against one of the subject's sessions.
func (s *SessionService) ListRisks(ctx context.Context, principal *jwt.Payload, sessionID string) ([]RiskEventViewModel, error) {
	ctx, span := s.startSpan(ctx, "SessionService.ListRisks")
	defer span.End()

	if sessionID == "" {
		return nil, apperr.Validation("sessionId query parameter is required")
	}
	if _, err := s.ownedSession(ctx, principal, sessionID); err != nil {
		return nil, err
	}

	events, err := s.events.ListBySession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list risk events: %w", err)
	}
	out := make([]RiskEventViewModel, 0, len(events))
	for _, ev := range events {
		out = append(out, NewRiskEventViewModel(ev))
	}
	return out, nil
}

// ownedSession loads a session and hides it unless it belongs to the subject.
func (s *SessionService) ownedSession(ctx context.Context, principal *jwt.Payload, sessionID string) (domain.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return domain.Session{}, ErrSessionNotFound
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	if session.AppUserID != principal.Subject {
		return domain.Session{}, ErrSessionNotFound
	}
	return session, nil
}

func snowflakeString(id int64) string { return snowflake.ID(id).String() }
