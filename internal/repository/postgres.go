package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
)

const pgErrUniqueViolation = "23505"

// Compile-time interface assertions.
var (
	_ ApplicationRepository = (*PostgresApplicationRepo)(nil)
	_ UserRepository        = (*PostgresUserRepo)(nil)
	_ AppUserRepository     = (*PostgresAppUserRepo)(nil)
	_ SessionRepository     = (*PostgresSessionRepo)(nil)
	_ RiskEventRepository   = (*PostgresRiskEventRepo)(nil)
)

// OpenDB exposes the pgx pool through database/sql.
func OpenDB(pool *pgxpool.Pool) *sql.DB {
	return stdlib.OpenDBFromPool(pool)
}

// PostgresApplicationRepo implements ApplicationRepository.
type PostgresApplicationRepo struct {
	db *sql.DB
}

func NewPostgresApplicationRepo(db *sql.DB) *PostgresApplicationRepo {
	return &PostgresApplicationRepo{db: db}
}

func (r *PostgresApplicationRepo) GetByAPIKey(ctx context.Context, apiKey string) (domain.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`select id, name, api_key, coalesce(array_to_json(allowed_origins), '[]'::json)::text, created_at
		 from applications where api_key = $1`, apiKey)

	var (
		app     domain.Application
		origins string
	)
	if err := row.Scan(&app.ID, &app.Name, &app.APIKey, &origins, &app.CreatedAt); err != nil {
		return domain.Application{}, wrapErr("get application by api key", err)
	}
	if err := json.Unmarshal([]byte(origins), &app.AllowedOrigins); err != nil {
		return domain.Application{}, fmt.Errorf("decode allowed origins: %w", err)
	}
	return app, nil
}

func (r *PostgresApplicationRepo) Create(ctx context.Context, app domain.Application) (domain.Application, error) {
	origins := app.AllowedOrigins
	if origins == nil {
		origins = []string{}
	}
	encoded, err := json.Marshal(origins)
	if err != nil {
		return domain.Application{}, fmt.Errorf("encode allowed origins: %w", err)
	}
	row := r.db.QueryRowContext(ctx,
		`insert into applications (id, name, api_key, allowed_origins)
		 values ($1, $2, $3, array(select jsonb_array_elements_text($4::jsonb)))
		 returning created_at`,
		app.ID, app.Name, app.APIKey, string(encoded))
	if err := row.Scan(&app.CreatedAt); err != nil {
		return domain.Application{}, wrapErr("create application", err)
	}
	app.AllowedOrigins = origins
	return app, nil
}

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db *sql.DB
}

func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	var user domain.User
	err := r.db.QueryRowContext(ctx,
		`select id, email, password_hash, created_at from users where email = $1`, email).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return domain.User{}, wrapErr("get user by email", err)
	}
	return user, nil
}

func (r *PostgresUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	err := r.db.QueryRowContext(ctx,
		`insert into users (id, email, password_hash) values ($1, $2, $3) returning created_at`,
		user.ID, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		return domain.User{}, wrapErr("create user", err)
	}
	return user, nil
}

// PostgresAppUserRepo implements AppUserRepository.
type PostgresAppUserRepo struct {
	db *sql.DB
}

func NewPostgresAppUserRepo(db *sql.DB) *PostgresAppUserRepo {
	return &PostgresAppUserRepo{db: db}
}

const appUserColumns = `au.id, au.app_id, au.user_id, u.email, u.password_hash, au.created_at`

func (r *PostgresAppUserRepo) GetByEmail(ctx context.Context, appID, email string) (domain.AppUser, error) {
	row := r.db.QueryRowContext(ctx,
		`select `+appUserColumns+`
		 from app_users au join users u on u.id = au.user_id
		 where au.app_id = $1 and u.email = $2`, appID, email)
	appUser, err := scanAppUser(row)
	if err != nil {
		return domain.AppUser{}, wrapErr("get app user by email", err)
	}
	return appUser, nil
}

func (r *PostgresAppUserRepo) GetByID(ctx context.Context, id string) (domain.AppUser, error) {
	row := r.db.QueryRowContext(ctx,
		`select `+appUserColumns+`
		 from app_users au join users u on u.id = au.user_id
		 where au.id = $1`, id)
	appUser, err := scanAppUser(row)
	if err != nil {
		return domain.AppUser{}, wrapErr("get app user", err)
	}
	return appUser, nil
}

func (r *PostgresAppUserRepo) Create(ctx context.Context, appUser domain.AppUser) (domain.AppUser, error) {
	err := r.db.QueryRowContext(ctx,
		`insert into app_users (id, app_id, user_id) values ($1, $2, $3) returning created_at`,
		appUser.ID, appUser.AppID, appUser.UserID).Scan(&appUser.CreatedAt)
	if err != nil {
		return domain.AppUser{}, wrapErr("create app user", err)
	}
	return appUser, nil
}

func scanAppUser(row *sql.Row) (domain.AppUser, error) {
	var au domain.AppUser
	err := row.Scan(&au.ID, &au.AppID, &au.UserID, &au.Email, &au.PasswordHash, &au.CreatedAt)
	return au, err
}

// PostgresSessionRepo implements SessionRepository.
type PostgresSessionRepo struct {
	db *sql.DB
}

func NewPostgresSessionRepo(db *sql.DB) *PostgresSessionRepo {
	return &PostgresSessionRepo{db: db}
}

const sessionColumns = `id, user_id, jwt_token_id, risk_score, device_fingerprint, ip_address, location, user_agent, created_at, expires_at`

func (r *PostgresSessionRepo) Create(ctx context.Context, s domain.Session) (domain.Session, error) {
	if s.RiskScore < 0 || s.RiskScore > 100 {
		return domain.Session{}, fmt.Errorf("create session: risk score %d out of range", s.RiskScore)
	}
	err := r.db.QueryRowContext(ctx,
		`insert into user_sessions (id, user_id, jwt_token_id, risk_score, device_fingerprint, ip_address, location, user_agent, expires_at)
		 values ($1, $2, $3, $4, $5, $6, $7, $8, $9) returning created_at`,
		s.ID, s.AppUserID, s.JWTTokenID, s.RiskScore, s.DeviceFingerprint, s.IPAddress, s.Location, s.UserAgent, s.ExpiresAt).
		Scan(&s.CreatedAt)
	if err != nil {
		return domain.Session{}, wrapErr("create session", err)
	}
	return s, nil
}

func (r *PostgresSessionRepo) GetByID(ctx context.Context, id string) (domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from user_sessions where id = $1`, id))
	if err != nil {
		return domain.Session{}, wrapErr("get session", err)
	}
	return s, nil
}

func (r *PostgresSessionRepo) LatestActive(ctx context.Context, appUserID string, now time.Time) (domain.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from user_sessions
		 where user_id = $1 and expires_at > $2
		 order by created_at desc limit 1`, appUserID, now))
	if err != nil {
		return domain.Session{}, wrapErr("latest session", err)
	}
	return s, nil
}

func (r *PostgresSessionRepo) ListByAppUser(ctx context.Context, appUserID string, limit int) ([]domain.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`select `+sessionColumns+` from user_sessions
		 where user_id = $1 order by created_at desc limit $2`, appUserID, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (domain.Session, error) {
	var s domain.Session
	err := row.Scan(&s.ID, &s.AppUserID, &s.JWTTokenID, &s.RiskScore, &s.DeviceFingerprint,
		&s.IPAddress, &s.Location, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt)
	return s, err
}

// PostgresRiskEventRepo implements RiskEventRepository.
type PostgresRiskEventRepo struct {
	db *sql.DB
}

func NewPostgresRiskEventRepo(db *sql.DB) *PostgresRiskEventRepo {
	return &PostgresRiskEventRepo{db: db}
}

const riskEventColumns = `e.id, e.session_id, e.event_type, e.severity, e.risk_factors, e.calculated_risk, e.created_at`

func (r *PostgresRiskEventRepo) Create(ctx context.Context, ev domain.RiskEvent) (domain.RiskEvent, error) {
	factors := ev.RiskFactors
	if factors == nil {
		factors = domain.RiskDetails{}
	}
	encoded, err := json.Marshal(factors)
	if err != nil {
		return domain.RiskEvent{}, fmt.Errorf("encode risk factors: %w", err)
	}
	err = r.db.QueryRowContext(ctx,
		`insert into risk_events (id, session_id, event_type, severity, risk_factors, calculated_risk)
		 values ($1, $2, $3, $4, $5::jsonb, $6) returning created_at`,
		ev.ID, ev.SessionID, ev.EventType, ev.Severity, string(encoded), ev.CalculatedRisk).Scan(&ev.CreatedAt)
	if err != nil {
		return domain.RiskEvent{}, wrapErr("create risk event", err)
	}
	ev.RiskFactors = factors
	return ev, nil
}

func (r *PostgresRiskEventRepo) ListBySession(ctx context.Context, sessionID string) ([]domain.RiskEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`select `+riskEventColumns+` from risk_events e
		 where e.session_id = $1 order by e.created_at desc`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list risk events: %w", err)
	}
	return collectRiskEvents(rows)
}

func (r *PostgresRiskEventRepo) ListRecentByAppUser(ctx context.Context, appUserID string, since time.Time) ([]domain.RiskEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`select `+riskEventColumns+` from risk_events e
		 join user_sessions s on s.id = e.session_id
		 where s.user_id = $1 and e.created_at >= $2
		 order by e.created_at desc`, appUserID, since)
	if err != nil {
		return nil, fmt.Errorf("list recent risk events: %w", err)
	}
	return collectRiskEvents(rows)
}

func collectRiskEvents(rows *sql.Rows) ([]domain.RiskEvent, error) {
	defer rows.Close()

	var events []domain.RiskEvent
	for rows.Next() {
		var (
			ev      domain.RiskEvent
			factors []byte
		)
		if err := rows.Scan(&ev.ID, &ev.SessionID, &ev.EventType, &ev.Severity, &factors, &ev.CalculatedRisk, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan risk event: %w", err)
		}
		if len(factors) > 0 {
			if err := json.Unmarshal(factors, &ev.RiskFactors); err != nil {
				return nil, fmt.Errorf("decode risk factors: %w", err)
			}
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate risk events: %w", err)
	}
	return events, nil
}

func wrapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", op, err)
}
