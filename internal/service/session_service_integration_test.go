//go:build integration

package service_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/adapter/cache"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/application"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/jwt"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/metrics"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/risk"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/service"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatal("DATABASE_URL must be set for integration tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect db: %v", err)
	}
	db := repository.OpenDB(pool)
	t.Cleanup(func() {
		_ = db.Close()
		pool.Close()
	})

	require.NoError(t, repository.Migrate(ctx, db))
	return db
}

func seedApplication(t *testing.T, db *sql.DB) *application.Context {
	t.Helper()
	app, err := repository.NewPostgresApplicationRepo(db).Create(context.Background(), domain.Application{
		ID:             uuid.NewString(),
		Name:           "integration",
		APIKey:         "it-" + uuid.NewString(),
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	require.NoError(t, err)
	return &application.Context{Application: app}
}

func newRealSessionService(t *testing.T, db *sql.DB) *service.SessionService {
	t.Helper()

	logger := zap.NewExample()
	defer func() { _ = logger.Sync() }()

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	keys, err := jwt.NewKeyStore(privPEM, pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), []byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	node, _ := snowflake.NewNode(1)
	m := metrics.New()

	tokens := service.NewTokenService(
		jwt.NewGenerator(keys, 10*time.Minute),
		jwt.NewRefreshSigner(keys, 7*24*time.Hour),
		cache.NewRedisRefreshStore(client),
		m,
		logger,
	)
	credentials := service.NewCredentialService(repository.NewPostgresUserRepo(db), repository.NewPostgresAppUserRepo(db), logger)

	return service.NewSessionService(
		credentials,
		tokens,
		risk.NewEngine(risk.Policy{}),
		repository.NewPostgresSessionRepo(db),
		repository.NewPostgresRiskEventRepo(db),
		node,
		7*24*time.Hour,
		m,
		logger,
	)
}

func TestSessionService_RegisterLogin_Integration(t *testing.T) {
	db := setupDB(t)
	app := seedApplication(t, db)
	svc := newRealSessionService(t, db)

	ctx := context.Background()
	email := uuid.NewString() + "@example.com"
	signals := domain.SessionSignals{
		DeviceFingerprint: "fp-it",
		IPAddress:         "127.0.0.1",
		Location:          "Local",
		UserAgent:         "Mozilla/5.0",
		Timezone:          "UTC",
		RequestedAt:       time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC),
	}

	reg, err := svc.Register(ctx, app, email, "password123", signals)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.Tokens.AccessToken)
	assert.Equal(t, 40, reg.Risk.Score)

	signals.RequestedAt = signals.RequestedAt.Add(5 * time.Minute)
	login, err := svc.Login(ctx, app, email, "password123", signals)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)
	assert.Equal(t, 0, login.Risk.Score)

	var sessions int
	err = db.QueryRowContext(ctx, `select count(*) from user_sessions where user_id = $1`, reg.User.ID).Scan(&sessions)
	require.NoError(t, err)
	assert.Equal(t, 2, sessions)

	var events int
	err = db.QueryRowContext(ctx, `
		select count(*) from risk_events e
		join user_sessions s on s.id = e.session_id
		where s.user_id = $1`, reg.User.ID).Scan(&events)
	require.NoError(t, err)
	assert.Equal(t, 2, events)
}
