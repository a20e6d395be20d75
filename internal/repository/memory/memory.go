// Package memory implements the repository interfaces on maps. It backs
// service and handler tests and local runs without Postgres.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/domain"
	"github.com/NabilMouzouna/NubleTrust-monorepo/internal/repository"
)

// Store holds every table behind one mutex.
type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	seq      int
	apps     map[string]domain.Application
	users    map[string]domain.User
	appUsers map[string]domain.AppUser
	sessions map[string]domain.Session
	events   []domain.RiskEvent
}

// New creates an empty store. now stamps CreatedAt; nil means time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		apps:     map[string]domain.Application{},
		users:    map[string]domain.User{},
		appUsers: map[string]domain.AppUser{},
		sessions: map[string]domain.Session{},
	}
}

// stamp returns a creation time that is strictly increasing even when the
// clock is frozen, so newest-first ordering stays observable.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.now().Add(time.Duration(s.seq) * time.Microsecond)
}

func (s *Store) Applications() repository.ApplicationRepository { return applications{s} }
func (s *Store) Users() repository.UserRepository { return users{s} }
func (s *Store) AppUsers() repository.AppUserRepository { return appUsers{s} }
func (s *Store) Sessions() repository.SessionRepository { return sessions{s} }
func (s *Store) RiskEvents() repository.RiskEventRepository { return riskEvents{s} }

// Events returns a copy of every stored risk event in insertion order.
func (s *Store) Events() []domain.RiskEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RiskEvent, len(s.events))
	copy(out, s.events)
	return out
}

type applications struct{ *Store }
type users struct{ *Store }
type appUsers struct{ *Store }
type sessions struct{ *Store }
type riskEvents struct{ *Store }

func (r applications) GetByAPIKey(_ context.Context, apiKey string) (domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, app := range r.apps {
		if app.APIKey == apiKey {
			return app, nil
		}
	}
	return domain.Application{}, repository.ErrNotFound
}

func (r applications) Create(_ context.Context, app domain.Application) (domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.apps {
		if existing.APIKey == app.APIKey {
			return domain.Application{}, repository.ErrConflict
		}
	}
	app.CreatedAt = r.stamp()
	r.apps[app.ID] = app
	return app, nil
}

func (r users) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (r users) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.User{}, repository.ErrConflict
		}
	}
	user.CreatedAt = r.stamp()
	r.users[user.ID] = user
	return user, nil
}

// withUser joins the platform user the way the SQL query does.
func (r appUsers) withUser(au domain.AppUser) domain.AppUser {
	u := r.users[au.UserID]
	au.Email = u.Email
	au.PasswordHash = u.PasswordHash
	return au
}

func (r appUsers) GetByEmail(_ context.Context, appID, email string) (domain.AppUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, au := range r.appUsers {
		if au.AppID == appID && strings.EqualFold(r.users[au.UserID].Email, email) {
			return r.withUser(au), nil
		}
	}
	return domain.AppUser{}, repository.ErrNotFound
}

func (r appUsers) GetByID(_ context.Context, id string) (domain.AppUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	au, ok := r.appUsers[id]
	if !ok {
		return domain.AppUser{}, repository.ErrNotFound
	}
	return r.withUser(au), nil
}

func (r appUsers) Create(_ context.Context, appUser domain.AppUser) (domain.AppUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, au := range r.appUsers {
		if au.AppID == appUser.AppID && au.UserID == appUser.UserID {
			return domain.AppUser{}, repository.ErrConflict
		}
	}
	appUser.CreatedAt = r.stamp()
	r.appUsers[appUser.ID] = appUser
	return appUser, nil
}

func (r sessions) Create(_ context.Context, session domain.Session) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.JWTTokenID == session.JWTTokenID {
			return domain.Session{}, repository.ErrConflict
		}
	}
	session.CreatedAt = r.stamp()
	r.sessions[session.ID] = session
	return session, nil
}

func (r sessions) GetByID(_ context.Context, id string) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.Session{}, repository.ErrNotFound
	}
	return s, nil
}

// byAppUser must be called with the lock held.
func (r sessions) byAppUser(appUserID string) []domain.Session {
	var out []domain.Session
	for _, s := range r.sessions {
		if s.AppUserID == appUserID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r sessions) LatestActive(_ context.Context, appUserID string, now time.Time) (domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byAppUser(appUserID) {
		if s.Active(now) {
			return s, nil
		}
	}
	return domain.Session{}, repository.ErrNotFound
}

func (r sessions) ListByAppUser(_ context.Context, appUserID string, limit int) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.byAppUser(appUserID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r riskEvents) Create(_ context.Context, event domain.RiskEvent) (domain.RiskEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[event.SessionID]; !ok {
		return domain.RiskEvent{}, repository.ErrNotFound
	}
	if event.RiskFactors == nil {
		event.RiskFactors = domain.RiskDetails{}
	}
	event.CreatedAt = r.stamp()
	r.events = append(r.events, event)
	return event, nil
}

// ListBySession returns newest first, as the SQL repository does.
func (r riskEvents) ListBySession(_ context.Context, sessionID string) ([]domain.RiskEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RiskEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].SessionID == sessionID {
			out = append(out, r.events[i])
		}
	}
	return out, nil
}

func (r riskEvents) ListRecentByAppUser(_ context.Context, appUserID string, since time.Time) ([]domain.RiskEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RiskEvent
	for i := len(r.events) - 1; i >= 0; i-- {
		ev := r.events[i]
		if r.sessions[ev.SessionID].AppUserID == appUserID && !ev.CreatedAt.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}
