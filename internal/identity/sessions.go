// Package identity manages registered users' credentials check and the single
// current-session pointer kept in the record store.
package identity

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/logging"
	s "github.com/jlym/memorywall/internal/server"
	"github.com/jlym/memorywall/internal/storage"
	"github.com/jlym/memorywall/internal/util"
	"github.com/jlym/memorywall/internal/watch"
)

// CohortCount bounds the randomly assigned cohort index: [0, CohortCount).
const CohortCount = 6

type Options struct {
	// EmailDomain is the required email suffix, e.g. "@college.edu".
	EmailDomain    string
	MinPasswordLen int
	PollInterval   time.Duration
}

func DefaultOptions() Options {
	return Options{
		EmailDomain:    "@college.edu",
		MinPasswordLen: 6,
		PollInterval:   500 * time.Millisecond,
	}
}

type Sessions struct {
	Store  *storage.Store
	Clock  util.Clock
	Logger *zap.Logger
	opts   Options
	// Intn picks the cohort index of new users.
	Intn func(n int) int
}

func NewSessions(store *storage.Store, clock util.Clock, opts Options, logger *zap.Logger) *Sessions {
	if clock == nil {
		clock = util.NewRealClock()
	}
	return &Sessions{
		Store:  store,
		Clock:  clock,
		Logger: logging.OrNop(logger).Named("identity"),
		opts:   opts,
		Intn:   rand.IntN,
	}
}

func (m *Sessions) users(ctx context.Context) map[string]*s.User {
	return storage.Get(ctx, m.Store, storage.KeyUsers, map[string]*s.User{})
}

func findByEmail(users map[string]*s.User, email string) *s.User {
	for _, u := range users {
		if u != nil && u.Email == email {
			return u
		}
	}
	return nil
}

func (m *Sessions) checkDomain(email string) error {
	if !strings.HasSuffix(email, m.opts.EmailDomain) {
		return s.DomainError("only %s emails are allowed", m.opts.EmailDomain)
	}
	return nil
}

func (m *Sessions) checkPassword(password string) error {
	if len(password) < m.opts.MinPasswordLen {
		return s.ValidationError("password must be at least %d characters", m.opts.MinPasswordLen)
	}
	return nil
}

// SignIn points the session at the user registered under email. The password
// is only checked against the length policy, never against a stored secret.
func (m *Sessions) SignIn(ctx context.Context, email, password string) (*s.Identity, error) {
	if err := m.checkDomain(email); err != nil {
		return nil, err
	}
	user := findByEmail(m.users(ctx), email)
	if user == nil {
		return nil, s.NotFoundError("no account found for %s, register first", email)
	}
	if err := m.checkPassword(password); err != nil {
		return nil, err
	}

	m.Store.Set(ctx, storage.KeySession, user.UserID)
	m.Logger.Debug("signed in", zap.String("uid", user.UserID))
	return &s.Identity{UserID: user.UserID, Email: user.Email, DisplayName: user.Name}, nil
}

func (m *Sessions) Register(ctx context.Context, request *s.RegisterRequest) (*s.Identity, error) {
	if err := m.checkDomain(request.Email); err != nil {
		return nil, err
	}
	if err := m.checkPassword(request.Password); err != nil {
		return nil, err
	}
	users := m.users(ctx)
	if findByEmail(users, request.Email) != nil {
		return nil, s.ConflictError("an account already exists for %s, sign in instead", request.Email)
	}

	user := &s.User{
		UserID:      NewID(),
		Name:        request.Name,
		Email:       request.Email,
		Initials:    Initials(request.Name),
		Role:        s.RoleStudent,
		Branch:      request.Branch,
		Batch:       request.Batch,
		JoinedAt:    m.Clock.NowUtc(),
		GradIndex:   m.Intn(CohortCount),
		TagAffinity: map[string]int{},
	}
	users[user.UserID] = user
	m.Store.Set(ctx, storage.KeyUsers, users)
	m.Store.Set(ctx, storage.KeySession, user.UserID)
	m.Logger.Info("registered user", zap.String("uid", user.UserID))

	return &s.Identity{UserID: user.UserID, Email: user.Email, DisplayName: user.Name}, nil
}

func (m *Sessions) SignOut(ctx context.Context) {
	m.Store.Remove(ctx, storage.KeySession)
}

func (m *Sessions) sessionID(ctx context.Context) string {
	return storage.Get(ctx, m.Store, storage.KeySession, "")
}

// CurrentUser returns the signed-in user, or nil when there is no session or
// it points at an unknown user.
func (m *Sessions) CurrentUser(ctx context.Context) *s.User {
	uid := m.sessionID(ctx)
	if uid == "" {
		return nil
	}
	return m.users(ctx)[uid]
}

// OnSessionChange calls callback with the current user right away and again
// each time the session pointer changes, including changes made by another
// process sharing the medium. Changes are noticed on the poll interval, or
// sooner when the medium pushes notifications.
func (m *Sessions) OnSessionChange(callback func(*s.User)) s.CancelFunc {
	ctx := context.Background()
	wake, unwatch := m.Store.Watch(storage.KeySession)

	first := true
	last := ""
	stop := watch.Start(m.opts.PollInterval, wake, func() {
		uid := m.sessionID(ctx)
		if !first && uid == last {
			return
		}
		first = false
		last = uid
		m.Logger.Debug("session changed", zap.String("uid", uid))
		callback(m.CurrentUser(ctx))
	})

	return func() {
		stop()
		unwatch()
	}
}
