// Package platform implements the community platform's operations over the
// record store: identity, posts, channels, events, moderation, recommendations
// and stats.
//
// Every operation reads whole collections, changes them in memory and writes
// them back. Unless Options.SerializeWrites is set, two operations running at
// once can overwrite each other's changes.
package platform

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/affinity"
	"github.com/jlym/memorywall/internal/identity"
	"github.com/jlym/memorywall/internal/logging"
	"github.com/jlym/memorywall/internal/moderation"
	s "github.com/jlym/memorywall/internal/server"
	"github.com/jlym/memorywall/internal/storage"
	"github.com/jlym/memorywall/internal/util"
)

type Options struct {
	Identity            identity.Options
	ChannelPollInterval time.Duration
	// SerializeWrites runs mutating operations one at a time within this process.
	SerializeWrites bool
	// Location is used for message clock times. Defaults to time.Local.
	Location *time.Location
	// DenyTerms overrides the keyword screen's denylist.
	DenyTerms []string
}

func DefaultOptions() Options {
	return Options{
		Identity:            identity.DefaultOptions(),
		ChannelPollInterval: 2 * time.Second,
	}
}

type Platform struct {
	Store    *storage.Store
	Sessions *identity.Sessions
	Ledger   *affinity.Ledger
	Screen   *moderation.Screen
	Clock    util.Clock
	Logger   *zap.Logger
	// Intn draws cold-start match percentages.
	Intn func(n int) int

	opts    Options
	writeMu sync.Mutex
}

// Enforce that Platform implements s.Server.
var _ s.Server = &Platform{}

func New(store *storage.Store, clock util.Clock, opts Options, logger *zap.Logger) *Platform {
	logger = logging.OrNop(logger)
	if clock == nil {
		clock = util.NewRealClock()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	terms := opts.DenyTerms
	if len(terms) == 0 {
		terms = moderation.DefaultTerms
	}

	return &Platform{
		Store:    store,
		Sessions: identity.NewSessions(store, clock, opts.Identity, logger),
		Ledger:   affinity.NewLedger(store, logger),
		Screen:   moderation.NewScreen(terms...),
		Clock:    clock,
		Logger:   logger.Named("platform"),
		Intn:     rand.IntN,
		opts:     opts,
	}
}

// lockWrites serializes mutating operations when configured to.
func (p *Platform) lockWrites() func() {
	if !p.opts.SerializeWrites {
		return func() {}
	}
	p.writeMu.Lock()
	return p.writeMu.Unlock
}

func (p *Platform) users(ctx context.Context) map[string]*s.User {
	return storage.Get(ctx, p.Store, storage.KeyUsers, map[string]*s.User{})
}

func (p *Platform) SignIn(ctx context.Context, email, password string) (*s.Identity, error) {
	defer p.lockWrites()()
	return p.Sessions.SignIn(ctx, email, password)
}

func (p *Platform) Register(ctx context.Context, request *s.RegisterRequest) (*s.Identity, error) {
	defer p.lockWrites()()
	return p.Sessions.Register(ctx, request)
}

func (p *Platform) SignOut(ctx context.Context) error {
	defer p.lockWrites()()
	p.Sessions.SignOut(ctx)
	return nil
}

func (p *Platform) CurrentUser(ctx context.Context) *s.User {
	return p.Sessions.CurrentUser(ctx)
}

func (p *Platform) OnSessionChange(callback func(*s.User)) s.CancelFunc {
	return p.Sessions.OnSessionChange(callback)
}

func (p *Platform) GetUser(ctx context.Context, userID string) *s.User {
	return p.users(ctx)[userID]
}

// UpdateProfile changes the user's editable profile fields. Identity fields,
// role and tag affinity are not editable here.
func (p *Platform) UpdateProfile(ctx context.Context, userID string, update *s.ProfileUpdate) (*s.User, error) {
	defer p.lockWrites()()

	users := p.users(ctx)
	user := users[userID]
	if user == nil {
		return nil, s.NotFoundError("user %s not found", userID)
	}
	if update != nil {
		setIf(&user.Name, update.Name)
		setIf(&user.Bio, update.Bio)
		setIf(&user.Location, update.Location)
		setIf(&user.Branch, update.Branch)
		setIf(&user.Batch, update.Batch)
	}
	p.Store.Set(ctx, storage.KeyUsers, users)
	return user, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (p *Platform) BumpTagAffinity(ctx context.Context, userID string, tags []string, amount int) {
	defer p.lockWrites()()
	p.Ledger.Bump(ctx, userID, tags, amount)
}
