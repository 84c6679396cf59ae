package identity_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jlym/memorywall/internal/identity"
	s "github.com/jlym/memorywall/internal/server"
	"github.com/jlym/memorywall/internal/storage"
	"github.com/jlym/memorywall/internal/util"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func getTestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func newTestSessions(medium storage.Medium, interval time.Duration) (*identity.Sessions, *util.StubClock) {
	clock := util.NewStubClock()
	opts := identity.DefaultOptions()
	opts.PollInterval = interval
	store := storage.NewStore(medium, "mw_", nil)
	return identity.NewSessions(store, clock, opts, nil), clock
}

func newRegisterRequest() *s.RegisterRequest {
	return &s.RegisterRequest{
		Email:    strings.ToLower(gofakeit.Username()) + "@college.edu",
		Password: "secret1",
		Name:     gofakeit.FirstName() + " " + gofakeit.LastName(),
		Branch:   "CSE",
		Batch:    "2026",
	}
}

func TestRegister(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	sessions, clock := newTestSessions(storage.NewMemoryMedium(), time.Hour)
	sessions.Intn = func(n int) int { return n - 1 }

	request := &s.RegisterRequest{
		Email: "rahul@college.edu", Password: "secret1", Name: "rahul kumar", Branch: "CSE", Batch: "2025",
	}
	ident, err := sessions.Register(ctx, request)
	require.NoError(t, err)
	require.Regexp(t, `^id_[0-9a-z]{9}$`, ident.UserID)
	require.Equal(t, "rahul@college.edu", ident.Email)
	require.Equal(t, "rahul kumar", ident.DisplayName)

	// Registration signs the user in.
	user := sessions.CurrentUser(ctx)
	require.NotNil(t, user)
	require.Equal(t, ident.UserID, user.UserID)
	require.Equal(t, "RK", user.Initials)
	require.Equal(t, s.RoleStudent, user.Role)
	require.Equal(t, identity.CohortCount-1, user.GradIndex)
	require.Equal(t, clock.NowUtc(), user.JoinedAt)
	require.NotNil(t, user.TagAffinity)
	require.Empty(t, user.TagAffinity)

	// One user per email.
	_, err = sessions.Register(ctx, request)
	require.ErrorIs(t, err, s.ErrConflict)
}

func TestRegisterValidation(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	sessions, _ := newTestSessions(storage.NewMemoryMedium(), time.Hour)

	request := newRegisterRequest()
	request.Email = "someone@gmail.com"
	_, err := sessions.Register(ctx, request)
	require.ErrorIs(t, err, s.ErrDomain)
	require.ErrorIs(t, err, s.ErrValidation)

	request = newRegisterRequest()
	request.Password = "12345"
	_, err = sessions.Register(ctx, request)
	require.ErrorIs(t, err, s.ErrValidation)
	require.NotErrorIs(t, err, s.ErrDomain)

	require.Nil(t, sessions.CurrentUser(ctx))
}

func TestSignIn(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	sessions, _ := newTestSessions(storage.NewMemoryMedium(), time.Hour)
	request := newRegisterRequest()
	registered, err := sessions.Register(ctx, request)
	require.NoError(t, err)
	sessions.SignOut(ctx)
	require.Nil(t, sessions.CurrentUser(ctx))

	_, err = sessions.SignIn(ctx, "x@other.org", "secret1")
	require.ErrorIs(t, err, s.ErrDomain)

	_, err = sessions.SignIn(ctx, "nobody@college.edu", "secret1")
	require.ErrorIs(t, err, s.ErrNotFound)

	// The domain and existence checks run before the length policy.
	_, err = sessions.SignIn(ctx, "nobody@college.edu", "1")
	require.ErrorIs(t, err, s.ErrNotFound)

	_, err = sessions.SignIn(ctx, request.Email, "short")
	require.ErrorIs(t, err, s.ErrValidation)
	require.Nil(t, sessions.CurrentUser(ctx))

	// Any password that satisfies the length policy is accepted.
	ident, err := sessions.SignIn(ctx, request.Email, "not-the-registered-one")
	require.NoError(t, err)
	require.Equal(t, registered, ident)
	require.Equal(t, registered.UserID, sessions.CurrentUser(ctx).UserID)
}

func TestCurrentUserDangling(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	sessions, _ := newTestSessions(storage.NewMemoryMedium(), time.Hour)
	sessions.Store.Set(ctx, storage.KeySession, "id_missing00")
	require.Nil(t, sessions.CurrentUser(ctx))
}

func TestInitials(t *testing.T) {
	require.Equal(t, "RK", identity.Initials("Rahul Kumar"))
	require.Equal(t, "PS", identity.Initials("priya s."))
	require.Equal(t, "AB", identity.Initials("ann  bell carter"))
	require.Equal(t, "M", identity.Initials("madonna"))
	require.Equal(t, "", identity.Initials(""))
}

func TestNewID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := identity.NewID()
		require.Regexp(t, `^id_[0-9a-z]{9}$`, id)
		require.False(t, seen[id])
		seen[id] = true
	}
}

func TestOnSessionChange(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	medium := storage.NewMemoryMedium()
	sessions, _ := newTestSessions(medium, 10*time.Millisecond)
	ident, err := sessions.Register(ctx, newRegisterRequest())
	require.NoError(t, err)

	seen := make(chan *s.User, 10)
	stop := sessions.OnSessionChange(func(u *s.User) { seen <- u })
	defer stop()

	// Invoked immediately with the current user.
	require.Len(t, seen, 1)
	require.Equal(t, ident.UserID, (<-seen).UserID)

	// A sign-out by another actor sharing the medium is noticed by polling.
	otherTab, _ := newTestSessions(medium, time.Hour)
	otherTab.SignOut(ctx)

	select {
	case u := <-seen:
		require.Nil(t, u)
	case <-time.After(2 * time.Second):
		t.Fatal("session change was not delivered")
	}

	// No further calls while the pointer is unchanged.
	time.Sleep(50 * time.Millisecond)
	require.Len(t, seen, 0)

	// Nothing is delivered after cancellation.
	stop()
	_, err = otherTab.SignIn(ctx, ident.Email, "secret1")
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	require.Len(t, seen, 0)
}

func TestOnSessionChangePushedByFileMedium(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	medium, err := storage.NewFileMedium(filepath.Join(t.TempDir(), "data"), nil)
	require.NoError(t, err)

	// The poll interval is far longer than the test; only the pushed
	// notification can deliver the change in time.
	sessions, _ := newTestSessions(medium, time.Hour)
	seen := make(chan *s.User, 10)
	stop := sessions.OnSessionChange(func(u *s.User) { seen <- u })
	defer stop()
	require.Nil(t, <-seen)

	otherTab, _ := newTestSessions(medium, time.Hour)
	ident, err := otherTab.Register(ctx, newRegisterRequest())
	require.NoError(t, err)

	select {
	case u := <-seen:
		require.NotNil(t, u)
		require.Equal(t, ident.UserID, u.UserID)
	case <-time.After(5 * time.Second):
		t.Fatal("pushed session change was not delivered")
	}
}
