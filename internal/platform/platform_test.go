package platform_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jlym/memorywall/internal/platform"
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

// The seeded posts were written between 15 and 18 Feb 2025.
var seedNow = time.Date(2025, 2, 18, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	platform *platform.Platform
	clock    *util.StubClock
	medium   storage.Medium
}

func newTestEnvWith(t *testing.T, medium storage.Medium, seed bool, configure func(*platform.Options)) *testEnv {
	clock := util.NewStubClockAt(seedNow)
	opts := platform.DefaultOptions()
	opts.Identity.PollInterval = 10 * time.Millisecond
	opts.ChannelPollInterval = 10 * time.Millisecond
	opts.Location = time.UTC
	if configure != nil {
		configure(&opts)
	}

	p := platform.New(storage.NewStore(medium, "mw_", nil), clock, opts, nil)
	if seed {
		seeded, err := p.Seed(context.Background())
		require.NoError(t, err)
		require.True(t, seeded)
	}
	return &testEnv{platform: p, clock: clock, medium: medium}
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, storage.NewMemoryMedium(), true, nil)
}

func (env *testEnv) affinity(uid string) map[string]int {
	user := env.platform.GetUser(context.Background(), uid)
	if user == nil {
		return nil
	}
	return user.TagAffinity
}

func TestLoadSeed(t *testing.T) {
	data, err := platform.LoadSeed()
	require.NoError(t, err)

	require.Len(t, data.Users, 4)
	require.Len(t, data.Posts, 6)
	require.Len(t, data.Events, 5)
	require.Len(t, data.Skills, 8)

	rahul := data.Users["user_rahul"]
	require.NotNil(t, rahul)
	require.Equal(t, "rahul@college.edu", rahul.Email)
	require.Equal(t, 8, rahul.TagAffinity["#coding"])
	require.Equal(t, time.Date(2021, 8, 1, 0, 0, 0, 0, time.UTC), rahul.JoinedAt.UTC())
	require.Equal(t, s.RoleAdmin, data.Users["user_admin"].Role)
	require.NotNil(t, data.Users["user_admin"].TagAffinity)

	require.Equal(t, "post_1", data.Posts[0].PostID)
	require.Equal(t, []string{"#hackathon", "#coding"}, data.Posts[0].Tags)
	require.Equal(t, time.Date(2025, 2, 18, 8, 0, 0, 0, time.UTC), data.Posts[0].CreatedAt.UTC())

	require.Len(t, data.Channels["general"], 5)
	require.Len(t, data.Channels["placements"], 3)
	require.Empty(t, data.Channels["technical"])
	for _, m := range data.Channels["general"] {
		require.Equal(t, "general", m.ChannelID)
	}

	require.Equal(t, "22", data.Events[0].Day)
	require.Equal(t, "Feb", data.Events[0].Month)
	require.NotNil(t, data.Events[0].Registered)
}

func TestSeedRunsOnce(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	env := newTestEnv(t)
	p := env.platform

	flagged, ok := p.Inspect(ctx, storage.KeyFlagged)
	require.True(t, ok)
	require.JSONEq(t, `[]`, string(flagged))

	require.NoError(t, p.RegisterEvent(ctx, "ev_1", "user_rahul"))

	// A second run leaves existing data alone.
	seeded, err := p.Seed(ctx)
	require.NoError(t, err)
	require.False(t, seeded)
	require.Equal(t, []string{"user_rahul"}, p.ListEvents(ctx)[0].Registered)
}

func TestReset(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	p := newTestEnv(t).platform
	_, err := p.SignIn(ctx, "rahul@college.edu", "secret1")
	require.NoError(t, err)
	_, err = p.CreatePost(ctx, &s.CreatePostRequest{Title: "t", Content: "c", AuthorID: "user_rahul"})
	require.NoError(t, err)
	require.NoError(t, p.RegisterEvent(ctx, "ev_2", "user_rahul"))

	require.NoError(t, p.Reset(ctx))

	require.Nil(t, p.CurrentUser(ctx))
	require.Len(t, p.ListPosts(ctx, &s.ListPostsRequest{Status: s.StatusAll}), 6)
	require.Empty(t, p.ListEvents(ctx)[1].Registered)
	require.Equal(t, 8, p.GetUser(ctx, "user_rahul").TagAffinity["#coding"])
}

func TestUpdateProfile(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	p := newTestEnv(t).platform
	bio := gofakeit.Sentence(8)
	location := gofakeit.City()

	user, err := p.UpdateProfile(ctx, "user_priya", &s.ProfileUpdate{Bio: &bio, Location: &location})
	require.NoError(t, err)
	require.Equal(t, bio, user.Bio)
	require.Equal(t, location, user.Location)
	require.Equal(t, "Priya S.", user.Name)

	stored := p.GetUser(ctx, "user_priya")
	require.Equal(t, bio, stored.Bio)
	require.Equal(t, "priya@college.edu", stored.Email)
	require.Equal(t, 9, stored.TagAffinity["#hackathon"])

	_, err = p.UpdateProfile(ctx, "user_nobody", &s.ProfileUpdate{Bio: &bio})
	require.ErrorIs(t, err, s.ErrNotFound)
}

func TestRegisterEvent(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	env := newTestEnv(t)
	p := env.platform

	require.NoError(t, p.RegisterEvent(ctx, "ev_5", "user_arjun"))
	require.Equal(t, 13, env.affinity("user_arjun")["#placement"])
	require.Equal(t, 3, env.affinity("user_arjun")["#alumni"])

	// Registering twice fails and leaves a single entry.
	err := p.RegisterEvent(ctx, "ev_5", "user_arjun")
	require.ErrorIs(t, err, s.ErrConflict)
	require.Equal(t, []string{"user_arjun"}, p.ListEvents(ctx)[4].Registered)
	require.Equal(t, 13, env.affinity("user_arjun")["#placement"])

	err = p.RegisterEvent(ctx, "ev_404", "user_arjun")
	require.ErrorIs(t, err, s.ErrNotFound)
}

func TestRecommendEventsExcludesRegistered(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	p := newTestEnv(t).platform

	recs, err := p.RecommendEvents(ctx, "user_rahul")
	require.NoError(t, err)
	require.Len(t, recs, 5)
	require.Equal(t, "ev_1", recs[0].EventID)

	require.NoError(t, p.RegisterEvent(ctx, "ev_1", "user_rahul"))
	recs, err = p.RecommendEvents(ctx, "user_rahul")
	require.NoError(t, err)
	require.Len(t, recs, 4)
	for i, r := range recs {
		require.NotEqual(t, "ev_1", r.EventID)
		if i > 0 {
			require.LessOrEqual(t, r.Score, recs[i-1].Score)
		}
	}
}

func TestRecommendEventsColdStart(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	p := newTestEnv(t).platform
	ident, err := p.Register(ctx, &s.RegisterRequest{
		Email: "fresher@college.edu", Password: "secret1", Name: gofakeit.Name(),
	})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		recs, err := p.RecommendEvents(ctx, ident.UserID)
		require.NoError(t, err)
		require.Len(t, recs, 5)
		for _, r := range recs {
			require.GreaterOrEqual(t, r.MatchPct, 10)
			require.LessOrEqual(t, r.MatchPct, 39)
		}
	}

	recs, err := p.RecommendEvents(ctx, "user_nobody")
	require.NoError(t, err)
	require.Empty(t, recs)
}

func TestRecommendSkills(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	p := newTestEnv(t).platform

	suggestions, err := p.RecommendSkills(ctx, "user_arjun")
	require.NoError(t, err)
	// #placement 10, #coding 8, #academic 3: the two #placement+#coding skills lead.
	require.Equal(t, "sk_1", suggestions[0].SkillID)
	require.Equal(t, "sk_2", suggestions[1].SkillID)
	require.Equal(t, 18, suggestions[0].Score)
	require.Equal(t, 90, suggestions[0].Level)
	for _, sg := range suggestions {
		require.NotEqual(t, "sk_6", sg.SkillID)
	}

	suggestions, err = p.RecommendSkills(ctx, "user_admin")
	require.NoError(t, err)
	require.Empty(t, suggestions)
}

func TestPlatformStats(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	p := newTestEnv(t).platform

	stats, err := p.PlatformStats(ctx)
	require.NoError(t, err)
	require.Equal(t, &s.Stats{TotalPosts: 6, TotalStudents: 3, TotalAlumni: 0, TotalEvents: 5}, stats)

	// Pending posts do not count; new users are students.
	_, err = p.CreatePost(ctx, &s.CreatePostRequest{Title: "t", Content: "c", AuthorID: "user_rahul"})
	require.NoError(t, err)
	_, err = p.Register(ctx, &s.RegisterRequest{Email: "new@college.edu", Password: "secret1", Name: "New Student"})
	require.NoError(t, err)

	stats, err = p.PlatformStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 6, stats.TotalPosts)
	require.Equal(t, 4, stats.TotalStudents)
}

func TestEndToEnd(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	env := newTestEnvWith(t, storage.NewMemoryMedium(), false, nil)
	p := env.platform
	data, err := platform.LoadSeed()
	require.NoError(t, err)
	p.Store.Set(ctx, storage.KeyEvents, data.Events)
	p.Store.Set(ctx, storage.KeySkills, data.Skills)

	ident, err := p.Register(ctx, &s.RegisterRequest{
		Email: "rahul@college.edu", Password: "secret1", Name: "Rahul Kumar", Branch: "CSE", Batch: "2025",
	})
	require.NoError(t, err)
	uid := ident.UserID

	_, err = p.CreatePost(ctx, &s.CreatePostRequest{
		Title: "Weekend build", Content: "Shipped a smart attendance app in 24 hours.", Tags: []string{"#hackathon"}, AuthorID: uid,
	})
	require.NoError(t, err)
	require.Equal(t, 2, env.affinity(uid)["#hackathon"])

	require.NoError(t, p.RegisterEvent(ctx, "ev_1", uid))
	require.Equal(t, 5, env.affinity(uid)["#hackathon"])
	require.Equal(t, 3, env.affinity(uid)["#coding"])

	suggestions, err := p.RecommendSkills(ctx, uid)
	require.NoError(t, err)
	require.NotEmpty(t, suggestions)
	require.Equal(t, "sk_8", suggestions[0].SkillID)
	require.Equal(t, "#coding", suggestions[0].SuggestedVia)
	for _, sg := range suggestions {
		require.NotEqual(t, "sk_6", sg.SkillID)
	}
}

func TestSerializeWritesKeepsConcurrentLikes(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	env := newTestEnvWith(t, storage.NewMemoryMedium(), true, func(opts *platform.Options) {
		opts.SerializeWrites = true
	})
	p := env.platform

	const likers = 20
	var wg sync.WaitGroup
	for i := 0; i < likers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := p.ToggleLike(ctx, "post_3", fmt.Sprintf("user_%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	posts := p.ListPosts(ctx, &s.ListPostsRequest{Status: s.StatusAll})
	for _, post := range posts {
		if post.PostID == "post_3" {
			require.Equal(t, likers+1, post.LikeCount)
			return
		}
	}
	t.Fatal("post_3 missing")
}

func TestConcurrentPlatformsLoseUpdates(t *testing.T) {
	ctx, cancel := getTestContext()
	defer cancel()

	// Two platforms over one medium, like two tabs. Each reads posts before
	// either writes, so the second write drops the first one's like.
	medium := storage.NewMemoryMedium()
	first := newTestEnvWith(t, medium, true, nil).platform
	second := platform.New(storage.NewStore(medium, "mw_", nil), util.NewStubClockAt(seedNow), platform.DefaultOptions(), nil)

	stale, ok := second.Inspect(ctx, storage.KeyPosts)
	require.True(t, ok)

	_, err := first.ToggleLike(ctx, "post_3", "user_rahul")
	require.NoError(t, err)

	// Replay the second tab's write of its stale copy.
	second.Store.Set(ctx, storage.KeyPosts, stale)

	for _, post := range first.ListPosts(ctx, &s.ListPostsRequest{Status: s.StatusAll}) {
		if post.PostID == "post_3" {
			require.Equal(t, []string{"user_arjun"}, post.Likes)
		}
	}
}
