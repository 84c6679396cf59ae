package platform

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/affinity"
	"github.com/jlym/memorywall/internal/identity"
	"github.com/jlym/memorywall/internal/moderation"
	s "github.com/jlym/memorywall/internal/server"
	"github.com/jlym/memorywall/internal/storage"
	"github.com/jlym/memorywall/internal/util"
)

const (
	excerptLen       = 160
	excerptEllipsis  = "…"
	defaultEmoji     = "📝"
	defaultPostLimit = 30
	flagTypePost     = "post"
)

func (p *Platform) posts(ctx context.Context) []*s.Post {
	return storage.Get(ctx, p.Store, storage.KeyPosts, []*s.Post{})
}

func (p *Platform) flags(ctx context.Context) []*s.FlagRecord {
	return storage.Get(ctx, p.Store, storage.KeyFlagged, []*s.FlagRecord{})
}

func findPost(posts []*s.Post, postID string) *s.Post {
	for _, post := range posts {
		if post != nil && post.PostID == postID {
			return post
		}
	}
	return nil
}

// Excerpt cuts the trimmed body to 160 characters, marking the cut with an
// ellipsis when the body was longer.
func Excerpt(content string) string {
	trimmed := strings.TrimSpace(content)
	excerpt := trimmed
	if utf8.RuneCountInString(trimmed) > excerptLen {
		excerpt = string([]rune(trimmed)[:excerptLen])
	}
	if utf8.RuneCountInString(content) > excerptLen {
		excerpt += excerptEllipsis
	}
	return excerpt
}

// ListPosts returns posts newest first, annotated with an age label and
// like/clap counts. Status defaults to approved; StatusAll disables the filter.
func (p *Platform) ListPosts(ctx context.Context, request *s.ListPostsRequest) []*s.PostView {
	if request == nil {
		request = &s.ListPostsRequest{}
	}
	status := request.Status
	if status == "" {
		status = s.StatusApproved
	}
	limit := request.Limit
	if limit <= 0 {
		limit = defaultPostLimit
	}

	var filtered []*s.Post
	for _, post := range p.posts(ctx) {
		if post == nil {
			continue
		}
		if status != s.StatusAll && post.Status != status {
			continue
		}
		if request.AuthorID != "" && post.AuthorID != request.AuthorID {
			continue
		}
		filtered = append(filtered, post)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}

	now := p.Clock.NowUtc()
	views := make([]*s.PostView, 0, len(filtered))
	for _, post := range filtered {
		views = append(views, &s.PostView{
			Post:      *post,
			TimeAgo:   util.RelativeAge(post.CreatedAt, now),
			LikeCount: len(post.Likes),
			ClapCount: len(post.Claps),
		})
	}
	return views
}

// CreatePost stores a new post at the head of the collection and returns its
// id. Posts that hit the keyword screen are stored as flagged and get an
// automatic flag record; the rest wait in pending_review. Either way the
// author's affinity for the post's tags grows.
func (p *Platform) CreatePost(ctx context.Context, request *s.CreatePostRequest) (string, error) {
	defer p.lockWrites()()

	author := p.users(ctx)[request.AuthorID]
	if author == nil {
		return "", s.AuthError("not signed in")
	}

	term, hit := p.Screen.MatchPost(request.Title, request.Content)
	emoji := request.Emoji
	if emoji == "" {
		emoji = defaultEmoji
	}
	tags := request.Tags
	if tags == nil {
		tags = []string{}
	}

	post := &s.Post{
		PostID:         identity.NewID(),
		Title:          strings.TrimSpace(request.Title),
		Content:        strings.TrimSpace(request.Content),
		Excerpt:        Excerpt(request.Content),
		Tags:           tags,
		Category:       request.Category,
		Emoji:          emoji,
		GradIndex:      author.GradIndex,
		AuthorID:       author.UserID,
		AuthorName:     author.Name,
		AuthorInitials: author.Initials,
		Status:         moderation.InitialStatus(hit),
		CreatedAt:      p.Clock.NowUtc(),
		Likes:          []string{},
		Claps:          []string{},
	}

	posts := p.posts(ctx)
	posts = append([]*s.Post{post}, posts...)
	p.Store.Set(ctx, storage.KeyPosts, posts)

	p.Ledger.Bump(ctx, author.UserID, tags, affinity.WeightPost)

	if hit {
		flags := p.flags(ctx)
		flags = append(flags, &s.FlagRecord{
			Type:      flagTypePost,
			TargetID:  post.PostID,
			Reason:    moderation.ReasonKeywordMatch,
			FlaggedBy: s.SystemReporter,
			FlaggedAt: p.Clock.NowUtc(),
		})
		p.Store.Set(ctx, storage.KeyFlagged, flags)
		p.Logger.Info("post flagged by keyword screen",
			zap.String("post", post.PostID), zap.String("term", term))
	}

	return post.PostID, nil
}

// toggle flips userID's membership in set and reports whether it is now a member.
func toggle(set []string, userID string) ([]string, bool) {
	for i, id := range set {
		if id == userID {
			return append(set[:i], set[i+1:]...), false
		}
	}
	return append(set, userID), true
}

// ToggleLike adds or removes the user's like. Liking also grows the user's
// affinity for the post's tags; unliking leaves affinity as it is.
func (p *Platform) ToggleLike(ctx context.Context, postID, userID string) (*s.LikeResponse, error) {
	defer p.lockWrites()()

	posts := p.posts(ctx)
	post := findPost(posts, postID)
	if post == nil {
		return nil, s.NotFoundError("post %s not found", postID)
	}

	var liked bool
	post.Likes, liked = toggle(post.Likes, userID)
	if liked {
		p.Ledger.Bump(ctx, userID, post.Tags, affinity.WeightLike)
	}
	p.Store.Set(ctx, storage.KeyPosts, posts)

	return &s.LikeResponse{Liked: liked, Count: len(post.Likes)}, nil
}

func (p *Platform) ToggleClap(ctx context.Context, postID, userID string) (*s.ClapResponse, error) {
	defer p.lockWrites()()

	posts := p.posts(ctx)
	post := findPost(posts, postID)
	if post == nil {
		return nil, s.NotFoundError("post %s not found", postID)
	}

	var clapped bool
	post.Claps, clapped = toggle(post.Claps, userID)
	p.Store.Set(ctx, storage.KeyPosts, posts)

	return &s.ClapResponse{Clapped: clapped, Count: len(post.Claps)}, nil
}

// FlagPost records a user's report. An approved post goes back under review;
// posts in any other state, or unknown posts, keep their status.
func (p *Platform) FlagPost(ctx context.Context, postID, userID, reason string) error {
	defer p.lockWrites()()

	flags := p.flags(ctx)
	flags = append(flags, &s.FlagRecord{
		Type:      flagTypePost,
		TargetID:  postID,
		Reason:    reason,
		FlaggedBy: userID,
		FlaggedAt: p.Clock.NowUtc(),
	})
	p.Store.Set(ctx, storage.KeyFlagged, flags)

	posts := p.posts(ctx)
	post := findPost(posts, postID)
	if post == nil {
		return nil
	}
	if next := moderation.AfterReport(post.Status); next != post.Status {
		post.Status = next
		p.Store.Set(ctx, storage.KeyPosts, posts)
	}
	return nil
}

func (p *Platform) requireAdmin(ctx context.Context, adminID string) error {
	admin := p.users(ctx)[adminID]
	if admin == nil || admin.Role != s.RoleAdmin {
		return s.AuthError("unauthorized")
	}
	return nil
}

// ModeratePost sets an approved or rejected decision on a post, whatever its
// current status.
func (p *Platform) ModeratePost(ctx context.Context, postID string, status s.PostStatus, adminID string) error {
	defer p.lockWrites()()

	if err := p.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	if !moderation.AdminTarget(status) {
		return s.ValidationError("status %q is not a moderation decision", status)
	}

	posts := p.posts(ctx)
	post := findPost(posts, postID)
	if post == nil {
		return s.NotFoundError("post %s not found", postID)
	}
	p.Logger.Info("moderated post",
		zap.String("post", postID), zap.String("from", string(post.Status)), zap.String("to", string(status)))
	post.Status = status
	p.Store.Set(ctx, storage.KeyPosts, posts)
	return nil
}

func (p *Platform) ModerationQueue(ctx context.Context, adminID string) ([]*s.Post, error) {
	if err := p.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	queue := []*s.Post{}
	for _, post := range p.posts(ctx) {
		if post != nil && moderation.Queued(post.Status) {
			queue = append(queue, post)
		}
	}
	return queue, nil
}
