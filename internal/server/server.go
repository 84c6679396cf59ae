package server

import "context"

// CancelFunc stops a subscription. It is safe to call more than once.
type CancelFunc func()

type Server interface {
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	Register(ctx context.Context, request *RegisterRequest) (*Identity, error)
	SignOut(ctx context.Context) error
	CurrentUser(ctx context.Context) *User
	OnSessionChange(callback func(*User)) CancelFunc

	GetUser(ctx context.Context, userID string) *User
	UpdateProfile(ctx context.Context, userID string, update *ProfileUpdate) (*User, error)
	BumpTagAffinity(ctx context.Context, userID string, tags []string, amount int)

	ListPosts(ctx context.Context, request *ListPostsRequest) []*PostView
	CreatePost(ctx context.Context, request *CreatePostRequest) (string, error)
	ToggleLike(ctx context.Context, postID, userID string) (*LikeResponse, error)
	ToggleClap(ctx context.Context, postID, userID string) (*ClapResponse, error)
	FlagPost(ctx context.Context, postID, userID, reason string) error
	ModeratePost(ctx context.Context, postID string, status PostStatus, adminID string) error
	ModerationQueue(ctx context.Context, adminID string) ([]*Post, error)

	ListMessages(ctx context.Context, channelID string) []*MessageView
	SendMessage(ctx context.Context, channelID, text, userID string) (*MessageView, error)
	SubscribeChannel(channelID string, callback func([]*MessageView)) CancelFunc

	ListEvents(ctx context.Context) []*Event
	RegisterEvent(ctx context.Context, eventID, userID string) error

	RecommendEvents(ctx context.Context, userID string) ([]*EventRecommendation, error)
	RecommendSkills(ctx context.Context, userID string) ([]*SkillSuggestion, error)

	PlatformStats(ctx context.Context) (*Stats, error)
}
