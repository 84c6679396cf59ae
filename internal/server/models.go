package server

import (
	"time"
)

type Role string

const (
	RoleStudent Role = "student"
	RoleAlumni  Role = "alumni"
	RoleAdmin   Role = "admin"
)

type PostStatus string

const (
	StatusPendingReview PostStatus = "pending_review"
	StatusFlagged       PostStatus = "flagged"
	StatusApproved      PostStatus = "approved"
	StatusRejected      PostStatus = "rejected"
	StatusUnderReview   PostStatus = "under_review"

	// StatusAll disables the status filter of ListPosts.
	StatusAll PostStatus = "all"
)

// SystemReporter is the reporter id recorded on flags raised by the keyword screen.
const SystemReporter = "system"

type User struct {
	UserID      string         `json:"uid"`
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Initials    string         `json:"initials"`
	Role        Role           `json:"role"`
	Branch      string         `json:"branch"`
	Batch       string         `json:"batch"`
	Bio         string         `json:"bio"`
	Location    string         `json:"location"`
	JoinedAt    time.Time      `json:"joinedAt"`
	GradIndex   int            `json:"gradIndex"`
	TagAffinity map[string]int `json:"tagAffinity"`
}

// Identity is the minimal record returned by sign-in and registration.
type Identity struct {
	UserID      string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type Post struct {
	PostID         string     `json:"id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	Excerpt        string     `json:"excerpt"`
	Tags           []string   `json:"tags"`
	Category       string     `json:"category"`
	Emoji          string     `json:"emoji"`
	GradIndex      int        `json:"gradIndex"`
	AuthorID       string     `json:"authorId"`
	AuthorName     string     `json:"authorName"`
	AuthorInitials string     `json:"authorInitials"`
	Status         PostStatus `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	Likes          []string   `json:"likes"`
	Claps          []string   `json:"claps"`
}

// PostView is a Post annotated for display by ListPosts.
type PostView struct {
	Post
	TimeAgo   string `json:"timeAgo"`
	LikeCount int    `json:"likeCount"`
	ClapCount int    `json:"clapCount"`
}

type Message struct {
	MessageID      string    `json:"id"`
	ChannelID      string    `json:"channelId,omitempty"`
	Text           string    `json:"text"`
	AuthorID       string    `json:"authorId"`
	AuthorName     string    `json:"authorName"`
	AuthorInitials string    `json:"authorInitials"`
	Role           Role      `json:"role"`
	GradIndex      int       `json:"gradIndex"`
	CreatedAt      time.Time `json:"createdAt"`
}

type MessageView struct {
	Message
	TimeFormatted string `json:"timeFormatted"`
}

type Event struct {
	EventID    string   `json:"id"`
	Title      string   `json:"title"`
	Day        string   `json:"day"`
	Month      string   `json:"mon"`
	Subtitle   string   `json:"sub"`
	Tags       []string `json:"tags"`
	Registered []string `json:"registered"`
}

type Skill struct {
	SkillID  string   `json:"id"`
	Name     string   `json:"name"`
	Tags     []string `json:"tags"`
	Gradient string   `json:"grad"`
	Color    string   `json:"color"`
}

type FlagRecord struct {
	Type      string    `json:"type"`
	TargetID  string    `json:"id"`
	Reason    string    `json:"reason"`
	FlaggedBy string    `json:"flaggedBy"`
	FlaggedAt time.Time `json:"flaggedAt"`
}

type EventRecommendation struct {
	Event
	Score    int `json:"score"`
	MatchPct int `json:"matchPct"`
}

type SkillSuggestion struct {
	Skill
	Score        int    `json:"score"`
	Level        int    `json:"level"`
	SuggestedVia string `json:"suggestedVia"`
}

type Stats struct {
	TotalPosts    int `json:"totalPosts"`
	TotalStudents int `json:"totalStudents"`
	TotalAlumni   int `json:"totalAlumni"`
	TotalEvents   int `json:"totalEvents"`
}

type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Branch   string
	Batch    string
}

type ProfileUpdate struct {
	Name     *string
	Bio      *string
	Location *string
	Branch   *string
	Batch    *string
}

type ListPostsRequest struct {
	// Status defaults to StatusApproved when empty.
	Status PostStatus
	// Limit defaults to 30 when zero.
	Limit    int
	AuthorID string
}

type CreatePostRequest struct {
	Title    string
	Content  string
	Tags     []string
	Category string
	Emoji    string
	AuthorID string
}

type LikeResponse struct {
	Liked bool
	Count int
}

type ClapResponse struct {
	Clapped bool
	Count   int
}
