// Package moderation holds the keyword screen and the post status state machine.
//
// Posts start as pending_review, or flagged when the screen matches. A user
// report moves an approved post to under_review. An admin can set approved or
// rejected from any state, including undoing a rejection; there is no guard on
// which transitions are legal.
package moderation

import (
	"strings"

	s "github.com/jlym/memorywall/internal/server"
)

// ReasonKeywordMatch is the reason recorded on flags raised by the screen.
const ReasonKeywordMatch = "keyword_match"

// DefaultTerms is the denylist used for posts and messages.
var DefaultTerms = []string{"spam", "abuse", "hate"}

// Screen matches text against a denylist by case-insensitive substring.
type Screen struct {
	terms []string
}

func NewScreen(terms ...string) *Screen {
	lowered := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != "" {
			lowered = append(lowered, strings.ToLower(t))
		}
	}
	return &Screen{terms: lowered}
}

// Match returns the first denylisted term found in text.
func (sc *Screen) Match(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, term := range sc.terms {
		if strings.Contains(lower, term) {
			return term, true
		}
	}
	return "", false
}

// MatchPost screens a post's title and body together.
func (sc *Screen) MatchPost(title, content string) (string, bool) {
	return sc.Match(title + " " + content)
}

func InitialStatus(screenHit bool) s.PostStatus {
	if screenHit {
		return s.StatusFlagged
	}
	return s.StatusPendingReview
}

// AfterReport is the status of a post after a user flags it.
func AfterReport(current s.PostStatus) s.PostStatus {
	if current == s.StatusApproved {
		return s.StatusUnderReview
	}
	return current
}

// AdminTarget reports whether an admin may set status. Only the two decision
// states are accepted; the current state is never consulted.
func AdminTarget(status s.PostStatus) bool {
	return status == s.StatusApproved || status == s.StatusRejected
}

// Queued reports whether a post in this status waits for an admin decision.
func Queued(status s.PostStatus) bool {
	switch status {
	case s.StatusPendingReview, s.StatusFlagged, s.StatusUnderReview:
		return true
	}
	return false
}
