package platform

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/affinity"
	"github.com/jlym/memorywall/internal/identity"
	s "github.com/jlym/memorywall/internal/server"
	"github.com/jlym/memorywall/internal/storage"
	"github.com/jlym/memorywall/internal/util"
	"github.com/jlym/memorywall/internal/watch"
)

// ChannelTags maps a channel to the tags its senders build affinity for.
// Channels missing from the map, or mapped to nothing, bump no tags.
var ChannelTags = map[string][]string{
	"general":        {},
	"placements":     {"#placement"},
	"technical":      {"#coding"},
	"events":         {},
	"fests":          {"#cultural"},
	"alumni-connect": {"#alumni"},
	"mentorship":     {"#placement"},
}

func (p *Platform) channels(ctx context.Context) map[string][]*s.Message {
	return storage.Get(ctx, p.Store, storage.KeyChannels, map[string][]*s.Message{})
}

func (p *Platform) messageView(m *s.Message) *s.MessageView {
	return &s.MessageView{
		Message:       *m,
		TimeFormatted: util.ClockTime(m.CreatedAt, p.opts.Location),
	}
}

// ListMessages returns the channel's messages oldest first. Unknown channels
// have no messages.
func (p *Platform) ListMessages(ctx context.Context, channelID string) []*s.MessageView {
	messages := p.channels(ctx)[channelID]
	views := make([]*s.MessageView, 0, len(messages))
	for _, m := range messages {
		if m != nil {
			views = append(views, p.messageView(m))
		}
	}
	return views
}

// SendMessage appends a message to the channel, creating the channel if it
// does not exist yet. Unlike posts, a message that hits the keyword screen is
// refused outright and nothing is written.
func (p *Platform) SendMessage(ctx context.Context, channelID, text, userID string) (*s.MessageView, error) {
	defer p.lockWrites()()

	user := p.users(ctx)[userID]
	if user == nil {
		return nil, s.AuthError("not signed in")
	}
	if term, hit := p.Screen.Match(text); hit {
		p.Logger.Info("message rejected by keyword screen",
			zap.String("channel", channelID), zap.String("uid", userID), zap.String("term", term))
		return nil, s.ContentRejectedError("message flagged for review")
	}

	msg := &s.Message{
		MessageID:      identity.NewID(),
		ChannelID:      channelID,
		Text:           strings.TrimSpace(text),
		AuthorID:       user.UserID,
		AuthorName:     user.Name,
		AuthorInitials: user.Initials,
		Role:           user.Role,
		GradIndex:      user.GradIndex,
		CreatedAt:      p.Clock.NowUtc(),
	}

	channels := p.channels(ctx)
	channels[channelID] = append(channels[channelID], msg)
	p.Store.Set(ctx, storage.KeyChannels, channels)

	if tags := ChannelTags[channelID]; len(tags) > 0 {
		p.Ledger.Bump(ctx, userID, tags, affinity.WeightChannel)
	}

	return p.messageView(msg), nil
}

// SubscribeChannel calls callback with the channel's full message list
// whenever the number of messages differs from the last count seen, starting
// from zero, so a non-empty channel is delivered right away. Only the count
// is compared: a change that keeps the length the same goes unnoticed.
func (p *Platform) SubscribeChannel(channelID string, callback func([]*s.MessageView)) s.CancelFunc {
	ctx := context.Background()
	wake, unwatch := p.Store.Watch(storage.KeyChannels)

	lastCount := 0
	stop := watch.Start(p.opts.ChannelPollInterval, wake, func() {
		messages := p.ListMessages(ctx, channelID)
		if len(messages) == lastCount {
			return
		}
		lastCount = len(messages)
		p.Logger.Debug("channel changed", zap.String("channel", channelID), zap.Int("count", lastCount))
		callback(messages)
	})

	return func() {
		stop()
		unwatch()
	}
}
