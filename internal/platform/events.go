package platform

import (
	"context"

	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/affinity"
	s "github.com/jlym/memorywall/internal/server"
	"github.com/jlym/memorywall/internal/storage"
)

func (p *Platform) events(ctx context.Context) []*s.Event {
	return storage.Get(ctx, p.Store, storage.KeyEvents, []*s.Event{})
}

func (p *Platform) skills(ctx context.Context) []*s.Skill {
	return storage.Get(ctx, p.Store, storage.KeySkills, []*s.Skill{})
}

func (p *Platform) ListEvents(ctx context.Context) []*s.Event {
	return p.events(ctx)
}

// RegisterEvent adds the user to the event's registrations. There is no way
// to unregister; registering is the strongest interest signal the ledger gets.
func (p *Platform) RegisterEvent(ctx context.Context, eventID, userID string) error {
	defer p.lockWrites()()

	events := p.events(ctx)
	var event *s.Event
	for _, e := range events {
		if e != nil && e.EventID == eventID {
			event = e
			break
		}
	}
	if event == nil {
		return s.NotFoundError("event %s not found", eventID)
	}
	for _, id := range event.Registered {
		if id == userID {
			return s.ConflictError("already registered for %s", eventID)
		}
	}

	event.Registered = append(event.Registered, userID)
	p.Store.Set(ctx, storage.KeyEvents, events)
	p.Ledger.Bump(ctx, userID, event.Tags, affinity.WeightRegistration)

	p.Logger.Info("registered for event", zap.String("event", eventID), zap.String("uid", userID))
	return nil
}
