package platform

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/jlym/memorywall/internal/recommend"
	s "github.com/jlym/memorywall/internal/server"
)

// RecommendEvents ranks the events the user has not registered for by tag
// affinity. An unknown user gets an empty list.
func (p *Platform) RecommendEvents(ctx context.Context, userID string) ([]*s.EventRecommendation, error) {
	var user *s.User
	var events []*s.Event

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user = p.users(gctx)[userID]
		return gctx.Err()
	})
	g.Go(func() error {
		events = p.events(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "loading events failed")
	}

	return recommend.Events(user, events, p.Intn), nil
}

// RecommendSkills suggests catalog skills that overlap the user's interests,
// each with an estimated proficiency level.
func (p *Platform) RecommendSkills(ctx context.Context, userID string) ([]*s.SkillSuggestion, error) {
	var user *s.User
	var skills []*s.Skill

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user = p.users(gctx)[userID]
		return gctx.Err()
	})
	g.Go(func() error {
		skills = p.skills(gctx)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "loading skills failed")
	}

	return recommend.Skills(user, skills), nil
}
