package platform

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	s "github.com/jlym/memorywall/internal/server"
)

// PlatformStats counts approved posts, students, alumni and events.
func (p *Platform) PlatformStats(ctx context.Context) (*s.Stats, error) {
	stats := &s.Stats{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for _, post := range p.posts(gctx) {
			if post != nil && post.Status == s.StatusApproved {
				stats.TotalPosts++
			}
		}
		return gctx.Err()
	})
	g.Go(func() error {
		for _, user := range p.users(gctx) {
			if user == nil {
				continue
			}
			switch user.Role {
			case s.RoleStudent:
				stats.TotalStudents++
			case s.RoleAlumni:
				stats.TotalAlumni++
			}
		}
		return gctx.Err()
	})
	g.Go(func() error {
		stats.TotalEvents = len(p.events(gctx))
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "counting stats failed")
	}
	return stats, nil
}
