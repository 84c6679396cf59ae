package platform

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/jlym/memorywall/internal/storage"
)

// Reset removes every persisted collection, the session and the seeded flag,
// then seeds again.
func (p *Platform) Reset(ctx context.Context) error {
	func() {
		defer p.lockWrites()()
		for _, key := range storage.AllKeys {
			p.Store.Remove(ctx, key)
		}
	}()

	if _, err := p.Seed(ctx); err != nil {
		return errors.Wrap(err, "reseeding failed")
	}
	p.Logger.Info("reset to seed data")
	return nil
}

// Inspect returns the raw stored value of a collection.
func (p *Platform) Inspect(ctx context.Context, key string) (json.RawMessage, bool) {
	return p.Store.Raw(ctx, key)
}
