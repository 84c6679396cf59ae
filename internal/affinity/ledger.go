// Package affinity keeps each user's per-tag interest counters.
package affinity

import (
	"context"

	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/logging"
	s "github.com/jlym/memorywall/internal/server"
	"github.com/jlym/memorywall/internal/storage"
)

// Interest signal weights, strongest first.
const (
	WeightRegistration = 3
	WeightPost         = 2
	WeightLike         = 1
	WeightChannel      = 1
)

type Ledger struct {
	store  *storage.Store
	logger *zap.Logger
}

func NewLedger(store *storage.Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logging.OrNop(logger).Named("affinity")}
}

// Bump adds amount to the user's counter for each distinct tag. Counters never
// go down: a non-positive amount, an unknown user, or no tags is a no-op.
func (l *Ledger) Bump(ctx context.Context, userID string, tags []string, amount int) {
	if amount <= 0 || len(tags) == 0 {
		return
	}

	users := storage.Get(ctx, l.store, storage.KeyUsers, map[string]*s.User{})
	user := users[userID]
	if user == nil {
		return
	}
	if user.TagAffinity == nil {
		user.TagAffinity = map[string]int{}
	}

	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		user.TagAffinity[tag] += amount
	}

	l.store.Set(ctx, storage.KeyUsers, users)
	l.logger.Debug("bumped affinity",
		zap.String("uid", userID), zap.Strings("tags", tags), zap.Int("amount", amount))
}
