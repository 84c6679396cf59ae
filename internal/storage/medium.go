// Package storage implements the record store: whole-collection JSON values
// kept under string keys in a durable key-value medium.
package storage

import (
	"context"

	"github.com/pkg/errors"
)

// ErrMediumFull is returned by a medium that has no room for a write.
var ErrMediumFull = errors.New("storage medium full")

// Medium is the durable key-value medium beneath the record store. Values are
// opaque serialized payloads; a missing key reports ok == false.
type Medium interface {
	Read(ctx context.Context, key string) (value []byte, ok bool, err error)
	Write(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Notifier is implemented by mediums that can push a signal when a key is
// written. The returned channel receives at most one pending signal at a time;
// cancel releases the subscription.
type Notifier interface {
	Subscribe(key string) (changes <-chan struct{}, cancel func(), err error)
}
