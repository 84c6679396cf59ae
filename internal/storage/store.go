package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/logging"
)

// Collection keys, before the store's prefix is applied.
const (
	KeyUsers    = "users"
	KeySession  = "session"
	KeyPosts    = "posts"
	KeyChannels = "channels"
	KeyEvents   = "events"
	KeySkills   = "skills"
	KeyFlagged  = "flagged"
	KeySeeded   = "seeded"
)

// AllKeys lists every key the platform persists.
var AllKeys = []string{
	KeyUsers, KeyPosts, KeyChannels, KeyEvents, KeySkills, KeyFlagged, KeySession, KeySeeded,
}

// Store gives get/set access to whole collections. It never locks: a
// read-modify-write by one caller can overwrite a concurrent one.
type Store struct {
	medium Medium
	prefix string
	logger *zap.Logger
}

func NewStore(medium Medium, prefix string, logger *zap.Logger) *Store {
	return &Store{
		medium: medium,
		prefix: prefix,
		logger: logging.OrNop(logger).Named("store"),
	}
}

func (s *Store) Medium() Medium {
	return s.medium
}

func (s *Store) fullKey(key string) string {
	return s.prefix + key
}

// Get decodes the value stored under key. It returns fallback when the key is
// absent, empty, null, unreadable, or fails to decode.
func Get[T any](ctx context.Context, s *Store, key string, fallback T) T {
	raw, ok := s.Raw(ctx, key)
	if !ok {
		return fallback
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		s.logger.Warn("stored payload failed to decode, using fallback",
			zap.String("key", s.fullKey(key)), zap.Error(err))
		return fallback
	}
	return value
}

// Raw returns the stored payload for key, if there is a usable one.
func (s *Store) Raw(ctx context.Context, key string) (json.RawMessage, bool) {
	raw, ok, err := s.medium.Read(ctx, s.fullKey(key))
	if err != nil {
		s.logger.Warn("reading key failed, using fallback",
			zap.String("key", s.fullKey(key)), zap.Error(err))
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	return json.RawMessage(raw), true
}

// Set serializes value and writes it under key. A failed write is logged and
// leaves the previously stored value in place.
func (s *Store) Set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("encoding value failed", zap.String("key", s.fullKey(key)), zap.Error(err))
		return
	}
	if err := s.medium.Write(ctx, s.fullKey(key), raw); err != nil {
		s.logger.Error("writing key failed, storage full?", zap.String("key", s.fullKey(key)), zap.Error(err))
	}
}

func (s *Store) Remove(ctx context.Context, key string) {
	if err := s.medium.Remove(ctx, s.fullKey(key)); err != nil {
		s.logger.Error("removing key failed", zap.String("key", s.fullKey(key)), zap.Error(err))
	}
}

// Keys lists the stored keys that carry this store's prefix, with the prefix removed.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	all, err := s.medium.Keys(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, s.prefix) {
			keys = append(keys, strings.TrimPrefix(k, s.prefix))
		}
	}
	return keys, nil
}

// Watch subscribes to pushed changes of key when the medium supports it.
// It returns a nil channel otherwise, which never fires.
func (s *Store) Watch(key string) (<-chan struct{}, func()) {
	notifier, ok := s.medium.(Notifier)
	if !ok {
		return nil, func() {}
	}
	changes, cancel, err := notifier.Subscribe(s.fullKey(key))
	if err != nil {
		s.logger.Warn("watching key failed, falling back to polling",
			zap.String("key", s.fullKey(key)), zap.Error(err))
		return nil, func() {}
	}
	return changes, cancel
}
