package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jlym/memorywall/internal/logging"
)

const fileExt = ".json"

// FileMedium stores each key as its own JSON file in a directory. Several
// processes may share the directory; writes replace files atomically.
type FileMedium struct {
	dir    string
	logger *zap.Logger
}

func NewFileMedium(dir string, logger *zap.Logger) (*FileMedium, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating storage dir failed, dir=%q", dir)
	}
	return &FileMedium{
		dir:    dir,
		logger: logging.OrNop(logger).Named("file_medium"),
	}, nil
}

func (m *FileMedium) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", errors.Errorf("invalid key %q", key)
	}
	return filepath.Join(m.dir, key+fileExt), nil
}

func (m *FileMedium) Read(ctx context.Context, key string) ([]byte, bool, error) {
	path, err := m.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, errors.Wrapf(err, "reading %q failed", path)
	}
	return data, true, nil
}

func (m *FileMedium) Write(ctx context.Context, key string, value []byte) error {
	path, err := m.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(m.dir, "."+key+"-*.tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file failed")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "writing %q failed", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "closing %q failed", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "replacing %q failed", path)
	}
	return nil
}

func (m *FileMedium) Remove(ctx context.Context, key string) error {
	path, err := m.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "removing %q failed", path)
	}
	return nil
}

func (m *FileMedium) Keys(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, errors.Wrapf(err, "listing %q failed", m.dir)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, fileExt))
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *FileMedium) Close() error {
	return nil
}

// Subscribe watches the storage directory and signals whenever the file for
// key is created, replaced, or removed, including by another process.
func (m *FileMedium) Subscribe(key string) (<-chan struct{}, func(), error) {
	path, err := m.path(key)
	if err != nil {
		return nil, nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, errors.Wrap(err, "creating watcher failed")
	}
	if err := watcher.Add(m.dir); err != nil {
		watcher.Close()
		return nil, nil, errors.Wrapf(err, "watching %q failed", m.dir)
	}

	changes := make(chan struct{}, 1)
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	target := filepath.Base(path)

	go func() {
		defer close(doneCh)
		for {
			select {
			case <-stopCh:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				m.logger.Warn("watcher error", zap.String("key", key), zap.Error(err))
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(stopCh)
			if err := watcher.Close(); err != nil {
				m.logger.Warn("closing watcher failed", zap.String("key", key), zap.Error(err))
			}
			<-doneCh
		})
	}
	return changes, cancel, nil
}

var (
	_ Medium   = (*FileMedium)(nil)
	_ Notifier = (*FileMedium)(nil)
)
