package credentials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// File is a Store backed by a JSON object on disk. Edits made by other
// processes (a login helper writing a fresh token) are picked up through
// fsnotify without restarting.
type File struct {
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	path    string

	mu     sync.RWMutex
	values map[string]string

	reloaded chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// OpenFile loads path (a missing file is an empty store) and starts watching it.
func OpenFile(path string, logger *slog.Logger) (*File, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve credentials path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create credentials dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	// Watch the directory: editors and atomic writers replace the file.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	f := &File{
		logger:   logger,
		watcher:  watcher,
		path:     path,
		values:   map[string]string{},
		reloaded: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if err := f.reload(); err != nil {
		watcher.Close()
		return nil, err
	}

	go f.watch()

	return f, nil
}

// Get implements Store.
func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.values == nil {
		return "", false, ErrClosed
	}
	v, ok := f.values[key]
	return v, ok && v != "", nil
}

// Set implements Store.
func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		return ErrClosed
	}
	next := cloneValues(f.values)
	next[key] = value
	if err := f.write(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

// Delete implements Store.
func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		return ErrClosed
	}
	if _, ok := f.values[key]; !ok {
		return nil
	}
	next := cloneValues(f.values)
	delete(next, key)
	if err := f.write(next); err != nil {
		return err
	}
	f.values = next
	return nil
}

// Close stops watching the file.
func (f *File) Close() error {
	var err error
	f.stopOnce.Do(func() {
		err = f.watcher.Close()
		<-f.done
		f.mu.Lock()
		f.values = nil
		f.mu.Unlock()
	})
	return err
}

func (f *File) watch() {
	defer close(f.done)
	for {
		select {
		case event, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := f.reload(); err != nil {
				f.logger.Warn("failed to reload credentials file", "path", f.path, "error", err)
				continue
			}
			f.logger.Debug("credentials file reloaded", "path", f.path, "op", event.Op.String())
			select {
			case f.reloaded <- struct{}{}:
			default:
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.logger.Warn("credentials watcher error", "error", err)
		}
	}
}

func (f *File) reload() error {
	data, err := os.ReadFile(f.path)
	values := map[string]string{}
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read credentials file: %w", err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &values); err != nil {
			return fmt.Errorf("parse credentials file: %w", err)
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.values == nil {
		return ErrClosed
	}
	f.values = values
	return nil
}

// write replaces the file atomically. Caller holds f.mu.
func (f *File) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}

func cloneValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
