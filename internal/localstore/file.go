package localstore

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const fileExt = ".json"

// FileStore keeps one file per key in a directory. Writes are atomic
// (temp file plus rename). A watcher goroutine turns changes made by other
// processes sharing the directory into Remote events; the store's own writes
// are recognised and not echoed back.
type FileStore struct {
	dir     string
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	hub     hub

	mu     sync.Mutex
	known  map[string][]byte
	closed bool
	// write commits a value to disk; replaced in tests to simulate failures.
	write func(key string, value []byte) error

	stopCh chan struct{}
	doneCh chan struct{}
}

var _ Store = (*FileStore)(nil)

// OpenFile opens (creating if needed) a file store rooted at dir and starts
// watching it. Close must be called to stop the watcher.
func OpenFile(dir string, logger *zap.Logger) (*FileStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("localstore: create dir: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("localstore: new watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("localstore: watch %s: %w", dir, err)
	}

	s := &FileStore{
		dir:     dir,
		logger:  logger,
		watcher: w,
		known:   make(map[string][]byte),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	s.write = s.writeFile
	if err := s.loadKnown(); err != nil {
		_ = w.Close()
		return nil, err
	}
	go s.run()
	return s, nil
}

// Dir returns the directory backing the store.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) Get(key string) ([]byte, bool, error) {
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	if s.isClosed() {
		return nil, false, ErrClosed
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("localstore: read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *FileStore) Set(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	value = clone(value)
	if value == nil {
		value = []byte{}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	prev, had := s.known[key]
	s.known[key] = value
	err := s.write(key, value)
	if err != nil {
		if had {
			s.known[key] = prev
		} else {
			delete(s.known, key)
		}
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.hub.publish(Event{Key: key, Value: clone(value), Origin: Local})
	return nil
}

func (s *FileStore) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	delete(s.known, key)
	err := os.Remove(s.path(key))
	s.mu.Unlock()

	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("localstore: delete %s: %w", key, err)
	}
	s.hub.publish(Event{Key: key, Deleted: true, Origin: Local})
	return nil
}

func (s *FileStore) Subscribe(fn func(Event)) func() {
	return s.hub.subscribe(fn)
}

// Close stops the watcher and waits for its goroutine to exit.
func (s *FileStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh
	return s.watcher.Close()
}

func (s *FileStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+fileExt)
}

// writeFile must be called with s.mu held.
func (s *FileStore) writeFile(key string, value []byte) error {
	tmp, err := os.CreateTemp(s.dir, "."+key+".*.tmp")
	if err != nil {
		return fmt.Errorf("localstore: temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("localstore: write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("localstore: close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("localstore: commit %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) loadKnown() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("localstore: list %s: %w", s.dir, err)
	}
	for _, e := range entries {
		key, ok := keyFromName(e.Name())
		if !ok || e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, e.Name()))
		if err != nil {
			continue
		}
		s.known[key] = data
	}
	return nil
}

func keyFromName(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	key := strings.TrimSuffix(name, fileExt)
	return key, validKey(key) == nil
}

func (s *FileStore) run() {
	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handle(ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("localstore watcher error", zap.String("dir", s.dir), zap.Error(err))
		}
	}
}

func (s *FileStore) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	key, ok := keyFromName(filepath.Base(ev.Name))
	if !ok {
		return
	}

	data, err := os.ReadFile(s.path(key))
	missing := errors.Is(err, fs.ErrNotExist)
	if err != nil && !missing {
		s.logger.Debug("localstore read after change failed", zap.String("key", key), zap.Error(err))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prev, had := s.known[key]
	var out Event
	switch {
	case missing && !had:
		s.mu.Unlock()
		return
	case missing:
		delete(s.known, key)
		out = Event{Key: key, Deleted: true, Origin: Remote}
	case had && bytes.Equal(prev, data):
		s.mu.Unlock()
		return
	default:
		s.known[key] = data
		out = Event{Key: key, Value: clone(data), Origin: Remote}
	}
	s.mu.Unlock()

	s.hub.publish(out)
}
