// Package localstore is the client's persistent key/value slot. Values are
// opaque bytes; every write is announced to subscribers of the writing view
// and of every other view sharing the same backing storage.
package localstore

import (
	"errors"
	"fmt"
	"regexp"
	"sync"
)

// Origin tells a subscriber whether a change was made through its own view.
type Origin int

const (
	// Local changes were made through the subscribed view.
	Local Origin = iota
	// Remote changes came from another view (another tab or process).
	Remote
)

func (o Origin) String() string {
	if o == Remote {
		return "remote"
	}
	return "local"
}

// Event describes one change to a key. Value is nil when Deleted is set.
type Event struct {
	Key     string
	Value   []byte
	Deleted bool
	Origin  Origin
}

// Store is a get/set/subscribe key/value store.
type Store interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Subscribe registers fn for every change and returns a function that
	// removes it. Callbacks run synchronously on the writer's goroutine for
	// local changes.
	Subscribe(fn func(Event)) (unsubscribe func())
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("localstore: closed")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("localstore: invalid key %q", key)
	}
	return nil
}

// hub fans events out to subscribers.
type hub struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Event)
}

func (h *hub) subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(Event))
	}
	id := h.next
	h.next++
	h.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// publish calls subscribers outside the lock so a callback may read the
// store or unsubscribe itself.
func (h *hub) publish(ev Event) {
	h.mu.Lock()
	fns := make([]func(Event), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
