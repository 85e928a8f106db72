package localstore

import "sync"

// Shared is in-memory storage that several views ("tabs") can open at once.
type Shared struct {
	mu   sync.RWMutex
	data map[string][]byte
	tabs map[*Tab]struct{}
}

func NewShared() *Shared {
	return &Shared{
		data: make(map[string][]byte),
		tabs: make(map[*Tab]struct{}),
	}
}

// NewMemory returns a single view over fresh in-memory storage.
func NewMemory() *Tab {
	return NewShared().Tab()
}

// Tab opens a new view over the shared storage.
func (s *Shared) Tab() *Tab {
	t := &Tab{shared: s}
	s.mu.Lock()
	s.tabs[t] = struct{}{}
	s.mu.Unlock()
	return t
}

// Tab is one view over Shared storage. It implements Store.
type Tab struct {
	shared *Shared
	hub    hub

	closeOnce sync.Once
	closed    bool
}

var _ Store = (*Tab)(nil)

func (t *Tab) Get(key string) ([]byte, bool, error) {
	if err := validKey(key); err != nil {
		return nil, false, err
	}
	t.shared.mu.RLock()
	defer t.shared.mu.RUnlock()
	if t.closed {
		return nil, false, ErrClosed
	}
	v, ok := t.shared.data[key]
	return clone(v), ok, nil
}

func (t *Tab) Set(key string, value []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	return t.write(Event{Key: key, Value: clone(value)})
}

func (t *Tab) Delete(key string) error {
	if err := validKey(key); err != nil {
		return err
	}
	return t.write(Event{Key: key, Deleted: true})
}

func (t *Tab) Subscribe(fn func(Event)) func() {
	return t.hub.subscribe(fn)
}

// Close detaches the view. Other views keep working.
func (t *Tab) Close() error {
	t.closeOnce.Do(func() {
		t.shared.mu.Lock()
		t.closed = true
		delete(t.shared.tabs, t)
		t.shared.mu.Unlock()
	})
	return nil
}

func (t *Tab) write(ev Event) error {
	s := t.shared
	s.mu.Lock()
	if t.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if ev.Deleted {
		if _, ok := s.data[ev.Key]; !ok {
			s.mu.Unlock()
			return nil
		}
		delete(s.data, ev.Key)
	} else {
		s.data[ev.Key] = ev.Value
	}
	others := make([]*Tab, 0, len(s.tabs))
	for other := range s.tabs {
		if other != t {
			others = append(others, other)
		}
	}
	s.mu.Unlock()

	local := ev
	local.Origin = Local
	local.Value = clone(ev.Value)
	t.hub.publish(local)
	for _, other := range others {
		remote := ev
		remote.Origin = Remote
		remote.Value = clone(ev.Value)
		other.hub.publish(remote)
	}
	return nil
}
