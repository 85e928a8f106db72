package localstore

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openFile(t *testing.T, dir string) *FileStore {
	t.Helper()
	s, err := OpenFile(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func TestFileStore_GetSetDelete(t *testing.T) {
	dir := t.TempDir()
	s := openFile(t, dir)

	require.NoError(t, s.Set("token", []byte(`"t1"`)))
	v, ok, err := s.Get("token")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `"t1"`, string(v))

	raw, err := os.ReadFile(filepath.Join(dir, "token.json"))
	require.NoError(t, err)
	require.Equal(t, `"t1"`, string(raw))

	require.NoError(t, s.Delete("token"))
	_, ok, err = s.Get("token")
	require.NoError(t, err)
	require.False(t, ok)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "no temp files may be left behind")
}

func TestFileStore_FailedSetKeepsPreviousValue(t *testing.T) {
	dir := t.TempDir()
	s := openFile(t, dir)
	require.NoError(t, s.Set("cart", []byte(`[1]`)))

	s.mu.Lock()
	s.write = func(string, []byte) error { return errors.New("disk full") }
	s.mu.Unlock()
	require.Error(t, s.Set("cart", []byte(`[2]`)))
	require.Error(t, s.Set("fresh", []byte(`[3]`)))

	s.mu.Lock()
	require.Equal(t, `[1]`, string(s.known["cart"]))
	_, had := s.known["fresh"]
	s.mu.Unlock()
	require.False(t, had)

	var events []Event
	var evMu sync.Mutex
	unsubscribe := s.Subscribe(func(ev Event) {
		evMu.Lock()
		events = append(events, ev)
		evMu.Unlock()
	})
	defer unsubscribe()

	// A late watcher event for the store's own successful write is not a
	// remote change.
	s.handle(fsnotify.Event{Name: filepath.Join(dir, "cart.json"), Op: fsnotify.Write})
	evMu.Lock()
	defer evMu.Unlock()
	require.Empty(t, events)

	v, ok, err := s.Get("cart")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `[1]`, string(v))
}

func TestFileStore_PersistsAcrossOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenFile(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.Set("cart", []byte(`[{"itemId":"a","qty":1}]`)))
	require.NoError(t, s.Close())

	again := openFile(t, dir)
	v, ok, err := again.Get("cart")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `[{"itemId":"a","qty":1}]`, string(v))
}

func TestFileStore_CrossProcessNotification(t *testing.T) {
	dir := t.TempDir()
	writer := openFile(t, dir)
	reader := openFile(t, dir)

	local := make(chan Event, 8)
	remote := make(chan Event, 8)
	writer.Subscribe(func(ev Event) { local <- ev })
	reader.Subscribe(func(ev Event) { remote <- ev })

	require.NoError(t, writer.Set("cart", []byte(`[1]`)))

	ev := waitEvent(t, local)
	require.Equal(t, Local, ev.Origin)
	require.Equal(t, "cart", ev.Key)

	ev = waitEvent(t, remote)
	require.Equal(t, Remote, ev.Origin)
	require.Equal(t, `[1]`, string(ev.Value))

	require.NoError(t, writer.Delete("cart"))
	require.True(t, waitEvent(t, local).Deleted)
	ev = waitEvent(t, remote)
	require.True(t, ev.Deleted)
	require.Equal(t, Remote, ev.Origin)

	// The writer's own changes are not echoed back as remote events.
	select {
	case ev := <-local:
		t.Fatalf("unexpected echo %+v", ev)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFileStore_ClosedRejectsWrites(t *testing.T) {
	s, err := OpenFile(t.TempDir(), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.ErrorIs(t, s.Set("cart", nil), ErrClosed)
	_, _, err = s.Get("cart")
	require.ErrorIs(t, err, ErrClosed)
}
