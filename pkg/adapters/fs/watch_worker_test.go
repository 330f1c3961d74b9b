package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PeterMedina/stakx/pkg/core"
)

func TestWatchWorkerReportsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	root := newTestSite(t)
	l := newTestLoader(t, root)
	events := make(chan core.Event, 16)

	w := newWatchWorker(l, events)
	require.NoError(t, w.Start(ctx))
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer stopCancel()
		_ = w.Stop(stopCtx)
	}()
	waitForWatcher(t, l, true)

	t.Run("bursts are coalesced", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			writeFile(t, root, "_includes/nav.tmpl", "<nav>v2</nav>")
		}
		event := waitForEvent(t, events)
		assert.Equal(t, "_includes/nav.tmpl", event.Path)
		assert.Equal(t, core.EventModify, event.Type)
		assertNoEvent(t, events, "_includes/nav.tmpl")
	})

	t.Run("ignored folders are silent", func(t *testing.T) {
		writeFile(t, root, "_site/index.html", "out")
		writeFile(t, root, "drafts/wip.tmpl", "draft")
		assertNoEvent(t, events, "")
	})

	t.Run("new directories are watched", func(t *testing.T) {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "_pages", "nested"), 0755))
		time.Sleep(100 * time.Millisecond)
		writeFile(t, root, "_pages/nested/page.tmpl", "---\n---\nnested\n")

		event := waitForEvent(t, events)
		assert.Equal(t, "_pages/nested/page.tmpl", event.Path)
		assert.Equal(t, core.EventCreate, event.Type)
	})

	t.Run("deletes", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(root, "_posts", "second.md")))
		event := waitForEvent(t, events)
		assert.Equal(t, "_posts/second.md", event.Path)
		assert.Equal(t, core.EventDelete, event.Type)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		assert.Error(t, w.Start(ctx))
	})
}

func TestWatcherSupervisorRestarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := newTestLoader(t, t.TempDir())
	events := make(chan core.Event)
	created := make(chan *watchWorker, 2)

	spec := supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			w := newWatchWorker(l, events)
			created <- w
			return w, nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     50 * time.Millisecond,
			Multiplier:      1,
			ResetDuration:   50 * time.Millisecond,
			MaxRestarts:     2,
			MaxDuration:     200 * time.Millisecond,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	}

	sup := supervisor.New("test-watcher", supervisor.StrategyOneForOne, spec)
	require.NoError(t, sup.Start(ctx))

	first := waitForWorker(t, created, "first")
	waitForWatcher(t, l, true)
	waitForWatcherInit(t, first)
	_ = first.watcher.Close()

	second := waitForWorker(t, created, "second")
	assert.NotSame(t, first, second)
	waitForWatcher(t, l, true)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, sup.Stop(stopCtx))
}

func TestDebouncer(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	got := make(chan core.Event, 4)
	deliver := func(e core.Event) { got <- e }

	d.add(core.Event{Type: core.EventCreate, Path: "a"}, deliver)
	d.add(core.Event{Type: core.EventModify, Path: "a"}, deliver)
	d.add(core.Event{Type: core.EventModify, Path: "b"}, deliver)

	seen := map[string]core.EventType{}
	for i := 0; i < 2; i++ {
		e := waitForEvent(t, got)
		seen[e.Path] = e.Type
	}
	assert.Equal(t, map[string]core.EventType{"a": core.EventCreate, "b": core.EventModify}, seen)

	d.add(core.Event{Type: core.EventModify, Path: "c"}, deliver)
	d.stopAndWait(time.Second)
	d.add(core.Event{Type: core.EventModify, Path: "d"}, deliver)
	assertNoEvent(t, got, "")
}

func waitForEvent(t *testing.T, events <-chan core.Event) core.Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
		return core.Event{}
	}
}

// assertNoEvent fails when an event arrives within a short window. An empty
// path matches any event.
func assertNoEvent(t *testing.T, events <-chan core.Event, path string) {
	t.Helper()
	deadline := time.After(200 * time.Millisecond)
	for {
		select {
		case e := <-events:
			if path == "" || e.Path == path {
				t.Fatalf("unexpected event: %s", e)
			}
		case <-deadline:
			return
		}
	}
}

func waitForWorker(t *testing.T, ch <-chan *watchWorker, label string) *watchWorker {
	t.Helper()
	select {
	case w := <-ch:
		return w
	case <-time.After(2 * time.Second):
		t.Fatalf("timeout waiting for %s worker", label)
		return nil
	}
}

func waitForWatcherInit(t *testing.T, w *watchWorker) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if w.watcher != nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher initialization")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func waitForWatcher(t *testing.T, l *Loader, expected bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		state, ok := l.State().(LoaderState)
		if ok && state.WatcherActive == expected {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timeout waiting for watcher state = %v", expected)
		case <-time.After(10 * time.Millisecond):
		}
	}
}
