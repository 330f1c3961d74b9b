package fs

import (
	"sync"
	"time"

	"github.com/PeterMedina/stakx/pkg/core"
)

// debouncer coalesces bursts of events for the same path. Editors tend to
// emit several writes per save; only the last event of a burst is delivered,
// once the path has been quiet for the configured delay. A burst starting
// with CREATE is still reported as a CREATE.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	stopped bool
	pending map[string]*pendingEvent
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event core.Event
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]*pendingEvent),
	}
}

// add schedules fn for event, replacing any event pending for the same path.
func (d *debouncer) add(event core.Event, fn func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if p, ok := d.pending[event.Path]; ok {
		if p.timer.Stop() {
			if p.event.Type == core.EventCreate && event.Type == core.EventModify {
				event.Type = core.EventCreate
			}
			p.event = event
			p.timer.Reset(d.delay)
			return
		}
		// The timer already fired and its callback is about to run.
	}

	p := &pendingEvent{event: event}
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		e := p.event
		if d.pending[e.Path] == p {
			delete(d.pending, e.Path)
		}
		d.mu.Unlock()
		fn(e)
	})
	d.pending[event.Path] = p
}

// stopAndWait drops pending events and waits up to timeout for callbacks
// already running.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for path, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, path)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
