package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/PeterMedina/stakx/pkg/core"
)

type changeSource struct {
	events  <-chan core.Event
	out     chan lifecycle.Event
	onPanic func(error)
}

// NewSource creates a lifecycle.Source that emits site change events.
// Events keep their concrete core.Event type. onPanic, when set, receives a
// panic recovered from the pump.
func NewSource(events <-chan core.Event, onPanic func(error)) lifecycle.Source {
	return &changeSource{
		events:  events,
		out:     make(chan lifecycle.Event),
		onPanic: onPanic,
	}
}

func (s *changeSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start pumps events until ctx is done or the input channel is closed, then
// closes the output channel.
func (s *changeSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		if s.onPanic != nil {
			s.onPanic(err)
		}
	}))
	return nil
}
