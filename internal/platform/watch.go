package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"

	lcadapter "github.com/PeterMedina/stakx/pkg/adapters/lifecycle"
	"github.com/PeterMedina/stakx/pkg/core"
)

// EventBuffer is the capacity of the change notification queue.
const EventBuffer = 64

// Watch builds the site, then recompiles what each change under the site root
// affects until ctx is done. Changes are handled one at a time; a failing
// recompilation is logged and the loop carries on.
func (s *Site) Watch(ctx context.Context) error {
	if err := s.Build(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.logger.Error("Initial build failed", "error", err)
	}

	events := make(chan core.Event, EventBuffer)
	sup := supervisor.New("stakx-watch", supervisor.StrategyOneForOne, supervisor.Spec{
		Name: "fs-watcher",
		Type: string(worker.TypeGoroutine),
		Factory: func() (worker.Worker, error) {
			return s.loader.NewWatcher(events), nil
		},
		Backoff: supervisor.Backoff{
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     5 * time.Second,
			Multiplier:      2,
			ResetDuration:   30 * time.Second,
			MaxRestarts:     5,
			MaxDuration:     time.Minute,
		},
		RestartPolicy: supervisor.RestartOnFailure,
	})
	if err := sup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sup.Stop(stopCtx); err != nil {
			s.logger.Warn("Failed to stop watcher", "error", err)
		}
	}()

	changes := lcadapter.NewSource(events, func(err error) {
		s.logger.Error("Change pump panic", "error", err)
	})
	if err := changes.Start(ctx); err != nil {
		return fmt.Errorf("failed to start change pump: %w", err)
	}

	s.logger.Info("Watching for changes", "root", s.Root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-changes.Events():
			if !ok {
				return nil
			}
			event, ok := e.(core.Event)
			if !ok {
				continue
			}
			if err := s.HandleEvent(event); err != nil {
				s.logger.Error("Recompilation failed", "path", event.Path, "error", err)
			}
		}
	}
}
