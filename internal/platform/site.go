package platform

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/PeterMedina/stakx/internal/config"
	"github.com/PeterMedina/stakx/pkg/adapters/fs"
	"github.com/PeterMedina/stakx/pkg/compiler"
	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/document"
	"github.com/PeterMedina/stakx/pkg/templating/gotmpl"
	"github.com/PeterMedina/stakx/pkg/tracker"
)

// Site compiles a site tree and keeps it up to date. Builds and change
// handling are serialized.
type Site struct {
	Root string

	config *config.Config
	opts   *options
	logger *slog.Logger

	loader           *fs.Loader
	output           *fs.OutputFolder
	writer           compiler.Writer
	engine           *gotmpl.Engine
	redirectTemplate string
	globals          *globals

	mu        sync.Mutex
	built     bool
	inventory *fs.Inventory
	tracker   *tracker.Tracker
	compiler  *compiler.Compiler
}

// Config returns the site configuration.
func (s *Site) Config() *config.Config { return s.config }

// newPipeline replaces the tracker and the compiler with empty ones.
func (s *Site) newPipeline() {
	s.tracker = tracker.New(s.config.TemplateExtension)

	hooks := compiler.Hooks{
		PreRender:  append([]compiler.PreRenderFunc{s.globals.PreRender}, s.opts.hooks.PreRender...),
		PostRender: s.opts.hooks.PostRender,
	}
	s.compiler = compiler.New(s.engine, s.writer, compiler.Options{
		Drafts:            s.opts.drafts,
		TemplateExtension: s.config.TemplateExtension,
		RedirectTemplate:  s.redirectTemplate,
		Dependencies:      s.tracker,
		Hooks:             hooks,
		Logger:            s.logger,
		Recorder:          s.opts.recorder,
	})
}

// Build reads the whole site and compiles every PageView. Documents that fail
// to load or compile are reported in the returned error; the rest of the site
// is still written. Output files left over from earlier builds are removed
// only when the build succeeds.
func (s *Site) Build(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	inv, loadErr := s.loader.Load(ctx)
	if inv == nil {
		return fmt.Errorf("failed to load site: %w", loadErr)
	}
	s.register(inv)

	if s.output != nil {
		s.output.Reset()
	}
	compileErr := s.compiler.CompileAll()
	err := errors.Join(loadErr, compileErr)

	if s.output != nil {
		if err == nil {
			if stale, sweepErr := s.output.Sweep(); sweepErr != nil {
				s.logger.Warn("Failed to remove stale output", "error", sweepErr)
			} else if len(stale) > 0 {
				s.logger.Info("Removed stale output", "count", len(stale))
			}
		}
		if saveErr := s.output.Save(); saveErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to save output manifest: %w", saveErr))
		}
	}

	s.built = true
	s.logger.Info("Site built",
		"pageviews", len(inv.PageViews),
		"duration", time.Since(start),
		"failed", err != nil)
	return err
}

func (s *Site) register(inv *fs.Inventory) {
	s.newPipeline()
	s.inventory = inv
	s.globals.reset(inv)

	for _, pv := range inv.PageViews {
		s.tracker.RegisterFile(pv)
		s.compiler.AddPageView(pv)
	}
	for _, items := range inv.Collections {
		for _, item := range items {
			s.tracker.RegisterFile(item)
		}
	}
	for _, items := range inv.Datasets {
		for _, item := range items {
			s.tracker.RegisterFile(item)
		}
	}
	for _, item := range inv.Data {
		s.tracker.RegisterFile(item)
	}
	for _, partial := range inv.Partials {
		s.tracker.RegisterFile(partial)
	}
}

// HandleEvent routes one change notification and performs the recompilation
// it calls for. Panics are reported as errors.
func (s *Site) HandleEvent(event core.Event) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic while handling %s: %v", event.Path, recovered)
			s.logger.Debug("recompilation panic", "stack", string(debug.Stack()))
		}
	}()

	if !s.built {
		return errors.New("site has not been built")
	}

	route := s.tracker.Route(event.Path)
	s.opts.recorder.IncWatchEvent(route.Action.String())
	s.logger.Info("change detected", "path", route.Path, "event", string(event.Type), "action", route.Action.String())

	err = s.dispatch(event, route)

	if s.output != nil {
		if saveErr := s.output.Save(); saveErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to save output manifest: %w", saveErr))
		}
	}
	return err
}

func (s *Site) dispatch(event core.Event, route tracker.Route) error {
	if event.Type == core.EventDelete {
		if route.Action != tracker.ActionNone {
			s.logger.Info("Source removed, its output is kept until the next build", "path", route.Path)
		}
		return nil
	}

	s.globals.invalidate()
	switch route.Action {
	case tracker.ActionRecompilePageView:
		return s.compiler.RecompilePageView(route.Path)
	case tracker.ActionRecompileItem:
		return s.recompileItem(route.Path)
	case tracker.ActionRecompileDependents:
		return s.recompileDependents(route)
	}

	if event.Type == core.EventCreate {
		return s.addFile(route.Path)
	}
	return nil
}

func (s *Site) recompileItem(path string) error {
	owned, err := s.compiler.RecompileCollectableItem(path)
	if owned {
		return err
	}

	if item, ok := s.inventory.Data[path]; ok {
		if err := item.Refresh(); err != nil {
			return err
		}
		s.logger.Info("Data changed, recompiling every PageView", "path", path)
		return s.compiler.CompileAll()
	}

	for _, items := range s.inventory.Collections {
		for _, item := range items {
			if item.RelativePath() == path {
				return item.Refresh()
			}
		}
	}
	for _, items := range s.inventory.Datasets {
		for _, item := range items {
			if item.RelativePath() == path {
				return item.Refresh()
			}
		}
	}
	return nil
}

// recompileDependents recompiles the direct dependents of a partial. A
// dependent that is itself a partial is skipped: changes do not cascade.
func (s *Site) recompileDependents(route tracker.Route) error {
	var errs []error
	for _, target := range route.Targets {
		if _, ok := s.compiler.PageView(target); !ok {
			s.logger.Debug("Skipping dependent that is not a PageView", "path", target, "partial", route.Path)
			continue
		}
		if err := s.compiler.RecompilePageView(target); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// addFile reads a file created after the build and compiles what it adds.
func (s *Site) addFile(path string) error {
	entry, err := s.loader.ReadFile(path)
	if err != nil {
		return err
	}

	switch f := entry.File.(type) {
	case document.PageView:
		if dynamic, ok := f.(*document.DynamicPageView); ok {
			for _, item := range s.inventory.Items(dynamic.Source(), dynamic.IsDataset()) {
				if err := dynamic.AddItem(item); err != nil {
					return err
				}
			}
		}
		s.inventory.PageViews = append(s.inventory.PageViews, f)
		s.tracker.RegisterFile(f)
		s.compiler.AddPageView(f)
		return s.compiler.CompilePageView(f)

	case *document.ContentItem:
		s.inventory.Collections[entry.Group] = append(s.inventory.Collections[entry.Group], f)
		s.tracker.RegisterFile(f)
		return s.attachItem(f, entry.Group, false)

	case *document.DataItem:
		s.tracker.RegisterFile(f)
		if entry.Role == fs.RoleData {
			s.inventory.Data[f.RelativePath()] = f
			return s.compiler.CompileAll()
		}
		s.inventory.Datasets[entry.Group] = append(s.inventory.Datasets[entry.Group], f)
		return s.attachItem(f, entry.Group, true)

	case *document.File:
		s.tracker.RegisterFile(f)
	}
	return nil
}

// attachItem hands a new item to the Dynamic PageViews iterating over group
// and compiles it with the first one.
func (s *Site) attachItem(item document.CollectableItem, group string, dataset bool) error {
	attached := false
	for _, pv := range s.inventory.PageViews {
		dynamic, ok := pv.(*document.DynamicPageView)
		if !ok || dynamic.Source() != group || dynamic.IsDataset() != dataset {
			continue
		}
		if err := dynamic.AddItem(item); err != nil {
			return err
		}
		attached = true
	}
	if !attached {
		return nil
	}
	_, err := s.compiler.RecompileCollectableItem(item.RelativePath())
	return err
}
