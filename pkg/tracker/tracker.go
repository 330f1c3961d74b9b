// Package tracker records which source files exist, what they are and how
// templates depend on each other, and routes a changed path to the minimal set
// of PageViews that must be compiled again.
package tracker

import (
	"strings"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/document"
)

// Action tells the caller what to do about a changed path.
type Action int

const (
	// ActionNone means the path is not tracked.
	ActionNone Action = iota
	// ActionRecompilePageView recompiles the PageView at the changed path.
	ActionRecompilePageView
	// ActionRecompileItem recompiles the Dynamic PageView entry owning the item.
	ActionRecompileItem
	// ActionRecompileDependents recompiles every direct dependent of a partial.
	ActionRecompileDependents
)

func (a Action) String() string {
	switch a {
	case ActionRecompilePageView:
		return "recompile-pageview"
	case ActionRecompileItem:
		return "recompile-item"
	case ActionRecompileDependents:
		return "recompile-dependents"
	}
	return "none"
}

// Route is the answer to a change notification.
type Route struct {
	Path    string
	Kind    core.FileKind
	Action  Action
	Targets []string
}

// Tracker is an append-only registry of files and template relations. It is
// safe for concurrent use.
type Tracker struct {
	mu          sync.RWMutex
	templateExt string

	kinds    map[string]core.FileKind
	includes map[string][]string
	extends  map[string][]string
}

// New creates a Tracker treating files with templateExt as template partials.
func New(templateExt string) *Tracker {
	if templateExt == "" {
		templateExt = document.DefaultTemplateExtension
	}
	return &Tracker{
		templateExt: strings.ToLower(strings.TrimPrefix(templateExt, ".")),
		kinds:       make(map[string]core.FileKind),
		includes:    make(map[string][]string),
		extends:     make(map[string][]string),
	}
}

// Classify returns the kind registered for path, or core.KindUnknown.
func (t *Tracker) Classify(path string) core.FileKind {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.kinds[normalize(path)]
}

// RegisterFile records the kind of f derived from its concrete type. Files that
// are not documents are template partials when their extension is the template
// extension and are otherwise ignored.
func (t *Tracker) RegisterFile(f document.Readable) core.FileKind {
	kind := core.KindUnknown
	switch v := f.(type) {
	case *document.ContentItem:
		kind = core.KindContentItem
	case *document.DataItem:
		kind = core.KindDataItem
	case document.PageView:
		kind = core.FileKindOf(v.Kind())
	default:
		if f.Extension() == t.templateExt {
			kind = core.KindTemplatePartial
		}
	}
	if kind == core.KindUnknown {
		return kind
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.kinds[normalize(f.RelativePath())] = kind
	return kind
}

// RegisterTemplateInclude records that includer pulls in partial.
func (t *Tracker) RegisterTemplateInclude(partial, includer string) {
	t.register(t.includes, partial, includer)
}

// RegisterTemplateExtend records that child extends parent.
func (t *Tracker) RegisterTemplateExtend(parent, child string) {
	t.register(t.extends, parent, child)
}

func (t *Tracker) register(relation map[string][]string, partial, dependent string) {
	partial, dependent = normalize(partial), normalize(dependent)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.kinds[partial]; !ok {
		t.kinds[partial] = core.KindTemplatePartial
	}
	for _, existing := range relation[partial] {
		if existing == dependent {
			return
		}
	}
	relation[partial] = append(relation[partial], dependent)
}

// Dependents returns the direct includers and children of a partial, in
// registration order and without duplicates.
func (t *Tracker) Dependents(partial string) []string {
	partial = normalize(partial)

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	seen := map[string]bool{}
	for _, relation := range []map[string][]string{t.includes, t.extends} {
		for _, dependent := range relation[partial] {
			if !seen[dependent] {
				seen[dependent] = true
				out = append(out, dependent)
			}
		}
	}
	return out
}

// Route classifies path and tells the caller what must be recompiled.
// Partial dependents are direct only: a partial included by another partial
// does not cascade.
func (t *Tracker) Route(path string) Route {
	path = normalize(path)
	kind := t.Classify(path)
	r := Route{Path: path, Kind: kind}

	switch {
	case kind.IsPageView():
		r.Action = ActionRecompilePageView
		r.Targets = []string{path}
	case kind.IsCollectable():
		r.Action = ActionRecompileItem
		r.Targets = []string{path}
	case kind == core.KindTemplatePartial:
		r.Action = ActionRecompileDependents
		r.Targets = t.Dependents(path)
	}
	return r
}

func normalize(path string) string {
	return strings.TrimPrefix(strings.ReplaceAll(path, "\\", "/"), "./")
}

// State exposes the registries for observability.
type State struct {
	Files    map[string]string   `json:"files"`
	Includes map[string][]string `json:"includes,omitempty"`
	Extends  map[string][]string `json:"extends,omitempty"`
}

// State implements introspection.Introspectable.
func (t *Tracker) State() any {
	t.mu.RLock()
	defer t.mu.RUnlock()

	files := make(map[string]string, len(t.kinds))
	for path, kind := range t.kinds {
		files[path] = kind.String()
	}
	return State{
		Files:    files,
		Includes: copyRelation(t.includes),
		Extends:  copyRelation(t.extends),
	}
}

// ComponentType implements introspection.Component.
func (t *Tracker) ComponentType() string {
	return "tracker"
}

var _ introspection.Introspectable = (*Tracker)(nil)
var _ introspection.Component = (*Tracker)(nil)

func copyRelation(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
