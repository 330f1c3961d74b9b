// Package gotmpl is the text/template implementation of templating.Bridge.
//
// Partials are referenced by their site relative path:
//
//	{{ template "_includes/header.html.tmpl" . }}
//
// Partials under the layouts folder are recorded as extends, every other one
// as an include.
package gotmpl

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"text/template"
	"text/template/parse"

	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/templating"
)

const namePrefix = "__stakx_"

var lineInError = regexp.MustCompile(`template: ([^:]+):(\d+)`)

// Engine compiles template bodies with text/template.
type Engine struct {
	root       string
	layoutsDir string
	funcs      template.FuncMap
	counter    atomic.Int64
}

// Option configures the Engine.
type Option func(*Engine)

// WithLayoutsDir sets the folder, relative to the site root, holding layouts.
func WithLayoutsDir(dir string) Option {
	return func(e *Engine) {
		e.layoutsDir = strings.Trim(filepath.ToSlash(dir), "/")
	}
}

// WithFuncs adds template functions, overriding the builtin helpers.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *Engine) {
		for k, v := range funcs {
			e.funcs[k] = v
		}
	}
}

// New creates an Engine resolving partials against root.
func New(root string, opts ...Option) *Engine {
	e := &Engine{
		root:       root,
		layoutsDir: "_layouts",
		funcs:      Funcs(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ templating.Bridge = (*Engine)(nil)

// CreateTemplate parses body and every partial it references. Each source is
// parsed on its own first to discover references; the final set parses the
// partials before the body so that blocks defined by the body win over
// layout defaults.
func (e *Engine) CreateTemplate(body string) (templating.Template, error) {
	name := fmt.Sprintf("%s%d", namePrefix, e.counter.Add(1))

	d := &discovery{
		engine:  e,
		root:    name,
		files:   map[string]bool{},
		defined: map[string]bool{},
	}
	if err := d.add(name, body); err != nil {
		return nil, err
	}
	if err := d.resolve(); err != nil {
		return nil, err
	}

	tmpl := template.New(name).Funcs(e.funcs)
	for _, p := range d.partials {
		if _, err := tmpl.New(p.name).Parse(p.source); err != nil {
			return nil, wrap(name, err)
		}
	}
	if _, err := tmpl.Parse(body); err != nil {
		return nil, wrap(name, err)
	}

	return &Template{name: name, tmpl: tmpl, deps: d.deps}, nil
}

type partialSource struct {
	name   string
	source string
}

type reference struct {
	owner string
	name  string
}

type discovery struct {
	engine *Engine
	root   string
	// files holds the partials read from disk, defined the names of
	// {{ define }} and {{ block }} templates found in any source.
	files    map[string]bool
	defined  map[string]bool
	pending  []reference
	partials []partialSource
	deps     []templating.Dependency
}

// add parses the source of owner on its own and queues the references made
// by every tree it produces, including its define and block trees.
func (d *discovery) add(owner, source string) error {
	parsed, err := template.New(owner).Funcs(d.engine.funcs).Parse(source)
	if err != nil {
		return wrap(d.root, err)
	}
	for _, t := range parsed.Templates() {
		if t.Name() != owner {
			d.defined[t.Name()] = true
		}
	}
	for _, ref := range references(parsed) {
		if ref != owner {
			d.pending = append(d.pending, reference{owner: owner, name: ref})
		}
	}
	return nil
}

// resolve loads every queued partial, breadth first, recording one dependency
// per edge. A name neither defined inline nor found on disk is reported once
// every source has been parsed, since a later partial may define it.
func (d *discovery) resolve() error {
	var missing []reference
	for len(d.pending) > 0 {
		ref := d.pending[0]
		d.pending = d.pending[1:]

		if !d.files[ref.name] && d.defined[ref.name] {
			continue
		}
		if !d.files[ref.name] {
			src, err := os.ReadFile(filepath.Join(d.engine.root, filepath.FromSlash(ref.name)))
			if errors.Is(err, os.ErrNotExist) {
				missing = append(missing, ref)
				continue
			}
			if err != nil {
				return &templating.Error{Template: d.root, Partial: d.partialName(ref.owner), Err: err}
			}
			d.files[ref.name] = true
			d.partials = append(d.partials, partialSource{name: ref.name, source: string(src)})
			if err := d.add(ref.name, string(src)); err != nil {
				return err
			}
		}
		d.record(ref)
	}

	for _, ref := range missing {
		if d.defined[ref.name] {
			continue
		}
		if d.files[ref.name] {
			d.record(ref)
			continue
		}
		err := &core.FileNotFoundError{Path: ref.name, Err: os.ErrNotExist}
		return &templating.Error{Template: d.root, Partial: d.partialName(ref.owner), Err: err}
	}
	return nil
}

func (d *discovery) record(ref reference) {
	d.deps = append(d.deps, templating.Dependency{
		Template: ref.owner,
		Partial:  ref.name,
		Kind:     d.engine.kindOf(ref.name),
	})
}

func (d *discovery) partialName(owner string) string {
	if owner == d.root {
		return ""
	}
	return owner
}

func (e *Engine) kindOf(partial string) templating.DependencyKind {
	if e.layoutsDir != "" && strings.HasPrefix(path.Clean(partial), e.layoutsDir+"/") {
		return templating.Extend
	}
	return templating.Include
}

// references lists the template names invoked by every tree of tmpl: its own
// and those created by {{ define }} and {{ block }}.
func references(tmpl *template.Template) []string {
	var names []string
	seen := map[string]bool{}

	var walk func(node parse.Node)
	walk = func(node parse.Node) {
		switch n := node.(type) {
		case *parse.ListNode:
			if n == nil {
				return
			}
			for _, child := range n.Nodes {
				walk(child)
			}
		case *parse.TemplateNode:
			if !seen[n.Name] {
				seen[n.Name] = true
				names = append(names, n.Name)
			}
		case *parse.IfNode:
			walk(n.List)
			walk(n.ElseList)
		case *parse.RangeNode:
			walk(n.List)
			walk(n.ElseList)
		case *parse.WithNode:
			walk(n.List)
			walk(n.ElseList)
		}
	}

	// the template's own tree first so the order follows the source
	if tmpl.Tree != nil {
		walk(tmpl.Tree.Root)
	}
	others := tmpl.Templates()
	sort.Slice(others, func(i, j int) bool { return others[i].Name() < others[j].Name() })
	for _, t := range others {
		if t.Name() == tmpl.Name() || t.Tree == nil {
			continue
		}
		walk(t.Tree.Root)
	}
	return names
}

// wrap converts a text/template error into a templating.Error. root is the
// name of the page body template.
func wrap(root string, err error) error {
	e := &templating.Error{Template: root, Err: err}
	if m := lineInError.FindStringSubmatch(err.Error()); m != nil {
		e.Line, _ = strconv.Atoi(m[2])
		if m[1] != root {
			e.Partial = m[1]
		}
	}
	return e
}

// Template is a compiled page body and its partials.
type Template struct {
	name string
	tmpl *template.Template
	deps []templating.Dependency
}

var _ templating.Template = (*Template)(nil)

func (t *Template) Name() string { return t.name }

// Dependencies lists every partial edge reachable from the page body.
func (t *Template) Dependencies() []templating.Dependency {
	return append([]templating.Dependency(nil), t.deps...)
}

// Render executes the template against context.
func (t *Template) Render(context map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := t.tmpl.ExecuteTemplate(&buf, t.name, context); err != nil {
		return "", wrap(t.name, err)
	}
	return buf.String(), nil
}
