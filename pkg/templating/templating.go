// Package templating defines the contract between the compiler and a template
// engine. Engines compile PageView bodies into Templates and report the
// partials each template depends on.
package templating

import (
	"fmt"
)

// DependencyKind distinguishes the two kinds of template partials.
type DependencyKind int

const (
	// Include is a partial pulled into the body of a template.
	Include DependencyKind = iota
	// Extend is a parent layout a template inherits from.
	Extend
)

func (k DependencyKind) String() string {
	if k == Extend {
		return "extend"
	}
	return "include"
}

// Dependency is an edge from a template to a partial it uses.
type Dependency struct {
	// Template is the name of the template that references the partial.
	Template string
	// Partial is the site relative path of the referenced partial.
	Partial string
	Kind    DependencyKind
}

// Template is a compiled PageView body.
type Template interface {
	// Name is the internal name the engine assigned to the template.
	Name() string
	Render(context map[string]any) (string, error)
	// Dependencies lists every partial reachable from the template.
	Dependencies() []Dependency
}

// Bridge is a template engine.
type Bridge interface {
	CreateTemplate(body string) (Template, error)
}

// Error is a template compilation or render failure. Line is expressed in
// terms of the failing template: the page body when Partial is empty,
// otherwise the partial at that site relative path.
type Error struct {
	Template string
	Partial  string
	Line     int
	Err      error
}

func (e *Error) Error() string {
	name := e.Template
	if e.Partial != "" {
		name = e.Partial
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", name, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// InBody reports whether the failure happened in the page body itself.
func (e *Error) InBody() bool { return e.Partial == "" }
