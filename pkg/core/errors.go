package core

import (
	"errors"
	"fmt"
)

// Sentinels usable with errors.Is against the typed errors below.
var (
	ErrDocumentFormat    = errors.New("invalid document format")
	ErrUndefinedVariable = errors.New("undefined front matter variable")
	ErrFileNotFound      = errors.New("file not found")
	ErrTemplateRender    = errors.New("template render failed")
	ErrUntrackedPath     = errors.New("path is not tracked")
	ErrRedirectAlignment = errors.New("redirect group is not aligned with permalinks")
)

// DocumentFormatError reports a document without a front matter block or body.
type DocumentFormatError struct {
	Path   string
	Reason string
}

func (e *DocumentFormatError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *DocumentFormatError) Is(target error) bool { return target == ErrDocumentFormat }

// UndefinedVariableError reports a %token that could not be resolved.
type UndefinedVariableError struct {
	Path     string
	Variable string // including the leading '%'
	Reason   string
}

func (e *UndefinedVariableError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is not defined"
	}
	if e.Path == "" {
		return fmt.Sprintf("front matter variable `%s` %s", e.Variable, reason)
	}
	return fmt.Sprintf("%s: front matter variable `%s` %s", e.Path, e.Variable, reason)
}

func (e *UndefinedVariableError) Is(target error) bool { return target == ErrUndefinedVariable }

// FileNotFoundError reports a source path that is missing at parse time.
type FileNotFoundError struct {
	Path string
	Err  error
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("the following file could not be found: %s", e.Path)
}

func (e *FileNotFoundError) Unwrap() error { return e.Err }

func (e *FileNotFoundError) Is(target error) bool { return target == ErrFileNotFound }

// TemplateRenderError wraps a template engine failure with the originating
// source file and a line number expressed in terms of that file.
type TemplateRenderError struct {
	Path string
	Line int
	Err  error
}

func (e *TemplateRenderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *TemplateRenderError) Unwrap() error { return e.Err }

func (e *TemplateRenderError) Is(target error) bool { return target == ErrTemplateRender }

// UntrackedPathError reports a runtime recompilation request for a path that
// was never registered.
type UntrackedPathError struct {
	Path string
}

func (e *UntrackedPathError) Error() string {
	return fmt.Sprintf("the %q PageView is not being tracked", e.Path)
}

func (e *UntrackedPathError) Is(target error) bool { return target == ErrUntrackedPath }

// RedirectAlignmentError reports a repeater redirect group whose length differs
// from the primary permalink list.
type RedirectAlignmentError struct {
	Path      string
	Group     int
	Want, Got int
}

func (e *RedirectAlignmentError) Error() string {
	return fmt.Sprintf("%s: redirect group %d expands to %d values, expected %d", e.Path, e.Group, e.Got, e.Want)
}

func (e *RedirectAlignmentError) Is(target error) bool { return target == ErrRedirectAlignment }
