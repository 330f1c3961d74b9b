// Package core holds the domain vocabulary shared by every stakx component:
// file and page kinds, the front matter mapping, watch events and the error
// taxonomy surfaced by the compilation pipeline.
package core

import (
	"fmt"
	"time"
)

// FrontMatter is the structured metadata block that prefixes a document.
// Values may be scalars, nested mappings or sequences.
type FrontMatter map[string]any

// Get returns the value stored under key, if any.
func (fm FrontMatter) Get(key string) (any, bool) {
	if fm == nil {
		return nil, false
	}
	v, ok := fm[key]
	return v, ok
}

// String returns the value under key when it is a string.
func (fm FrontMatter) String(key string) (string, bool) {
	v, ok := fm.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Bool returns the value under key when it is a boolean.
func (fm FrontMatter) Bool(key string) bool {
	v, ok := fm.Get(key)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

// Strings returns the value under key as a list of strings. A single string
// is returned as a one element list; non string members are formatted.
func (fm FrontMatter) Strings(key string) []string {
	v, ok := fm.Get(key)
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// Clone returns a deep copy of the mapping.
func (fm FrontMatter) Clone() FrontMatter {
	if fm == nil {
		return FrontMatter{}
	}
	return CloneValue(map[string]any(fm)).(map[string]any)
}

// CloneValue deep copies mappings and sequences. Other values are returned as is.
func CloneValue(v any) any {
	switch t := v.(type) {
	case FrontMatter:
		return FrontMatter(CloneValue(map[string]any(t)).(map[string]any))
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = CloneValue(val)
		}
		return m
	case []any:
		l := make([]any, len(t))
		for i, val := range t {
			l[i] = CloneValue(val)
		}
		return l
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// EventType represents the type of change observed in the site tree.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event is a single file change notification. Path is relative to the site root
// and always uses forward slashes.
type Event struct {
	Type      EventType
	Path      string
	Timestamp int64 // Unix timestamp
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s @ %s", e.Type, e.Path, time.Unix(e.Timestamp, 0).Format(time.RFC3339))
}
