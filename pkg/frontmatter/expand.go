package frontmatter

import (
	"strings"

	"github.com/PeterMedina/stakx/pkg/core"
)

// ExpandedValue is one concrete instantiation of a pattern together with the
// iteration variables that produced it.
type ExpandedValue struct {
	Evaluated string
	Iterators map[string]string
}

func (v ExpandedValue) String() string { return v.Evaluated }

// NeedsExpansion reports whether pattern references any sequence valued entry of fm.
func NeedsExpansion(fm core.FrontMatter, pattern string) bool {
	for _, name := range References(pattern) {
		if _, ok := sequence(fm[name]); ok {
			return true
		}
	}
	return false
}

// Expand instantiates pattern once per combination of the sequence valued
// variables it references. Combinations are produced in order with the first
// referenced sequence varying slowest. Scalar references are interpolated as
// usual. A pattern without sequence references expands to a single value.
func Expand(fm core.FrontMatter, pattern string) ([]ExpandedValue, error) {
	var names []string
	var lists [][]string
	for _, name := range References(pattern) {
		seq, ok := sequence(fm[name])
		if !ok {
			continue
		}
		values := make([]string, len(seq))
		for i, item := range seq {
			values[i] = Stringify(item)
		}
		names = append(names, name)
		lists = append(lists, values)
	}

	e := newEvaluator(fm)
	var out []ExpandedValue
	for _, combo := range product(lists) {
		iterators := make(map[string]string, len(names))
		for i, name := range names {
			iterators[name] = combo[i]
		}

		var firstErr error
		evaluated := variablePattern.ReplaceAllStringFunc(pattern, func(token string) string {
			if firstErr != nil {
				return token
			}
			name := token[1:]
			if v, ok := iterators[name]; ok {
				return v
			}
			v, err := e.lookup(name)
			if err != nil {
				firstErr = err
				return token
			}
			return v
		})
		if firstErr != nil {
			return nil, firstErr
		}

		out = append(out, ExpandedValue{Evaluated: evaluated, Iterators: iterators})
	}
	return out, nil
}

// ExpandAll expands each pattern in order, returning one group per pattern.
func ExpandAll(fm core.FrontMatter, patterns []string) ([][]ExpandedValue, error) {
	groups := make([][]ExpandedValue, 0, len(patterns))
	for _, p := range patterns {
		values, err := Expand(fm, strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		groups = append(groups, values)
	}
	return groups, nil
}

func product(lists [][]string) [][]string {
	combos := [][]string{{}}
	for _, list := range lists {
		next := make([][]string, 0, len(combos)*len(list))
		for _, prefix := range combos {
			for _, v := range list {
				combo := make([]string, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, v))
			}
		}
		combos = next
	}
	return combos
}

func sequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}
