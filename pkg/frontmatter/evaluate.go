package frontmatter

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/PeterMedina/stakx/pkg/core"
)

var variablePattern = regexp.MustCompile(`%([a-zA-Z]+)`)

// Evaluate replaces every %identifier token found in the string leaves of fm
// with the stringified value of the top level entry of the same name. The
// mapping is modified in place. Keys listed in skip are left untouched.
//
// Referenced entries are resolved before being substituted, so the result does
// not depend on iteration order. A reference cycle is reported as undefined.
func Evaluate(fm core.FrontMatter, skip ...string) error {
	e := newEvaluator(fm)

	skipped := make(map[string]bool, len(skip))
	for _, k := range skip {
		skipped[k] = true
	}

	keys := make([]string, 0, len(fm))
	for k := range fm {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if skipped[k] {
			continue
		}
		if s, ok := fm[k].(string); ok {
			v, err := e.resolve(k, s)
			if err != nil {
				return err
			}
			fm[k] = v
			continue
		}
		v, err := e.walk(fm[k])
		if err != nil {
			return err
		}
		fm[k] = v
	}
	return nil
}

// Interpolate evaluates a single string against fm without modifying fm.
func Interpolate(fm core.FrontMatter, s string) (string, error) {
	return newEvaluator(fm).interpolate(s)
}

// References returns the distinct variable names used in s, in order of appearance.
func References(s string) []string {
	var names []string
	seen := make(map[string]bool)
	for _, m := range variablePattern.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

type evaluator struct {
	fm       core.FrontMatter
	resolved map[string]string
	visiting map[string]bool
}

func newEvaluator(fm core.FrontMatter) *evaluator {
	return &evaluator{
		fm:       fm,
		resolved: make(map[string]string),
		visiting: make(map[string]bool),
	}
}

func (e *evaluator) walk(v any) (any, error) {
	switch t := v.(type) {
	case string:
		return e.interpolate(t)
	case map[string]any:
		for k, val := range t {
			out, err := e.walk(val)
			if err != nil {
				return nil, err
			}
			t[k] = out
		}
		return t, nil
	case core.FrontMatter:
		for k, val := range t {
			out, err := e.walk(val)
			if err != nil {
				return nil, err
			}
			t[k] = out
		}
		return t, nil
	case []any:
		for i, val := range t {
			out, err := e.walk(val)
			if err != nil {
				return nil, err
			}
			t[i] = out
		}
		return t, nil
	}
	return v, nil
}

func (e *evaluator) interpolate(s string) (string, error) {
	var firstErr error
	out := variablePattern.ReplaceAllStringFunc(s, func(token string) string {
		if firstErr != nil {
			return token
		}
		name := token[1:]
		v, err := e.lookup(name)
		if err != nil {
			firstErr = err
			return token
		}
		return v
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

func (e *evaluator) lookup(name string) (string, error) {
	if v, ok := e.resolved[name]; ok {
		return v, nil
	}
	raw, ok := e.fm[name]
	if !ok {
		return "", &core.UndefinedVariableError{Variable: "%" + name}
	}
	if s, ok := raw.(string); ok {
		return e.resolve(name, s)
	}
	v := Stringify(raw)
	e.resolved[name] = v
	return v, nil
}

func (e *evaluator) resolve(name, raw string) (string, error) {
	if v, ok := e.resolved[name]; ok {
		return v, nil
	}
	if e.visiting[name] {
		return "", &core.UndefinedVariableError{Variable: "%" + name, Reason: "references itself"}
	}
	e.visiting[name] = true
	defer delete(e.visiting, name)

	v, err := e.interpolate(raw)
	if err != nil {
		return "", err
	}
	e.resolved[name] = v
	return v, nil
}

// Stringify renders a front matter value the way it is substituted into strings.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format("2006-01-02")
		}
		return t.Format(time.RFC3339)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1e15 {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprint(t)
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprint(v)
}
