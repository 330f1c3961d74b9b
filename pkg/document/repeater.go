package document

import (
	"errors"

	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/frontmatter"
)

// RepeaterPageView renders its template once per expansion of a permalink
// pattern. Redirect patterns are expanded alongside and paired with the
// primary permalinks by index.
type RepeaterPageView struct {
	*Document

	permalinks []frontmatter.ExpandedValue
	redirects  [][]frontmatter.ExpandedValue
	cursor     int
	current    frontmatter.ExpandedValue
}

func newRepeaterPageView(doc *Document) (*RepeaterPageView, error) {
	doc.skip = []string{"permalink", "redirects"}
	p := &RepeaterPageView{Document: doc}
	if err := p.configure(); err != nil {
		return nil, err
	}
	return p, nil
}

// configure expands every permalink and redirect pattern and stores the
// groups back into the front matter: group 0 holds the permalinks, the
// remaining groups the redirects.
func (p *RepeaterPageView) configure() error {
	fm, err := p.EvaluateFrontMatter(nil)
	if err != nil {
		return err
	}

	patterns := append(permalinkPatterns(fm), fm.Strings("redirects")...)
	groups, err := frontmatter.ExpandAll(fm, patterns)
	if err != nil {
		var undefined *core.UndefinedVariableError
		if errors.As(err, &undefined) {
			undefined.Path = p.relPath
		}
		return err
	}
	for _, group := range groups {
		for i := range group {
			group[i].Evaluated = frontmatter.Sanitize(group[i].Evaluated, p.templateExt)
		}
	}

	fm["permalink"] = groups
	return p.ConfigurePermalinks()
}

// ConfigurePermalinks loads the expanded permalink groups from the front
// matter and rewinds the cursor. Every redirect group must expand to as many
// values as the permalink group.
func (p *RepeaterPageView) ConfigurePermalinks() error {
	groups, ok := p.frontMatter["permalink"].([][]frontmatter.ExpandedValue)
	if !ok || len(groups) == 0 || len(groups[0]) == 0 {
		return &core.DocumentFormatError{Path: p.relPath, Reason: "repeater page has no permalink"}
	}

	permalinks, redirects := groups[0], groups[1:]
	for i, group := range redirects {
		if len(group) != len(permalinks) {
			return &core.RedirectAlignmentError{
				Path:  p.relPath,
				Group: i + 1,
				Want:  len(permalinks),
				Got:   len(group),
			}
		}
	}

	p.permalinks = permalinks
	p.redirects = redirects
	p.RewindPermalink()
	return nil
}

func (p *RepeaterPageView) pageView() {}

func (p *RepeaterPageView) Kind() core.PageKind { return core.PageRepeater }

// RepeaterPermalinks returns every expanded permalink, in render order.
func (p *RepeaterPageView) RepeaterPermalinks() []frontmatter.ExpandedValue {
	return append([]frontmatter.ExpandedValue(nil), p.permalinks...)
}

// RepeaterRedirects returns the expanded redirect groups, each aligned with
// RepeaterPermalinks.
func (p *RepeaterPageView) RepeaterRedirects() [][]frontmatter.ExpandedValue {
	out := make([][]frontmatter.ExpandedValue, len(p.redirects))
	for i, group := range p.redirects {
		out[i] = append([]frontmatter.ExpandedValue(nil), group...)
	}
	return out
}

// RewindPermalink resets the cursor to the first expansion.
func (p *RepeaterPageView) RewindPermalink() {
	p.cursor = 0
	p.current = frontmatter.ExpandedValue{}
}

// BumpPermalink advances the cursor and returns the new current expansion.
// It reports false once every expansion has been visited.
func (p *RepeaterPageView) BumpPermalink() (frontmatter.ExpandedValue, bool) {
	if p.cursor >= len(p.permalinks) {
		return frontmatter.ExpandedValue{}, false
	}
	p.current = p.permalinks[p.cursor]
	p.cursor++
	return p.current, true
}

// Current is the expansion the cursor points at; before the first bump it is
// the first expansion.
func (p *RepeaterPageView) Current() frontmatter.ExpandedValue {
	if p.cursor == 0 && len(p.permalinks) > 0 {
		return p.permalinks[0]
	}
	return p.current
}

// Permalink is the permalink of the current expansion.
func (p *RepeaterPageView) Permalink() (string, error) {
	return p.Current().Evaluated, nil
}

// TargetFile is the output file of the current expansion.
func (p *RepeaterPageView) TargetFile() (string, error) {
	return frontmatter.TargetFile(p.Current().Evaluated), nil
}

// Redirects lists the redirect permalinks paired with the current expansion.
func (p *RepeaterPageView) Redirects() ([]string, error) {
	index := p.cursor - 1
	if index < 0 {
		index = 0
	}
	var out []string
	for _, group := range p.redirects {
		if index < len(group) && group[index].Evaluated != "" {
			out = append(out, group[index].Evaluated)
		}
	}
	return out, nil
}

// Refresh re-reads the page and expands its permalinks again.
func (p *RepeaterPageView) Refresh() error {
	if err := p.Document.Refresh(); err != nil {
		return err
	}
	return p.configure()
}

// Jail exposes the page for the current expansion, including the iterator
// values that produced it.
func (p *RepeaterPageView) Jail() (Jail, error) {
	fm, err := p.EvaluateFrontMatter(nil)
	if err != nil {
		return nil, err
	}
	current := p.Current()
	iterators := make(map[string]any, len(current.Iterators))
	for k, v := range current.Iterators {
		iterators[k] = v
	}
	return newJail(fm, map[string]any{
		"permalink":        current.Evaluated,
		"iterators":        iterators,
		"filePath":         p.FilePath(),
		"relativeFilePath": p.RelativePath(),
	}), nil
}
