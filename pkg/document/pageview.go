package document

import (
	"errors"
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/frontmatter"
)

// PageView is a document whose body is a template producing one or more output
// files. The set of implementations is closed: *StaticPageView,
// *DynamicPageView and *RepeaterPageView.
type PageView interface {
	Readable
	Kind() core.PageKind
	FilePath() string
	Content() string
	LineOffset() int
	Permalink() (string, error)
	TargetFile() (string, error)
	FrontMatter() (core.FrontMatter, error)
	Jail() (Jail, error)
	Refresh() error

	pageView()
}

var (
	_ PageView = (*StaticPageView)(nil)
	_ PageView = (*DynamicPageView)(nil)
	_ PageView = (*RepeaterPageView)(nil)
)

// ReadPageView reads the PageView at relPath and classifies it. A page naming
// a `collection` or a `dataset` is dynamic, a page whose permalink references
// a sequence valued variable is a repeater, anything else is static.
func ReadPageView(relPath string, opts Options) (PageView, error) {
	doc, err := Read(relPath, opts)
	if err != nil {
		return nil, err
	}
	return Classify(doc)
}

// Classify wraps doc in the PageView variant its front matter calls for.
func Classify(doc *Document) (PageView, error) {
	switch KindOf(doc.frontMatter) {
	case core.PageDynamic:
		return newDynamicPageView(doc), nil
	case core.PageRepeater:
		return newRepeaterPageView(doc)
	default:
		return &StaticPageView{Document: doc}, nil
	}
}

// KindOf classifies raw, unevaluated front matter.
func KindOf(fm core.FrontMatter) core.PageKind {
	if _, ok := fm.Get("collection"); ok {
		return core.PageDynamic
	}
	if _, ok := fm.Get("dataset"); ok {
		return core.PageDynamic
	}
	for _, pattern := range permalinkPatterns(fm) {
		if frontmatter.NeedsExpansion(fm, pattern) {
			return core.PageRepeater
		}
	}
	return core.PageStatic
}

func permalinkPatterns(fm core.FrontMatter) []string {
	return fm.Strings("permalink")
}

// StaticPageView renders to exactly one output file.
type StaticPageView struct {
	*Document
}

func (p *StaticPageView) pageView() {}

func (p *StaticPageView) Kind() core.PageKind { return core.PageStatic }

// Jail exposes the page to its own template as `this`.
func (p *StaticPageView) Jail() (Jail, error) {
	fm, err := p.EvaluateFrontMatter(nil)
	if err != nil {
		return nil, err
	}
	permalink, err := p.Permalink()
	if err != nil {
		return nil, err
	}
	return newJail(fm, map[string]any{
		"permalink":        permalink,
		"filePath":         p.FilePath(),
		"relativeFilePath": p.RelativePath(),
	}), nil
}

// DynamicPageView renders its template once per item of a collection or a
// dataset. Its own permalink is the pattern handed to the items.
type DynamicPageView struct {
	*Document

	source  string
	dataset bool
	pattern string
	items   []CollectableItem
}

func newDynamicPageView(doc *Document) *DynamicPageView {
	doc.skip = []string{"permalink"}
	p := &DynamicPageView{Document: doc}
	p.configure()
	return p
}

func (p *DynamicPageView) configure() {
	fm := p.frontMatter
	if name, ok := fm.String("collection"); ok {
		p.source, p.dataset = name, false
	} else if name, ok := fm.String("dataset"); ok {
		p.source, p.dataset = name, true
	}
	p.pattern, _ = fm.String("permalink")
}

func (p *DynamicPageView) pageView() {}

func (p *DynamicPageView) Kind() core.PageKind { return core.PageDynamic }

// Source is the name of the collection or dataset the page iterates over.
func (p *DynamicPageView) Source() string { return p.source }

// IsDataset reports whether the page iterates over a dataset.
func (p *DynamicPageView) IsDataset() bool { return p.dataset }

// PermalinkPattern is the raw permalink applied to items without one.
func (p *DynamicPageView) PermalinkPattern() string { return p.pattern }

// Items returns the registered items in registration order.
func (p *DynamicPageView) Items() []CollectableItem {
	return append([]CollectableItem(nil), p.items...)
}

// Item returns the registered item with the given relative path.
func (p *DynamicPageView) Item(relPath string) (CollectableItem, bool) {
	for _, item := range p.items {
		if item.RelativePath() == relPath {
			return item, true
		}
	}
	return nil, false
}

// AddItem evaluates item against the page and registers it. An item with the
// same relative path is replaced in place.
func (p *DynamicPageView) AddItem(item CollectableItem) error {
	if err := p.prepare(item); err != nil {
		return err
	}
	for i, existing := range p.items {
		if existing.RelativePath() == item.RelativePath() {
			p.items[i] = item
			return nil
		}
	}
	p.items = append(p.items, item)
	return nil
}

// RemoveItem drops the item with the given relative path.
func (p *DynamicPageView) RemoveItem(relPath string) bool {
	for i, item := range p.items {
		if item.RelativePath() == relPath {
			p.items = append(p.items[:i], p.items[i+1:]...)
			return true
		}
	}
	return false
}

// RefreshItem re-reads a registered item from disk and evaluates it again.
func (p *DynamicPageView) RefreshItem(relPath string) (CollectableItem, error) {
	item, ok := p.Item(relPath)
	if !ok {
		return nil, &core.UntrackedPathError{Path: relPath}
	}
	if err := item.Refresh(); err != nil {
		return nil, err
	}
	if err := p.prepare(item); err != nil {
		return nil, err
	}
	return item, nil
}

// Refresh re-reads the page and every item so that permalink pattern changes
// reach the items.
func (p *DynamicPageView) Refresh() error {
	if err := p.Document.Refresh(); err != nil {
		return err
	}
	p.configure()

	var errs []error
	for _, item := range p.items {
		if err := item.Refresh(); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.prepare(item); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *DynamicPageView) prepare(item CollectableItem) error {
	filename := path.Base(item.RelativePath())
	basename := strings.TrimSuffix(filename, path.Ext(filename))

	vars := map[string]any{
		"filename": filename,
		"basename": basename,
	}
	if p.dataset {
		vars["dataset"] = p.source
	} else {
		vars["collection"] = p.source
	}
	if _, ok := item.Get("permalink"); !ok && p.pattern != "" {
		vars["permalink"] = p.pattern
	}
	if _, ok := item.Get("title"); !ok {
		vars["title"] = TitleFromName(basename)
	}

	_, err := item.EvaluateFrontMatter(vars)
	return err
}

// Jail exposes the page front matter; the permalink is left as a pattern.
func (p *DynamicPageView) Jail() (Jail, error) {
	fm, err := p.EvaluateFrontMatter(nil)
	if err != nil {
		return nil, err
	}
	return newJail(fm, map[string]any{
		"filePath":         p.FilePath(),
		"relativeFilePath": p.RelativePath(),
	}), nil
}

// TitleFromName turns a file base name such as "my-first_post" into "My First Post".
func TitleFromName(name string) string {
	words := strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(name))
	return cases.Title(language.English).String(strings.Join(words, " "))
}
