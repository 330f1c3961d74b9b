package document

import (
	"fmt"
	"path"
	"strings"

	"github.com/PeterMedina/stakx/pkg/core"
)

// Jail is the read-only view of a document handed to templates. It is a deep
// copy of the evaluated front matter plus a few computed keys.
type Jail map[string]any

// Get returns the value under key.
func (j Jail) Get(key string) (any, bool) {
	v, ok := j[key]
	return v, ok
}

func newJail(fm core.FrontMatter, extra map[string]any) Jail {
	j := Jail(fm.Clone())
	for k, v := range extra {
		j[k] = v
	}
	return j
}

// CollectableItem is a document that belongs to a collection or a dataset and
// is rendered once per item by a DynamicPageView.
type CollectableItem interface {
	Readable
	FilePath() string
	Get(key string) (any, bool)
	IsDraft() bool
	Permalink() (string, error)
	TargetFile() (string, error)
	Redirects() ([]string, error)
	EvaluateFrontMatter(variables map[string]any) (core.FrontMatter, error)
	Jail() (Jail, error)
	Refresh() error

	collectable()
}

var (
	_ CollectableItem = (*ContentItem)(nil)
	_ CollectableItem = (*DataItem)(nil)
)

// ContentItem is a front matter document that belongs to a collection. Its
// body is rendered to HTML when it is written in Markdown.
type ContentItem struct {
	*Document
	markup BodyRenderer
}

// ReadContentItem reads the collection entry at relPath.
func ReadContentItem(relPath string, opts Options, markup BodyRenderer) (*ContentItem, error) {
	doc, err := Read(relPath, opts)
	if err != nil {
		return nil, err
	}
	return &ContentItem{Document: doc, markup: markup}, nil
}

func (c *ContentItem) collectable() {}

// IsDraft reports whether the item is marked `draft: true`.
func (c *ContentItem) IsDraft() bool { return c.frontMatter.Bool("draft") }

// Collection is the name of the collection the item was registered under.
func (c *ContentItem) Collection() string {
	s, _ := c.frontMatter.String("collection")
	return s
}

// Body returns the rendered body. Markdown is converted once and memoized.
func (c *ContentItem) Body() (string, error) {
	var r BodyRenderer
	switch c.Extension() {
	case "md", "markdown":
		r = c.markup
	}
	return c.RenderedBody(r)
}

// Jail exposes the item to templates.
func (c *ContentItem) Jail() (Jail, error) {
	fm, err := c.EvaluateFrontMatter(nil)
	if err != nil {
		return nil, err
	}
	permalink, err := c.Permalink()
	if err != nil {
		return nil, err
	}
	body, err := c.Body()
	if err != nil {
		return nil, err
	}
	return newJail(fm, map[string]any{
		"content":          body,
		"permalink":        permalink,
		"filePath":         c.FilePath(),
		"relativeFilePath": c.RelativePath(),
	}), nil
}

// DecodeFunc decodes a data file, chosen by its extension, into a mapping.
type DecodeFunc func(ext string, raw []byte) (map[string]any, error)

// DataItem is a structured data file (JSON, YAML, CSV...) that belongs to a
// dataset or is exposed as site data. It has no body.
type DataItem struct {
	*Document
}

// ReadDataItem reads the data file at relPath using decode.
func ReadDataItem(relPath string, opts Options, decode DecodeFunc) (*DataItem, error) {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(relPath), "."))
	parse := func(raw []byte) (core.FrontMatter, string, int, error) {
		data, err := decode(ext, raw)
		if err != nil {
			return nil, "", 0, fmt.Errorf("failed to decode data: %w", err)
		}
		if data == nil {
			data = map[string]any{}
		}
		return core.FrontMatter(data), "", 0, nil
	}
	doc, err := readWith(relPath, opts, parse)
	if err != nil {
		return nil, err
	}
	return &DataItem{Document: doc}, nil
}

func (d *DataItem) collectable() {}

// IsDraft reports whether the data item is marked `draft: true`.
func (d *DataItem) IsDraft() bool { return d.frontMatter.Bool("draft") }

// Data returns the decoded content.
func (d *DataItem) Data() (core.FrontMatter, error) {
	return d.EvaluateFrontMatter(nil)
}

// Jail exposes the data item to templates.
func (d *DataItem) Jail() (Jail, error) {
	fm, err := d.EvaluateFrontMatter(nil)
	if err != nil {
		return nil, err
	}
	permalink, err := d.Permalink()
	if err != nil {
		return nil, err
	}
	return newJail(fm, map[string]any{
		"permalink":        permalink,
		"filePath":         d.FilePath(),
		"relativeFilePath": d.RelativePath(),
	}), nil
}
