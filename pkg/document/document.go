// Package document models the source files of a site: front matter documents,
// collection items, data items and the three PageView variants.
package document

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/frontmatter"
)

// DefaultTemplateExtension is the extension of template files when none is configured.
const DefaultTemplateExtension = "tmpl"

// Readable is anything tracked by a relative path and an extension.
type Readable interface {
	RelativePath() string
	Extension() string
}

// ParseFunc turns raw file bytes into a front matter mapping and a body.
type ParseFunc func(raw []byte) (fm core.FrontMatter, body string, lineOffset int, err error)

// FrontMatterParser is the ParseFunc of front matter documents.
func FrontMatterParser(raw []byte) (core.FrontMatter, string, int, error) {
	block, err := frontmatter.Split(raw)
	if err != nil {
		return nil, "", 0, err
	}
	fm, err := frontmatter.Parse(block.FrontMatter)
	if err != nil {
		return nil, "", 0, err
	}
	return fm, block.Body, block.LineOffset, nil
}

// Document owns a file path, its raw body and its front matter, and memoizes
// the evaluated front matter, the rendered body and the resolved permalink.
// Each memo is reset by Refresh.
type Document struct {
	path        string
	relPath     string
	templateExt string
	parse       ParseFunc

	frontMatter core.FrontMatter
	body        string
	lineOffset  int

	// keys excluded from plain variable evaluation
	skip []string

	frontMatterEvaluated bool
	bodyEvaluated        bool
	permalinkEvaluated   bool

	renderedBody  string
	permalink     string
	listRedirects []string
}

// Options configure how documents are read.
type Options struct {
	// Root is the site root; relative paths are computed against it.
	Root string
	// TemplateExtension is stripped from permalinks, without the dot.
	TemplateExtension string
}

func (o Options) templateExt() string {
	if o.TemplateExtension == "" {
		return DefaultTemplateExtension
	}
	return strings.TrimPrefix(o.TemplateExtension, ".")
}

// Read creates a front matter document from the file at relPath.
func Read(relPath string, opts Options) (*Document, error) {
	return readWith(relPath, opts, FrontMatterParser)
}

func readWith(relPath string, opts Options, parse ParseFunc) (*Document, error) {
	rel := filepath.ToSlash(filepath.Clean(relPath))
	d := &Document{
		path:        filepath.Join(opts.Root, filepath.FromSlash(rel)),
		relPath:     rel,
		templateExt: opts.templateExt(),
		parse:       parse,
	}
	if err := d.Refresh(); err != nil {
		return nil, err
	}
	return d, nil
}

// NewVirtual creates a document that has no backing file.
func NewVirtual(relPath string, fm core.FrontMatter, body string, templateExt string) *Document {
	if fm == nil {
		fm = core.FrontMatter{}
	}
	if templateExt == "" {
		templateExt = DefaultTemplateExtension
	}
	frontmatter.ApplySpecialKeys(fm)
	return &Document{
		relPath:     relPath,
		templateExt: templateExt,
		frontMatter: fm,
		body:        body,
	}
}

// Refresh re-reads the file from disk and resets every evaluated flag.
// Virtual documents only reset their flags.
func (d *Document) Refresh() error {
	d.frontMatterEvaluated = false
	d.bodyEvaluated = false
	d.permalinkEvaluated = false
	d.renderedBody = ""
	d.permalink = ""
	d.listRedirects = nil

	if d.parse == nil {
		return nil
	}

	raw, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &core.FileNotFoundError{Path: d.relPath, Err: err}
		}
		return fmt.Errorf("failed to read %s: %w", d.relPath, err)
	}

	fm, body, offset, err := d.parse(raw)
	if err != nil {
		if errors.Is(err, frontmatter.ErrMissingDelimiters) {
			return &core.DocumentFormatError{Path: d.relPath, Reason: "not a valid document: " + err.Error()}
		}
		if errors.Is(err, frontmatter.ErrEmptyBody) {
			return &core.DocumentFormatError{Path: d.relPath, Reason: err.Error()}
		}
		return fmt.Errorf("%s: %w", d.relPath, err)
	}

	frontmatter.ApplySpecialKeys(fm)

	d.frontMatter = fm
	d.body = body
	d.lineOffset = offset
	return nil
}

// EvaluateFrontMatter merges variables into the front matter, letting them
// override existing keys, and interpolates %variables. Once evaluated, calling
// it again without variables returns the memoized mapping.
func (d *Document) EvaluateFrontMatter(variables map[string]any) (core.FrontMatter, error) {
	if len(variables) == 0 && d.frontMatterEvaluated {
		return d.frontMatter, nil
	}

	if len(variables) > 0 {
		for k, v := range variables {
			d.frontMatter[k] = v
		}
		frontmatter.ApplySpecialKeys(d.frontMatter)
	}

	if err := frontmatter.Evaluate(d.frontMatter, d.skip...); err != nil {
		var undefined *core.UndefinedVariableError
		if errors.As(err, &undefined) {
			undefined.Path = d.relPath
		}
		return nil, err
	}

	d.frontMatterEvaluated = true
	return d.frontMatter, nil
}

// FrontMatter returns the evaluated front matter.
func (d *Document) FrontMatter() (core.FrontMatter, error) {
	return d.EvaluateFrontMatter(nil)
}

// Get returns the front matter value under key without triggering evaluation.
func (d *Document) Get(key string) (any, bool) {
	return d.frontMatter.Get(key)
}

// Permalink resolves, sanitizes and memoizes the permalink. An explicit
// `permalink` entry wins over the path derived one; when it is a sequence, the
// first element is the permalink and the rest are redirects.
func (d *Document) Permalink() (string, error) {
	if d.permalinkEvaluated {
		return d.permalink, nil
	}

	if _, err := d.EvaluateFrontMatter(nil); err != nil {
		return "", err
	}

	var permalink string
	var extra []string
	switch v := d.frontMatter["permalink"].(type) {
	case string:
		permalink = v
	case []any:
		for i, item := range v {
			s := frontmatter.Stringify(item)
			if i == 0 {
				permalink = s
				continue
			}
			extra = append(extra, s)
		}
	}
	if strings.TrimSpace(permalink) == "" {
		permalink = frontmatter.PathPermalink(d.relPath)
	}

	d.permalink = frontmatter.Sanitize(permalink, d.templateExt)
	d.listRedirects = extra
	d.frontMatter["permalink"] = d.permalink
	d.permalinkEvaluated = true

	return d.permalink, nil
}

// TargetFile is the output path of the document, relative to the output folder.
func (d *Document) TargetFile() (string, error) {
	permalink, err := d.Permalink()
	if err != nil {
		return "", err
	}
	return frontmatter.TargetFile(permalink), nil
}

// Redirects lists the sanitized permalinks that should redirect to this document.
func (d *Document) Redirects() ([]string, error) {
	if _, err := d.Permalink(); err != nil {
		return nil, err
	}

	var out []string
	for _, r := range append(append([]string(nil), d.listRedirects...), d.frontMatter.Strings("redirects")...) {
		if s := frontmatter.Sanitize(r, d.templateExt); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// RelativePath is the path of the file relative to the site root.
func (d *Document) RelativePath() string { return d.relPath }

// FilePath is the path of the file on disk.
func (d *Document) FilePath() string { return d.path }

// Extension is the lower cased last extension of the file, without the dot.
func (d *Document) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(d.relPath), "."))
}

// Content is the raw body of the document.
func (d *Document) Content() string { return d.body }

// LineOffset is the number of lines preceding the body in the source file.
func (d *Document) LineOffset() int { return d.lineOffset }

// BodyRenderer converts a raw body, e.g. Markdown, into its output form.
type BodyRenderer interface {
	Render(source string) (string, error)
}

// RenderedBody renders the body once through r and memoizes the result.
// A nil renderer keeps the body as is.
func (d *Document) RenderedBody(r BodyRenderer) (string, error) {
	if d.bodyEvaluated {
		return d.renderedBody, nil
	}
	out := d.body
	if r != nil {
		rendered, err := r.Render(d.body)
		if err != nil {
			return "", fmt.Errorf("%s: failed to render body: %w", d.relPath, err)
		}
		out = rendered
	}
	d.renderedBody = out
	d.bodyEvaluated = true
	return out, nil
}

// Evaluated reports the three evaluation flags: front matter, body, permalink.
func (d *Document) Evaluated() (frontMatter, body, permalink bool) {
	return d.frontMatterEvaluated, d.bodyEvaluated, d.permalinkEvaluated
}

// File is a tracked file that is not a document, such as a template partial.
type File struct {
	relPath string
}

// NewFile returns a Readable for relPath.
func NewFile(relPath string) *File {
	return &File{relPath: filepath.ToSlash(filepath.Clean(relPath))}
}

func (f *File) RelativePath() string { return f.relPath }

func (f *File) Extension() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(f.relPath), "."))
}
