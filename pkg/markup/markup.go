// Package markup converts Markdown bodies to HTML.
package markup

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Markdown renders GitHub flavoured Markdown. It is safe for concurrent use.
type Markdown struct {
	md goldmark.Markdown
}

// Option configures the Markdown renderer.
type Option func(*config)

type config struct {
	hardWraps bool
	unsafe    bool
}

// WithHardWraps renders single newlines as <br>.
func WithHardWraps() Option {
	return func(c *config) { c.hardWraps = true }
}

// WithUnsafeHTML keeps raw HTML embedded in the Markdown source.
func WithUnsafeHTML() Option {
	return func(c *config) { c.unsafe = true }
}

// New creates a Markdown renderer with GFM and automatic heading ids.
func New(opts ...Option) *Markdown {
	var c config
	for _, opt := range opts {
		opt(&c)
	}

	var htmlOpts []renderer.Option
	if c.hardWraps {
		htmlOpts = append(htmlOpts, gmhtml.WithHardWraps())
	}
	if c.unsafe {
		htmlOpts = append(htmlOpts, gmhtml.WithUnsafe())
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(htmlOpts...),
	)

	return &Markdown{md: md}
}

// Render converts source to HTML.
func (m *Markdown) Render(source string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
