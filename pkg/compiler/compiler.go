// Package compiler renders PageViews through a template bridge and writes the
// results, dispatching on the PageView variant.
package compiler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/document"
	"github.com/PeterMedina/stakx/pkg/frontmatter"
	"github.com/PeterMedina/stakx/pkg/metrics"
	"github.com/PeterMedina/stakx/pkg/templating"
)

// DefaultRedirectTemplate is the page written at every redirect permalink when
// no redirect template is configured.
const DefaultRedirectTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Redirecting&hellip;</title>
<link rel="canonical" href="{{ .this.redirect_to }}">
<meta http-equiv="refresh" content="0; url={{ .this.redirect_to }}">
<meta name="robots" content="noindex">
</head>
<body>
<a href="{{ .this.redirect_to }}">Click here if you are not redirected.</a>
</body>
</html>
`

// Writer persists compiled output.
type Writer interface {
	// Write stores content at target, relative to the output folder. source is
	// the relative path of the file that produced it.
	Write(target, source string, content []byte) error
}

// DependencyRecorder receives the template relations discovered while
// templates are built.
type DependencyRecorder interface {
	RegisterTemplateInclude(partial, includer string)
	RegisterTemplateExtend(parent, child string)
}

// PreRenderFunc contributes extra template variables for a render. The
// returned keys never shadow `this`.
type PreRenderFunc func(kind core.PageKind) map[string]any

// PostRenderFunc transforms rendered output before it is written.
type PostRenderFunc func(kind core.PageKind, output string) string

// Hooks are invoked in order around every render.
type Hooks struct {
	PreRender  []PreRenderFunc
	PostRender []PostRenderFunc
}

// Options configure a Compiler.
type Options struct {
	// Drafts compiles collection items marked as drafts.
	Drafts bool
	// TemplateExtension is the template file extension, without the dot.
	TemplateExtension string
	// RedirectTemplate is the template body of redirect pages.
	RedirectTemplate string
	Dependencies     DependencyRecorder
	Hooks            Hooks
	Logger           *slog.Logger
	Recorder         metrics.Recorder
}

// Compiler renders registered PageViews. It is not safe for concurrent use;
// callers serialize compilations.
type Compiler struct {
	bridge templating.Bridge
	writer Writer
	opts   Options
	logger *slog.Logger
	rec    metrics.Recorder

	pageViews       []document.PageView
	templateMapping map[string]string
	redirect        templating.Template
}

// New creates a Compiler.
func New(bridge templating.Bridge, writer Writer, opts Options) *Compiler {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Recorder == nil {
		opts.Recorder = metrics.NoopRecorder{}
	}
	if opts.TemplateExtension == "" {
		opts.TemplateExtension = document.DefaultTemplateExtension
	}
	if opts.RedirectTemplate == "" {
		opts.RedirectTemplate = DefaultRedirectTemplate
	}
	return &Compiler{
		bridge:          bridge,
		writer:          writer,
		opts:            opts,
		logger:          opts.Logger,
		rec:             opts.Recorder,
		templateMapping: make(map[string]string),
	}
}

// AddPageView registers pv for compilation. A PageView with the same relative
// path replaces the registered one in place.
func (c *Compiler) AddPageView(pv document.PageView) {
	for i, existing := range c.pageViews {
		if existing.RelativePath() == pv.RelativePath() {
			c.pageViews[i] = pv
			return
		}
	}
	c.pageViews = append(c.pageViews, pv)
}

// PageViews returns the registered PageViews in registration order.
func (c *Compiler) PageViews() []document.PageView {
	return append([]document.PageView(nil), c.pageViews...)
}

// PageView returns the registered PageView at relPath.
func (c *Compiler) PageView(relPath string) (document.PageView, bool) {
	for _, pv := range c.pageViews {
		if pv.RelativePath() == relPath {
			return pv, true
		}
	}
	return nil, false
}

// TemplateMapping returns the internal template names created so far, mapped
// to the relative path of the PageView they were built from.
func (c *Compiler) TemplateMapping() map[string]string {
	out := make(map[string]string, len(c.templateMapping))
	for k, v := range c.templateMapping {
		out[k] = v
	}
	return out
}

// CompileAll compiles every registered PageView in registration order. A
// failing PageView does not stop the others; all failures are returned joined.
func (c *Compiler) CompileAll() error {
	var errs []error
	for _, pv := range c.pageViews {
		if err := c.CompilePageView(pv); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CompilePageView renders pv and writes every output it produces.
func (c *Compiler) CompilePageView(pv document.PageView) error {
	start := time.Now()
	kind := pv.Kind()
	c.logger.Debug("Compiling PageView", "path", pv.RelativePath(), "kind", kind.String())

	var err error
	switch v := pv.(type) {
	case *document.StaticPageView:
		err = c.compileStatic(v)
	case *document.DynamicPageView:
		err = c.compileDynamic(v)
	case *document.RepeaterPageView:
		err = c.compileRepeater(v)
	default:
		err = fmt.Errorf("unsupported PageView %T", pv)
	}

	c.rec.ObserveCompileDuration(kind.String(), time.Since(start))
	if err != nil {
		c.rec.IncRenderFailure(kind.String())
	}
	return err
}

// RecompilePageView re-reads the tracked PageView at relPath and compiles it.
func (c *Compiler) RecompilePageView(relPath string) error {
	pv, ok := c.PageView(relPath)
	if !ok {
		return &core.UntrackedPathError{Path: relPath}
	}
	if err := pv.Refresh(); err != nil {
		return err
	}
	return c.CompilePageView(pv)
}

// RecompileCollectableItem re-reads the item at relPath and compiles it with
// the first Dynamic PageView owning it. It reports false when no PageView owns
// the item.
func (c *Compiler) RecompileCollectableItem(relPath string) (bool, error) {
	for _, pv := range c.pageViews {
		dynamic, ok := pv.(*document.DynamicPageView)
		if !ok {
			continue
		}
		if _, ok := dynamic.Item(relPath); !ok {
			continue
		}

		item, err := dynamic.RefreshItem(relPath)
		if err != nil {
			return true, err
		}
		tmpl, err := c.createTemplate(dynamic)
		if err != nil {
			return true, err
		}
		return true, c.compileItem(dynamic, tmpl, item)
	}
	return false, nil
}

func (c *Compiler) compileStatic(pv *document.StaticPageView) error {
	tmpl, err := c.createTemplate(pv)
	if err != nil {
		return err
	}

	jail, err := pv.Jail()
	if err != nil {
		return err
	}
	if err := c.renderAndWrite(pv, pv, tmpl, jail); err != nil {
		return err
	}
	c.rec.IncPagesWritten(pv.Kind().String())

	permalink, err := pv.Permalink()
	if err != nil {
		return err
	}
	redirects, err := pv.Redirects()
	if err != nil {
		return err
	}
	for _, from := range redirects {
		if err := c.compileRedirect(from, permalink); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileDynamic(pv *document.DynamicPageView) error {
	tmpl, err := c.createTemplate(pv)
	if err != nil {
		return err
	}
	for _, item := range pv.Items() {
		if err := c.compileItem(pv, tmpl, item); err != nil {
			return err
		}
	}
	return c.compilePageRedirects(pv)
}

// compilePageRedirects writes the redirects declared by a Dynamic PageView
// itself. They point at the page permalink, so a permalink that is a pattern
// over item variables leaves them without a destination.
func (c *Compiler) compilePageRedirects(pv *document.DynamicPageView) error {
	fm, err := pv.EvaluateFrontMatter(nil)
	if err != nil {
		return err
	}
	if len(fm.Strings("redirects")) == 0 {
		return nil
	}
	if len(frontmatter.References(pv.PermalinkPattern())) > 0 {
		c.logger.Warn("Skipping redirects of a PageView whose permalink is a pattern", "path", pv.RelativePath())
		return nil
	}

	permalink, err := pv.Permalink()
	if err != nil {
		return err
	}
	redirects, err := pv.Redirects()
	if err != nil {
		return err
	}
	for _, from := range redirects {
		if err := c.compileRedirect(from, permalink); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileItem(pv *document.DynamicPageView, tmpl templating.Template, item document.CollectableItem) error {
	if item.IsDraft() && !c.opts.Drafts {
		c.logger.Debug("Skipping draft", "path", item.RelativePath())
		c.rec.IncDraftsSkipped()
		return nil
	}

	jail, err := item.Jail()
	if err != nil {
		return err
	}
	if err := c.renderAndWrite(pv, item, tmpl, jail); err != nil {
		return err
	}
	c.rec.IncPagesWritten(pv.Kind().String())

	permalink, err := item.Permalink()
	if err != nil {
		return err
	}
	redirects, err := item.Redirects()
	if err != nil {
		return err
	}
	for _, from := range redirects {
		if err := c.compileRedirect(from, permalink); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) compileRepeater(pv *document.RepeaterPageView) error {
	pv.RewindPermalink()

	tmpl, err := c.createTemplate(pv)
	if err != nil {
		return err
	}

	for {
		if _, ok := pv.BumpPermalink(); !ok {
			break
		}
		jail, err := pv.Jail()
		if err != nil {
			return err
		}
		if err := c.renderAndWrite(pv, pv, tmpl, jail); err != nil {
			return err
		}
		c.rec.IncPagesWritten(pv.Kind().String())
	}

	permalinks := pv.RepeaterPermalinks()
	for _, group := range pv.RepeaterRedirects() {
		for i, from := range group {
			if err := c.compileRedirect(from.Evaluated, permalinks[i].Evaluated); err != nil {
				return err
			}
		}
	}
	return nil
}

// target is anything producing an output file: a PageView or a collection item.
type target interface {
	RelativePath() string
	TargetFile() (string, error)
}

func (c *Compiler) renderAndWrite(pv document.PageView, t target, tmpl templating.Template, this document.Jail) error {
	out, err := c.render(pv, tmpl, this)
	if err != nil {
		return err
	}

	file, err := t.TargetFile()
	if err != nil {
		return err
	}
	c.logger.Info("Writing file", "target", file, "path", t.RelativePath())
	if err := c.writer.Write(file, t.RelativePath(), []byte(out)); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	return nil
}

// render runs the pre-render hooks, renders tmpl with `this` bound to the
// jailed view and runs the post-render hooks over the output.
func (c *Compiler) render(pv document.PageView, tmpl templating.Template, this document.Jail) (string, error) {
	kind := pv.Kind()

	context := map[string]any{}
	for _, hook := range c.opts.Hooks.PreRender {
		for k, v := range hook(kind) {
			context[k] = v
		}
	}
	context["this"] = map[string]any(this)

	out, err := tmpl.Render(context)
	if err != nil {
		return "", c.wrapError(pv, err)
	}

	for _, hook := range c.opts.Hooks.PostRender {
		out = hook(kind, out)
	}
	return out, nil
}

// createTemplate builds the template of pv, records the internal name mapping
// and forwards the discovered partial relations.
func (c *Compiler) createTemplate(pv document.PageView) (templating.Template, error) {
	tmpl, err := c.bridge.CreateTemplate(pv.Content())
	if err != nil {
		return nil, c.wrapError(pv, err)
	}

	c.templateMapping[tmpl.Name()] = pv.RelativePath()

	if c.opts.Dependencies != nil {
		for _, dep := range tmpl.Dependencies() {
			dependent := dep.Template
			if source, ok := c.templateMapping[dependent]; ok {
				dependent = source
			}
			switch dep.Kind {
			case templating.Extend:
				c.opts.Dependencies.RegisterTemplateExtend(dep.Partial, dependent)
			default:
				c.opts.Dependencies.RegisterTemplateInclude(dep.Partial, dependent)
			}
		}
	}
	return tmpl, nil
}

// wrapError expresses a template failure in terms of the page source file:
// line numbers in the page body are offset by the front matter block. Failures
// inside a partial keep the partial location in the wrapped error only.
func (c *Compiler) wrapError(pv document.PageView, err error) error {
	wrapped := &core.TemplateRenderError{Path: pv.RelativePath(), Err: err}

	var tmplErr *templating.Error
	if errors.As(err, &tmplErr) && tmplErr.InBody() && tmplErr.Line > 0 {
		wrapped.Line = tmplErr.Line + pv.LineOffset()
	}
	return wrapped
}

func (c *Compiler) compileRedirect(from, to string) error {
	redirect := document.NewRedirect(from, to, c.opts.RedirectTemplate, c.opts.TemplateExtension)

	if c.redirect == nil {
		tmpl, err := c.bridge.CreateTemplate(c.opts.RedirectTemplate)
		if err != nil {
			return fmt.Errorf("failed to build redirect template: %w", err)
		}
		c.redirect = tmpl
	}

	jail, err := redirect.Jail()
	if err != nil {
		return err
	}
	if err := c.renderAndWrite(redirect, redirect, c.redirect, jail); err != nil {
		return err
	}
	c.rec.IncRedirectsWritten()
	return nil
}
