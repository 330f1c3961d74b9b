package platform

import (
	"log/slog"
	"text/template"

	"github.com/PeterMedina/stakx/internal/config"
	"github.com/PeterMedina/stakx/pkg/compiler"
	"github.com/PeterMedina/stakx/pkg/metrics"
)

// options holds the internal configuration of a Site.
type options struct {
	logger   *slog.Logger
	recorder metrics.Recorder
	config   *config.Config
	writer   compiler.Writer
	drafts   bool
	strict   bool
	target   string
	funcs    template.FuncMap
	hooks    compiler.Hooks
}

// Option defines a functional option for configuring a Site.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		recorder: metrics.NoopRecorder{},
		funcs:    make(template.FuncMap),
	}
}

// WithLogger sets the logger used by every component of the site.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDrafts compiles collection items marked `draft: true`.
func WithDrafts(enabled bool) Option {
	return func(o *options) {
		o.drafts = enabled
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(o *options) {
		if rec != nil {
			o.recorder = rec
		}
	}
}

// WithConfig uses cfg instead of reading `_config.yml`.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithTarget overrides the output folder of the configuration.
func WithTarget(dir string) Option {
	return func(o *options) {
		o.target = dir
	}
}

// WithStrict keeps numbers of data files as json.Number.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// WithWriter sends compiled output to w instead of the output folder. The
// output manifest is left untouched.
func WithWriter(w compiler.Writer) Option {
	return func(o *options) {
		o.writer = w
	}
}

// WithTemplateFuncs adds functions available to every template.
func WithTemplateFuncs(funcs template.FuncMap) Option {
	return func(o *options) {
		for k, v := range funcs {
			o.funcs[k] = v
		}
	}
}

// WithPreRender appends a hook contributing template variables. Hooks run
// after the builtin site globals, so they may override them, but never `this`.
func WithPreRender(fn compiler.PreRenderFunc) Option {
	return func(o *options) {
		o.hooks.PreRender = append(o.hooks.PreRender, fn)
	}
}

// WithPostRender appends a hook transforming rendered output.
func WithPostRender(fn compiler.PostRenderFunc) Option {
	return func(o *options) {
		o.hooks.PostRender = append(o.hooks.PostRender, fn)
	}
}
