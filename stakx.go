package stakx

import (
	"log/slog"
	"text/template"

	"github.com/PeterMedina/stakx/internal/config"
	"github.com/PeterMedina/stakx/internal/platform"
	"github.com/PeterMedina/stakx/pkg/compiler"
	"github.com/PeterMedina/stakx/pkg/metrics"
)

// --- Types ---

// Site is a public alias for a compiled site.
type Site = platform.Site

// SiteState is the introspection snapshot of a Site.
type SiteState = platform.SiteState

// Config is a public alias for the site configuration.
type Config = config.Config

// --- Configuration ---

// Option defines a functional option for configuring a Site.
type Option = platform.Option

// WithLogger sets the logger for the site.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithDrafts compiles collection items marked as drafts.
func WithDrafts(enabled bool) Option {
	return platform.WithDrafts(enabled)
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return platform.WithRecorder(rec)
}

// WithConfig uses cfg instead of reading `_config.yml`.
func WithConfig(cfg *Config) Option {
	return platform.WithConfig(cfg)
}

// WithTarget overrides the output folder.
func WithTarget(dir string) Option {
	return platform.WithTarget(dir)
}

// WithStrict keeps numbers of data files as json.Number.
func WithStrict(strict bool) Option {
	return platform.WithStrict(strict)
}

// WithWriter sends compiled output somewhere other than the output folder.
func WithWriter(w compiler.Writer) Option {
	return platform.WithWriter(w)
}

// WithTemplateFuncs adds functions available to every template.
func WithTemplateFuncs(funcs template.FuncMap) Option {
	return platform.WithTemplateFuncs(funcs)
}

// WithPreRender appends a hook contributing template variables.
func WithPreRender(fn compiler.PreRenderFunc) Option {
	return platform.WithPreRender(fn)
}

// WithPostRender appends a hook transforming rendered output.
func WithPostRender(fn compiler.PostRenderFunc) Option {
	return platform.WithPostRender(fn)
}

// --- Factory ---

// New creates a Site rooted at path.
func New(path string, opts ...Option) (*Site, error) {
	return platform.New(path, opts...)
}

// LoadConfig reads `_config.yml` under root.
func LoadConfig(root string) (*Config, error) {
	return config.Load(root)
}

// FindSiteRoot recursively looks upwards for a directory holding `_config.yml`.
func FindSiteRoot(startDir string) (string, error) {
	return platform.FindRoot(startDir)
}

// ErrRootNotFound is returned by FindSiteRoot when no site root exists.
var ErrRootNotFound = platform.ErrRootNotFound
