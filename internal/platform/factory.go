package platform

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/PeterMedina/stakx/internal/config"
	"github.com/PeterMedina/stakx/pkg/adapters/fs"
	"github.com/PeterMedina/stakx/pkg/markup"
	"github.com/PeterMedina/stakx/pkg/templating/gotmpl"
)

// New wires a Site rooted at root.
//
//	site, err := platform.New("./my-site", platform.WithDrafts(true))
//	err = site.Build(ctx)
func New(root string, opts ...Option) (*Site, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	cfg := o.config
	if cfg == nil {
		cfg, err = config.Load(abs)
		if err != nil {
			return nil, err
		}
	}

	target := cfg.Target
	if o.target != "" {
		target = o.target
	}

	loader, err := fs.NewLoader(fs.LoaderConfig{
		Root:              abs,
		PageViews:         cfg.PageViews,
		Collections:       folders(cfg.Collections),
		Datasets:          folders(cfg.Datasets),
		Data:              cfg.Data,
		Ignore:            []string{ignoredTarget(abs, target), cfg.SystemDir},
		Exclude:           cfg.Exclude,
		TemplateExtension: cfg.TemplateExtension,
		Markup:            markup.New(),
		Serializers:       fs.DefaultSerializers(o.strict || cfg.Strict),
		Logger:            o.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure loader: %w", err)
	}

	writer := o.writer
	var output *fs.OutputFolder
	if writer == nil {
		output, err = fs.NewOutputFolder(fs.OutputConfig{
			Root:      abs,
			Target:    target,
			SystemDir: cfg.SystemDir,
			Logger:    o.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open output folder: %w", err)
		}
		writer = output
	}

	var redirectTemplate string
	if cfg.RedirectTemplate != "" {
		raw, err := os.ReadFile(filepath.Join(abs, filepath.FromSlash(cfg.RedirectTemplate)))
		if err != nil {
			return nil, fmt.Errorf("failed to read redirect template: %w", err)
		}
		redirectTemplate = string(raw)
	}

	s := &Site{
		Root:             abs,
		config:           cfg,
		opts:             o,
		logger:           o.logger,
		loader:           loader,
		output:           output,
		writer:           writer,
		engine:           gotmpl.New(abs, gotmpl.WithLayoutsDir(cfg.Layouts), gotmpl.WithFuncs(o.funcs)),
		redirectTemplate: redirectTemplate,
		globals:          newGlobals(cfg.Settings, o.drafts, o.logger),
	}
	s.newPipeline()
	return s, nil
}

func folders(sources []config.Source) []fs.Folder {
	out := make([]fs.Folder, 0, len(sources))
	for _, s := range sources {
		out = append(out, fs.Folder{Name: s.Name, Folder: s.Folder})
	}
	return out
}

// ignoredTarget expresses the output folder relative to root so the loader
// skips it. An output folder outside root needs no rule.
func ignoredTarget(root, target string) string {
	if !filepath.IsAbs(target) {
		return target
	}
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return rel
}
