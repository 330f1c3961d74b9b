package platform

import (
	"log/slog"
	"sort"

	"github.com/PeterMedina/stakx/pkg/adapters/fs"
	"github.com/PeterMedina/stakx/pkg/core"
	"github.com/PeterMedina/stakx/pkg/document"
)

// globals is the builtin pre-render hook exposing site wide variables to
// every template: `site`, `collections`, `datasets`, `data` and `pages`.
// The values are computed once and reused until invalidated.
type globals struct {
	settings map[string]any
	drafts   bool
	logger   *slog.Logger

	inventory *fs.Inventory
	cache     map[string]any
}

func newGlobals(settings map[string]any, drafts bool, logger *slog.Logger) *globals {
	if settings == nil {
		settings = map[string]any{}
	}
	return &globals{settings: settings, drafts: drafts, logger: logger}
}

func (g *globals) reset(inv *fs.Inventory) {
	g.inventory = inv
	g.cache = nil
}

func (g *globals) invalidate() {
	g.cache = nil
}

// PreRender is a compiler.PreRenderFunc.
func (g *globals) PreRender(core.PageKind) map[string]any {
	if g.cache == nil {
		g.cache = g.build()
	}
	return g.cache
}

func (g *globals) build() map[string]any {
	vars := map[string]any{
		"site":        g.settings,
		"collections": map[string]any{},
		"datasets":    map[string]any{},
		"data":        map[string]any{},
		"pages":       []any{},
	}
	inv := g.inventory
	if inv == nil {
		return vars
	}

	collections := make(map[string]any, len(inv.Collections))
	for name := range inv.Collections {
		collections[name] = g.jails(inv.Items(name, false))
	}
	vars["collections"] = collections

	datasets := make(map[string]any, len(inv.Datasets))
	for name := range inv.Datasets {
		datasets[name] = g.jails(inv.Items(name, true))
	}
	vars["datasets"] = datasets

	data := make(map[string]any, len(inv.Data))
	for name, item := range inv.DataNames() {
		values, err := item.Data()
		if err != nil {
			g.logger.Warn("Skipping data file", "path", item.RelativePath(), "error", err)
			continue
		}
		data[name] = map[string]any(values)
	}
	vars["data"] = data

	pages := make([]any, 0, len(inv.PageViews))
	for _, pv := range inv.PageViews {
		static, ok := pv.(*document.StaticPageView)
		if !ok {
			continue
		}
		jail, err := static.Jail()
		if err != nil {
			g.logger.Warn("Skipping page", "path", pv.RelativePath(), "error", err)
			continue
		}
		pages = append(pages, map[string]any(jail))
	}
	vars["pages"] = pages

	return vars
}

// jails lists the template views of items sorted by path, leaving drafts out
// unless drafts are compiled.
func (g *globals) jails(items []document.CollectableItem) []any {
	sort.Slice(items, func(i, j int) bool {
		return items[i].RelativePath() < items[j].RelativePath()
	})

	out := make([]any, 0, len(items))
	for _, item := range items {
		if item.IsDraft() && !g.drafts {
			continue
		}
		jail, err := item.Jail()
		if err != nil {
			g.logger.Warn("Skipping item", "path", item.RelativePath(), "error", err)
			continue
		}
		out = append(out, map[string]any(jail))
	}
	return out
}
