package platform

import (
	"github.com/aretw0/introspection"
)

// SiteState exposes the site and its components for observability.
type SiteState struct {
	Root      string   `json:"root"`
	Built     bool     `json:"built"`
	Drafts    bool     `json:"drafts"`
	PageViews []string `json:"pageviews"`
	// TemplateMapping maps internal template names to PageView paths.
	TemplateMapping map[string]string `json:"template_mapping,omitempty"`
	Loader          any               `json:"loader"`
	Tracker         any               `json:"tracker"`
	Output          any               `json:"output,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Site) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	pageViews := make([]string, 0)
	for _, pv := range s.compiler.PageViews() {
		pageViews = append(pageViews, pv.RelativePath())
	}

	state := SiteState{
		Root:            s.Root,
		Built:           s.built,
		Drafts:          s.opts.drafts,
		PageViews:       pageViews,
		TemplateMapping: s.compiler.TemplateMapping(),
		Loader:          s.loader.State(),
		Tracker:         s.tracker.State(),
	}
	if s.output != nil {
		state.Output = s.output.State()
	}
	return state
}

// ComponentType implements introspection.Component.
func (s *Site) ComponentType() string {
	return "site"
}

var _ introspection.Introspectable = (*Site)(nil)
var _ introspection.Component = (*Site)(nil)
