package fs

import (
	"sort"
	"time"

	"github.com/aretw0/introspection"
)

// LoaderState exposes the loader configuration and watcher status.
type LoaderState struct {
	Root              string     `json:"root"`
	PageViews         []string   `json:"pageviews"`
	Collections       []Folder   `json:"collections,omitempty"`
	Datasets          []Folder   `json:"datasets,omitempty"`
	Data              []string   `json:"data,omitempty"`
	Exclude           []string   `json:"exclude,omitempty"`
	TemplateExtension string     `json:"template_extension"`
	Serializers       []string   `json:"serializers"`
	WatcherActive     bool       `json:"watcher_active"`
	LastLoad          *time.Time `json:"last_load,omitempty"`
}

// State implements introspection.Introspectable.
func (l *Loader) State() any {
	l.mu.RLock()
	defer l.mu.RUnlock()

	serializers := make([]string, 0, len(l.config.Serializers))
	for ext := range l.config.Serializers {
		serializers = append(serializers, ext)
	}
	sort.Strings(serializers)

	return LoaderState{
		Root:              l.config.Root,
		PageViews:         l.config.PageViews,
		Collections:       l.config.Collections,
		Datasets:          l.config.Datasets,
		Data:              l.config.Data,
		Exclude:           l.ignore.exclude,
		TemplateExtension: l.config.TemplateExtension,
		Serializers:       serializers,
		WatcherActive:     l.watcherActive,
		LastLoad:          l.lastLoad,
	}
}

// ComponentType implements introspection.Component.
func (l *Loader) ComponentType() string {
	return "loader"
}

var _ introspection.Introspectable = (*Loader)(nil)
var _ introspection.Component = (*Loader)(nil)

func (l *Loader) setWatcherActive(active bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.watcherActive = active
}

func (l *Loader) recordLoad() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.lastLoad = &now
}

// OutputState exposes the output folder and its manifest.
type OutputState struct {
	Path     string `json:"path"`
	Manifest string `json:"manifest"`
	Targets  int    `json:"targets"`
	Written  int    `json:"written"`
}

// State implements introspection.Introspectable.
func (o *OutputFolder) State() any {
	o.mu.Lock()
	written := len(o.written)
	o.mu.Unlock()

	return OutputState{
		Path:     o.Path,
		Manifest: o.manifest.Path,
		Targets:  o.manifest.Len(),
		Written:  written,
	}
}

// ComponentType implements introspection.Component.
func (o *OutputFolder) ComponentType() string {
	return "output"
}

var _ introspection.Introspectable = (*OutputFolder)(nil)
var _ introspection.Component = (*OutputFolder)(nil)
