package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PeterMedina/stakx/pkg/document"
)

// Role is the part a source file plays in the site.
type Role int

const (
	RoleIgnored Role = iota
	RolePageView
	RoleCollectionItem
	RoleDatasetItem
	RoleData
	RolePartial
)

func (r Role) String() string {
	switch r {
	case RolePageView:
		return "pageview"
	case RoleCollectionItem:
		return "collection-item"
	case RoleDatasetItem:
		return "dataset-item"
	case RoleData:
		return "data"
	case RolePartial:
		return "partial"
	}
	return "ignored"
}

// Folder binds a collection or dataset name to a folder relative to the site root.
type Folder struct {
	Name   string
	Folder string
}

// LoaderConfig describes where the pieces of a site live.
type LoaderConfig struct {
	Root        string
	PageViews   []string
	Collections []Folder
	Datasets    []Folder
	Data        []string
	// Ignore lists folders never read, such as the output and system folders.
	Ignore  []string
	Exclude []string
	// TemplateExtension marks template partials, without the dot.
	TemplateExtension string
	Markup            document.BodyRenderer
	Serializers       map[string]Serializer
	Logger            *slog.Logger
}

// Entry is a source file read by the Loader.
type Entry struct {
	Role Role
	// Group is the collection or dataset name for items.
	Group string
	File  document.Readable
}

// Inventory is everything a Loader found in the site tree.
type Inventory struct {
	// PageViews in walk order.
	PageViews   []document.PageView
	Collections map[string][]*document.ContentItem
	Datasets    map[string][]*document.DataItem
	// Data is keyed by relative path.
	Data     map[string]*document.DataItem
	Partials []*document.File
}

// Loader walks a site tree and reads its documents.
type Loader struct {
	config LoaderConfig
	opts   document.Options
	ignore *ignoreRules
	decode document.DecodeFunc
	logger *slog.Logger

	mu            sync.RWMutex
	watcherActive bool
	lastLoad      *time.Time
}

// NewLoader validates config and returns a Loader.
func NewLoader(config LoaderConfig) (*Loader, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Serializers == nil {
		config.Serializers = DefaultSerializers(false)
	}
	config.TemplateExtension = strings.TrimPrefix(config.TemplateExtension, ".")
	if config.TemplateExtension == "" {
		config.TemplateExtension = document.DefaultTemplateExtension
	}

	ignore, err := newIgnoreRules(config.Ignore, config.Exclude)
	if err != nil {
		return nil, err
	}

	clean := func(dirs []string) []string {
		out := make([]string, 0, len(dirs))
		for _, d := range dirs {
			if d = cleanRel(d); d != "" {
				out = append(out, d)
			}
		}
		return out
	}
	config.PageViews = clean(config.PageViews)
	config.Data = clean(config.Data)
	for i := range config.Collections {
		config.Collections[i].Folder = cleanRel(config.Collections[i].Folder)
	}
	for i := range config.Datasets {
		config.Datasets[i].Folder = cleanRel(config.Datasets[i].Folder)
	}

	return &Loader{
		config: config,
		opts:   document.Options{Root: config.Root, TemplateExtension: config.TemplateExtension},
		ignore: ignore,
		decode: DecodeWith(config.Serializers),
		logger: config.Logger,
	}, nil
}

// Ignored reports whether rel is never read.
func (l *Loader) Ignored(rel string) bool {
	return l.ignore.Match(rel)
}

// Role classifies rel by location. Collection and dataset folders take
// precedence over data and PageView folders.
func (l *Loader) Role(rel string) (Role, string) {
	rel = cleanRel(rel)
	if rel == "" || l.ignore.Match(rel) {
		return RoleIgnored, ""
	}
	ext := strings.TrimPrefix(path.Ext(rel), ".")

	for _, c := range l.config.Collections {
		if within(rel, c.Folder) {
			return RoleCollectionItem, c.Name
		}
	}
	for _, d := range l.config.Datasets {
		if within(rel, d.Folder) {
			if !IsDataFile(l.config.Serializers, ext) {
				return RoleIgnored, ""
			}
			return RoleDatasetItem, d.Name
		}
	}
	for _, d := range l.config.Data {
		if within(rel, d) {
			if !IsDataFile(l.config.Serializers, ext) {
				return RoleIgnored, ""
			}
			return RoleData, ""
		}
	}
	for _, d := range l.config.PageViews {
		if within(rel, d) {
			return RolePageView, ""
		}
	}
	if strings.EqualFold(ext, l.config.TemplateExtension) {
		return RolePartial, ""
	}
	return RoleIgnored, ""
}

// ReadFile reads the source file at rel according to its Role. Ignored paths
// yield an Entry with a nil File.
func (l *Loader) ReadFile(rel string) (Entry, error) {
	rel = cleanRel(rel)
	role, group := l.Role(rel)
	entry := Entry{Role: role, Group: group}

	var err error
	switch role {
	case RolePageView:
		entry.File, err = document.ReadPageView(rel, l.opts)
	case RoleCollectionItem:
		entry.File, err = document.ReadContentItem(rel, l.opts, l.config.Markup)
	case RoleDatasetItem, RoleData:
		entry.File, err = document.ReadDataItem(rel, l.opts, l.decode)
	case RolePartial:
		entry.File = document.NewFile(rel)
	}
	if err != nil {
		return Entry{Role: role, Group: group}, err
	}
	return entry, nil
}

// Load walks the site tree and reads every document. Unreadable documents are
// reported together in the returned error; the inventory still holds the rest.
func (l *Loader) Load(ctx context.Context) (*Inventory, error) {
	inv := &Inventory{
		Collections: make(map[string][]*document.ContentItem),
		Datasets:    make(map[string][]*document.DataItem),
		Data:        make(map[string]*document.DataItem),
	}

	var errs []error
	err := filepath.WalkDir(l.config.Root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(l.config.Root, p)
		if err != nil {
			return err
		}
		rel = cleanRel(rel)
		if rel == "" {
			return nil
		}

		if d.IsDir() {
			if l.ignore.Match(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		entry, err := l.ReadFile(rel)
		if err != nil {
			l.logger.Warn("Failed to read document", "path", rel, "error", err)
			errs = append(errs, err)
			return nil
		}
		inv.add(entry)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", l.config.Root, err)
	}

	if err := inv.attach(); err != nil {
		errs = append(errs, err)
	}

	l.recordLoad()
	l.logger.Debug("Site loaded",
		"pageviews", len(inv.PageViews),
		"collections", len(inv.Collections),
		"datasets", len(inv.Datasets),
		"data", len(inv.Data),
		"partials", len(inv.Partials))

	return inv, errors.Join(errs...)
}

func (inv *Inventory) add(entry Entry) {
	switch f := entry.File.(type) {
	case document.PageView:
		inv.PageViews = append(inv.PageViews, f)
	case *document.ContentItem:
		inv.Collections[entry.Group] = append(inv.Collections[entry.Group], f)
	case *document.DataItem:
		if entry.Role == RoleData {
			inv.Data[f.RelativePath()] = f
			return
		}
		inv.Datasets[entry.Group] = append(inv.Datasets[entry.Group], f)
	case *document.File:
		inv.Partials = append(inv.Partials, f)
	}
}

// attach hands every Dynamic PageView the items of its collection or dataset.
func (inv *Inventory) attach() error {
	var errs []error
	for _, pv := range inv.PageViews {
		dynamic, ok := pv.(*document.DynamicPageView)
		if !ok {
			continue
		}
		for _, item := range inv.Items(dynamic.Source(), dynamic.IsDataset()) {
			if err := dynamic.AddItem(item); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Items returns the members of a collection, or of a dataset when dataset is true.
func (inv *Inventory) Items(name string, dataset bool) []document.CollectableItem {
	var items []document.CollectableItem
	if dataset {
		for _, item := range inv.Datasets[name] {
			items = append(items, item)
		}
		return items
	}
	for _, item := range inv.Collections[name] {
		items = append(items, item)
	}
	return items
}

// DataNames maps every data file to its base name without extension.
func (inv *Inventory) DataNames() map[string]*document.DataItem {
	out := make(map[string]*document.DataItem, len(inv.Data))
	keys := make([]string, 0, len(inv.Data))
	for rel := range inv.Data {
		keys = append(keys, rel)
	}
	sort.Strings(keys)
	for _, rel := range keys {
		name := path.Base(rel)
		name = strings.TrimSuffix(name, path.Ext(name))
		if _, taken := out[name]; !taken {
			out[name] = inv.Data[rel]
		}
	}
	return out
}
