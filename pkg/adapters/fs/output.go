package fs

import (
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PeterMedina/stakx/pkg/compiler"
)

// OutputFolder writes compiled files under a target directory and keeps a
// manifest of every file it produced.
type OutputFolder struct {
	Path     string
	logger   *slog.Logger
	manifest *manifest

	mu      sync.Mutex
	written map[string]bool
}

var _ compiler.Writer = (*OutputFolder)(nil)

// OutputConfig configures an OutputFolder.
type OutputConfig struct {
	// Root is the site root.
	Root string
	// Target is the output directory, relative to Root or absolute.
	Target string
	// SystemDir holds the manifest, relative to Root.
	SystemDir string
	Logger    *slog.Logger
}

// NewOutputFolder opens the output folder described by config and loads its
// manifest.
func NewOutputFolder(config OutputConfig) (*OutputFolder, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	target := config.Target
	if !filepath.IsAbs(target) {
		target = filepath.Join(config.Root, target)
	}

	o := &OutputFolder{
		Path:     target,
		logger:   config.Logger,
		manifest: newManifest(config.Root, config.SystemDir),
		written:  make(map[string]bool),
	}
	if err := o.manifest.Load(); err != nil {
		return nil, err
	}
	return o, nil
}

// Write stores content at target. target is a site relative output path such
// as `/blog/index.html`; it may not escape the output folder.
func (o *OutputFolder) Write(target, source string, content []byte) error {
	rel, err := cleanTarget(target)
	if err != nil {
		return err
	}

	full := filepath.Join(o.Path, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := writeFileAtomic(full, content, 0644); err != nil {
		return err
	}

	o.manifest.Set(rel, &manifestEntry{Source: source, Written: time.Now().UTC()})

	o.mu.Lock()
	o.written[rel] = true
	o.mu.Unlock()
	return nil
}

// Source returns the source file that last produced target.
func (o *OutputFolder) Source(target string) (string, bool) {
	rel, err := cleanTarget(target)
	if err != nil {
		return "", false
	}
	entry, ok := o.manifest.Get(rel)
	if !ok {
		return "", false
	}
	return entry.Source, true
}

// Targets lists every output file recorded in the manifest, sorted.
func (o *OutputFolder) Targets() []string {
	targets := make([]string, 0, o.manifest.Len())
	o.manifest.Range(func(target string, _ *manifestEntry) bool {
		targets = append(targets, target)
		return true
	})
	sort.Strings(targets)
	return targets
}

// Reset forgets which files were written since the folder was opened.
// Call it before a full build so Sweep knows what the build produced.
func (o *OutputFolder) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.written = make(map[string]bool)
}

// Sweep deletes the output files recorded by earlier builds that were not
// written since the last Reset, and returns their targets.
func (o *OutputFolder) Sweep() ([]string, error) {
	o.mu.Lock()
	keep := make(map[string]bool, len(o.written))
	for k := range o.written {
		keep[k] = true
	}
	o.mu.Unlock()

	stale := o.manifest.Prune(keep)
	sort.Strings(stale)
	for _, rel := range stale {
		full := filepath.Join(o.Path, filepath.FromSlash(rel))
		if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
			return stale, fmt.Errorf("failed to remove stale output %s: %w", rel, err)
		}
		o.logger.Debug("Removed stale output", "target", rel)
	}
	return stale, nil
}

// Save persists the manifest.
func (o *OutputFolder) Save() error {
	return o.manifest.Save()
}

func cleanTarget(target string) (string, error) {
	rel := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(target)), "/")
	if rel == "" || rel == "." {
		return "", fmt.Errorf("invalid output target %q", target)
	}
	return rel, nil
}
