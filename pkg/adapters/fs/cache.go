package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ManifestFile is the name of the output manifest inside the system directory.
const ManifestFile = "manifest.json"

// manifestEntry records who produced an output file and when.
type manifestEntry struct {
	Source  string    `json:"source"`
	Written time.Time `json:"written"`
}

// index is the persistent manifest state. Entries are keyed by the target
// path relative to the output folder.
type index struct {
	Version int                       `json:"version"`
	Entries map[string]*manifestEntry `json:"entries"`
	dirty   bool
	mu      sync.RWMutex
}

// manifest tracks every file written to the output folder.
type manifest struct {
	Path  string
	index *index
}

func newManifest(root, systemDir string) *manifest {
	return &manifest{
		Path: filepath.Join(root, systemDir, ManifestFile),
		index: &index{
			Version: 1,
			Entries: make(map[string]*manifestEntry),
		},
	}
}

// Load reads the manifest from disk. A missing or corrupted manifest yields an
// empty one.
func (m *manifest) Load() error {
	m.index.mu.Lock()
	defer m.index.mu.Unlock()

	data, err := os.ReadFile(m.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	if err := json.Unmarshal(data, m.index); err != nil || m.index.Entries == nil {
		m.index.Entries = make(map[string]*manifestEntry)
	}
	m.index.dirty = false
	return nil
}

// Save persists the manifest when it changed since the last Load or Save.
func (m *manifest) Save() error {
	m.index.mu.RLock()
	if !m.index.dirty {
		m.index.mu.RUnlock()
		return nil
	}
	data, err := json.MarshalIndent(m.index, "", "  ")
	m.index.mu.RUnlock()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.Path), 0755); err != nil {
		return err
	}
	if err := writeFileAtomic(m.Path, data, 0644); err != nil {
		return err
	}

	m.index.mu.Lock()
	m.index.dirty = false
	m.index.mu.Unlock()
	return nil
}

func (m *manifest) Get(target string) (*manifestEntry, bool) {
	m.index.mu.RLock()
	defer m.index.mu.RUnlock()
	entry, ok := m.index.Entries[target]
	return entry, ok
}

func (m *manifest) Set(target string, entry *manifestEntry) {
	m.index.mu.Lock()
	defer m.index.mu.Unlock()
	m.index.Entries[target] = entry
	m.index.dirty = true
}

func (m *manifest) Delete(target string) {
	m.index.mu.Lock()
	defer m.index.mu.Unlock()
	delete(m.index.Entries, target)
	m.index.dirty = true
}

// Prune removes the entries missing from keep and returns their targets.
func (m *manifest) Prune(keep map[string]bool) []string {
	m.index.mu.Lock()
	defer m.index.mu.Unlock()

	var pruned []string
	for target := range m.index.Entries {
		if !keep[target] {
			delete(m.index.Entries, target)
			pruned = append(pruned, target)
			m.index.dirty = true
		}
	}
	return pruned
}

// Range iterates over the entries until callback returns false.
func (m *manifest) Range(callback func(target string, entry *manifestEntry) bool) {
	m.index.mu.RLock()
	defer m.index.mu.RUnlock()
	for k, v := range m.index.Entries {
		if !callback(k, v) {
			break
		}
	}
}

func (m *manifest) Len() int {
	m.index.mu.RLock()
	defer m.index.mu.RUnlock()
	return len(m.index.Entries)
}
