// Package memory implements an on-disk translation memory. It maps the MD5
// digest of a source text to its translation, per target language, so that
// re-running a translation only sends new or changed units to the API.
//
// The cache file is YAML and lives wherever the caller puts it, typically
// next to the presentation being translated.
package memory

import (
	"crypto/md5"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// FileName is the default cache file name.
const FileName = ".translaitor-cache.yaml"

// Version is the cache file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// Memory is a translation memory loaded from a cache file.
type Memory struct {
	Version int                          `yaml:"version"`
	Entries map[string]map[string]string `yaml:"entries"` // lang -> md5(source) -> translation

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a translation memory from path.
// Returns an empty memory if the file doesn't exist.
func Load(path string) (*Memory, error) {
	m := &Memory{
		Version: Version,
		Entries: make(map[string]map[string]string),
		path:    path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	m.path = path

	if m.Entries == nil {
		m.Entries = make(map[string]map[string]string)
	}

	return m, nil
}

// Save writes the memory back to its file.
func (m *Memory) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.path == "" {
		return fmt.Errorf("cache file path not set")
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshaling cache: %w", err)
	}

	if err := os.WriteFile(m.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", m.path, err)
	}

	return nil
}

// Path returns the cache file path.
func (m *Memory) Path() string {
	return m.path
}

// ---------------------------------------------------------------------------
// Lookup and record
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a source text.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// Lookup returns the stored translation of source into lang, if any.
func (m *Memory) Lookup(lang, source string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, ok := m.Entries[lang]
	if !ok {
		return "", false
	}
	translation, ok := entries[Hash(source)]
	return translation, ok
}

// Record stores the translation of source into lang (upsert).
func (m *Memory) Record(lang, source, translation string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Entries[lang] == nil {
		m.Entries[lang] = make(map[string]string)
	}
	m.Entries[lang][Hash(source)] = translation
}

// RemoveLang drops all entries for a target language.
func (m *Memory) RemoveLang(lang string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Entries, lang)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of languages and total entries in the memory.
func (m *Memory) Stats() (langs, entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	langs = len(m.Entries)
	for _, e := range m.Entries {
		entries += len(e)
	}
	return
}

// Langs returns the sorted list of target languages in the memory.
func (m *Memory) Langs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	langs := make([]string, 0, len(m.Entries))
	for l := range m.Entries {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	return langs
}

// Summary returns a human-readable summary string.
func (m *Memory) Summary() string {
	langs, entries := m.Stats()
	if langs == 0 {
		return "empty"
	}

	var parts []string
	for _, l := range m.Langs() {
		parts = append(parts, fmt.Sprintf("%s: %d", l, len(m.Entries[l])))
	}
	return fmt.Sprintf("%d languages, %d entries (%s)", langs, entries, strings.Join(parts, ", "))
}
