package words

import (
	"embed"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"
)

//go:embed words.en.yaml
var defaultFiles embed.FS

// Catalog maps category names to their candidate word lists. Defaults are
// embedded; an optional override directory layers extra YAML files on top
// (later keys replace earlier ones, duplicate keys across override files
// are rejected).
type Catalog struct {
	mu   sync.RWMutex
	data map[string][]string
}

// New loads the embedded default word lists and then applies overrides
// from dir if provided.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{data: make(map[string][]string)}
	raw, err := fs.ReadFile(defaultFiles, "words.en.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded words: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyYAML(b []byte) error {
	var m map[string][]string
	if err := yaml.Unmarshal(b, &m); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range m {
		name := strings.TrimSpace(k)
		if name == "" || len(v) == 0 {
			return fmt.Errorf("category %q has no words", k)
		}
		words := make([]string, 0, len(v))
		for _, w := range v {
			if s := strings.TrimSpace(w); s != "" {
				words = append(words, s)
			}
		}
		if len(words) == 0 {
			return fmt.Errorf("category %q has no words", k)
		}
		c.data[name] = words
	}
	return nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read words dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	seen := make(map[string]string) // category -> filename
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		var m map[string][]string
		if err := yaml.Unmarshal(b, &m); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		for k := range m {
			if prev, ok := seen[k]; ok {
				return fmt.Errorf("duplicate category %q in %s and %s", k, prev, name)
			}
			seen[k] = name
		}
		raw, err := yaml.Marshal(m)
		if err != nil {
			return err
		}
		if err := c.applyYAML(raw); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

// Categories returns the known category names, sorted.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.data))
	for k := range c.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// PickCategory returns the word list for a category, or false when the
// category is unknown. The returned slice is a copy.
func (c *Catalog) PickCategory(name string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	list, ok := c.data[strings.TrimSpace(name)]
	if !ok {
		return nil, false
	}
	return append([]string(nil), list...), true
}

// RandomWord draws one word uniformly from the category list.
func (c *Catalog) RandomWord(name string) (string, bool) {
	list, ok := c.PickCategory(name)
	if !ok || len(list) == 0 {
		return "", false
	}
	return list[rand.Intn(len(list))], true
}
