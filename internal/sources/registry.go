package sources

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Source is one circular source type: a regulatory body whose notices live
// in the {key}_circulars / {key}_circular_analysis collection pair.
type Source struct {
	Key       string `yaml:"key" json:"key"`
	Name      string `yaml:"name" json:"name"`
	Regulator string `yaml:"regulator,omitempty" json:"regulator,omitempty"`
}

type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// Registry is the set of known source types. It is safe for concurrent use;
// the file watcher replaces its contents on reload.
type Registry struct {
	mu    sync.RWMutex
	byKey map[string]Source
	order []string
}

// Defaults returns the built-in source set used when no sources file exists.
func Defaults() []Source {
	return []Source{
		{Key: "rbi", Name: "RBI Circulars", Regulator: "central-bank"},
		{Key: "sebi", Name: "SEBI Circulars", Regulator: "securities-regulator"},
	}
}

// Load reads the registry from a YAML file, falling back to the built-in
// defaults when the file does not exist.
func Load(path string) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Source)}

	list, err := readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			r.replace(Defaults())
			return r, nil
		}
		return nil, err
	}

	r.replace(list)
	return r, nil
}

// Reload re-reads the file and swaps the registry contents. Keeps the old
// contents when the file is missing or malformed.
func (r *Registry) Reload(path string) error {
	list, err := readFile(path)
	if err != nil {
		return err
	}
	r.replace(list)
	return nil
}

func readFile(path string) ([]Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f sourcesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse sources file: %w", err)
	}
	if len(f.Sources) == 0 {
		return nil, fmt.Errorf("sources file %s defines no sources", path)
	}
	for _, s := range f.Sources {
		if s.Key == "" {
			return nil, fmt.Errorf("sources file %s contains a source without a key", path)
		}
	}
	return f.Sources, nil
}

func (r *Registry) replace(list []Source) {
	byKey := make(map[string]Source, len(list))
	order := make([]string, 0, len(list))
	for _, s := range list {
		if _, dup := byKey[s.Key]; dup {
			continue
		}
		byKey[s.Key] = s
		order = append(order, s.Key)
	}

	r.mu.Lock()
	r.byKey = byKey
	r.order = order
	r.mu.Unlock()
}

// Get returns the source for a key.
func (r *Registry) Get(key string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[key]
	return s, ok
}

// Keys returns the registered source keys in file order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// List returns all registered sources in file order.
func (r *Registry) List() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Source, 0, len(r.order))
	for _, k := range r.order {
		list = append(list, r.byKey[k])
	}
	return list
}
