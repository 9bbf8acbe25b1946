// Package profile provides the built-in environment profiles and keyword based detection
package profile

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/runnerguard/runnerguard/internal/models"
	"gopkg.in/yaml.v3"
)

// Default is used when nothing selects a profile
const Default = "development"

// ErrUnknownProfile is returned for ids not in the embedded set
var ErrUnknownProfile = errors.New("unknown profile")

//go:embed profiles/*.yaml
var profileFS embed.FS

// Profile is one environment bundle: per-category enforcement plus numeric parameters
type Profile struct {
	Name        string                                     `yaml:"name"`
	Description string                                     `yaml:"description"`
	Enforcement map[models.Category]models.EnforcementMode `yaml:"enforcement"`
	Parameters  map[string]float64                         `yaml:"parameters"`
}

var (
	loadOnce sync.Once
	loaded   map[string]*Profile
	loadErr  error
)

func load() (map[string]*Profile, error) {
	loadOnce.Do(func() {
		loaded, loadErr = parseAll(profileFS)
	})
	return loaded, loadErr
}

func parseAll(fsys fs.FS) (map[string]*Profile, error) {
	entries, err := fs.Glob(fsys, "profiles/*.yaml")
	if err != nil {
		return nil, err
	}
	out := make(map[string]*Profile, len(entries))
	for _, file := range entries {
		data, err := fs.ReadFile(fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read profile %s: %w", file, err)
		}
		var p Profile
		if err := yaml.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("failed to parse profile %s: %w", file, err)
		}
		if p.Name == "" {
			p.Name = strings.TrimSuffix(path.Base(file), ".yaml")
		}
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("profile %s: %w", p.Name, err)
		}
		out[p.Name] = &p
	}
	return out, nil
}

func (p *Profile) validate() error {
	for cat, mode := range p.Enforcement {
		if !cat.Valid() {
			return &models.EnumError{Kind: "category", Value: string(cat)}
		}
		if !mode.Valid() {
			return &models.EnumError{Kind: "enforcement", Value: string(mode)}
		}
	}
	return nil
}

// Get returns a copy of the named profile
func Get(name string) (*Profile, error) {
	all, err := load()
	if err != nil {
		return nil, err
	}
	p, ok := all[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
	return p.clone(), nil
}

// MustGet returns a profile or panics (for tests)
func MustGet(name string) *Profile {
	p, err := Get(name)
	if err != nil {
		panic(err)
	}
	return p
}

// Names returns the sorted profile ids
func Names() []string {
	all, err := load()
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns every profile sorted by name
func List() []*Profile {
	names := Names()
	out := make([]*Profile, 0, len(names))
	for _, name := range names {
		if p, err := Get(name); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// Parameter looks up a numeric parameter
func (p *Profile) Parameter(key string) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v, ok := p.Parameters[key]
	return v, ok
}

func (p *Profile) clone() *Profile {
	c := &Profile{
		Name:        p.Name,
		Description: p.Description,
		Enforcement: make(map[models.Category]models.EnforcementMode, len(p.Enforcement)),
		Parameters:  make(map[string]float64, len(p.Parameters)),
	}
	for k, v := range p.Enforcement {
		c.Enforcement[k] = v
	}
	for k, v := range p.Parameters {
		c.Parameters[k] = v
	}
	return c
}
