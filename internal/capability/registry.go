package capability

import (
	"fmt"
	"sort"
	"strings"
)

const (
	WebSearchName      = "web_search"
	MetaAdsLibraryName = "meta_ads_library"
)

// Registry maps tool names used in actor definitions to capabilities.
type Registry struct {
	caps map[string]Capability
}

func NewRegistry() *Registry {
	return &Registry{caps: map[string]Capability{}}
}

// Register adds c under its own name. Registering a name twice is an error.
func (r *Registry) Register(c Capability) error {
	if c == nil {
		return fmt.Errorf("register: nil capability")
	}
	name := c.Name()
	if _, ok := r.caps[name]; ok {
		return fmt.Errorf("register: capability %q already registered", name)
	}
	r.caps[name] = c
	return nil
}

func (r *Registry) Get(name string) (Capability, bool) {
	c, ok := r.caps[name]
	return c, ok
}

// Resolve returns the capabilities for names in order.
func (r *Registry) Resolve(names []string) ([]Capability, error) {
	out := make([]Capability, 0, len(names))
	var missing []string
	for _, n := range names {
		c, ok := r.caps[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		out = append(out, c)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unknown tools: %s (available: %s)",
			strings.Join(missing, ", "), strings.Join(r.Names(), ", "))
	}
	return out, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.caps))
	for n := range r.caps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MetaAdsLibrary is the mocked ad-library lookup used by the bundled crew.
func MetaAdsLibrary() *MockedLibrarySearch {
	return NewMockedLibrarySearch(MetaAdsLibraryName, "Meta Ads Library",
		"Searches the Meta Ads Library for long-running successful ads")
}
