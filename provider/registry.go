package provider

import (
	"sort"
	"sync"

	"github.com/kairei-project/kairei/kaireierr"
)

// Registry is a thread-safe, name-keyed store of Providers, grounded on the
// reference framework's RWMutex-guarded registry pattern.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]*Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: map[string]*Provider{}}
}

func (r *Registry) Register(p *Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.providers[p.name]; exists {
		return kaireierr.New(kaireierr.KindProvider, "register", "provider "+p.name+" already registered")
	}
	r.providers[p.name] = p
	return nil
}

func (r *Registry) Get(name string) (*Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// List returns every registered provider name, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
