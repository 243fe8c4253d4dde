package registry

import (
	"errors"
	"fmt"

	"github.com/snow-ghost/codeassist/core"
)

// Well-known registry keys.
const (
	KeyCodeGenerator = "code_generator"
	KeyBugFixer      = "bug_fixer"
	KeyCodeExplainer = "code_explainer"
	KeyMemory        = "memory"
	KeyRouter        = "router"
)

var (
	// ErrDuplicateKey is returned when two entries share a key.
	ErrDuplicateKey = errors.New("duplicate registry key")
	// ErrDuplicateName is returned when two providers share a name.
	ErrDuplicateName = errors.New("duplicate provider name")
	// ErrReservedKey is returned when a plain entry uses the router key.
	ErrReservedKey = errors.New("registry key is reserved for the router")
	// ErrRouterSet is returned when WithRouter is called twice.
	ErrRouterSet = errors.New("router already registered")
)

// Entry is one named provider slot.
type Entry struct {
	Key      string
	Provider core.Provider
}

// Registry is the ordered set of routable providers plus the router itself.
// Order is the tie-break order for equal scores. The router entry lives apart
// so rankings can never see it.
type Registry struct {
	entries []Entry
	router  *Entry
}

// New builds a registry in the given order.
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{}
	for _, e := range entries {
		if err := r.add(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(e Entry) error {
	if e.Key == "" || e.Provider == nil {
		return fmt.Errorf("invalid registry entry %q", e.Key)
	}
	if e.Key == KeyRouter {
		return ErrReservedKey
	}
	for _, existing := range r.entries {
		if existing.Key == e.Key {
			return fmt.Errorf("%w: %s", ErrDuplicateKey, e.Key)
		}
		if existing.Provider.Name() == e.Provider.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateName, e.Provider.Name())
		}
	}
	r.entries = append(r.entries, e)
	return nil
}

// WithRouter completes the second construction phase.
func (r *Registry) WithRouter(p core.Provider) error {
	if p == nil {
		return fmt.Errorf("invalid registry entry %q", KeyRouter)
	}
	if r.router != nil {
		return ErrRouterSet
	}
	for _, existing := range r.entries {
		if existing.Provider.Name() == p.Name() {
			return fmt.Errorf("%w: %s", ErrDuplicateName, p.Name())
		}
	}
	r.router = &Entry{Key: KeyRouter, Provider: p}
	return nil
}

// Providers returns the rankable entries in registration order. Never includes the router.
func (r *Registry) Providers() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// All returns rankable entries followed by the router, when registered.
func (r *Registry) All() []Entry {
	out := r.Providers()
	if r.router != nil {
		out = append(out, *r.router)
	}
	return out
}

// Get looks a provider up by key, router included.
func (r *Registry) Get(key string) (core.Provider, bool) {
	if key == KeyRouter {
		if r.router == nil {
			return nil, false
		}
		return r.router.Provider, true
	}
	for _, e := range r.entries {
		if e.Key == key {
			return e.Provider, true
		}
	}
	return nil, false
}

// Router returns the router provider, nil before WithRouter.
func (r *Registry) Router() core.Provider {
	if r.router == nil {
		return nil
	}
	return r.router.Provider
}

// Len returns the number of rankable providers.
func (r *Registry) Len() int {
	return len(r.entries)
}
