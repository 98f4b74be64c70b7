package cache

import (
	"slices"
	"strings"
	"sync"
)

// Entity names a kind of server-side record, such as a note or a profile.
type Entity string

// Ref points at one entity, or at every entity of its kind when ID is empty.
type Ref struct {
	Entity Entity
	ID     string
}

const idPlaceholder = "{id}"

// Registry maps entity kinds to the key templates of every cached view that
// can contain them. Templates use "{id}" for the entity ID and match cached
// keys by prefix.
type Registry struct {
	mu        sync.RWMutex
	templates map[Entity][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[Entity][]string)}
}

// Register appends templates for e and returns r for chaining.
func (r *Registry) Register(e Entity, templates ...string) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[e] = append(r.templates[e], templates...)
	return r
}

// Templates returns the templates registered for e.
func (r *Registry) Templates(e Entity) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.templates[e])
}

// Resolve expands refs into deduplicated key prefixes. A ref without an ID
// resolves a template to the part before its placeholder, covering every
// entity of that kind.
func (r *Registry) Resolve(refs ...Ref) []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Key
	for _, ref := range refs {
		for _, tpl := range r.templates[ref.Entity] {
			k := expand(tpl, ref.ID)
			if !slices.Contains(out, k) {
				out = append(out, k)
			}
		}
	}
	return out
}

func expand(tpl, id string) Key {
	if !strings.Contains(tpl, idPlaceholder) {
		return Key(tpl)
	}
	if id == "" {
		head, _, _ := strings.Cut(tpl, idPlaceholder)
		return Key(strings.TrimSuffix(head, "/"))
	}
	return Key(strings.ReplaceAll(tpl, idPlaceholder, id))
}
