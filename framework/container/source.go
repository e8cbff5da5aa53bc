package container

import (
	"fmt"
	"sync"
)

// Source is the Definition Store: raw service definitions, parameters and
// aliases as registered during configuration loading. It can compile itself
// and also serves lookups directly, which is what debug tooling and tests
// use before the listener swaps in a Compiled container.
type Source struct {
	mu sync.RWMutex

	registry *Registry

	// parameter name → raw value (placeholders unresolved)
	parameters map[string]any

	// service ids in insertion order
	ids []string

	// service id → recipe
	definitions map[string]*Definition

	// alias → target id
	aliases map[string]string

	// bumped on every mutation
	gen uint64

	// compiled view used by Get, valid for snapshotGen
	snapshot    *Compiled
	snapshotGen uint64
}

// NewSource creates an empty Definition Store. reg supplies the runtime
// constructors used when services are resolved; it may be nil for stores
// that are only compiled and dumped.
func NewSource(reg *Registry) *Source {
	if reg == nil {
		reg = NewRegistry()
	}
	return &Source{
		registry:    reg,
		parameters:  make(map[string]any),
		definitions: make(map[string]*Definition),
		aliases:     make(map[string]string),
	}
}

// Registry returns the runtime constructor registry.
func (s *Source) Registry() *Registry { return s.registry }

// ── Parameters ────────────────────────────────────────────────────────────────

// SetParameter stores a raw parameter value.
//
//	src.SetParameter("mailer.transport", "smtp")
//	src.SetParameter("mailer.dsn", "%mailer.transport%://localhost")
func (s *Source) SetParameter(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parameters[name] = value
	s.gen++
}

// Parameters returns a shallow copy of the raw parameter bag.
func (s *Source) Parameters() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.parameters))
	for k, v := range s.parameters {
		out[k] = v
	}
	return out
}

// Parameter returns a parameter with its placeholders resolved.
func (s *Source) Parameter(name string) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, err := newParameterResolver(s.parameters).get(name, nil)
	if err != nil {
		return nil, err
	}
	return unescapeValue(v), nil
}

// HasParameter reports whether name was set.
func (s *Source) HasParameter(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.parameters[name]
	return ok
}

// ── Definitions ───────────────────────────────────────────────────────────────

// Register stores the recipe for id. Registering an existing id replaces its
// recipe but keeps the position it was first registered at, so dumps stay
// stable when a provider overrides a framework service.
func (s *Source) Register(id string, def *Definition) {
	if id == "" {
		panic("container: empty service id")
	}
	if def == nil {
		panic(fmt.Sprintf("container: nil definition for [%s]", id))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.definitions[id]; !exists {
		s.ids = append(s.ids, id)
	}
	delete(s.aliases, id)
	s.definitions[id] = def.Clone()
	s.gen++
}

// Definition returns a copy of the recipe registered for id.
func (s *Source) Definition(id string) (*Definition, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.definitions[id]
	return d.Clone(), ok
}

// IDs returns the registered service ids in insertion order.
func (s *Source) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ids...)
}

// SetAlias makes alias resolve to id.
//
//	src.SetAlias("mail", "mailer")
func (s *Source) SetAlias(alias, id string) {
	if alias == id {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", alias))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.aliases[alias] = id
	s.gen++
}

// Aliases returns a copy of the alias table.
func (s *Source) Aliases() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.aliases))
	for k, v := range s.aliases {
		out[k] = v
	}
	return out
}

// ── Container ─────────────────────────────────────────────────────────────────

// Get compiles the store (once per mutation) and resolves id.
func (s *Source) Get(id string) (any, error) {
	c, err := s.compiled()
	if err != nil {
		return nil, err
	}
	return c.Get(id)
}

// Has reports whether id is a registered service or alias.
func (s *Source) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.definitions[id]; ok {
		return true
	}
	_, ok := s.aliases[id]
	return ok
}

// Tagged returns the ids carrying tag, in insertion order.
func (s *Source) Tagged(tag string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, id := range s.ids {
		if s.definitions[id].hasTag(tag) {
			out = append(out, id)
		}
	}
	return out
}

// IsRestored is always false: a Source is built from raw configuration.
func (s *Source) IsRestored() bool { return false }

func (s *Source) compiled() (*Compiled, error) {
	s.mu.RLock()
	if s.snapshot != nil && s.snapshotGen == s.gen {
		snap := s.snapshot
		s.mu.RUnlock()
		return snap, nil
	}
	st := s.state()
	s.mu.RUnlock()

	d, err := compile(st)
	if err != nil {
		return nil, err
	}
	snap := NewCompiled(d, s.registry)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen == st.gen {
		s.snapshot, s.snapshotGen = snap, st.gen
	}
	return snap, nil
}

// storeState is a consistent copy of the store taken under the read lock.
type storeState struct {
	parameters  map[string]any
	ids         []string
	definitions map[string]*Definition
	aliases     map[string]string
	gen         uint64
}

// state must be called with s.mu held.
func (s *Source) state() storeState {
	st := storeState{
		parameters:  make(map[string]any, len(s.parameters)),
		ids:         append([]string(nil), s.ids...),
		definitions: make(map[string]*Definition, len(s.definitions)),
		aliases:     make(map[string]string, len(s.aliases)),
		gen:         s.gen,
	}
	for k, v := range s.parameters {
		st.parameters[k] = v
	}
	for k, d := range s.definitions {
		st.definitions[k] = d.Clone()
	}
	for k, v := range s.aliases {
		st.aliases[k] = v
	}
	return st
}
