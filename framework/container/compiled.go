package container

import (
	"errors"
	"fmt"
	"sync"
)

// ErrConstruction marks failures returned by registered constructors,
// factories and methods.
var ErrConstruction = errors.New("construction failed")

// Compiled is the container variant backed by a Dump. It is produced either
// by compiling a Source in this process or by restoring a previously written
// artifact; only the latter reports IsRestored.
type Compiled struct {
	dump     *Dump
	index    map[string]int
	registry *Registry
	restored bool

	mu        sync.Mutex
	instances map[string]any
}

// NewCompiled wraps a freshly compiled dump.
func NewCompiled(d *Dump, reg *Registry) *Compiled {
	return newCompiled(d, reg, false)
}

// Restore wraps a dump read back from an artifact. The restored flag is fixed
// for the lifetime of the returned container.
func Restore(d *Dump, reg *Registry) *Compiled {
	return newCompiled(d, reg, true)
}

func newCompiled(d *Dump, reg *Registry, restored bool) *Compiled {
	if d == nil {
		d = &Dump{}
	}
	if reg == nil {
		reg = NewRegistry()
	}
	index := make(map[string]int, len(d.Services))
	for i, e := range d.Services {
		index[e.ID] = i
	}
	return &Compiled{
		dump:      d,
		index:     index,
		registry:  reg,
		restored:  restored,
		instances: make(map[string]any),
	}
}

// Dump returns the dump backing this container.
func (c *Compiled) Dump() *Dump { return c.dump }

// IsRestored reports whether the state came from an artifact.
func (c *Compiled) IsRestored() bool { return c.restored }

// Has reports whether id names a service or alias.
func (c *Compiled) Has(id string) bool {
	_, ok := c.canonical(id)
	return ok
}

// Parameter returns a copy of a compiled parameter.
func (c *Compiled) Parameter(name string) (any, error) {
	v, ok := c.dump.Parameters[name]
	if !ok {
		return nil, fmt.Errorf("container: %w: %q", ErrParameterNotFound, name)
	}
	return cloneValue(v), nil
}

// HasParameter reports whether name is a compiled parameter.
func (c *Compiled) HasParameter(name string) bool {
	_, ok := c.dump.Parameters[name]
	return ok
}

// Tagged returns the ids carrying tag in dump order.
func (c *Compiled) Tagged(tag string) []string {
	var out []string
	for i := range c.dump.Services {
		if c.dump.Services[i].Definition.hasTag(tag) {
			out = append(out, c.dump.Services[i].ID)
		}
	}
	return out
}

// IDs returns every service id in dump order.
func (c *Compiled) IDs() []string { return c.dump.IDs() }

// Get resolves id by interpreting its compiled recipe.
func (c *Compiled) Get(id string) (any, error) {
	r := &evaluation{c: c, visiting: make(map[string]bool)}
	return r.service(id)
}

func (c *Compiled) canonical(id string) (string, bool) {
	if _, ok := c.index[id]; ok {
		return id, true
	}
	target, ok := c.dump.Aliases[id]
	if !ok {
		return "", false
	}
	_, ok = c.index[target]
	return target, ok
}

func (c *Compiled) definition(id string) *Definition {
	return &c.dump.Services[c.index[id]].Definition
}

func (c *Compiled) instance(id string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.instances[id]
	return inst, ok
}

// share stores inst unless another goroutine got there first, and returns
// the instance every caller must use. won is false when an existing instance
// was returned.
func (c *Compiled) share(id string, inst any) (shared any, won bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.instances[id]; ok {
		return existing, false
	}
	c.instances[id] = inst
	return inst, true
}

// unshare drops a shared instance whose method calls failed.
func (c *Compiled) unshare(id string) {
	c.mu.Lock()
	delete(c.instances, id)
	c.mu.Unlock()
}
