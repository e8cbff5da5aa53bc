package container

import "fmt"

// Container is the service lookup capability shared by both variants:
// *Source (raw definitions) and *Compiled (compiled or restored dump).
// Callers depend on this interface and never on which variant is active.
type Container interface {
	// Get resolves a service (or alias) by id.
	Get(id string) (any, error)

	// Has reports whether id names a service or alias.
	Has(id string) bool

	// Parameter returns a resolved parameter value.
	Parameter(name string) (any, error)

	// HasParameter reports whether name is defined.
	HasParameter(name string) bool

	// Tagged returns the ids of the services carrying tag.
	Tagged(tag string) []string

	// IsRestored reports whether the state was loaded from an artifact.
	IsRestored() bool
}

var (
	_ Container = (*Source)(nil)
	_ Container = (*Compiled)(nil)
)

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve calls Get and type-asserts the result.
//
//	// Instead of: v, err := c.Get("db"); db := v.(*database.Handle)
//	// Write:      db, err := container.Resolve[*database.Handle](c, "db")
func Resolve[T any](c Container, id string) (T, error) {
	var zero T
	instance, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("container: Resolve[%T]: [%s] resolved to %T", zero, id, instance)
	}
	return typed, nil
}

// MustResolve is like Resolve but panics on any failure. Use it in Boot
// hooks and wiring code where a missing service is a programming error.
func MustResolve[T any](c Container, id string) T {
	typed, err := Resolve[T](c, id)
	if err != nil {
		panic(err)
	}
	return typed
}

// StringParameter returns a parameter that must be a string.
func StringParameter(c Container, name string) (string, error) {
	v, err := c.Parameter(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("container: parameter %q is %T, want string", name, v)
	}
	return s, nil
}
