package container

import (
	"reflect"
	"slices"
)

// Dump is the flattened output of Compile and the unit that crosses the
// serialization boundary. When IsCompiled is true it holds no placeholders
// and no dangling references.
type Dump struct {
	Parameters map[string]any
	Aliases    map[string]string

	// Services keeps Definition Store insertion order.
	Services []ServiceEntry

	IsCompiled bool
}

// Service returns the compiled recipe for id (aliases are not followed).
func (d *Dump) Service(id string) (*Definition, bool) {
	for i := range d.Services {
		if d.Services[i].ID == id {
			return &d.Services[i].Definition, true
		}
	}
	return nil, false
}

// IDs returns the service ids in dump order.
func (d *Dump) IDs() []string {
	out := make([]string, len(d.Services))
	for i, e := range d.Services {
		out[i] = e.ID
	}
	return out
}

// Equal reports field-wise equality. Nil and empty slices and maps compare
// equal at every depth, in parameters as well as in definitions.
func (d *Dump) Equal(o *Dump) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.IsCompiled != o.IsCompiled ||
		len(d.Parameters) != len(o.Parameters) ||
		len(d.Aliases) != len(o.Aliases) ||
		len(d.Services) != len(o.Services) {
		return false
	}
	for k, v := range d.Parameters {
		ov, ok := o.Parameters[k]
		if !ok || !valueEqual(v, ov) {
			return false
		}
	}
	for k, v := range d.Aliases {
		if ov, ok := o.Aliases[k]; !ok || ov != v {
			return false
		}
	}
	for i := range d.Services {
		if d.Services[i].ID != o.Services[i].ID ||
			!definitionEqual(&d.Services[i].Definition, &o.Services[i].Definition) {
			return false
		}
	}
	return true
}

func definitionEqual(a, b *Definition) bool {
	if a.Class != b.Class || a.Transient != b.Transient ||
		!slices.Equal(a.Tags, b.Tags) ||
		!argumentsEqual(a.Arguments, b.Arguments) ||
		len(a.Calls) != len(b.Calls) {
		return false
	}
	if (a.Factory == nil) != (b.Factory == nil) || (a.Factory != nil && *a.Factory != *b.Factory) {
		return false
	}
	for i := range a.Calls {
		if a.Calls[i].Method != b.Calls[i].Method || !argumentsEqual(a.Calls[i].Arguments, b.Calls[i].Arguments) {
			return false
		}
	}
	return true
}

func argumentsEqual(a, b []Argument) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Kind != b[i].Kind || a[i].Ref != b[i].Ref || a[i].Optional != b[i].Optional ||
			!valueEqual(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}

// valueEqual compares dump values, treating nil and empty []any and
// map[string]any alike.
func valueEqual(a, b any) bool {
	switch at := a.(type) {
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !valueEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bt, ok := b.(map[string]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for k, v := range at {
			bv, ok := bt[k]
			if !ok || !valueEqual(v, bv) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
