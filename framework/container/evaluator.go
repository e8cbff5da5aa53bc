package container

import (
	"errors"
	"fmt"
)

// evaluation is one Get call walking the compiled graph. visiting holds the
// services under construction so a cycle is reported instead of recursing
// until the stack blows.
type evaluation struct {
	c        *Compiled
	visiting map[string]bool
	path     []string
}

func (e *evaluation) service(id string) (any, error) {
	canon, ok := e.c.canonical(id)
	if !ok {
		return nil, &ResolutionError{ID: id, Kind: ErrServiceNotFound}
	}
	if inst, ok := e.c.instance(canon); ok {
		return inst, nil
	}
	if e.visiting[canon] {
		return nil, &ResolutionError{ID: canon, Kind: ErrCircularReference, Err: errors.New(cyclePath(e.path, canon))}
	}

	e.enter(canon)
	def := e.c.definition(canon)

	args, err := e.arguments(def.Arguments)
	if err != nil {
		return nil, err
	}
	inst, err := e.construct(canon, def, args)
	if err != nil {
		return nil, err
	}

	// Shared instances are visible before their calls run, so setter
	// injection may point back at them.
	if !def.Transient {
		var won bool
		inst, won = e.c.share(canon, inst)
		e.leave(canon)
		if !won {
			return inst, nil
		}
	}

	if err := e.calls(canon, def, inst); err != nil {
		if !def.Transient {
			e.c.unshare(canon)
		}
		return nil, err
	}

	if def.Transient {
		e.leave(canon)
	}
	return inst, nil
}

func (e *evaluation) calls(id string, def *Definition, inst any) error {
	for _, call := range def.Calls {
		m, ok := e.c.registry.method(def.Class, call.Method)
		if !ok {
			return &ResolutionError{ID: id, Kind: ErrInvalidDefinition,
				Err: fmt.Errorf("no method %q registered for class %q", call.Method, def.Class)}
		}
		args, err := e.arguments(call.Arguments)
		if err != nil {
			return err
		}
		if err := m(inst, args...); err != nil {
			return &ResolutionError{ID: id, Kind: ErrConstruction,
				Err: fmt.Errorf("calling %s: %w", call.Method, err)}
		}
	}
	return nil
}

func (e *evaluation) enter(id string) {
	e.visiting[id] = true
	e.path = append(e.path, id)
}

func (e *evaluation) leave(id string) {
	delete(e.visiting, id)
	for i := len(e.path) - 1; i >= 0; i-- {
		if e.path[i] == id {
			e.path = append(e.path[:i], e.path[i+1:]...)
			break
		}
	}
}

func (e *evaluation) arguments(args []Argument) ([]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]any, len(args))
	for i, a := range args {
		switch a.Kind {
		case ValueArgument:
			out[i] = cloneValue(a.Value)
		case ParameterArgument:
			v, err := e.c.Parameter(a.Ref)
			if err != nil {
				return nil, err
			}
			out[i] = v
		case ServiceArgument:
			if a.Optional && !e.c.Has(a.Ref) {
				out[i] = nil
				continue
			}
			v, err := e.service(a.Ref)
			if err != nil {
				return nil, err
			}
			out[i] = v
		default:
			return nil, fmt.Errorf("container: unknown argument kind %d", a.Kind)
		}
	}
	return out, nil
}

func (e *evaluation) construct(id string, def *Definition, args []any) (any, error) {
	if f := def.Factory; f != nil {
		var (
			receiver any
			key      string
		)
		if f.Service != "" {
			recv, err := e.service(f.Service)
			if err != nil {
				return nil, err
			}
			fcanon, _ := e.c.canonical(f.Service)
			receiver = recv
			key = methodKey(e.c.definition(fcanon).Class, f.Method)
		} else {
			key = methodKey(f.Class, f.Method)
		}

		fn, ok := e.c.registry.factory(key)
		if !ok {
			return nil, &ResolutionError{ID: id, Kind: ErrInvalidDefinition,
				Err: fmt.Errorf("no factory registered for %q", key)}
		}
		inst, err := fn(receiver, args...)
		if err != nil {
			return nil, &ResolutionError{ID: id, Kind: ErrConstruction, Err: err}
		}
		return inst, nil
	}

	ctor, ok := e.c.registry.constructor(def.Class)
	if !ok {
		return nil, &ResolutionError{ID: id, Kind: ErrInvalidDefinition,
			Err: fmt.Errorf("no constructor registered for class %q", def.Class)}
	}
	inst, err := ctor(args...)
	if err != nil {
		return nil, &ResolutionError{ID: id, Kind: ErrConstruction, Err: err}
	}
	return inst, nil
}
