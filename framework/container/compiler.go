package container

import (
	"errors"
	"sort"
)

// Compile resolves the Definition Store into a flattened, reference-checked
// Dump. It has no side effects and is deterministic: services keep their
// insertion order, so compiling an unchanged store twice yields equal dumps
// that serialize to identical bytes.
//
// Failures are *CompilationError values:
//   - ErrParameterNotFound: a %placeholder% or parameter argument is undefined
//   - ErrServiceNotFound:   a required reference, factory service or alias target is undefined
//   - ErrCircularReference: parameters, aliases or constructor arguments form a cycle
//   - ErrInvalidDefinition: a recipe is structurally unusable
func Compile(s *Source) (*Dump, error) {
	s.mu.RLock()
	st := s.state()
	s.mu.RUnlock()
	return compile(st)
}

type compiler struct {
	st      storeState
	params  *parameterResolver
	aliases map[string]string
}

func compile(st storeState) (*Dump, error) {
	c := &compiler{st: st, params: newParameterResolver(st.parameters)}

	parameters, err := c.compileParameters()
	if err != nil {
		return nil, err
	}
	if c.aliases, err = c.compileAliases(); err != nil {
		return nil, err
	}

	services := make([]ServiceEntry, 0, len(st.ids))
	for _, id := range st.ids {
		def, err := c.compileDefinition(id, st.definitions[id])
		if err != nil {
			return nil, err
		}
		services = append(services, ServiceEntry{ID: id, Definition: *def})
	}

	if err := detectCycles(services); err != nil {
		return nil, err
	}

	return &Dump{
		Parameters: parameters,
		Aliases:    c.aliases,
		Services:   services,
		IsCompiled: true,
	}, nil
}

func (c *compiler) compileParameters() (map[string]any, error) {
	names := make([]string, 0, len(c.st.parameters))
	for name := range c.st.parameters {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]any, len(names))
	for _, name := range names {
		v, err := c.params.get(name, nil)
		if err != nil {
			return nil, err
		}
		out[name] = unescapeValue(v)
	}
	return out, nil
}

// compileAliases flattens alias chains so every alias points at a service id.
func (c *compiler) compileAliases() (map[string]string, error) {
	names := make([]string, 0, len(c.st.aliases))
	for alias := range c.st.aliases {
		names = append(names, alias)
	}
	sort.Strings(names)

	out := make(map[string]string, len(names))
	for _, alias := range names {
		path := []string{alias}
		target := c.st.aliases[alias]
		for {
			if _, ok := c.st.definitions[target]; ok {
				break
			}
			next, ok := c.st.aliases[target]
			if !ok {
				return nil, compileErrorf(alias, ErrServiceNotFound, "alias targets undefined service %q", target)
			}
			for _, p := range path {
				if p == target {
					return nil, compileErrorf(alias, ErrCircularReference, "aliases %s", cyclePath(path, target))
				}
			}
			path = append(path, target)
			target = next
		}
		out[alias] = target
	}
	return out, nil
}

func (c *compiler) canonical(id string) (string, bool) {
	if _, ok := c.st.definitions[id]; ok {
		return id, true
	}
	target, ok := c.aliases[id]
	return target, ok
}

func (c *compiler) compileDefinition(id string, def *Definition) (*Definition, error) {
	out := &Definition{Transient: def.Transient}

	if def.Class == "" && def.Factory == nil {
		return nil, compileErrorf(id, ErrInvalidDefinition, "neither class nor factory is set")
	}
	class, err := c.resolveName(id, def.Class)
	if err != nil {
		return nil, err
	}
	out.Class = class

	if def.Factory != nil {
		if out.Factory, err = c.compileFactory(id, def.Factory); err != nil {
			return nil, err
		}
	}
	if out.Arguments, err = c.compileArguments(id, def.Arguments); err != nil {
		return nil, err
	}

	if len(def.Calls) > 0 {
		out.Calls = make([]Call, 0, len(def.Calls))
		for _, call := range def.Calls {
			if call.Method == "" {
				return nil, compileErrorf(id, ErrInvalidDefinition, "method call without a method name")
			}
			args, err := c.compileArguments(id, call.Arguments)
			if err != nil {
				return nil, err
			}
			out.Calls = append(out.Calls, Call{Method: call.Method, Arguments: args})
		}
	}
	if len(def.Tags) > 0 {
		out.Tags = append([]string(nil), def.Tags...)
	}
	return out, nil
}

func (c *compiler) compileFactory(id string, f *Factory) (*Factory, error) {
	if f.Method == "" {
		return nil, compileErrorf(id, ErrInvalidDefinition, "factory without a method name")
	}
	if (f.Service == "") == (f.Class == "") {
		return nil, compileErrorf(id, ErrInvalidDefinition, "factory needs exactly one of service or class")
	}
	if f.Service != "" {
		target, ok := c.canonical(f.Service)
		if !ok {
			return nil, compileErrorf(id, ErrServiceNotFound, "factory service %q is not defined", f.Service)
		}
		return &Factory{Service: target, Method: f.Method}, nil
	}
	class, err := c.resolveName(id, f.Class)
	if err != nil {
		return nil, err
	}
	return &Factory{Class: class, Method: f.Method}, nil
}

func (c *compiler) compileArguments(id string, args []Argument) ([]Argument, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make([]Argument, 0, len(args))
	for _, a := range args {
		switch a.Kind {
		case ValueArgument:
			v, err := c.params.resolve(normalizeValue(a.Value), nil)
			if err != nil {
				return nil, withService(err, id)
			}
			out = append(out, Value(unescapeValue(v)))

		case ParameterArgument:
			v, err := c.params.get(a.Ref, nil)
			if err != nil {
				return nil, withService(err, id)
			}
			out = append(out, Value(unescapeValue(v)))

		case ServiceArgument:
			target, ok := c.canonical(a.Ref)
			switch {
			case ok:
				out = append(out, Argument{Kind: ServiceArgument, Ref: target, Optional: a.Optional})
			case a.Optional:
				out = append(out, Value(nil))
			default:
				return nil, compileErrorf(id, ErrServiceNotFound, "references undefined service %q", a.Ref)
			}

		default:
			return nil, compileErrorf(id, ErrInvalidDefinition, "unknown argument kind %d", a.Kind)
		}
	}
	return out, nil
}

// resolveName resolves placeholders in class names, which must stay strings.
func (c *compiler) resolveName(id, name string) (string, error) {
	v, err := c.params.resolveString(name, nil)
	if err != nil {
		return "", withService(err, id)
	}
	s, ok := v.(string)
	if !ok {
		return "", compileErrorf(id, ErrInvalidDefinition, "class %q resolved to %T, want string", name, v)
	}
	return unescapeValue(s).(string), nil
}

func withService(err error, id string) error {
	var ce *CompilationError
	if errors.As(err, &ce) && ce.Service == "" {
		cp := *ce
		cp.Service = id
		return &cp
	}
	return err
}

// detectCycles walks constructor dependencies (arguments and factory
// service) depth first with an explicit colour map. Method-call references
// are not edges: they run after the instance exists.
func detectCycles(services []ServiceEntry) error {
	const (
		white = iota
		grey
		black
	)

	edges := make(map[string][]string, len(services))
	for _, e := range services {
		var deps []string
		if f := e.Definition.Factory; f != nil && f.Service != "" {
			deps = append(deps, f.Service)
		}
		for _, a := range e.Definition.Arguments {
			if a.Kind == ServiceArgument {
				deps = append(deps, a.Ref)
			}
		}
		edges[e.ID] = deps
	}

	colour := make(map[string]int, len(services))
	var stack []string

	var visit func(id string) error
	visit = func(id string) error {
		colour[id] = grey
		stack = append(stack, id)
		for _, dep := range edges[id] {
			switch colour[dep] {
			case grey:
				start := 0
				for i, s := range stack {
					if s == dep {
						start = i
						break
					}
				}
				return compileErrorf(id, ErrCircularReference, "%s", cyclePath(stack[start:], dep))
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		colour[id] = black
		return nil
	}

	for _, e := range services {
		if colour[e.ID] == white {
			if err := visit(e.ID); err != nil {
				return err
			}
		}
	}
	return nil
}
