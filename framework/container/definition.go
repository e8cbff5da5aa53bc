package container

// ── Definition model ──────────────────────────────────────────────────────────

// ArgumentKind tells the compiler and the evaluator how to read an Argument.
type ArgumentKind uint8

const (
	// ValueArgument is a literal. Strings may carry %param% placeholders.
	ValueArgument ArgumentKind = iota
	// ParameterArgument refers to a parameter by name.
	ParameterArgument
	// ServiceArgument refers to another service by id.
	ServiceArgument
)

func (k ArgumentKind) String() string {
	switch k {
	case ValueArgument:
		return "value"
	case ParameterArgument:
		return "parameter"
	case ServiceArgument:
		return "service"
	}
	return "unknown"
}

// Argument is one constructor, factory or method-call argument.
type Argument struct {
	Kind ArgumentKind

	// Value holds the literal for ValueArgument.
	Value any

	// Ref holds the parameter name or service id.
	Ref string

	// Optional only applies to service references: a missing service
	// compiles to a nil literal instead of failing.
	Optional bool
}

// Value builds a literal argument.
//
//	container.Value("smtp://localhost")
//	container.Value("%mailer.host%:25")   // placeholders resolved at compile time
func Value(v any) Argument { return Argument{Kind: ValueArgument, Value: v} }

// Param builds a parameter reference.
func Param(name string) Argument { return Argument{Kind: ParameterArgument, Ref: name} }

// Ref builds a service reference.
func Ref(id string) Argument { return Argument{Kind: ServiceArgument, Ref: id} }

// OptionalRef builds a service reference that resolves to nil when the
// service is not defined.
func OptionalRef(id string) Argument {
	return Argument{Kind: ServiceArgument, Ref: id, Optional: true}
}

// Factory describes how a service is obtained when it is not built by its
// class constructor. Exactly one of Service or Class is set.
type Factory struct {
	// Service names a service whose Method builds the instance.
	Service string
	// Class names a static factory registered as "Class::Method".
	Class  string
	Method string
}

// Call is a method invoked on a freshly built instance.
type Call struct {
	Method    string
	Arguments []Argument
}

// Definition is the construction recipe of a service.
//
//	src.Register("mailer", &container.Definition{
//	    Class:     "Mailer",
//	    Arguments: []container.Argument{container.Ref("transport"), container.Param("mailer.from")},
//	    Calls:     []container.Call{{Method: "SetLogger", Arguments: []container.Argument{container.Ref("logger")}}},
//	    Tags:      []string{"app.mailer"},
//	})
type Definition struct {
	Class     string
	Factory   *Factory
	Arguments []Argument
	Calls     []Call
	Tags      []string

	// Transient services are rebuilt on every Get. The zero value is shared.
	Transient bool
}

// ServiceEntry pairs a service id with its compiled definition.
type ServiceEntry struct {
	ID         string
	Definition Definition
}

// Clone returns a deep copy of d so callers can't mutate stored recipes.
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	cp := *d
	if d.Factory != nil {
		f := *d.Factory
		cp.Factory = &f
	}
	cp.Arguments = cloneArguments(d.Arguments)
	if len(d.Calls) > 0 {
		cp.Calls = make([]Call, len(d.Calls))
		for i, call := range d.Calls {
			cp.Calls[i] = Call{Method: call.Method, Arguments: cloneArguments(call.Arguments)}
		}
	} else {
		cp.Calls = nil
	}
	if len(d.Tags) > 0 {
		cp.Tags = append([]string(nil), d.Tags...)
	} else {
		cp.Tags = nil
	}
	return &cp
}

func cloneArguments(args []Argument) []Argument {
	if len(args) == 0 {
		return nil
	}
	out := make([]Argument, len(args))
	for i, a := range args {
		out[i] = a
		out[i].Value = cloneValue(a.Value)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	}
	return v
}

func (d *Definition) hasTag(tag string) bool {
	for _, t := range d.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
