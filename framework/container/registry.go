package container

import "sync"

// ── Runtime constructors ──────────────────────────────────────────────────────

// Constructor builds an instance of a class from its resolved arguments.
type Constructor func(args ...any) (any, error)

// FactoryFunc builds an instance through a factory. receiver is the factory
// service instance, or nil for static "Class::Method" factories.
type FactoryFunc func(receiver any, args ...any) (any, error)

// MethodFunc applies a post-construction call to instance.
type MethodFunc func(instance any, args ...any) error

// Registry maps the class and method names found in definitions to Go code.
// Definitions are data and survive the artifact round trip; the Registry is
// code and is rebuilt by every process before the container is used.
//
//	reg := container.NewRegistry()
//	reg.Class("Mailer", func(args ...any) (any, error) {
//	    return &Mailer{Transport: args[0].(*Transport)}, nil
//	})
//	reg.Method("Mailer", "SetLogger", func(inst any, args ...any) error {
//	    inst.(*Mailer).Logger = args[0].(*zap.Logger)
//	    return nil
//	})
//	reg.Factory("MailerFactory::create", func(_ any, args ...any) (any, error) { ... })
type Registry struct {
	mu        sync.RWMutex
	classes   map[string]Constructor
	factories map[string]FactoryFunc
	methods   map[string]MethodFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		classes:   make(map[string]Constructor),
		factories: make(map[string]FactoryFunc),
		methods:   make(map[string]MethodFunc),
	}
}

// Class registers the constructor for class.
func (r *Registry) Class(class string, ctor Constructor) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[class] = ctor
	return r
}

// Instance registers a class whose constructor always returns v. It is how
// live process objects (the logger, the config) become services.
func (r *Registry) Instance(class string, v any) *Registry {
	return r.Class(class, func(...any) (any, error) { return v, nil })
}

// Factory registers a factory under "Class::Method". Service factories are
// looked up with the factory service's class as the prefix.
func (r *Registry) Factory(name string, fn FactoryFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = fn
	return r
}

// Method registers a post-construction method for class.
func (r *Registry) Method(class, method string, fn MethodFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[methodKey(class, method)] = fn
	return r
}

func (r *Registry) constructor(class string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[class]
	return c, ok
}

func (r *Registry) factory(name string) (FactoryFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

func (r *Registry) method(class, method string) (MethodFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[methodKey(class, method)]
	return m, ok
}

func methodKey(class, method string) string { return class + "::" + method }
