package container

import (
	"errors"
	"fmt"
)

// ErrProvidersBooted is returned when a provider is added after Boot.
var ErrProvidersBooted = errors.New("container: providers already booted")

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider contributes services to the application in three phases.
//
// Register adds definitions and parameters to the Definition Store. It only
// runs when the container is built from configuration: a restored container
// already carries the compiled definitions, so Register is skipped.
//
// Types registers the Go constructors behind the class names used in the
// definitions. It runs in every process, restored or not.
//
// Boot runs once the container is final (compiled or restored). Resolving
// services is safe here.
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (p *MailProvider) Register(src *container.Source) {
//	    src.SetParameter("mailer.transport", "smtp")
//	    src.Register("mailer", &container.Definition{
//	        Class:     "Mailer",
//	        Arguments: []container.Argument{container.Param("mailer.transport")},
//	    })
//	}
//
//	func (p *MailProvider) Types(reg *container.Registry) {
//	    reg.Class("Mailer", func(args ...any) (any, error) { return NewMailer(args[0].(string)), nil })
//	}
type ServiceProvider interface {
	Register(src *Source)
	Types(reg *Registry)
	Boot(c Container) error
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with no-op Types and Boot.
//
//	type MyProvider struct{ container.BaseProvider }
//	func (p *MyProvider) Register(src *container.Source) { ... }
type BaseProvider struct{}

func (p *BaseProvider) Types(_ *Registry)      {}
func (p *BaseProvider) Boot(_ Container) error { return nil }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry keeps providers in registration order and drives their
// phases.
type ProviderRegistry struct {
	providers  []ServiceProvider
	registered map[ServiceProvider]bool
	booted     bool
}

// NewProviderRegistry creates an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{registered: make(map[ServiceProvider]bool)}
}

// Register adds a provider. Adding the same provider twice is a no-op.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.booted {
		return ErrProvidersBooted
	}
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true
	r.providers = append(r.providers, provider)
	return nil
}

// RegisterTypes runs every provider's Types phase against reg.
func (r *ProviderRegistry) RegisterTypes(reg *Registry) {
	for _, p := range r.providers {
		p.Types(reg)
	}
}

// RegisterDefinitions runs every provider's Register phase against src.
func (r *ProviderRegistry) RegisterDefinitions(src *Source) {
	for _, p := range r.providers {
		p.Register(src)
	}
}

// Boot calls Boot on every provider, in order, stopping at the first error.
// A second call is a no-op.
func (r *ProviderRegistry) Boot(c Container) error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, p := range r.providers {
		if err := p.Boot(c); err != nil {
			return fmt.Errorf("booting %T: %w", p, err)
		}
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns the registered providers in order.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.providers }
