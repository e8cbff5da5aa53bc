// Package container provides the service registry behind the application
// bootstrap: a Definition Store, a compiler that flattens it into a Dump,
// and a small evaluator that builds services from compiled recipes.
//
// # Overview
//
// Services are described as data. A Definition names a class (or a
// factory), its constructor arguments, post-construction calls and tags.
// Arguments are literals, parameter references or service references.
// Because definitions are data, a compiled Dump can be serialized to an
// artifact and restored by a later process without re-running
// configuration loading. The Go code behind a class name lives in a
// Registry that every process rebuilds.
//
// # Container Lifecycle
//
//  1. Build: src := container.NewSource(reg)
//  2. Populate: src.SetParameter(...), src.Register(...), src.SetAlias(...)
//  3. Compile: dump, err := container.Compile(src)
//  4. Use: c := container.NewCompiled(dump, reg), or container.Restore(dump, reg)
//     when the dump came from an artifact
//
// # Definitions
//
//	src.SetParameter("mailer.transport", "smtp")
//	src.SetParameter("mailer.dsn", "%mailer.transport%://localhost:25")
//
//	src.Register("transport", &container.Definition{
//	    Class:     "Transport",
//	    Arguments: []container.Argument{container.Param("mailer.dsn")},
//	})
//	src.Register("mailer", &container.Definition{
//	    Class:     "Mailer",
//	    Arguments: []container.Argument{container.Ref("transport")},
//	    Calls: []container.Call{
//	        {Method: "SetLogger", Arguments: []container.Argument{container.OptionalRef("logger")}},
//	    },
//	    Tags: []string{"app.mailer"},
//	})
//	src.SetAlias("mail", "mailer")
//
// # Placeholders
//
// A string that is exactly "%name%" takes the parameter's value with its
// type. Placeholders embedded in a longer string are replaced by the
// parameter's string form and require scalar parameters. "%%" is a
// literal percent sign.
//
// # Resolving
//
//	raw, err := c.Get("mailer")
//	mailer, err := container.Resolve[*Mailer](c, "mail")
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(src *container.Source) { ... }  // definitions
//	func (p *AppServiceProvider) Types(reg *container.Registry)   { ... }  // constructors
//	func (p *AppServiceProvider) Boot(c container.Container) error { ... } // use services
package container
