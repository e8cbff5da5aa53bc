package providers

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/config"
	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/database"
	"github.com/km-arc/go-container/framework/routing"
)

// Class names the framework services are registered under.
const (
	ConfigClass   = "config.Config"
	LoggerClass   = "zap.Logger"
	RouterClass   = "routing.Router"
	DatabaseClass = "database"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider publishes the bootstrap configuration as container
// parameters and as the "config" service.
//
// Services:
//   - "config"  → *config.Config
//
// Parameters: see config.Config.Parameters.
type ConfigServiceProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigServiceProvider) Register(src *container.Source) {
	for name, v := range p.Config.Parameters() {
		src.SetParameter(name, v)
	}
	src.Register("config", &container.Definition{Class: ConfigClass})
	src.SetAlias("configuration", "config")
}

func (p *ConfigServiceProvider) Types(reg *container.Registry) {
	reg.Instance(ConfigClass, p.Config)
}

// ── LoggingServiceProvider ────────────────────────────────────────────────────

// LoggingServiceProvider exposes the process logger.
//
// Services:
//   - "logger"  → *zap.Logger
type LoggingServiceProvider struct {
	container.BaseProvider
	Logger *zap.Logger
}

func (p *LoggingServiceProvider) Register(src *container.Source) {
	src.Register("logger", &container.Definition{Class: LoggerClass})
}

func (p *LoggingServiceProvider) Types(reg *container.Registry) {
	reg.Instance(LoggerClass, p.Logger)
}

// ── DatabaseServiceProvider ───────────────────────────────────────────────────

// DatabaseServiceProvider defines the data-access handle as an ordinary
// factory service fed by the "database" parameter. The pool is opened on
// first use.
//
// Services:
//   - "database"  → *database.Handle
type DatabaseServiceProvider struct {
	container.BaseProvider
}

func (p *DatabaseServiceProvider) Register(src *container.Source) {
	src.Register("database", &container.Definition{
		Factory:   &container.Factory{Class: DatabaseClass, Method: "create"},
		Arguments: []container.Argument{container.Param("database"), container.OptionalRef("logger")},
	})
}

func (p *DatabaseServiceProvider) Types(reg *container.Registry) {
	reg.Factory(DatabaseClass+"::create", func(_ any, args ...any) (any, error) {
		opts, ok := args[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("database options are %T, want a mapping", args[0])
		}
		logger, _ := args[1].(*zap.Logger)
		return database.Create(database.Options(opts), logger)
	})
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router and mounts the container
// inspection endpoints on boot.
//
// Services:
//   - "router"  → *routing.Router
type RoutingServiceProvider struct {
	// State reports the orchestrator state for GET /_container.
	State func() string
}

func (p *RoutingServiceProvider) Register(src *container.Source) {
	src.Register("router", &container.Definition{
		Class:     RouterClass,
		Arguments: []container.Argument{container.OptionalRef("logger")},
	})
}

func (p *RoutingServiceProvider) Types(reg *container.Registry) {
	reg.Class(RouterClass, func(args ...any) (any, error) {
		logger, _ := args[0].(*zap.Logger)
		return routing.New(logger), nil
	})
}

func (p *RoutingServiceProvider) Boot(c container.Container) error {
	router, err := container.Resolve[*routing.Router](c, "router")
	if err != nil {
		return err
	}
	key, err := container.StringParameter(c, "app.key")
	if err != nil && !errors.Is(err, container.ErrParameterNotFound) {
		return err
	}
	state := p.State
	if state == nil {
		state = func() string { return "" }
	}
	Inspection(router, c, key, state)
	return nil
}
