package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/artifact"
	"github.com/km-arc/go-container/framework/config"
	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/dump"
	"github.com/km-arc/go-container/framework/listener"
	"github.com/km-arc/go-container/framework/loader"
	"github.com/km-arc/go-container/framework/logging"
	"github.com/km-arc/go-container/framework/providers"
	"github.com/km-arc/go-container/framework/routing"
)

// ErrArtifactLocationOverride is returned by New when a provider or a
// definitions file changes container.dump_directory or container.filename.
var ErrArtifactLocationOverride = errors.New("artifact location is set by configuration")

// Options configures New.
type Options struct {
	// EnvFiles are read when Config is nil (default .env).
	EnvFiles []string
	Config   *config.Config
	// LogOutput receives log lines (default stderr).
	LogOutput io.Writer
	// Providers run after the framework providers, in order.
	Providers []container.ServiceProvider
	// Writer persists the compiled container (default artifact.NewWriter()).
	Writer *artifact.Writer
}

// Application owns the container for the lifetime of the process.
type Application struct {
	cfg       *config.Config
	logger    *zap.Logger
	providers *container.ProviderRegistry
	registry  *container.Registry

	mu    sync.RWMutex
	c     container.Container
	state listener.State
}

// New bootstraps the application:
//
//  1. load configuration and build the logger;
//  2. collect every provider's runtime types;
//  3. outside debug mode, restore the container from its artifact when one
//     is present and valid;
//  4. otherwise build a Source from the providers and the optional YAML
//     definitions file;
//  5. run the container listener, then boot the providers.
func New(opts Options) (*Application, error) {
	cfg := opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(opts.EnvFiles...); err != nil {
			return nil, fmt.Errorf("app: loading config: %w", err)
		}
	}
	logger, err := logging.New(cfg.Log, opts.LogOutput)
	if err != nil {
		return nil, err
	}

	a := &Application{
		cfg:       cfg,
		logger:    logger,
		providers: container.NewProviderRegistry(),
		registry:  container.NewRegistry(),
	}

	core := []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LoggingServiceProvider{Logger: logger},
		&providers.DatabaseServiceProvider{},
		&providers.RoutingServiceProvider{State: func() string { return a.State().String() }},
	}
	for _, p := range append(core, opts.Providers...) {
		if err := a.providers.Register(p); err != nil {
			return nil, err
		}
	}
	a.providers.RegisterTypes(a.registry)

	c, err := a.initialContainer()
	if err != nil {
		return nil, err
	}
	a.c = c

	l := listener.New(logger.Named("container"))
	if opts.Writer != nil {
		l.Writer = opts.Writer
	}
	state, err := l.OnApplicationInit(a)
	if err != nil {
		return nil, fmt.Errorf("app: container init: %w", err)
	}
	a.mu.Lock()
	a.state = state
	a.mu.Unlock()

	if err := a.providers.Boot(a.Container()); err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}
	logger.Info("application ready",
		zap.String("env", cfg.App.Env),
		zap.Bool("debug", cfg.App.Debug),
		zap.Stringer("container", state),
	)
	return a, nil
}

func (a *Application) initialContainer() (container.Container, error) {
	if !a.cfg.App.Debug {
		dir, name := a.cfg.Container.DumpDirectory, a.cfg.Container.Filename
		d, err := artifact.Load(dir, name)
		switch {
		case err == nil:
			a.logger.Debug("container restored", zap.String("path", artifact.Path(dir, name)))
			return container.Restore(d, a.registry), nil
		case errors.Is(err, fs.ErrNotExist):
		case errors.Is(err, dump.ErrCorrupt):
			a.logger.Warn("ignoring corrupt container artifact", zap.Error(err))
		default:
			return nil, fmt.Errorf("app: %w", err)
		}
	}

	src := container.NewSource(a.registry)
	a.providers.RegisterDefinitions(src)
	if path := a.cfg.Container.Definitions; path != "" {
		if err := loader.LoadFile(src, path); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	if err := a.checkArtifactLocation(src); err != nil {
		return nil, err
	}
	return src, nil
}

// checkArtifactLocation makes sure providers and definition files left the
// artifact location as configured. Restore reads it from configuration, so
// a different compiled value would persist artifacts that are never loaded.
func (a *Application) checkArtifactLocation(src *container.Source) error {
	want := map[string]string{
		listener.DumpDirectoryParameter: a.cfg.Container.DumpDirectory,
		listener.FilenameParameter:      a.cfg.Container.Filename,
	}
	for _, name := range []string{listener.DumpDirectoryParameter, listener.FilenameParameter} {
		v, err := src.Parameter(name)
		if err != nil {
			return fmt.Errorf("app: %w", err)
		}
		if got, ok := v.(string); !ok || got != want[name] {
			return fmt.Errorf("app: %w: %q is %v, configuration says %q",
				ErrArtifactLocationOverride, name, v, want[name])
		}
	}
	return nil
}

// ── listener.Application ──────────────────────────────────────────────────────

func (a *Application) IsDebug() bool { return a.cfg.App.Debug }

func (a *Application) Container() container.Container {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.c
}

func (a *Application) SetContainer(c container.Container) {
	a.mu.Lock()
	a.c = c
	a.mu.Unlock()
}

// ── Accessors ─────────────────────────────────────────────────────────────────

// State reports how the container was obtained in this process.
func (a *Application) State() listener.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

func (a *Application) Config() *config.Config { return a.cfg }
func (a *Application) Logger() *zap.Logger    { return a.logger }
func (a *Application) Environment() string    { return a.cfg.App.Env }
func (a *Application) IsProduction() bool     { return a.Environment() == "production" }

// Router resolves the "router" service.
func (a *Application) Router() (*routing.Router, error) {
	return container.Resolve[*routing.Router](a.Container(), "router")
}

// ClearCache removes the container artifact so the next production start
// compiles from configuration again.
func (a *Application) ClearCache() error {
	dir, name := a.cfg.Container.DumpDirectory, a.cfg.Container.Filename
	if err := artifact.Remove(dir, name); err != nil {
		return fmt.Errorf("app: clearing container cache: %w", err)
	}
	a.logger.Info("container cache cleared", zap.String("path", artifact.Path(dir, name)))
	return nil
}

// Run serves the router on APP_PORT until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	router, err := a.Router()
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              ":" + a.cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	a.logger.Info("listening", zap.String("addr", srv.Addr), zap.String("app", a.cfg.App.Name))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Close flushes the logger.
func (a *Application) Close() error {
	_ = a.logger.Sync()
	return nil
}
