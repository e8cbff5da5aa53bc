// Package listener decides, once per process, whether the application
// container must be compiled and whether the result is persisted.
package listener

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-container/framework/artifact"
	"github.com/km-arc/go-container/framework/container"
)

// Parameter names read from the compiled container in production mode.
const (
	DumpDirectoryParameter = "container.dump_directory"
	FilenameParameter      = "container.filename"
)

// ErrAlreadyCompiled is returned when the application already holds a
// compiled container that was not restored from an artifact.
var ErrAlreadyCompiled = errors.New("listener: container is already compiled")

// State is the orchestrator state of the application container.
type State int

const (
	Uncompiled State = iota
	CompiledInMemory
	CompiledAndPersisted
	Restored
)

func (s State) String() string {
	switch s {
	case Uncompiled:
		return "uncompiled"
	case CompiledInMemory:
		return "compiled_in_memory"
	case CompiledAndPersisted:
		return "compiled_and_persisted"
	case Restored:
		return "restored"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Application is the part of the kernel the listener drives.
type Application interface {
	IsDebug() bool
	Container() container.Container
	SetContainer(container.Container)
}

// ContainerListener compiles the container at application init.
type ContainerListener struct {
	Writer *artifact.Writer
	Logger *zap.Logger
}

// New returns a listener with the default artifact writer.
func New(logger *zap.Logger) *ContainerListener {
	return &ContainerListener{Writer: artifact.NewWriter(), Logger: logger}
}

// OnApplicationInit runs the compile-and-cache decision:
//
//   - a restored container is left untouched;
//   - in debug mode the source is compiled in memory and nothing is written;
//   - otherwise the source is compiled and the dump is written to
//     {container.dump_directory}/{container.filename}.json before the
//     compiled container replaces the source.
//
// Errors abort startup and leave the application container unchanged.
func (l *ContainerListener) OnApplicationInit(app Application) (State, error) {
	log := l.logger()
	c := app.Container()
	if c == nil {
		return Uncompiled, errors.New("listener: application has no container")
	}
	if c.IsRestored() {
		log.Debug("container restored from artifact, skipping compile")
		return Restored, nil
	}

	src, ok := c.(*container.Source)
	if !ok {
		return Uncompiled, ErrAlreadyCompiled
	}

	d, err := container.Compile(src)
	if err != nil {
		return Uncompiled, err
	}
	compiled := container.NewCompiled(d, src.Registry())

	if app.IsDebug() {
		app.SetContainer(compiled)
		log.Info("container compiled in memory", zap.Int("services", len(d.Services)))
		return CompiledInMemory, nil
	}

	dir, err := container.StringParameter(compiled, DumpDirectoryParameter)
	if err != nil {
		return Uncompiled, err
	}
	filename, err := container.StringParameter(compiled, FilenameParameter)
	if err != nil {
		return Uncompiled, err
	}

	w := l.Writer
	if w == nil {
		w = artifact.NewWriter()
	}
	if err := w.Write(dir, filename, d); err != nil {
		return Uncompiled, err
	}

	app.SetContainer(compiled)
	log.Info("container compiled and persisted",
		zap.String("path", artifact.Path(dir, filename)),
		zap.Int("services", len(d.Services)),
	)
	return CompiledAndPersisted, nil
}

func (l *ContainerListener) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}
