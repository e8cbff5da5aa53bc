package container

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCompilation marks every error produced by Compile.
	ErrCompilation = errors.New("container: compilation failed")

	ErrServiceNotFound   = errors.New("service not found")
	ErrParameterNotFound = errors.New("parameter not found")
	ErrCircularReference = errors.New("circular reference")
	ErrInvalidDefinition = errors.New("invalid definition")
)

// CompilationError reports why a Definition Store could not be compiled.
//
// It matches both ErrCompilation and its Kind:
//
//	errors.Is(err, container.ErrCompilation)      // true
//	errors.Is(err, container.ErrServiceNotFound)  // true when a reference is dangling
type CompilationError struct {
	// Service is the id being compiled, empty for parameter failures.
	Service string
	Kind    error
	Msg     string
}

func (e *CompilationError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(ErrCompilation.Error())
	if e.Service != "" {
		fmt.Fprintf(&b, ": service %q", e.Service)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	return b.String()
}

func (e *CompilationError) Unwrap() []error { return []error{ErrCompilation, e.Kind} }

func compileErrorf(service string, kind error, format string, args ...any) error {
	return &CompilationError{Service: service, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// ResolutionError reports a runtime failure while building a service.
type ResolutionError struct {
	ID   string
	Kind error
	Err  error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("container: resolving %q: %s", e.ID, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ResolutionError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func cyclePath(path []string, closing string) string {
	return strings.Join(append(append([]string(nil), path...), closing), " -> ")
}
