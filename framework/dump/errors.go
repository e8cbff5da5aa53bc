package dump

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedValue is matched by every *SerializationError.
	ErrUnsupportedValue = errors.New("dump: unsupported value")

	// ErrCorrupt is matched by every *CorruptArtifactError.
	ErrCorrupt = errors.New("dump: corrupt artifact")
)

// SerializationError reports a value the encoder cannot represent, such as
// a file handle or a channel left in a parameter.
type SerializationError struct {
	// Path locates the value, e.g. parameters["db"].handle.
	Path string
	// Type is the Go type of the offending value.
	Type string
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("dump: cannot serialize %s at %s", e.Type, e.Path)
}

func (e *SerializationError) Unwrap() error { return ErrUnsupportedValue }

// CorruptArtifactError reports bytes that do not decode to a valid dump.
type CorruptArtifactError struct {
	Reason string
	Err    error
}

func (e *CorruptArtifactError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrCorrupt, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrCorrupt, e.Reason)
}

func (e *CorruptArtifactError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCorrupt, e.Err}
	}
	return []error{ErrCorrupt}
}

func corrupt(reason string, err error) error {
	return &CorruptArtifactError{Reason: reason, Err: err}
}

func corruptf(format string, args ...any) error {
	return &CorruptArtifactError{Reason: fmt.Sprintf(format, args...)}
}
