package artifact

import "fmt"

// CannotCreateDirectoryError reports a dump directory that could not be
// created.
type CannotCreateDirectoryError struct {
	Dir string
	Err error
}

func (e *CannotCreateDirectoryError) Error() string {
	return fmt.Sprintf("artifact: cannot create directory %q: %v", e.Dir, e.Err)
}

func (e *CannotCreateDirectoryError) Unwrap() error { return e.Err }

// DirectoryNotWritableError reports a dump directory that exists but
// rejects new files.
type DirectoryNotWritableError struct {
	Dir string
	Err error
}

func (e *DirectoryNotWritableError) Error() string {
	return fmt.Sprintf("artifact: directory %q is not writable: %v", e.Dir, e.Err)
}

func (e *DirectoryNotWritableError) Unwrap() error { return e.Err }
