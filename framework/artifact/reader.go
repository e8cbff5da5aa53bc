package artifact

import (
	"fmt"
	"os"

	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/dump"
)

// Load reads the artifact at Path(dir, filename). A missing file yields an
// error matching fs.ErrNotExist; anything unreadable as a compiled dump
// yields one matching dump.ErrCorrupt.
func Load(dir, filename string) (*container.Dump, error) {
	path := Path(dir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: reading %s: %w", path, err)
	}

	d, err := dump.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("artifact: %s: %w", path, err)
	}
	if !d.IsCompiled {
		return nil, fmt.Errorf("artifact: %s: %w", path, &dump.CorruptArtifactError{Reason: "dump is not compiled"})
	}
	return d, nil
}

// Exists reports whether an artifact file is present.
func Exists(dir, filename string) bool {
	fi, err := os.Stat(Path(dir, filename))
	return err == nil && fi.Mode().IsRegular()
}
