package artifact_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-container/framework/artifact"
	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/dump"
)

func compiledDump(t *testing.T, greeting string) *container.Dump {
	t.Helper()
	src := container.NewSource(nil)
	src.SetParameter("greeting", greeting)
	src.Register("greeter", &container.Definition{Class: "Greeter", Arguments: []container.Argument{container.Param("greeting")}})
	d, err := container.Compile(src)
	require.NoError(t, err)
	return d
}

func TestWrite_Load(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "storage", "container")
	d := compiledDump(t, "hello")

	require.NoError(t, artifact.NewWriter().Write(dir, "container", d))
	assert.FileExists(t, filepath.Join(dir, "container.json"))
	assert.True(t, artifact.Exists(dir, "container"))

	got, err := artifact.Load(dir, "container")
	require.NoError(t, err)
	assert.True(t, d.Equal(got))
	assert.True(t, got.IsCompiled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp or probe files are left behind")
}

func TestWrite_Modes(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	w := artifact.NewWriter(artifact.WithDirMode(0o700), artifact.WithFileMode(0o600))
	require.NoError(t, w.Write(dir, "c", compiledDump(t, "x")))

	fi, err := os.Stat(artifact.Path(dir, "c"))
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o600), fi.Mode().Perm())

	di, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, fs.FileMode(0o700), di.Mode().Perm()&^0o022)
}

func TestWrite_Overwrites(t *testing.T) {
	dir := t.TempDir()
	w := artifact.NewWriter()
	require.NoError(t, w.Write(dir, "container", compiledDump(t, "one")))
	require.NoError(t, w.Write(dir, "container", compiledDump(t, "two")))

	got, err := artifact.Load(dir, "container")
	require.NoError(t, err)
	assert.Equal(t, "two", got.Parameters["greeting"])
}

func TestWrite_CannotCreateDirectory(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := artifact.NewWriter().Write(filepath.Join(blocker, "sub"), "container", compiledDump(t, "x"))

	var ce *artifact.CannotCreateDirectoryError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, filepath.Join(blocker, "sub"), ce.Dir)

	err = artifact.NewWriter().Write(blocker, "container", compiledDump(t, "x"))
	assert.ErrorAs(t, err, &ce)
}

func TestWrite_NotWritable(t *testing.T) {
	dir := t.TempDir()
	denied := errors.New("read-only filesystem")
	w := artifact.NewWriter(artifact.WithAccessCheck(func(string) error { return denied }))

	err := w.Write(dir, "container", compiledDump(t, "x"))

	var ne *artifact.DirectoryNotWritableError
	require.ErrorAs(t, err, &ne)
	assert.ErrorIs(t, err, denied)
	assert.NoFileExists(t, artifact.Path(dir, "container"))
}

func TestWrite_NotWritable_Permissions(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	require.NoError(t, os.Mkdir(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	err := artifact.NewWriter().Write(dir, "container", compiledDump(t, "x"))

	var ne *artifact.DirectoryNotWritableError
	assert.ErrorAs(t, err, &ne)
}

func TestWrite_SerializationErrorWritesNothing(t *testing.T) {
	dir := t.TempDir()
	d := &container.Dump{Parameters: map[string]any{"ch": make(chan int)}, IsCompiled: true}

	err := artifact.NewWriter().Write(dir, "container", d)
	assert.ErrorIs(t, err, dump.ErrUnsupportedValue)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLoad_Missing(t *testing.T) {
	_, err := artifact.Load(t.TempDir(), "container")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.False(t, artifact.Exists(t.TempDir(), "container"))
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(artifact.Path(dir, "container"), []byte(`{"format":`), 0o644))

	_, err := artifact.Load(dir, "container")
	assert.ErrorIs(t, err, dump.ErrCorrupt)
}

func TestLoad_NotCompiled(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, artifact.NewWriter().Write(dir, "container", &container.Dump{}))

	_, err := artifact.Load(dir, "container")
	assert.ErrorIs(t, err, dump.ErrCorrupt)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, artifact.NewWriter().Write(dir, "container", compiledDump(t, "x")))

	require.NoError(t, artifact.Remove(dir, "container"))
	assert.NoFileExists(t, artifact.Path(dir, "container"))
	assert.NoError(t, artifact.Remove(dir, "container"))
}

func TestWrite_ConcurrentWritersReaderNeverSeesPartialFile(t *testing.T) {
	dir := t.TempDir()
	w := artifact.NewWriter()
	require.NoError(t, w.Write(dir, "container", compiledDump(t, "seed")))

	dumps := []*container.Dump{compiledDump(t, "left"), compiledDump(t, "right")}

	var writers sync.WaitGroup
	for _, d := range dumps {
		writers.Add(1)
		go func(d *container.Dump) {
			defer writers.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(t, w.Write(dir, "container", d))
			}
		}(d)
	}

	done := make(chan struct{})
	go func() {
		writers.Wait()
		close(done)
	}()

	for reading := true; reading; {
		select {
		case <-done:
			reading = false
		default:
		}
		got, err := artifact.Load(dir, "container")
		require.NoError(t, err)
		assert.Contains(t, []any{"seed", "left", "right"}, got.Parameters["greeting"])
	}

	got, err := artifact.Load(dir, "container")
	require.NoError(t, err)
	assert.True(t, got.Equal(dumps[0]) || got.Equal(dumps[1]))
}
