package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-container/framework/container"
	"github.com/km-arc/go-container/framework/loader"
)

const definitions = `
parameters:
  mailer.transport: smtp
  mailer.port: 25
  mailer.hosts: [a, b]
services:
  transport:
    factory: "Transport::fromDSN"
    arguments: ["%mailer.transport%://localhost:%mailer.port%"]
  mailer:
    class: Mailer
    arguments:
      - "@transport"
      - "@?logger"
      - "%mailer.port%"
      - "@@literal"
      - 3.5
      - { retries: 3 }
    calls:
      - [SetTransport, ["@mail.transport"]]
      - [Warmup]
    tags: [app.mailer]
  built:
    factory: ["@builder", build]
    shared: false
  builder:
    class: Builder
  mail: "@mailer"
  mail.transport: "@transport"
`

func TestLoad(t *testing.T) {
	src := container.NewSource(nil)
	require.NoError(t, loader.Load(src, []byte(definitions)))

	assert.Equal(t, []string{"transport", "mailer", "built", "builder"}, src.IDs())
	assert.Equal(t, map[string]string{"mail": "mailer", "mail.transport": "transport"}, src.Aliases())

	v, err := src.Parameter("mailer.port")
	require.NoError(t, err)
	assert.EqualValues(t, 25, v)

	transport, ok := src.Definition("transport")
	require.True(t, ok)
	assert.Equal(t, &container.Factory{Class: "Transport", Method: "fromDSN"}, transport.Factory)
	assert.Equal(t, []container.Argument{container.Value("%mailer.transport%://localhost:%mailer.port%")}, transport.Arguments)

	mailer, ok := src.Definition("mailer")
	require.True(t, ok)
	assert.Equal(t, "Mailer", mailer.Class)
	assert.Equal(t, []container.Argument{
		container.Ref("transport"),
		container.OptionalRef("logger"),
		container.Param("mailer.port"),
		container.Value("@literal"),
		container.Value(3.5),
		container.Value(map[string]any{"retries": 3}),
	}, mailer.Arguments)
	assert.Equal(t, []container.Call{
		{Method: "SetTransport", Arguments: []container.Argument{container.Ref("mail.transport")}},
		{Method: "Warmup"},
	}, mailer.Calls)
	assert.Equal(t, []string{"app.mailer"}, mailer.Tags)
	assert.False(t, mailer.Transient)

	built, ok := src.Definition("built")
	require.True(t, ok)
	assert.Equal(t, &container.Factory{Service: "builder", Method: "build"}, built.Factory)
	assert.True(t, built.Transient)
}

func TestLoad_CompilesAndRuns(t *testing.T) {
	reg := container.NewRegistry()
	reg.Factory("Transport::fromDSN", func(_ any, args ...any) (any, error) { return args[0], nil })
	reg.Class("Mailer", func(args ...any) (any, error) { return args, nil })
	reg.Method("Mailer", "SetTransport", func(any, ...any) error { return nil })
	reg.Method("Mailer", "Warmup", func(any, ...any) error { return nil })
	reg.Class("Builder", func(...any) (any, error) { return "b", nil })
	reg.Factory("Builder::build", func(recv any, _ ...any) (any, error) { return recv.(string) + "!", nil })

	src := container.NewSource(reg)
	require.NoError(t, loader.Load(src, []byte(definitions)))

	v, err := src.Get("transport")
	require.NoError(t, err)
	assert.Equal(t, "smtp://localhost:25", v)

	args, err := container.Resolve[[]any](src, "mail")
	require.NoError(t, err)
	assert.Equal(t, "smtp://localhost:25", args[0])
	assert.Nil(t, args[1])
	assert.Equal(t, int64(25), args[2])
	assert.Equal(t, map[string]any{"retries": int64(3)}, args[5])
}

func TestLoad_Empty(t *testing.T) {
	src := container.NewSource(nil)
	require.NoError(t, loader.Load(src, nil))
	require.NoError(t, loader.Load(src, []byte("# nothing\n")))
	require.NoError(t, loader.Load(src, []byte("services:\n")))
	assert.Empty(t, src.IDs())
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"syntax":          "services: [",
		"top level":       "- a\n- b\n",
		"unknown section": "imports: []\n",
		"services list":   "services: [a]\n",
		"service scalar":  "services:\n  a: Mailer\n",
		"self alias":      "services:\n  a: \"@a\"\n",
		"unknown key":     "services:\n  a: { klass: A }\n",
		"bad factory":     "services:\n  a: { factory: \"A.create\" }\n",
		"factory list":    "services:\n  a: { factory: [\"@b\"] }\n",
		"bad calls":       "services:\n  a: { class: A, calls: [SetX] }\n",
		"bad arguments":   "services:\n  a: { class: A, arguments: \"@b\" }\n",
		"bad shared":      "services:\n  a: { class: A, shared: maybe }\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			src := container.NewSource(nil)
			err := loader.Load(src, []byte(in))
			assert.ErrorIs(t, err, loader.ErrInvalidFile)
			assert.Empty(t, src.IDs(), "nothing is applied on error")
		})
	}
}

func TestLoad_AllOrNothing(t *testing.T) {
	src := container.NewSource(nil)
	err := loader.Load(src, []byte("parameters: { a: 1 }\nservices:\n  ok: { class: A }\n  bad: { class: [x] }\n"))
	assert.ErrorIs(t, err, loader.ErrInvalidFile)
	assert.Empty(t, src.IDs())
	assert.False(t, src.HasParameter("a"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(definitions), 0o644))

	src := container.NewSource(nil)
	require.NoError(t, loader.LoadFile(src, path))
	assert.Len(t, src.IDs(), 4)

	err := loader.LoadFile(src, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
