package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the typed bootstrap configuration. It is read once, before the
// container exists, and then handed to the container as parameters.
type Config struct {
	App       AppConfig
	Container ContainerConfig
	DB        DBConfig
	Log       LogConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	Port  string
	Key   string
}

// ContainerConfig locates the compiled container artifact.
type ContainerConfig struct {
	DumpDirectory string
	Filename      string
	// Definitions is an optional YAML file of service definitions.
	Definitions string
}

type DBConfig struct {
	Driver    string
	Host      string
	Port      string
	Database  string
	Username  string
	Password  string
	Charset   string
	Collation string
}

type LogConfig struct {
	Level  string // debug | info | warn | error
	Format string // text | json
}

// Load reads the given env files (default .env) and populates a Config.
// Process environment variables take precedence over file values. Missing
// files are skipped; unreadable ones are an error.
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}

	fileVars := map[string]string{}
	for _, f := range files {
		vars, err := godotenv.Read(f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for k, v := range vars {
			if _, seen := fileVars[k]; !seen {
				fileVars[k] = v
			}
		}
	}
	e := source(fileVars)

	return &Config{
		App: AppConfig{
			Name:  e.str("APP_NAME", "GoContainer"),
			Env:   e.str("APP_ENV", "local"),
			Debug: e.boolean("APP_DEBUG", true),
			Port:  e.str("APP_PORT", "8000"),
			Key:   e.str("APP_KEY", ""),
		},
		Container: ContainerConfig{
			DumpDirectory: e.str("CONTAINER_DUMP_DIR", "./storage/container"),
			Filename:      e.str("CONTAINER_FILENAME", "container"),
			Definitions:   e.str("CONTAINER_DEFINITIONS", ""),
		},
		DB: DBConfig{
			Driver:    e.str("DB_DRIVER", "mysql"),
			Host:      e.str("DB_HOST", "127.0.0.1"),
			Port:      e.str("DB_PORT", "3306"),
			Database:  e.str("DB_DATABASE", ""),
			Username:  e.str("DB_USERNAME", "root"),
			Password:  e.str("DB_PASSWORD", ""),
			Charset:   e.str("DB_CHARSET", ""),
			Collation: e.str("DB_COLLATION", ""),
		},
		Log: LogConfig{
			Level:  e.str("LOG_LEVEL", "info"),
			Format: e.str("LOG_FORMAT", "text"),
		},
	}, nil
}

// Parameters flattens the configuration into container parameters.
func (c *Config) Parameters() map[string]any {
	return map[string]any{
		"kernel.debug":             c.App.Debug,
		"kernel.environment":       c.App.Env,
		"app.name":                 c.App.Name,
		"app.key":                  c.App.Key,
		"app.port":                 c.App.Port,
		"container.dump_directory": c.Container.DumpDirectory,
		"container.filename":       c.Container.Filename,
		"database":                 c.DB.Options(),
	}
}

// Options returns the connection parameters in the shape the database
// factory consumes. Empty charset and collation are omitted.
func (d DBConfig) Options() map[string]any {
	opts := map[string]any{
		"driver":   d.Driver,
		"host":     d.Host,
		"port":     d.Port,
		"dbname":   d.Database,
		"user":     d.Username,
		"password": d.Password,
	}
	if d.Charset != "" {
		opts["charset"] = d.Charset
	}
	if d.Collation != "" {
		opts["collation"] = d.Collation
	}
	return opts
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return source(nil).str(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return source(nil).boolean(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

// source resolves a key from the process environment, then from values read
// out of env files.
type source map[string]string

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s[key]
}

func (s source) str(key, fallback string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return fallback
}

func (s source) boolean(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
