// Package config loads localdoc settings from YAML or CUE files.
//
// Both formats are checked against the embedded CUE schema (schema.cue),
// which also supplies defaults. The LOCALDOC_DB environment variable
// overrides the store path after the file is read.
package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/localdoc/internal/connmgr"
)

// EnvDB overrides Store.Path when set.
const EnvDB = "LOCALDOC_DB"

//go:embed schema.cue
var schemaSource string

// Config is the full localdoc configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" json:"store"`
	Log     LogConfig     `yaml:"log" json:"log"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	ACL     ACLConfig     `yaml:"acl" json:"acl"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path          string `yaml:"path" json:"path"`
	InMemory      bool   `yaml:"in_memory" json:"in_memory"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
}

// LogConfig selects the slog level and handler (text or json).
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig turns on the Prometheus collectors.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
}

// ACLConfig holds the CEL read rule. Empty selects the built-in rule.
type ACLConfig struct {
	Rule string `yaml:"rule" json:"rule"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Path:          "localdoc.db",
			BusyTimeoutMS: int(connmgr.DefaultBusyTimeout / time.Millisecond),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path (".yaml", ".yml" or ".cue"). An empty path returns the
// defaults. The environment override is applied in both cases.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			cfg, err = ParseYAML(data)
		case ".cue":
			cfg, err = ParseCUE(data, path)
		default:
			return Config{}, fmt.Errorf("unsupported config format %q", ext)
		}
		if err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

// ParseYAML decodes YAML over the defaults and checks the result against
// the schema. Unknown keys are rejected.
func ParseYAML(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}

	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return Config{}, err
	}
	if err := schema.Unify(ctx.Encode(cfg)).Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// ParseCUE unifies a CUE document with the schema and decodes the result.
// filename is used in error positions only.
func ParseCUE(data []byte, filename string) (Config, error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return Config{}, err
	}

	file := ctx.CompileBytes(data, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Config{}, fmt.Errorf("compile cue: %w", err)
	}

	unified := schema.Unify(file)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	var cfg Config
	if err := unified.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func compileSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("lookup #Config: %w", err)
	}
	return def, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if db := getenv(EnvDB); db != "" {
		c.Store.Path = db
		c.Store.InMemory = db == connmgr.MemoryPath
	}
}

// BusyTimeout returns the store busy timeout as a duration.
func (c Config) BusyTimeout() time.Duration {
	return time.Duration(c.Store.BusyTimeoutMS) * time.Millisecond
}

// ConnOptions converts the store section into connmgr options.
func (c Config) ConnOptions(logger *slog.Logger) connmgr.Options {
	return connmgr.Options{
		Path:        c.Store.Path,
		InMemory:    c.Store.InMemory,
		BusyTimeout: c.BusyTimeout(),
		Logger:      logger,
	}
}

// SlogLevel parses Log.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// NewLogger builds a logger writing to w in the configured format.
// verbose forces debug level.
func (c Config) NewLogger(w io.Writer, verbose bool) (*slog.Logger, error) {
	lvl, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch c.Log.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Log.Format)
	}
}
