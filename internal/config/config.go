// Package config loads the tandem run configuration: a TOML file, an
// optional .env file, and TANDEM_* environment overrides, in increasing
// order of precedence. Command-line flags are applied on top by cmd.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/zinc-sig/tandem/internal/events"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = "tandem.toml"

type Config struct {
	Trials            int    `toml:"trials" comment:"Number of trials to run"`
	TimeoutMS         int64  `toml:"timeout_ms" comment:"Per-execution wall clock limit in milliseconds, 0 disables it"`
	StopOnFirst       bool   `toml:"stop_on_first_difference" comment:"Stop the whole run at the first mismatch or timeout"`
	PrintOnlyFailures bool   `toml:"print_only_failures" comment:"Show a progress bar instead of a line per passing trial"`
	DebugLabel        bool   `toml:"debug_label" comment:"Prefix saved failing inputs with their label"`
	FailuresDir       string `toml:"failures_dir" comment:"Directory for failing inputs"`
	PredefinedTests   string `toml:"predefined_tests" comment:"Optional file of '---' separated inputs run before generated ones"`

	TargetA   Target          `toml:"target_a"`
	TargetB   Target          `toml:"target_b"`
	Generator GeneratorConfig `toml:"generator"`
	MemCheck  MemCheckConfig  `toml:"memcheck"`
	Upload    UploadConfig    `toml:"upload"`
	Events    events.Config   `toml:"events"`
	Webhook   WebhookConfig   `toml:"webhook"`
}

type Target struct {
	Path string `toml:"path"`
	Args string `toml:"args" comment:"Extra arguments, split on whitespace"`
}

// ArgList splits Args on whitespace.
func (t Target) ArgList() []string {
	return strings.Fields(t.Args)
}

type GeneratorConfig struct {
	Name       string `toml:"name" comment:"lines, labeled or command"`
	Seed       int64  `toml:"seed" comment:"0 picks a time based seed"`
	MinLines   int    `toml:"min_lines"`
	MaxLines   int    `toml:"max_lines"`
	MaxWords   int    `toml:"max_words"`
	MinWordLen int    `toml:"min_word_len"`
	MaxWordLen int    `toml:"max_word_len"`
	Alphabet   string `toml:"alphabet"`
	Command    string `toml:"command" comment:"Program whose stdout becomes the input (command generator)"`
	Args       string `toml:"args"`
	TimeoutMS  int64  `toml:"timeout_ms"`
}

type MemCheckConfig struct {
	Enabled    bool     `toml:"enabled"`
	Path       string   `toml:"path" comment:"Memory checker executable"`
	Flags      []string `toml:"flags" comment:"Checker flags placed before '--'"`
	Generators []string `toml:"generators" comment:"Generators whose runs are memory checked"`
}

type UploadConfig struct {
	Provider string         `toml:"provider" comment:"Empty disables uploads; available: minio"`
	Compress bool           `toml:"compress" comment:"zstd compress uploaded artifacts"`
	Options  map[string]any `toml:"options,omitempty"`
}

type WebhookConfig struct {
	URL          string            `toml:"url"`
	Method       string            `toml:"method"`
	AuthType     string            `toml:"auth_type" comment:"none, bearer, api-key or hmac"`
	AuthToken    string            `toml:"auth_token"`
	TimeoutMS    int64             `toml:"timeout_ms"`
	Retries      int               `toml:"retries"`
	RetryDelayMS int64             `toml:"retry_delay_ms"`
	Headers      map[string]string `toml:"headers,omitempty"`
}

// Default returns the configuration used when a key is absent.
func Default() *Config {
	return &Config{
		Trials:      10,
		TimeoutMS:   15000,
		FailuresDir: "Failures",
		Generator: GeneratorConfig{
			Name:       "lines",
			MinLines:   1,
			MaxLines:   8,
			MaxWords:   6,
			MinWordLen: 1,
			MaxWordLen: 10,
			Alphabet:   "abcdefghijklmnopqrstuvwxyz",
			TimeoutMS:  5000,
		},
		MemCheck: MemCheckConfig{
			Path:       "drmemory",
			Flags:      []string{"-batch"},
			Generators: []string{"lines", "labeled", "command"},
		},
		Webhook: WebhookConfig{
			Method:       "POST",
			AuthType:     "none",
			TimeoutMS:    30000,
			Retries:      3,
			RetryDelayMS: 1000,
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		dec := toml.NewDecoder(f).DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, fmt.Errorf("failed to parse config file %s: %s", path, strict.String())
			}
			var decodeErr *toml.DecodeError
			if errors.As(err, &decodeErr) {
				row, col := decodeErr.Position()
				return nil, fmt.Errorf("failed to parse config file %s at line %d column %d: %w", path, row, col, err)
			}
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	switch {
	case c.Trials < 0:
		return fmt.Errorf("trials must not be negative, got %d", c.Trials)
	case c.TimeoutMS < 0:
		return fmt.Errorf("timeout_ms must not be negative, got %d", c.TimeoutMS)
	case c.TargetA.Path == "":
		return errors.New("target_a.path is required")
	case c.TargetB.Path == "":
		return errors.New("target_b.path is required")
	case c.FailuresDir == "":
		return errors.New("failures_dir must not be empty")
	case c.Generator.Name == "":
		return errors.New("generator.name is required")
	case c.MemCheck.Enabled && c.MemCheck.Path == "":
		return errors.New("memcheck.path is required when memory checking is enabled")
	case c.Upload.Provider != "" && len(c.Upload.Options) == 0:
		return fmt.Errorf("upload.options are required for provider %s", c.Upload.Provider)
	case c.Webhook.Retries < 0:
		return fmt.Errorf("webhook.retries must not be negative, got %d", c.Webhook.Retries)
	}
	return nil
}

func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// MemCheckGenerators returns the set of generator names whose runs are
// memory checked.
func (c *Config) MemCheckGenerators() mapset.Set[string] {
	return mapset.NewSet(c.MemCheck.Generators...)
}

// MemCheckEnabled reports whether memory checking applies to this run's
// generator.
func (c *Config) MemCheckEnabled() bool {
	return c.MemCheck.Enabled && c.MemCheckGenerators().Contains(c.Generator.Name)
}

// WriteDefault writes the default configuration to path. An existing file
// is only replaced when force is set.
func WriteDefault(path string, force bool) error {
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to encode default config: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !force {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	header := "# tandem configuration\n# Targets must be set before running: tandem run --config " + path + "\n\n"
	if _, err := f.WriteString(header); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
