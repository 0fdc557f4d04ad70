package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TANDEM_"

type override struct {
	key   string
	apply func(c *Config, value string) error
}

var overrides = []override{
	{"TRIALS", intVar(func(c *Config) *int { return &c.Trials })},
	{"TIMEOUT_MS", int64Var(func(c *Config) *int64 { return &c.TimeoutMS })},
	{"STOP_ON_FIRST_DIFFERENCE", boolVar(func(c *Config) *bool { return &c.StopOnFirst })},
	{"PRINT_ONLY_FAILURES", boolVar(func(c *Config) *bool { return &c.PrintOnlyFailures })},
	{"DEBUG_LABEL", boolVar(func(c *Config) *bool { return &c.DebugLabel })},
	{"FAILURES_DIR", stringVar(func(c *Config) *string { return &c.FailuresDir })},
	{"PREDEFINED_TESTS", stringVar(func(c *Config) *string { return &c.PredefinedTests })},
	{"TARGET_A", stringVar(func(c *Config) *string { return &c.TargetA.Path })},
	{"TARGET_A_ARGS", stringVar(func(c *Config) *string { return &c.TargetA.Args })},
	{"TARGET_B", stringVar(func(c *Config) *string { return &c.TargetB.Path })},
	{"TARGET_B_ARGS", stringVar(func(c *Config) *string { return &c.TargetB.Args })},
	{"GENERATOR", stringVar(func(c *Config) *string { return &c.Generator.Name })},
	{"SEED", int64Var(func(c *Config) *int64 { return &c.Generator.Seed })},
	{"MEMCHECK", boolVar(func(c *Config) *bool { return &c.MemCheck.Enabled })},
	{"MEMCHECK_PATH", stringVar(func(c *Config) *string { return &c.MemCheck.Path })},
	{"MEMCHECK_FLAGS", func(c *Config, v string) error {
		c.MemCheck.Flags = strings.Fields(v)
		return nil
	}},
	{"UPLOAD_PROVIDER", stringVar(func(c *Config) *string { return &c.Upload.Provider })},
	{"EVENTS_KIND", stringVar(func(c *Config) *string { return &c.Events.Kind })},
	{"EVENTS_URL", stringVar(func(c *Config) *string { return &c.Events.URL })},
	{"EVENTS_SUBJECT", stringVar(func(c *Config) *string { return &c.Events.Subject })},
	{"EVENTS_QUEUE_URL", stringVar(func(c *Config) *string { return &c.Events.QueueURL })},
	{"WEBHOOK_URL", stringVar(func(c *Config) *string { return &c.Webhook.URL })},
	{"WEBHOOK_AUTH_TYPE", stringVar(func(c *Config) *string { return &c.Webhook.AuthType })},
	{"WEBHOOK_AUTH_TOKEN", stringVar(func(c *Config) *string { return &c.Webhook.AuthToken })},
}

// uploadOptionPrefix exposes individual upload options, e.g.
// TANDEM_UPLOAD_OPTION_SECRET_KEY sets upload.options.secret_key.
const uploadOptionPrefix = "UPLOAD_OPTION_"

func applyEnv(c *Config, lookup func(string) (string, bool)) error {
	for _, o := range overrides {
		value, ok := lookup(EnvPrefix + o.key)
		if !ok {
			continue
		}
		if err := o.apply(c, value); err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, o.key, err)
		}
	}
	return nil
}

// ApplyUploadOptionEnv copies TANDEM_UPLOAD_OPTION_* variables from environ
// into the upload options.
func (c *Config) ApplyUploadOptionEnv(environ []string) {
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix+uploadOptionPrefix) || value == "" {
			continue
		}
		if c.Upload.Options == nil {
			c.Upload.Options = make(map[string]any)
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix+uploadOptionPrefix))
		c.Upload.Options[name] = value
	}
}

func stringVar(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func intVar(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func int64Var(field func(*Config) *int64) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func boolVar(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return err
		}
		*field(c) = b
		return nil
	}
}
