// Package metadata collects free-form key/value data attached to a run
// (build number, submission id, ...). It is echoed in the run summary, the
// webhook payload and the run_started event.
package metadata

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix marks environment variables copied into the metadata, e.g.
// TANDEM_META_BUILD=42 becomes build=42.
const EnvPrefix = "TANDEM_META_"

// ParseKV splits key=value and infers an int, float or bool value. Anything
// else stays a string.
func ParseKV(pair string) (string, any, error) {
	key, raw, ok := strings.Cut(pair, "=")
	if !ok {
		return "", nil, fmt.Errorf("invalid format, expected key=value: %s", pair)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", nil, fmt.Errorf("empty key in %q", pair)
	}
	return key, inferValue(strings.TrimSpace(raw)), nil
}

func inferValue(s string) any {
	// ints first so "1" is not read as a bool
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}

// ParsePairs parses every pair with ParseKV into one map.
func ParsePairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	m := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, err := ParseKV(p)
		if err != nil {
			return nil, err
		}
		m[k] = v
	}
	return m, nil
}

// ParseJSON decodes a JSON object.
func ParseJSON(s string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("metadata must be a JSON object: %w", err)
	}
	return m, nil
}

// ParseFile reads a JSON object, or a TOML table when the file ends in .toml.
func ParseFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}
	var m map[string]any
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, &m)
	} else {
		err = json.Unmarshal(data, &m)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid metadata file %s: %w", path, err)
	}
	return m, nil
}

// FromEnviron picks EnvPrefix variables out of environ, lower-casing the key.
func FromEnviron(environ []string) map[string]any {
	m := make(map[string]any)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) || len(key) == len(EnvPrefix) {
			continue
		}
		m[strings.ToLower(strings.TrimPrefix(key, EnvPrefix))] = inferValue(value)
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

// Merge combines maps left to right; later keys win. It returns nil when
// every input is empty.
func Merge(ms ...map[string]any) map[string]any {
	var out map[string]any
	for _, m := range ms {
		if len(m) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		maps.Copy(out, m)
	}
	return out
}

// Build merges, in increasing precedence, the environment, a metadata file
// and key=value pairs.
func Build(environ []string, file string, pairs []string) (map[string]any, error) {
	var fromFile map[string]any
	if file != "" {
		var err error
		if fromFile, err = ParseFile(file); err != nil {
			return nil, err
		}
	}
	fromPairs, err := ParsePairs(pairs)
	if err != nil {
		return nil, err
	}
	return Merge(FromEnviron(environ), fromFile, fromPairs), nil
}
