// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/askthread/internal/util"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "ASKTHREAD_"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete askthread configuration.
type Config struct {
	Service  ServiceConfig  `toml:"service" json:"service"`
	Feedback FeedbackConfig `toml:"feedback" json:"feedback"`
	UI       UIConfig       `toml:"ui" json:"ui"`
	Log      LogConfig      `toml:"log" json:"log"`
}

// ServiceConfig points at the answer service.
type ServiceConfig struct {
	// BaseURL is the root of the answer service API, e.g. https://api.example.com
	BaseURL string `toml:"base_url" json:"base_url"`
	// IntegrationID identifies this client to the service.
	IntegrationID string `toml:"integration_id" json:"integration_id"`
	// TimeoutSecs bounds feedback calls and stream connection setup.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// FeedbackConfig contains comment form behaviour.
type FeedbackConfig struct {
	// ConfirmDelayMs is how long the thank-you state stays visible.
	ConfirmDelayMs int `toml:"confirm_delay_ms" json:"confirm_delay_ms"`
}

// UIConfig contains rendering preferences.
type UIConfig struct {
	// Markdown renders answers with glamour when true.
	Markdown bool `toml:"markdown" json:"markdown"`
	// WordWrap is the render width for answers; 0 uses the terminal width.
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme" json:"theme"`
}

// LogConfig controls diagnostics output.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level" json:"level"`
	// File receives logs when set. The TUI logs nowhere else.
	File string `toml:"file" json:"file"`
}

// Timeout returns the service timeout as a duration.
func (c ServiceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ConfirmDelay returns the confirmation delay as a duration.
func (c FeedbackConfig) ConfirmDelay() time.Duration {
	return time.Duration(c.ConfirmDelayMs) * time.Millisecond
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			TimeoutSecs: 30,
		},
		Feedback: FeedbackConfig{
			ConfirmDelayMs: 1500,
		},
		UI: UIConfig{
			Markdown: true,
			WordWrap: 0,
			Theme:    "auto",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the askthread configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".askthread"), nil
}

// ConfigPath returns the path to the default config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config file at path, or the default location when path is
// empty. A missing file is not an error. Environment overrides are applied
// last, then the result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	if _, err := os.Stat(path); err == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	if err := cfg.ApplyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Unknown keys are rejected.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	defaults := Default()
	if c.Service.TimeoutSecs == 0 {
		c.Service.TimeoutSecs = defaults.Service.TimeoutSecs
	}
	if c.Feedback.ConfirmDelayMs == 0 {
		c.Feedback.ConfirmDelayMs = defaults.Feedback.ConfirmDelayMs
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	c.Service.BaseURL = strings.TrimRight(c.Service.BaseURL, "/")
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes cfg to path with a header comment.
func SaveTOML(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# askthread configuration file")
	fmt.Fprintf(&buf, "# Every key can be overridden with an %s* environment variable,\n", EnvPrefix)
	fmt.Fprintln(&buf, "# e.g. ASKTHREAD_SERVICE_BASE_URL.")
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0o600, 0o700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

var validLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "error": true, "disabled": true,
}

var validThemes = map[string]bool{"auto": true, "dark": true, "light": true}

// Validate checks the configuration. An empty base URL is allowed so the
// demo client can run without one.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Service.BaseURL != "" {
		u, err := url.Parse(c.Service.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "service.base_url",
				Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Service.BaseURL),
			})
		}
	}
	if c.Service.TimeoutSecs < 1 || c.Service.TimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "service.timeout_secs",
			Message: fmt.Sprintf("must be between 1 and 600, got %d", c.Service.TimeoutSecs),
		})
	}
	if c.Feedback.ConfirmDelayMs < 0 || c.Feedback.ConfirmDelayMs > 60000 {
		errs = append(errs, ValidationError{
			Field:   "feedback.confirm_delay_ms",
			Message: fmt.Sprintf("must be between 0 and 60000, got %d", c.Feedback.ConfirmDelayMs),
		})
	}
	if c.UI.WordWrap < 0 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must not be negative"})
	}
	if !validThemes[c.UI.Theme] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("must be auto, dark or light, got %q", c.UI.Theme),
		})
	}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, ValidationError{
			Field:   "log.level",
			Message: fmt.Sprintf("unknown level %q", c.Log.Level),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides sets every field whose ASKTHREAD_<SECTION>_<KEY> variable
// is present, e.g. ASKTHREAD_SERVICE_BASE_URL or ASKTHREAD_LOG_LEVEL.
func (c *Config) ApplyEnvOverrides(lookup func(string) (string, bool)) error {
	var errs []error
	for _, key := range Keys() {
		name := EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		value, ok := lookup(name)
		if !ok {
			continue
		}
		if err := c.Set(key, value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Keys returns every configuration key in dot notation, in declaration order.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			keys = append(keys, tomlName(section)+"."+tomlName(section.Type.Field(j)))
		}
	}
	return keys
}

// Get retrieves a configuration value using dot notation (e.g. "service.base_url").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a configuration value from its string form.
func (c *Config) Set(key, value string) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid integer value %q", value)
		}
		field.SetInt(int64(n))
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("invalid boolean value %q", value)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("cannot set %s of kind %s", key, field.Kind())
	}
	return nil
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if len(parts) != 2 {
		return reflect.Value{}, fmt.Errorf("key must be section.name, got %q", key)
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		idx := fieldIndex(v.Type(), part)
		if idx < 0 {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		v = v.Field(idx)
	}
	return v, nil
}

func fieldIndex(t reflect.Type, name string) int {
	for i := 0; i < t.NumField(); i++ {
		if strings.EqualFold(tomlName(t.Field(i)), name) {
			return i
		}
	}
	return -1
}

func tomlName(f reflect.StructField) string {
	if tag := f.Tag.Get("toml"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return strings.ToLower(f.Name)
}

// String returns the config as indented JSON for display.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
