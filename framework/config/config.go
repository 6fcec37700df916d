// Package config reads harness settings from a YAML or TOML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"gopkg.in/yaml.v3"

	"github.com/testrt/threadharness/framework/runtest"
)

// Format identifies the syntax of a config file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

var (
	ErrUnknownFormat = errors.New("unknown config file format")
	ErrInvalidConfig = errors.New("invalid config")
)

// Config holds every setting that can come from a file. Zero values mean "use the default".
type Config struct {
	Program          string        `yaml:"program" toml:"program"`
	PollIntervalMin  time.Duration `yaml:"pollIntervalMin" toml:"pollIntervalMin"`
	PollIntervalMax  time.Duration `yaml:"pollIntervalMax" toml:"pollIntervalMax"`
	DefaultStackSize int           `yaml:"defaultStackSize" toml:"defaultStackSize"`
	ThreadLimit      int           `yaml:"threadLimit" toml:"threadLimit"`
	Verbose          bool          `yaml:"verbose" toml:"verbose"`
	JUnitFile        string        `yaml:"junitFile" toml:"junitFile"`
	MetricsFile      string        `yaml:"metricsFile" toml:"metricsFile"`
	LogLevel         string        `yaml:"logLevel" toml:"logLevel"`
}

// FormatForPath picks the format from a file name's extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .yaml, .yml or .toml)", ErrUnknownFormat, path)
	}
}

// Load reads and validates a config file.
func Load(path string) (Config, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	c, err := Parse(data, format)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates config data. Keys that do not correspond to any setting
// are an error, so that a misspelled key is not silently ignored.
func Parse(data []byte, format Format) (Config, error) {
	var c Config
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &c)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrInvalidConfig, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) != 0 {
			return Config{}, fmt.Errorf("%w: unknown keys %v", ErrInvalidConfig, undecoded)
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	if c.PollIntervalMin < 0 || c.PollIntervalMax < 0 {
		return fmt.Errorf("%w: poll intervals can not be negative", ErrInvalidConfig)
	}
	if c.PollIntervalMin > 0 && c.PollIntervalMax > 0 && c.PollIntervalMax < c.PollIntervalMin {
		return fmt.Errorf("%w: pollIntervalMax (%s) is less than pollIntervalMin (%s)",
			ErrInvalidConfig, c.PollIntervalMax, c.PollIntervalMin)
	}
	if c.DefaultStackSize != 0 &&
		(c.DefaultStackSize < runtest.MinStackSize || c.DefaultStackSize > runtest.MaxStackSize) {
		return fmt.Errorf("%w: defaultStackSize must be between %d and %d bytes",
			ErrInvalidConfig, runtest.MinStackSize, runtest.MaxStackSize)
	}
	if c.ThreadLimit < 0 {
		return fmt.Errorf("%w: threadLimit can not be negative", ErrInvalidConfig)
	}
	if _, err := c.MinLogLevel(); err != nil {
		return err
	}
	return nil
}

// MinLogLevel returns the level below which harness diagnostics are suppressed. The default
// is ldlog.Info.
func (c Config) MinLogLevel() (ldlog.LogLevel, error) {
	switch strings.ToLower(c.LogLevel) {
	case "":
		return ldlog.Info, nil
	case "debug":
		return ldlog.Debug, nil
	case "info":
		return ldlog.Info, nil
	case "warn", "warning":
		return ldlog.Warn, nil
	case "error":
		return ldlog.Error, nil
	case "none":
		return ldlog.None, nil
	default:
		return ldlog.None, fmt.Errorf("%w: unknown logLevel %q", ErrInvalidConfig, c.LogLevel)
	}
}

// Merge returns c with every setting that is set in override replaced. Booleans can only
// be turned on by an override.
func (c Config) Merge(override Config) Config {
	ret := c
	if override.Program != "" {
		ret.Program = override.Program
	}
	if override.PollIntervalMin != 0 {
		ret.PollIntervalMin = override.PollIntervalMin
	}
	if override.PollIntervalMax != 0 {
		ret.PollIntervalMax = override.PollIntervalMax
	}
	if override.DefaultStackSize != 0 {
		ret.DefaultStackSize = override.DefaultStackSize
	}
	if override.ThreadLimit != 0 {
		ret.ThreadLimit = override.ThreadLimit
	}
	ret.Verbose = ret.Verbose || override.Verbose
	if override.JUnitFile != "" {
		ret.JUnitFile = override.JUnitFile
	}
	if override.MetricsFile != "" {
		ret.MetricsFile = override.MetricsFile
	}
	if override.LogLevel != "" {
		ret.LogLevel = override.LogLevel
	}
	return ret
}
