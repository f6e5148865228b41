// Package config loads quire's project configuration from config.yaml,
// layered over built-in defaults and QUIRE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/jmurray2011/quire/internal/analysis"
	qerrors "github.com/jmurray2011/quire/internal/errors"
	"github.com/jmurray2011/quire/internal/logging"
)

// EnvPrefix is the prefix for environment overrides, e.g. QUIRE_CACHE_SIZE.
const EnvPrefix = "QUIRE"

// SupportedFormats lists the manuscript formats the compiler can produce.
var SupportedFormats = []string{"pdf", "docx", "epub"}

// ErrConfigNotFound is returned alongside the default configuration when the
// config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// Config is the full project configuration.
type Config struct {
	Stopwords           []string `mapstructure:"stopwords" yaml:"stopwords"`
	TopWordsCount       int      `mapstructure:"top_words_count" yaml:"top_words_count"`
	PandocOutputFormats []string `mapstructure:"pandoc_output_formats" yaml:"pandoc_output_formats"`
	OutlineFile         string   `mapstructure:"outline_file" yaml:"outline_file"`
	DraftsDir           string   `mapstructure:"drafts_dir" yaml:"drafts_dir"`
	CompiledDir         string   `mapstructure:"compiled_dir" yaml:"compiled_dir"`

	// CacheSize bounds the analysis cache. Zero disables caching.
	CacheSize   int    `mapstructure:"cache_size" yaml:"cache_size"`
	MaxFileSize int64  `mapstructure:"max_file_size" yaml:"max_file_size"`
	Encoding    string `mapstructure:"encoding" yaml:"encoding"`

	// Workers is the number of scenes analyzed in parallel; zero means one per CPU.
	Workers   int    `mapstructure:"workers" yaml:"workers"`
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	Compilation Compilation `mapstructure:"compilation" yaml:"compilation"`
	Publish     Publish     `mapstructure:"publish" yaml:"publish"`
}

// Compilation configures manuscript conversion.
type Compilation struct {
	// Timeout is the per-format conversion limit in seconds; zero means none.
	Timeout    int                     `mapstructure:"timeout" yaml:"timeout"`
	Retries    int                     `mapstructure:"retries" yaml:"retries"`
	PandocPath string                  `mapstructure:"pandoc_path" yaml:"pandoc_path"`
	Formats    map[string]FormatConfig `mapstructure:"formats" yaml:"formats"`
}

// FormatConfig holds per-format converter settings.
type FormatConfig struct {
	Enabled   bool     `mapstructure:"enabled" yaml:"enabled"`
	ExtraArgs []string `mapstructure:"extra_args" yaml:"extra_args,omitempty"`
}

// Publish configures optional upload of compiled files to S3.
type Publish struct {
	Bucket  string `mapstructure:"bucket" yaml:"bucket"`
	Prefix  string `mapstructure:"prefix" yaml:"prefix"`
	Profile string `mapstructure:"profile" yaml:"profile,omitempty"`
	Region  string `mapstructure:"region" yaml:"region,omitempty"`

	// MetricsNamespace, when set, also reports project totals to CloudWatch.
	MetricsNamespace string `mapstructure:"metrics_namespace" yaml:"metrics_namespace,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Stopwords: []string{
			"the", "and", "to", "of", "a", "in", "that", "is", "for",
			"with", "on", "as", "it", "at", "by",
		},
		TopWordsCount:       analysis.DefaultTopWordsCount,
		PandocOutputFormats: []string{"pdf", "docx", "epub"},
		OutlineFile:         "3_Plot_and_Outline/outline.md",
		DraftsDir:           "4_Scenes_and_Chapters/Drafts",
		CompiledDir:         "Compiled",
		CacheSize:           analysis.DefaultCacheSize,
		MaxFileSize:         analysis.DefaultMaxFileSize,
		Encoding:            analysis.DefaultEncoding,
		Workers:             0,
		LogLevel:            "info",
		LogFormat:           "text",
		Compilation: Compilation{
			Timeout:    300,
			Retries:    2,
			PandocPath: "pandoc",
			Formats: map[string]FormatConfig{
				"pdf":  {Enabled: false, ExtraArgs: []string{"--pdf-engine=xelatex"}},
				"docx": {Enabled: true},
				"epub": {Enabled: true, ExtraArgs: []string{"--epub-chapter-level=2"}},
			},
		},
		Publish: Publish{Prefix: "manuscripts"},
	}
}

// Load reads the config file at path over the defaults and applies
// environment overrides. When the file does not exist the defaults (with
// environment overrides) are returned together with an error wrapping
// ErrConfigNotFound; callers treat that as a warning.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var notFound error
	if path != "" {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			notFound = fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		} else {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, notFound
}

// setDefaults registers every key of d so partial files and environment
// variables merge over it key by key.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("stopwords", d.Stopwords)
	v.SetDefault("top_words_count", d.TopWordsCount)
	v.SetDefault("pandoc_output_formats", d.PandocOutputFormats)
	v.SetDefault("outline_file", d.OutlineFile)
	v.SetDefault("drafts_dir", d.DraftsDir)
	v.SetDefault("compiled_dir", d.CompiledDir)
	v.SetDefault("cache_size", d.CacheSize)
	v.SetDefault("max_file_size", d.MaxFileSize)
	v.SetDefault("encoding", d.Encoding)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)

	v.SetDefault("compilation.timeout", d.Compilation.Timeout)
	v.SetDefault("compilation.retries", d.Compilation.Retries)
	v.SetDefault("compilation.pandoc_path", d.Compilation.PandocPath)
	for name, f := range d.Compilation.Formats {
		v.SetDefault("compilation.formats."+name+".enabled", f.Enabled)
		v.SetDefault("compilation.formats."+name+".extra_args", f.ExtraArgs)
	}

	v.SetDefault("publish.bucket", d.Publish.Bucket)
	v.SetDefault("publish.prefix", d.Publish.Prefix)
	v.SetDefault("publish.profile", d.Publish.Profile)
	v.SetDefault("publish.region", d.Publish.Region)
	v.SetDefault("publish.metrics_namespace", d.Publish.MetricsNamespace)
}

// Validate checks value ranges and required fields.
func (c *Config) Validate() error {
	if c.TopWordsCount < 1 {
		return fmt.Errorf("top_words_count must be positive, got %d", c.TopWordsCount)
	}
	if len(c.PandocOutputFormats) == 0 {
		return errors.New("pandoc_output_formats cannot be empty")
	}
	for _, f := range c.PandocOutputFormats {
		if err := CheckFormat(f); err != nil {
			return err
		}
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must be non-negative, got %d", c.CacheSize)
	}
	if c.MaxFileSize < 1 {
		return fmt.Errorf("max_file_size must be positive, got %d", c.MaxFileSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Workers)
	}
	if c.Compilation.Timeout < 0 {
		return fmt.Errorf("compilation.timeout must be non-negative, got %d", c.Compilation.Timeout)
	}
	if c.Compilation.Retries < 0 {
		return fmt.Errorf("compilation.retries must be non-negative, got %d", c.Compilation.Retries)
	}
	for key, val := range map[string]string{
		"outline_file": c.OutlineFile,
		"drafts_dir":   c.DraftsDir,
		"compiled_dir": c.CompiledDir,
	} {
		if strings.TrimSpace(val) == "" {
			return fmt.Errorf("%s is required", key)
		}
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	return nil
}

// CheckFormat returns a suggestive error when format is not supported.
func CheckFormat(format string) error {
	for _, s := range SupportedFormats {
		if format == s {
			return nil
		}
	}
	return qerrors.UnknownFormatError(format, SupportedFormats)
}

// WorkerCount resolves Workers, mapping zero to the CPU count.
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// FormatEnabled reports whether the converter settings allow format.
// Formats without an entry are enabled.
func (c *Config) FormatEnabled(format string) bool {
	f, ok := c.Compilation.Formats[format]
	return !ok || f.Enabled
}

// AnalysisOptions maps the configuration onto analyzer options.
func (c *Config) AnalysisOptions(logger logging.Logger) analysis.Options {
	return analysis.Options{
		CacheSize:     c.CacheSize,
		MaxFileSize:   c.MaxFileSize,
		Encoding:      c.Encoding,
		Stopwords:     append([]string(nil), c.Stopwords...),
		TopWordsCount: c.TopWordsCount,
		Logger:        logger,
	}
}

// WriteDefault writes the default configuration as YAML to path. An existing
// file is left alone unless force is set; created reports whether it was written.
func WriteDefault(path string, force bool) (created bool, err error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return false, fmt.Errorf("failed to encode default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return false, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	header := []byte("# quire configuration\n\n")
	if err := os.WriteFile(path, append(header, data...), 0600); err != nil {
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, nil
}
