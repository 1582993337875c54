package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GitConfig controls how last-updated timestamps are looked up.
type GitConfig struct {
	BinPath    string `json:"binPath" yaml:"binPath"`
	TimeoutSec int    `json:"timeoutSec" yaml:"timeoutSec"`
}

// Config encapsulates runtime and build-time options.
type Config struct {
	Listen        string    `json:"listen" yaml:"listen"`
	SourceDir     string    `json:"sourceDir" yaml:"sourceDir"`
	BundleDir     string    `json:"bundleDir" yaml:"bundleDir"`
	OutputDir     string    `json:"outputDir" yaml:"outputDir"`
	TemplateDir   string    `json:"templateDir" yaml:"templateDir"`
	HomeDoc       string    `json:"homeDoc" yaml:"homeDoc"`
	BaseURL       string    `json:"baseUrl" yaml:"baseUrl"`
	SiteName      string    `json:"siteName" yaml:"siteName"`
	LogLevel      string    `json:"logLevel" yaml:"logLevel"`
	Watch         bool      `json:"watch" yaml:"watch"`
	Minify        *bool     `json:"minify" yaml:"minify"`
	LastUpdated   bool      `json:"lastUpdated" yaml:"lastUpdated"`
	HeaderLevels  []int     `json:"headerLevels" yaml:"headerLevels"`
	Git           GitConfig `json:"git" yaml:"git"`
	EnableTLS     bool      `json:"enableTLS" yaml:"enableTLS"`
	TLSCert       string    `json:"tlsCert" yaml:"tlsCert"`
	TLSKey        string    `json:"tlsKey" yaml:"tlsKey"`

	WatchDebounce time.Duration `json:"-" yaml:"-"`
	GitTimeout    time.Duration `json:"-" yaml:"-"`
}

// Default returns a configuration with defaults applied, used when no file is given.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.applyDefaults()
	return cfg
}

// Load reads configuration from disk and applies sane defaults. Files ending
// in .yaml or .yml are parsed as YAML, everything else as JSON.
func Load(path string) (*Config, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(bytes, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(bytes, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MinifyEnabled reports whether full pages are minified. Defaults to true.
func (c *Config) MinifyEnabled() bool {
	return c.Minify == nil || *c.Minify
}

func (c *Config) applyDefaults() error {
	if c.Listen == "" {
		c.Listen = ":8080"
	}
	if c.SourceDir == "" {
		c.SourceDir = "./docs"
	}
	if c.BundleDir == "" {
		c.BundleDir = "./bundles"
	}
	if c.OutputDir == "" {
		c.OutputDir = "./dist"
	}
	c.TemplateDir = strings.TrimSpace(c.TemplateDir)
	c.HomeDoc = normalizeHomeDoc(c.HomeDoc)

	c.SiteName = strings.TrimSpace(c.SiteName)
	if c.SiteName == "" {
		c.SiteName = "Documentation"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if len(c.HeaderLevels) == 0 {
		c.HeaderLevels = []int{2, 3}
	}

	c.Git.BinPath = strings.TrimSpace(c.Git.BinPath)
	if c.Git.BinPath == "" {
		c.Git.BinPath = "git"
	}
	if c.Git.TimeoutSec <= 0 {
		c.Git.TimeoutSec = 30
	}
	c.GitTimeout = time.Duration(c.Git.TimeoutSec) * time.Second
	c.WatchDebounce = 500 * time.Millisecond
	return nil
}

func (c *Config) validate() error {
	if c.EnableTLS {
		if c.TLSCert == "" || c.TLSKey == "" {
			return fmt.Errorf("tls enabled but certificates missing")
		}
	}
	if len(c.HeaderLevels) != 2 {
		return fmt.Errorf("headerLevels must hold exactly two values, got %d", len(c.HeaderLevels))
	}
	minLevel, maxLevel := c.HeaderLevels[0], c.HeaderLevels[1]
	if minLevel == 0 && maxLevel == 0 {
		return nil
	}
	if minLevel < 1 || maxLevel > 6 || minLevel > maxLevel {
		return fmt.Errorf("invalid headerLevels range [%d, %d]", minLevel, maxLevel)
	}
	return nil
}

func normalizeHomeDoc(input string) string {
	trimmed := strings.TrimSpace(input)
	trimmed = strings.ReplaceAll(trimmed, "\\", "/")
	if trimmed == "" {
		trimmed = "index.md"
	}
	if !strings.HasSuffix(strings.ToLower(trimmed), ".md") {
		trimmed += ".md"
	}
	cleaned := filepath.ToSlash(filepath.Clean(trimmed))
	for strings.HasPrefix(cleaned, "./") {
		cleaned = strings.TrimPrefix(cleaned, "./")
	}
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" {
		cleaned = "index.md"
	}
	return cleaned
}
