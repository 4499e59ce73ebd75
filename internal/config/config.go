// Package config loads notamwatch configuration from a YAML file, applies
// defaults, then applies NOTAMWATCH_* overrides from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/notamwatch/extractor"
)

// Environment variables that override file values.
const (
	EnvStorePath     = "NOTAMWATCH_STORE_PATH"
	EnvBrowserRemote = "NOTAMWATCH_BROWSER_REMOTE"
	EnvServerAddr    = "NOTAMWATCH_SERVER_ADDR"
	EnvRunLogPath    = "NOTAMWATCH_RUNLOG_PATH"
)

// Config is the top-level configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Browser BrowserConfig `yaml:"browser"`
	Store   StoreConfig   `yaml:"store"`
	RunLog  RunLogConfig  `yaml:"runlog"`
	Server  ServerConfig  `yaml:"server"`
}

// SourceConfig describes the page and how entries are read from it.
type SourceConfig struct {
	URL             string              `yaml:"url"`
	Mode            string              `yaml:"mode"` // incremental | full
	Selectors       extractor.Selectors `yaml:"selectors"`
	NavigateTimeout time.Duration       `yaml:"navigate_timeout"`
	ExpandTimeout   time.Duration       `yaml:"expand_timeout"`
	// Delay is slept between expanded entries. Default 250ms; negative disables.
	Delay           time.Duration       `yaml:"delay"`
}

// BrowserConfig controls Chrome.
type BrowserConfig struct {
	// Remote is the DevTools WebSocket URL of an existing Chrome. Empty
	// launches a local one.
	Remote           string        `yaml:"remote"`
	Mode             string        `yaml:"mode"` // headless | headful
	UserAgent        string        `yaml:"user_agent"`
	ViewportWidth    int           `yaml:"viewport_width"`
	ViewportHeight   int           `yaml:"viewport_height"`
	SlowMotion       time.Duration `yaml:"slow_motion"`
	ResourceBlocking []string      `yaml:"resource_blocking"`
}

// StoreConfig locates the JSON store and its backups.
type StoreConfig struct {
	Path       string        `yaml:"path"`
	BackupDir  string        `yaml:"backup_dir"`
	MaxBackups int           `yaml:"max_backups"`
	PruneAge   time.Duration `yaml:"prune_age"`
	PruneCount int           `yaml:"prune_count"`
}

// RunLogConfig locates the run ledger. An empty path disables it.
type RunLogConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the viewer API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads path (defaults only when empty), then applies overrides from
// the process environment and from envFile. Process variables win over
// the file, as with godotenv.Load. A missing envFile is ignored.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}

	fileEnv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileEnv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	cfg.ApplyEnv(func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	})
	return cfg, nil
}

// ApplyEnv overrides fields from the NOTAMWATCH_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvStorePath); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := lookup(EnvBrowserRemote); ok {
		c.Browser.Remote = v
	}
	if v, ok := lookup(EnvServerAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvRunLogPath); ok {
		c.RunLog.Path = v
	}
}

// Headless reports whether Chrome should run without a window.
func (b BrowserConfig) Headless() bool {
	return !strings.EqualFold(b.Mode, "headful")
}

func (c *Config) applyDefaults() {
	if c.Source.URL == "" {
		c.Source.URL = "https://brin.iaa.gov.il/aeroinfo/AeroInfo.aspx?msgType=Notam"
	}
	if c.Source.Mode == "" {
		c.Source.Mode = "incremental"
	}
	d := extractor.DefaultSelectors()
	s := &c.Source.Selectors
	setDefault(&s.Root, d.Root)
	setDefault(&s.MainPrefix, d.MainPrefix)
	setDefault(&s.MorePrefix, d.MorePrefix)
	setDefault(&s.IDLabel, d.IDLabel)
	setDefault(&s.ShortText, d.ShortText)
	setDefault(&s.Trigger, d.Trigger)
	setDefault(&s.Field, d.Field)
	if c.Source.NavigateTimeout <= 0 {
		c.Source.NavigateTimeout = 30 * time.Second
	}
	if c.Source.ExpandTimeout <= 0 {
		c.Source.ExpandTimeout = 10 * time.Second
	}
	switch {
	case c.Source.Delay == 0:
		c.Source.Delay = 250 * time.Millisecond
	case c.Source.Delay < 0:
		c.Source.Delay = 0
	}

	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1280
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 720
	}

	if c.Store.Path == "" {
		c.Store.Path = "data/notams/notams.json"
	}
	if c.Store.BackupDir == "" {
		c.Store.BackupDir = "data/backups"
	}
	if c.Store.MaxBackups <= 0 {
		c.Store.MaxBackups = 5
	}

	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

func setDefault(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func (c *Config) validate() error {
	switch c.Source.Mode {
	case "incremental", "full":
	default:
		return fmt.Errorf("config: source.mode %q: want incremental or full", c.Source.Mode)
	}
	switch strings.ToLower(c.Browser.Mode) {
	case "headless", "headful":
	default:
		return fmt.Errorf("config: browser.mode %q: want headless or headful", c.Browser.Mode)
	}
	return nil
}
