// Package config loads the site configuration from `_config.yml`.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// FileName is the configuration file expected at the site root.
const FileName = "_config.yml"

// EnvPrefix prefixes environment overrides, e.g. STAKX_TARGET.
const EnvPrefix = "STAKX"

// Source binds a collection or dataset name to its folder.
type Source struct {
	Name   string `mapstructure:"name"`
	Folder string `mapstructure:"folder"`
}

// Config is the site configuration.
type Config struct {
	Title   string `mapstructure:"title"`
	URL     string `mapstructure:"url"`
	BaseURL string `mapstructure:"baseurl"`

	Target            string   `mapstructure:"target"`
	PageViews         []string `mapstructure:"pageviews"`
	Layouts           string   `mapstructure:"layouts"`
	TemplateExtension string   `mapstructure:"templateextension"`
	SystemDir         string   `mapstructure:"systemdir"`
	Collections       []Source `mapstructure:"collections"`
	Datasets          []Source `mapstructure:"datasets"`
	Data              []string `mapstructure:"data"`
	Exclude           []string `mapstructure:"exclude"`
	RedirectTemplate  string   `mapstructure:"redirecttemplate"`
	// Strict keeps data file numbers as json.Number.
	Strict bool `mapstructure:"strict"`

	// Settings holds every key of the file, exposed to templates as `site`.
	// Keys are lower-cased.
	Settings map[string]any `mapstructure:"-"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("target", "_site")
	v.SetDefault("pageviews", []string{"_pages"})
	v.SetDefault("layouts", "_layouts")
	v.SetDefault("templateextension", "tmpl")
	v.SetDefault("systemdir", ".stakx")
	v.SetDefault("data", []string{"_data"})
	v.SetDefault("redirecttemplate", "")
	v.SetDefault("strict", false)
	v.SetDefault("title", "")
	v.SetDefault("url", "")
	v.SetDefault("baseurl", "")
}

// Load reads `_config.yml` under root. A missing file yields the defaults.
// Environment variables prefixed with STAKX_ override file values.
func Load(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(filepath.Join(root, FileName))
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", FileName, err)
	}
	cfg.TemplateExtension = strings.TrimPrefix(cfg.TemplateExtension, ".")
	cfg.Settings = v.AllSettings()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks folder names and the collection and dataset declarations.
func (c *Config) Validate() error {
	if c.TemplateExtension == "" {
		return errors.New("templateExtension must not be empty")
	}
	if err := validatePath(c.Target); err != nil {
		return fmt.Errorf("target: %w", err)
	}
	if err := validatePath(c.SystemDir); err != nil {
		return fmt.Errorf("systemDir: %w", err)
	}
	for _, p := range c.PageViews {
		if err := validatePath(p); err != nil {
			return fmt.Errorf("pageviews: %w", err)
		}
	}
	for _, p := range c.Data {
		if err := validatePath(p); err != nil {
			return fmt.Errorf("data: %w", err)
		}
	}
	if err := validateSources("collections", c.Collections); err != nil {
		return err
	}
	return validateSources("datasets", c.Datasets)
}

func validateSources(key string, sources []Source) error {
	seen := make(map[string]bool, len(sources))
	for i, s := range sources {
		if s.Name == "" {
			return fmt.Errorf("%s[%d]: name is required", key, i)
		}
		if seen[s.Name] {
			return fmt.Errorf("%s: duplicate name %q", key, s.Name)
		}
		seen[s.Name] = true
		if err := validatePath(s.Folder); err != nil {
			return fmt.Errorf("%s[%d]: %w", key, i, err)
		}
	}
	return nil
}

func validatePath(path string) error {
	if path == "" {
		return errors.New("empty path")
	}
	if filepath.IsAbs(path) {
		return fmt.Errorf("path must be relative to the site root: %s", path)
	}
	for _, segment := range strings.Split(filepath.ToSlash(filepath.Clean(path)), "/") {
		if segment == ".." {
			return fmt.Errorf("path contains traversal: %s", path)
		}
	}
	return nil
}
