// Package config loads project configuration for the build pipeline.
// Configuration lives in xpbuild.yaml at the project root (JSON accepted for
// generated configs); a missing file means defaults. Environment variables
// override file values, and a .env file is honored when the CLI loads one.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"xpbuild/internal/deps"
)

// DefaultFileName is the config file looked up when none is given.
const DefaultFileName = "xpbuild.yaml"

// Config holds all pipeline configuration for one project.
type Config struct {
	// Entry is the experience source module to build.
	Entry string `yaml:"entry" json:"entry"`

	// OutDir receives the two artifacts and the build manifest.
	OutDir string `yaml:"out_dir" json:"out_dir"`

	// Registry overrides the client-side global registry object name.
	Registry string `yaml:"registry" json:"registry"`

	// External overrides the default externalized dependency set.
	External []ExternalDep `yaml:"external" json:"external"`

	// History configures run-history persistence.
	History HistoryConfig `yaml:"history" json:"history"`
}

// ExternalDep mirrors deps.Dependency for file configuration.
type ExternalDep struct {
	Module string   `yaml:"module" json:"module"`
	Names  []string `yaml:"names" json:"names"`
}

// HistoryConfig configures the sqlite run-history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Entry:  "experience.ts",
		OutDir: "dist",
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(".xpbuild", "history.db"),
		},
	}
}

// Load reads path, falling back to defaults when the file does not exist.
// An empty path means DefaultFileName in the working directory.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFileName
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv applies environment overrides on top of file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("XPBUILD_ENTRY"); v != "" {
		c.Entry = v
	}
	if v := os.Getenv("XPBUILD_OUT_DIR"); v != "" {
		c.OutDir = v
	}
	if v := os.Getenv("XPBUILD_REGISTRY"); v != "" {
		c.Registry = v
	}
	if v := os.Getenv("XPBUILD_HISTORY"); v != "" {
		c.History.Enabled = v != "0" && !strings.EqualFold(v, "false")
	}
}

// DependencySet materializes the externalized dependency set: the configured
// override when present, the standard set otherwise.
func (c *Config) DependencySet() *deps.ExternalDependencySet {
	if len(c.External) == 0 {
		return deps.DefaultSet()
	}
	list := make([]deps.Dependency, 0, len(c.External))
	for _, e := range c.External {
		list = append(list, deps.Dependency{Module: e.Module, CanonicalNames: e.Names})
	}
	return deps.NewSet(list)
}
