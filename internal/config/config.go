// Package config handles .janitorrc.yml project-level configuration: the
// pre-set flags, extra immortal directories, and extra rule-pack paths a
// project can declare so they don't need to be repeated on every invocation.
// Only the pre-set flags reach a run: ImmortalDirs and RulePackPaths are
// parsed here, but no caller uses them.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProjectConfig represents the .janitorrc.yml configuration file.
type ProjectConfig struct {
	Version         int      `yaml:"version"`
	Languages       []string `yaml:"languages"`
	Library         bool     `yaml:"library"`
	GrepShield      bool     `yaml:"grep_shield"`
	IncludeVendored bool     `yaml:"include_vendored"`
	TestCmd         string   `yaml:"test_cmd"`
	ImmortalDirs    []string `yaml:"immortal_dirs"`
	RulePackPaths   []string `yaml:"rule_pack_paths"`
}

// LoadProjectConfig loads project configuration from .janitorrc.yml or
// .janitorrc.yaml. If explicitPath is provided (from --config), that file is
// loaded instead. Returns nil, nil if no config file is found -- callers
// fall back to flag defaults.
func LoadProjectConfig(dir string, explicitPath string) (*ProjectConfig, error) {
	var configPath string

	if explicitPath != "" {
		configPath = explicitPath
	} else {
		ymlPath := filepath.Join(dir, ".janitorrc.yml")
		yamlPath := filepath.Join(dir, ".janitorrc.yaml")

		if _, err := os.Stat(ymlPath); err == nil {
			configPath = ymlPath
		} else if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			return nil, nil
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read project config %s: %w", configPath, err)
	}

	cfg := &ProjectConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse project config %s: %w", configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project config %s: %w", configPath, err)
	}

	return cfg, nil
}

// Validate checks that the ProjectConfig values are well-formed.
func (c *ProjectConfig) Validate() error {
	if c.Version != 0 && c.Version != 1 {
		return fmt.Errorf("unsupported config version %d (expected 1)", c.Version)
	}
	for _, lang := range c.Languages {
		if lang != "python" && lang != "javascript-typescript" {
			return fmt.Errorf("unsupported language %q", lang)
		}
	}
	return nil
}
