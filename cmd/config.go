package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/jaxxstorm/reckon"
	"gopkg.in/yaml.v3"
)

// configFileNames are looked up in the repository root when no --config is given.
var configFileNames = []string{".reckon.yaml", ".reckon.yml"}

// FileConfig is the optional YAML configuration kept alongside the repository.
// Flags and environment variables take precedence over anything set here.
type FileConfig struct {
	Stages               []string `yaml:"stages"`
	Snapshots            bool     `yaml:"snapshots"`
	DefaultInferredScope string   `yaml:"defaultInferredScope"`
	ParallelBranchScope  string   `yaml:"parallelBranchScope"`
	ScopeCalc            string   `yaml:"scopeCalc"`
	TagPrefix            string   `yaml:"tagPrefix"`
	TagPattern           string   `yaml:"tagPattern"`
}

const (
	scopeCalcUser           = "user"
	scopeCalcCommitMessages = "commit-messages"
	scopeCalcUserOrCommits  = "user-or-commit-messages"
)

// loadFileConfig reads the configuration file. An explicit path must exist;
// otherwise the repository root is searched and a missing file yields an empty config.
func loadFileConfig(path, repoRoot string) (*FileConfig, error) {
	configPath, err := resolveConfigPath(path, repoRoot)
	if err != nil {
		return nil, err
	}
	if configPath == "" {
		return &FileConfig{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	cfg := &FileConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &reckon.Error{
			Kind:    reckon.KindConfiguration,
			Message: fmt.Sprintf("failed to parse config file %s", configPath),
			Cause:   err,
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}
	return cfg, nil
}

// resolveConfigPath determines which config file to use.
// Priority: explicit path (--config or RECKON_CONFIG) > repository root.
func resolveConfigPath(path, repoRoot string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", &reckon.Error{
				Kind:    reckon.KindConfiguration,
				Message: fmt.Sprintf("config file not found: %s", path),
				Cause:   err,
			}
		}
		return path, nil
	}

	for _, name := range configFileNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("checking for config file %s: %w", p, err)
		}
	}
	return "", nil
}

// Validate checks the values that can be checked without a repository.
func (c *FileConfig) Validate() error {
	for _, s := range []string{c.DefaultInferredScope, c.ParallelBranchScope} {
		if s == "" {
			continue
		}
		if _, err := reckon.ParseScope(s); err != nil {
			return err
		}
	}

	switch c.ScopeCalc {
	case "", scopeCalcUser, scopeCalcCommitMessages, scopeCalcUserOrCommits:
	default:
		return &reckon.Error{
			Kind:    reckon.KindConfiguration,
			Message: fmt.Sprintf("invalid scopeCalc: %q (must be %s, %s, or %s)", c.ScopeCalc, scopeCalcUser, scopeCalcCommitMessages, scopeCalcUserOrCommits),
		}
	}

	if c.TagPattern != "" {
		if _, err := regexp.Compile(c.TagPattern); err != nil {
			return &reckon.Error{
				Kind:    reckon.KindConfiguration,
				Message: fmt.Sprintf("invalid tagPattern: %q", c.TagPattern),
				Cause:   err,
			}
		}
	}
	return nil
}
