// Package config loads chainofCommand's runtime configuration from
// environment variables, plus an optional YAML policy-profile override.
//
// Grounded on the teacher's core/pkg/config/config.go's flat Load()
// pattern (read an env var, fall back to a default, no framework), and on
// core/pkg/config/profile_loader.go for the YAML-backed override file,
// adapted from the teacher's regional-ceremony profile concept to a single
// policy-profile override.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Adjoshi06/chainofCommand/pkg/contracts"
	"gopkg.in/yaml.v3"
)

// Config holds the settings that govern a single coc process: where its
// home directory is, how verbosely it logs, which policy profile the
// verifier applies by default, and where its read API binds.
type Config struct {
	Home          string
	LogLevel      string
	PolicyProfile contracts.PolicyProfile
	APIHost       string
	APIPort       string
}

// Load reads configuration from environment variables, defaulting
// COC_HOME to "./.coc" relative to the process's working directory when
// unset.
func Load() (*Config, error) {
	home := os.Getenv("COC_HOME")
	if home == "" {
		home = filepath.Join(".", ".coc")
	}

	logLevel := os.Getenv("COC_LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	profile := contracts.PolicyProfile(os.Getenv("COC_POLICY_PROFILE"))
	if profile == "" {
		profile = contracts.PolicyDefault
	}
	if err := profile.Validate(); err != nil {
		return nil, fmt.Errorf("config: COC_POLICY_PROFILE: %w", err)
	}

	host := os.Getenv("COC_API_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("COC_API_PORT")
	if port == "" {
		port = "8420"
	}

	cfg := &Config{
		Home:          home,
		LogLevel:      logLevel,
		PolicyProfile: profile,
		APIHost:       host,
		APIPort:       port,
	}

	if override, err := loadPolicyOverride(home); err != nil {
		return nil, err
	} else if override != "" {
		if err := override.Validate(); err != nil {
			return nil, fmt.Errorf("config: policy.yaml: %w", err)
		}
		cfg.PolicyProfile = override
	}

	return cfg, nil
}

type policyOverrideFile struct {
	PolicyProfile contracts.PolicyProfile `yaml:"policy_profile"`
}

// loadPolicyOverride reads $COC_HOME/policy.yaml if present, letting an
// operator pin a policy profile without exporting an env var on every
// invocation. Absence of the file is not an error.
func loadPolicyOverride(home string) (contracts.PolicyProfile, error) {
	path := filepath.Join(home, "policy.yaml")
	data, err := os.ReadFile(path) //nolint:gosec // home is operator-controlled, not attacker-controlled
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("config: read %s: %w", path, err)
	}
	var override policyOverrideFile
	if err := yaml.Unmarshal(data, &override); err != nil {
		return "", fmt.Errorf("config: parse %s: %w", path, err)
	}
	return override.PolicyProfile, nil
}

// TracesDir, ArtifactsDir, and KeysDir return the standard subdirectories
// of Home.
func (c *Config) TracesDir() string    { return filepath.Join(c.Home, "traces") }
func (c *Config) ArtifactsDir() string { return filepath.Join(c.Home, "artifacts") }
func (c *Config) KeysDir() string      { return filepath.Join(c.Home, "keys") }
