// Package config loads ignition's CLI-facing run configuration from a
// YAML file, environment variables, and flags, merged via viper.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
	// ConfigDir is the ignition configuration directory.
	ConfigDir = ".ignition"
	// EnvPrefix is the environment variable prefix viper binds under
	// (e.g. IGNITION_GLOBAL_TIMEOUT).
	EnvPrefix = "IGNITION"
)

// RunConfig mirrors the subset of ignition.Options a host can declare
// ahead of time in config.yaml rather than in code.
type RunConfig struct {
	ExecutionMode             string        `yaml:"execution_mode" mapstructure:"execution_mode"`
	Policy                    string        `yaml:"policy" mapstructure:"policy"`
	GlobalTimeout             time.Duration `yaml:"global_timeout" mapstructure:"global_timeout"`
	MaxDegreeOfParallelism    int           `yaml:"max_degree_of_parallelism" mapstructure:"max_degree_of_parallelism"`
	CancelOnGlobalTimeout     bool          `yaml:"cancel_on_global_timeout" mapstructure:"cancel_on_global_timeout"`
	CancelIndividualOnTimeout bool          `yaml:"cancel_individual_on_timeout" mapstructure:"cancel_individual_on_timeout"`
	CancelDependentsOnFailure bool          `yaml:"cancel_dependents_on_failure" mapstructure:"cancel_dependents_on_failure"`
	StagePolicy               string        `yaml:"stage_policy" mapstructure:"stage_policy"`
	EarlyPromotionThreshold   float64       `yaml:"early_promotion_threshold" mapstructure:"early_promotion_threshold"`
	SignalsDir                string        `yaml:"signals_dir" mapstructure:"signals_dir"`
}

// Default returns the configuration ignition assumes when no file or
// flag overrides a field.
func Default() RunConfig {
	return RunConfig{
		ExecutionMode:           "parallel",
		Policy:                  "bestEffort",
		GlobalTimeout:           5 * time.Second,
		StagePolicy:             "allMustSucceed",
		EarlyPromotionThreshold: 0.8,
		SignalsDir:              "signals",
	}
}

// Load reads config.yaml from ConfigDir or $HOME/ConfigDir (or the
// explicit path, if non-empty), overlays IGNITION_-prefixed environment
// variables, and returns the merged RunConfig. When no explicit path is
// given, a missing config file is not an error and Default's values are
// used instead; an explicit path that cannot be read is an error.
func Load(explicitPath string) (RunConfig, error) {
	v := viper.New()
	cfg := Default()

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.AddConfigPath(ConfigDir)
		v.AddConfigPath("$HOME/" + ConfigDir)
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return cfg, fmt.Errorf("reading ignition config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing ignition config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg RunConfig) {
	v.SetDefault("execution_mode", cfg.ExecutionMode)
	v.SetDefault("policy", cfg.Policy)
	v.SetDefault("global_timeout", cfg.GlobalTimeout)
	v.SetDefault("max_degree_of_parallelism", cfg.MaxDegreeOfParallelism)
	v.SetDefault("cancel_on_global_timeout", cfg.CancelOnGlobalTimeout)
	v.SetDefault("cancel_individual_on_timeout", cfg.CancelIndividualOnTimeout)
	v.SetDefault("cancel_dependents_on_failure", cfg.CancelDependentsOnFailure)
	v.SetDefault("stage_policy", cfg.StagePolicy)
	v.SetDefault("early_promotion_threshold", cfg.EarlyPromotionThreshold)
	v.SetDefault("signals_dir", cfg.SignalsDir)
}
