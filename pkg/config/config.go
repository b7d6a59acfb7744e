package config

import (
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	environmentVariablePrefix = "SLURMSYNC"
	configType                = "yaml"
	configName                = "slurmsync"
	systemConfigDir           = "/etc/slurmsync"
)

var environmentVariableReplace = strings.NewReplacer(".", "_")

// Default returns the built-in configuration for a ParallelCluster-style
// head node. Everything can be overridden via config file, environment
// (SLURMSYNC_*) or flags.
func Default() SlurmsyncConfig {
	return SlurmsyncConfig{
		Source: SourceConfig{
			TimeoutSeconds: 30,
			Attempts:       3,
			BackoffBaseMS:  500,
			BackoffMaxMS:   8000,
		},
		Paths: PathsConfig{
			OutputDir: "/opt/slurm/etc",
			EnvDir:    "/etc/profile.d",
			StateDir:  "/var/lib/slurmsync",
		},
		Files: FilesConfig{
			Owner: "slurm",
			Group: "slurm",
		},
		Service: ServiceConfig{
			ReloadCommand: []string{"systemctl", "reload-or-restart", "slurmctld"},
		},
	}
}

// NewViper returns a viper instance preloaded with the defaults, the
// environment binding and the config file search path. Commands bind their
// flags onto it before Load.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(environmentVariablePrefix)
	v.SetEnvKeyReplacer(environmentVariableReplace)
	v.AutomaticEnv()

	// every key needs a default registered, or viper will not surface
	// environment-only values through Unmarshal
	defaults := Default()
	v.SetDefault("Source.URI", defaults.Source.URI)
	v.SetDefault("Source.S3.Region", defaults.Source.S3.Region)
	v.SetDefault("Source.S3.Endpoint", defaults.Source.S3.Endpoint)
	v.SetDefault("Paths.TemplateDir", defaults.Paths.TemplateDir)
	v.SetDefault("Service.NoReload", defaults.Service.NoReload)
	v.SetDefault("Source.TimeoutSeconds", defaults.Source.TimeoutSeconds)
	v.SetDefault("Source.Attempts", defaults.Source.Attempts)
	v.SetDefault("Source.BackoffBaseMS", defaults.Source.BackoffBaseMS)
	v.SetDefault("Source.BackoffMaxMS", defaults.Source.BackoffMaxMS)
	v.SetDefault("Paths.OutputDir", defaults.Paths.OutputDir)
	v.SetDefault("Paths.EnvDir", defaults.Paths.EnvDir)
	v.SetDefault("Paths.StateDir", defaults.Paths.StateDir)
	v.SetDefault("Files.Owner", defaults.Files.Owner)
	v.SetDefault("Files.Group", defaults.Files.Group)
	v.SetDefault("Service.ReloadCommand", defaults.Service.ReloadCommand)

	v.SetConfigType(configType)
	if configFile != "" {
		expanded, err := homedir.Expand(configFile)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to expand config path %q", configFile)
		}
		v.SetConfigFile(expanded)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %q", expanded)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		v.AddConfigPath(systemConfigDir)
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is fine; defaults, env and flags
			// cover everything.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, errors.Wrap(err, "failed to read config file")
			}
		}
	}
	return v, nil
}

// Load decodes the viper state into a typed config and validates it.
func Load(v *viper.Viper) (SlurmsyncConfig, error) {
	cfg := SlurmsyncConfig{}
	decoderHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToSliceHookFunc(","),
		mapstructure.TextUnmarshallerHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decoderHook); err != nil {
		return cfg, errors.Wrap(err, "failed to decode configuration")
	}

	for _, path := range []*string{
		&cfg.Paths.OutputDir, &cfg.Paths.EnvDir, &cfg.Paths.TemplateDir, &cfg.Paths.StateDir,
	} {
		if *path == "" {
			continue
		}
		expanded, err := homedir.Expand(*path)
		if err != nil {
			return cfg, errors.Wrapf(err, "failed to expand path %q", *path)
		}
		*path = expanded
	}

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}
