package config

import (
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/slurmsync-project/slurmsync/pkg/lib/validate"
)

// SlurmsyncConfig is the full configuration surface of a provisioning pass.
// Every stage receives what it needs from here at construction time; nothing
// reads ambient global state.
type SlurmsyncConfig struct {
	Source  SourceConfig  `mapstructure:"Source"`
	Paths   PathsConfig   `mapstructure:"Paths"`
	Files   FilesConfig   `mapstructure:"Files"`
	Service ServiceConfig `mapstructure:"Service"`
}

type SourceConfig struct {
	// URI locates the declarative topology document: s3://, https://,
	// http://, file:// or a bare local path.
	URI string `mapstructure:"URI"`
	// TimeoutSeconds bounds each individual fetch attempt.
	TimeoutSeconds int `mapstructure:"TimeoutSeconds"`
	// Attempts bounds the retries around transient fetch failures.
	Attempts      int      `mapstructure:"Attempts"`
	BackoffBaseMS int      `mapstructure:"BackoffBaseMS"`
	BackoffMaxMS  int      `mapstructure:"BackoffMaxMS"`
	S3            S3Config `mapstructure:"S3"`
}

type S3Config struct {
	// Region overrides the AWS default chain when set.
	Region string `mapstructure:"Region"`
	// Endpoint points at S3-compatible stores.
	Endpoint string `mapstructure:"Endpoint"`
}

type PathsConfig struct {
	// OutputDir receives the scheduler configuration files.
	OutputDir string `mapstructure:"OutputDir"`
	// EnvDir receives the login-shell environment scripts.
	EnvDir string `mapstructure:"EnvDir"`
	// TemplateDir optionally overrides the embedded templates.
	TemplateDir string `mapstructure:"TemplateDir"`
	// StateDir holds diagnostic state such as the last fetched document.
	StateDir string `mapstructure:"StateDir"`
}

type FilesConfig struct {
	// Owner/Group for the rendered configuration files. Empty leaves the
	// process default and skips chown.
	Owner string `mapstructure:"Owner"`
	Group string `mapstructure:"Group"`
}

type ServiceConfig struct {
	// ReloadCommand is the argv executed when a pass requires a reload.
	ReloadCommand []string `mapstructure:"ReloadCommand"`
	// NoReload disables the service controller entirely.
	NoReload bool `mapstructure:"NoReload"`
}

func (c SourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c SourceConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseMS) * time.Millisecond
}

func (c SourceConfig) BackoffMax() time.Duration {
	return time.Duration(c.BackoffMaxMS) * time.Millisecond
}

func (c *SlurmsyncConfig) Validate() error {
	mErr := new(multierror.Error)
	mErr = multierror.Append(mErr,
		validate.NotBlank(c.Source.URI, "Source.URI: required"),
		validate.IsGreaterThanZero(c.Source.Attempts, "Source.Attempts: must be at least 1"),
		validate.IsGreaterThanZero(c.Source.TimeoutSeconds, "Source.TimeoutSeconds: must be positive"),
		validate.IsGreaterOrEqualToZero(c.Source.BackoffBaseMS, "Source.BackoffBaseMS: must not be negative"),
		validate.IsGreaterOrEqual(c.Source.BackoffMaxMS, c.Source.BackoffBaseMS,
			"Source.BackoffMaxMS: must be at least BackoffBaseMS"),
		validate.NotBlank(c.Paths.OutputDir, "Paths.OutputDir: required"),
		validate.NotBlank(c.Paths.EnvDir, "Paths.EnvDir: required"),
	)
	if !c.Service.NoReload && len(c.Service.ReloadCommand) == 0 {
		mErr = multierror.Append(mErr,
			validate.True(false, "Service.ReloadCommand: required unless Service.NoReload is set"))
	}
	return mErr.ErrorOrNil()
}
