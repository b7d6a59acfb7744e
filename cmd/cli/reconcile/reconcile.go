package reconcile

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/slurmsync-project/slurmsync/cmd/util"
	"github.com/slurmsync-project/slurmsync/pkg/config"
	"github.com/slurmsync-project/slurmsync/pkg/pipeline"
	"github.com/slurmsync-project/slurmsync/pkg/svcmgr"
)

type ReconcileOptions struct {
	ConfigFile   string
	OutputFormat string
}

func NewReconcileOptions() *ReconcileOptions {
	return &ReconcileOptions{
		OutputFormat: string(util.TextFormat),
	}
}

func NewCmd() *cobra.Command {
	opts := NewReconcileOptions()

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Run one full provisioning pass and reload the scheduler if needed",
		Long: `Fetches the declarative topology, renders the scheduler configuration
artifacts and applies them atomically. The scheduler's control-plane daemon
is reloaded only when at least one artifact changed and none failed; a pass
with failures leaves the previous service state untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd, opts)
		},
	}

	flags := reconcileCmd.Flags()
	flags.StringVar(&opts.ConfigFile, "config", "", "Path to the slurmsync config file")
	flags.StringVar(&opts.OutputFormat, "output", opts.OutputFormat,
		fmt.Sprintf("Output format. One of: %v", util.AllFormats))
	flags.String("source.uri", "", "URI of the declarative topology document (s3://, https://, file:// or path)")
	flags.String("paths.output-dir", "", "Directory receiving the scheduler configuration files")
	flags.String("paths.env-dir", "", "Directory receiving the login-shell environment scripts")
	flags.String("paths.template-dir", "", "Directory with template overrides")
	flags.String("paths.state-dir", "", "Directory for diagnostic state")
	flags.String("files.owner", "", "Owner of the rendered configuration files")
	flags.String("files.group", "", "Group of the rendered configuration files")
	flags.Bool("no-reload", false, "Never invoke the service controller, even when a reload is required")
	return reconcileCmd
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	bindings := map[string]string{
		"Source.URI":        "source.uri",
		"Paths.OutputDir":   "paths.output-dir",
		"Paths.EnvDir":      "paths.env-dir",
		"Paths.TemplateDir": "paths.template-dir",
		"Paths.StateDir":    "paths.state-dir",
		"Files.Owner":       "files.owner",
		"Files.Group":       "files.group",
		"Service.NoReload":  "no-reload",
	}
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func runReconcile(cmd *cobra.Command, opts *ReconcileOptions) error {
	ctx := cmd.Context()

	v, err := config.NewViper(opts.ConfigFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Flags()); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Params{Config: cfg})
	if err != nil {
		return err
	}
	summary, err := p.Run(ctx)
	if err != nil {
		return err
	}

	var controller svcmgr.Controller = svcmgr.NewNoopController()
	if !cfg.Service.NoReload {
		controller, err = svcmgr.NewCommandController(cfg.Service.ReloadCommand)
		if err != nil {
			return err
		}
	}
	if summary.RequiresReload() {
		// A reload failure does not un-succeed the reconciliation: the
		// files on disk are already consistent. It is surfaced
		// separately and still fails the process.
		if reloadErr := controller.Reload(ctx); reloadErr != nil {
			summary.ReloadError = reloadErr.Error()
		}
	}

	if err := util.SummaryOutput(cmd, util.OutputFormat(opts.OutputFormat), summary); err != nil {
		return err
	}

	if summary.Failed() {
		var targets []string
		for _, result := range summary.FailedArtifacts() {
			targets = append(targets, result.Key)
		}
		return fmt.Errorf("reconciliation failed for %s; existing scheduler configuration left untouched",
			strings.Join(targets, ", "))
	}
	if summary.ReloadError != "" {
		return fmt.Errorf("configuration applied but reload via %q failed: %s",
			controller.Name(), summary.ReloadError)
	}
	return nil
}
