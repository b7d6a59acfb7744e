package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slurmsync-project/slurmsync/cmd/util"
	"github.com/slurmsync-project/slurmsync/pkg/version"
)

type VersionOptions struct {
	OutputFormat string
}

func NewVersionOptions() *VersionOptions {
	return &VersionOptions{
		OutputFormat: string(util.TextFormat),
	}
}

func NewCmd() *cobra.Command {
	opts := NewVersionOptions()

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Get the slurmsync version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runVersion(cmd, opts)
		},
	}

	versionCmd.Flags().StringVar(&opts.OutputFormat, "output", opts.OutputFormat,
		fmt.Sprintf("Output format. One of: %v", util.AllFormats))
	return versionCmd
}

func runVersion(cmd *cobra.Command, opts *VersionOptions) error {
	info := version.Get()
	if util.OutputFormat(opts.OutputFormat) == util.TextFormat {
		cmd.Printf("slurmsync %s (%s) %s/%s\n", info.GitVersion, info.GitCommit, info.GOOS, info.GOARCH)
		return nil
	}
	return util.Output(cmd, util.OutputFormat(opts.OutputFormat), info)
}
