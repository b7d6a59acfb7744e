package validate

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/slurmsync-project/slurmsync/cmd/util"
	"github.com/slurmsync-project/slurmsync/pkg/topology"
)

type ValidateOptions struct {
	OutputFormat string
}

func NewValidateOptions() *ValidateOptions {
	return &ValidateOptions{}
}

func NewCmd() *cobra.Command {
	opts := NewValidateOptions()

	validateCmd := &cobra.Command{
		Use:   "validate <topology-file>",
		Short: "Validate a local topology document against the v1 schema",
		Long: `Parses a topology document and reports every invariant violation with a
locator. Exits non-zero when the document is invalid. No fetching, rendering
or writing happens.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts, args[0])
		},
	}

	validateCmd.Flags().StringVar(&opts.OutputFormat, "output", "",
		"Dump the parsed topology in this format on success. One of: json, yaml")
	return validateCmd
}

func runValidate(cmd *cobra.Command, opts *ValidateOptions, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	parsed, err := topology.NewParser().Parse(raw)
	if err != nil {
		return err
	}

	if opts.OutputFormat != "" {
		return util.Output(cmd, util.OutputFormat(opts.OutputFormat), parsed)
	}

	queues := len(parsed.Queues)
	resources := 0
	for _, q := range parsed.Queues {
		resources += len(q.ComputeResources)
	}
	cmd.Printf("%s: valid (cluster %s, %d queues, %d compute resources)\n",
		path, parsed.ClusterName, queues, resources)
	return nil
}
