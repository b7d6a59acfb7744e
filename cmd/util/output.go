package util

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	"github.com/slurmsync-project/slurmsync/pkg/models"
)

type OutputFormat string

const (
	TextFormat OutputFormat = "text"
	JSONFormat OutputFormat = "json"
	YAMLFormat OutputFormat = "yaml"
)

var AllFormats = []OutputFormat{TextFormat, JSONFormat, YAMLFormat}

// Output marshals v into the requested format on the command's stdout.
// TextFormat is only meaningful for types with a dedicated text printer;
// everything else should pass json or yaml.
func Output(cmd *cobra.Command, format OutputFormat, v any) error {
	switch format {
	case JSONFormat:
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(v)
	case YAMLFormat:
		b, err := yaml.Marshal(v)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	default:
		return fmt.Errorf("invalid output format %q, expected one of %v", format, AllFormats)
	}
}

// PrintSummary writes the human-readable form of a reconciliation summary.
func PrintSummary(cmd *cobra.Command, summary *models.ReconciliationSummary) {
	cmd.Printf("Run %s (cluster %s):\n", summary.RunID, summary.Cluster)
	for _, result := range summary.Results {
		switch result.State {
		case models.ReconcileStateFailed:
			cmd.Printf("  %-8s %-10s %s: %s\n", result.Key, result.State, result.Target, result.Reason)
		default:
			cmd.Printf("  %-8s %-10s %s\n", result.Key, result.State, result.Target)
		}
	}
	if summary.ReloadError != "" {
		cmd.Printf("Reload failed: %s\n", summary.ReloadError)
	}
	cmd.Printf("Reload required: %t\n", summary.RequiresReload())
}

// SummaryOutput emits the summary in the requested format.
func SummaryOutput(cmd *cobra.Command, format OutputFormat, summary *models.ReconciliationSummary) error {
	if format == TextFormat {
		PrintSummary(cmd, summary)
		return nil
	}
	return Output(cmd, format, summary)
}
