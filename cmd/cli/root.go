package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/slurmsync-project/slurmsync/cmd/cli/reconcile"
	"github.com/slurmsync-project/slurmsync/cmd/cli/render"
	"github.com/slurmsync-project/slurmsync/cmd/cli/validate"
	"github.com/slurmsync-project/slurmsync/cmd/cli/version"
	"github.com/slurmsync-project/slurmsync/cmd/util"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "slurmsync",
		Short: "Generate and reconcile Slurm configuration from a declarative cluster topology",
		Long: `slurmsync fetches a declarative queue/partition definition, renders the
scheduler's configuration artifacts from it and applies them atomically,
reloading the control-plane daemon only when a consistent change landed.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(reconcile.NewCmd())
	rootCmd.AddCommand(render.NewCmd())
	rootCmd.AddCommand(validate.NewCmd())
	rootCmd.AddCommand(version.NewCmd())
	return rootCmd
}

func Execute() {
	rootCmd := NewRootCmd()

	// the caller (init scripts, orchestration) decides on retries; an
	// interrupted pass must just stop cleanly, old config intact.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		util.Fatal(rootCmd, err, 1)
	}
}
