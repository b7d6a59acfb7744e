package util

import (
	"errors"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slurmsync-project/slurmsync/pkg/models"
)

var Fatal = fatalError

func fatalError(cmd *cobra.Command, err error, code int) {
	if msg := err.Error(); msg != "" {
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		cmd.PrintErr(msg)
	}
	var hasHint models.HasHint
	if errors.As(err, &hasHint) && hasHint.Hint() != "" {
		cmd.PrintErrln("Hint: " + hasHint.Hint())
	}
	os.Exit(code)
}
