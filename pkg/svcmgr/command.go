package svcmgr

import (
	"context"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/slurmsync-project/slurmsync/pkg/models"
)

const CommandControllerComponent = "ServiceController"

// CommandController reloads the scheduler by executing a configured argv,
// e.g. ["systemctl", "reload-or-restart", "slurmctld"].
type CommandController struct {
	argv []string
}

func NewCommandController(argv []string) (*CommandController, error) {
	if len(argv) == 0 {
		return nil, models.NewBaseError("reload command must not be empty").
			WithComponent(CommandControllerComponent).
			WithCode(models.ConfigurationError)
	}
	return &CommandController{argv: argv}, nil
}

func (c *CommandController) Reload(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, c.argv[0], c.argv[1:]...)
	output, err := cmd.CombinedOutput()
	if len(output) > 0 {
		log.Ctx(ctx).Debug().
			Str("command", c.Name()).
			Str("output", strings.TrimSpace(string(output))).
			Msg("reload command output")
	}
	if err != nil {
		return models.NewBaseError("reload command %q failed: %s", c.Name(), err.Error()).
			WithComponent(CommandControllerComponent).
			WithCode(models.InternalError).
			WithDetails(map[string]string{"Output": strings.TrimSpace(string(output))})
	}
	return nil
}

func (c *CommandController) Name() string {
	return strings.Join(c.argv, " ")
}

var _ Controller = (*CommandController)(nil)
