package svcmgr

import "context"

// NoopController is used for dry runs and when reloads are disabled.
type NoopController struct{}

func NewNoopController() *NoopController {
	return &NoopController{}
}

func (c *NoopController) Reload(ctx context.Context) error {
	return nil
}

func (c *NoopController) Name() string {
	return "noop"
}

var _ Controller = (*NoopController)(nil)
