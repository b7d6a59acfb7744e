package svcmgr

import "context"

// Controller is the boundary to the init system. The pipeline never manages
// the scheduler service itself; it only asks the controller to reload once
// a pass replaced at least one artifact and nothing failed.
type Controller interface {
	// Reload makes the scheduler's control-plane daemon pick up the new
	// configuration.
	Reload(ctx context.Context) error
	// Name identifies the controller for logs and summaries.
	Name() string
}
