package backoff

import "context"

// Backoff defines how long to wait between retry attempts.
type Backoff interface {
	// Backoff waits for a duration based on the number of attempts so far,
	// or until the context is cancelled, whichever comes first.
	Backoff(ctx context.Context, attempts int)
}
