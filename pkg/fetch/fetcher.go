package fetch

import (
	"context"
	"net/url"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/slurmsync-project/slurmsync/pkg/models"
)

// Fetcher retrieves the current content of a topology document. A Fetcher
// carries no retry logic of its own: transient failures are expected and
// retrying is the caller's policy, which keeps every implementation pure
// enough to test with a single call.
type Fetcher interface {
	// Fetch returns the bytes at the given URI or a FetchError.
	Fetch(ctx context.Context, rawURI string) ([]byte, error)
}

// Registry dispatches a URI to the Fetcher registered for its scheme.
// A URI with no scheme is treated as a local path.
type Registry struct {
	fetchers map[string]Fetcher
}

func NewRegistry(fetchers map[string]Fetcher) *Registry {
	registry := &Registry{fetchers: make(map[string]Fetcher, len(fetchers))}
	for scheme, fetcher := range fetchers {
		registry.fetchers[strings.ToLower(scheme)] = fetcher
	}
	return registry
}

// Fetch resolves the scheme and delegates to the matching Fetcher.
func (r *Registry) Fetch(ctx context.Context, rawURI string) ([]byte, error) {
	fetcher, err := r.get(rawURI)
	if err != nil {
		return nil, err
	}
	return fetcher.Fetch(ctx, rawURI)
}

func (r *Registry) get(rawURI string) (Fetcher, error) {
	scheme := SchemeLocal
	if parsed, err := url.Parse(rawURI); err == nil && parsed.Scheme != "" {
		scheme = strings.ToLower(parsed.Scheme)
	}
	fetcher, ok := r.fetchers[scheme]
	if !ok {
		return nil, NewFetchError(models.ConfigurationError,
			"no fetcher registered for scheme %q, supported: %s", scheme, strings.Join(r.Schemes(), ", "))
	}
	return fetcher, nil
}

// Schemes returns the registered schemes in sorted order.
func (r *Registry) Schemes() []string {
	schemes := maps.Keys(r.fetchers)
	slices.Sort(schemes)
	return schemes
}
