package local

import (
	"context"
	"net/url"
	"os"
	"strings"

	"github.com/slurmsync-project/slurmsync/pkg/fetch"
	"github.com/slurmsync-project/slurmsync/pkg/models"
)

// Fetcher reads topology documents from the local filesystem. Accepts both
// bare paths and file:// URIs.
type Fetcher struct{}

func NewFetcher() *Fetcher {
	return &Fetcher{}
}

func (f *Fetcher) Fetch(_ context.Context, rawURI string) ([]byte, error) {
	path := rawURI
	if strings.HasPrefix(rawURI, fetch.SchemeLocal+"://") {
		parsed, err := url.Parse(rawURI)
		if err != nil {
			return nil, fetch.NewFetchError(models.BadRequestError, "bad file URI %q: %s", rawURI, err.Error())
		}
		path = parsed.Path
	}

	content, err := os.ReadFile(path)
	if err != nil {
		switch {
		case os.IsNotExist(err):
			return nil, fetch.NewFetchError(models.NotFoundError, "topology source %s does not exist", path)
		case os.IsPermission(err):
			return nil, fetch.NewFetchError(models.AccessDeniedError, "permission denied reading %s", path)
		default:
			return nil, fetch.NewFetchError(models.IOFailure, "failed to read %s: %s", path, err.Error())
		}
	}
	return content, nil
}

var _ fetch.Fetcher = (*Fetcher)(nil)
