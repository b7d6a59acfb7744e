package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/slurmsync-project/slurmsync/pkg/fetch"
	"github.com/slurmsync-project/slurmsync/pkg/models"
)

// maxDocumentSize caps how much of a response body is read. Topology
// documents are small; anything larger is a misconfigured URI.
const maxDocumentSize = 10 << 20 // 10MiB

// Fetcher retrieves topology documents over HTTP(S). The underlying
// retryablehttp client is configured with retries disabled: retry policy
// belongs to the pipeline, not here.
type Fetcher struct {
	client *retryablehttp.Client
}

func NewFetcher() *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil
	return &Fetcher{client: client}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURI string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURI, nil)
	if err != nil {
		return nil, fetch.NewFetchError(models.BadRequestError, "bad URI %q: %s", rawURI, err.Error())
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fetch.NewFetchError(models.TimeoutError, "timed out fetching %s", rawURI)
		}
		return nil, fetch.NewFetchError(models.NetworkFailure, "failed to fetch %s: %s", rawURI, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fetch.NewFetchError(models.NotFoundError, "topology source %s not found", rawURI)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fetch.NewFetchError(models.AccessDeniedError, "access denied fetching %s", rawURI)
	case resp.StatusCode != http.StatusOK:
		return nil, fetch.NewFetchError(models.NetworkFailure,
			"unexpected status %d fetching %s", resp.StatusCode, rawURI)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fetch.NewFetchError(models.TimeoutError, "timed out reading %s", rawURI)
		}
		return nil, fetch.NewFetchError(models.NetworkFailure, "failed to read %s: %s", rawURI, err.Error())
	}
	if len(content) > maxDocumentSize {
		return nil, fetch.NewFetchError(models.BadRequestError,
			"topology document at %s exceeds %d bytes", rawURI, maxDocumentSize)
	}
	return content, nil
}

var _ fetch.Fetcher = (*Fetcher)(nil)
