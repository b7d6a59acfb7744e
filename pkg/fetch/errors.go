package fetch

import "github.com/slurmsync-project/slurmsync/pkg/models"

const FetcherComponent = "Fetcher"

const (
	SchemeS3    = "s3"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
	SchemeLocal = "file"
)

// NewFetchError builds a FetchError. Network and timeout failures are
// transient by nature and marked retryable; a missing object or denied
// access will not heal on retry and is not.
func NewFetchError(code models.ErrorCode, format string, a ...any) *models.BaseError {
	err := models.NewBaseError(format, a...).
		WithComponent(FetcherComponent).
		WithCode(code)
	if code == models.NetworkFailure || code == models.TimeoutError {
		err = err.WithRetryable()
	}
	return err
}
