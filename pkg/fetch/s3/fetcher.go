package s3

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/slurmsync-project/slurmsync/pkg/fetch"
	"github.com/slurmsync-project/slurmsync/pkg/models"
	"github.com/slurmsync-project/slurmsync/pkg/s3helper"
)

type FetcherParams struct {
	ClientProvider *s3helper.ClientProvider
	// Region and Endpoint override the AWS default chain, for
	// S3-compatible stores.
	Region   string
	Endpoint string
}

// Fetcher downloads topology documents from an S3-compatible object store.
type Fetcher struct {
	clientProvider *s3helper.ClientProvider
	region         string
	endpoint       string
}

func NewFetcher(params FetcherParams) *Fetcher {
	return &Fetcher{
		clientProvider: params.ClientProvider,
		region:         params.Region,
		endpoint:       params.Endpoint,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, rawURI string) ([]byte, error) {
	spec, err := ParseSourceURI(rawURI)
	if err != nil {
		return nil, err
	}
	spec.Region = f.region
	spec.Endpoint = f.endpoint

	client := f.clientProvider.GetClient(spec.Endpoint, spec.Region)
	buffer := manager.NewWriteAtBuffer(nil)
	_, err = client.Downloader.Download(ctx, buffer, &s3.GetObjectInput{
		Bucket: aws.String(spec.Bucket),
		Key:    aws.String(spec.Key),
	})
	if err != nil {
		return nil, classifyError(rawURI, err)
	}
	return buffer.Bytes(), nil
}

// classifyError maps AWS SDK failures onto the fetch error taxonomy so the
// pipeline can decide what is worth retrying.
func classifyError(rawURI string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fetch.NewFetchError(models.TimeoutError, "timed out fetching %s", rawURI)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case code == "NoSuchKey" || code == "NoSuchBucket" || code == "NotFound":
			return fetch.NewFetchError(models.NotFoundError, "topology source %s not found", rawURI)
		case code == "AccessDenied" || code == "Forbidden" || strings.Contains(code, "AccessDenied"):
			return fetch.NewFetchError(models.AccessDeniedError, "access denied fetching %s", rawURI)
		}
	}
	return fetch.NewFetchError(models.NetworkFailure, "failed to fetch %s: %s", rawURI, err.Error())
}

var _ fetch.Fetcher = (*Fetcher)(nil)
