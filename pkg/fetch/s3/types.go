package s3

import (
	"net/url"
	"strings"

	"github.com/fatih/structs"
	"github.com/mitchellh/mapstructure"

	"github.com/slurmsync-project/slurmsync/pkg/fetch"
	"github.com/slurmsync-project/slurmsync/pkg/models"
)

// SourceSpec identifies one object in an S3-compatible store.
type SourceSpec struct {
	Bucket   string
	Key      string
	Region   string
	Endpoint string
}

func (c SourceSpec) Validate() error {
	if c.Bucket == "" {
		return fetch.NewFetchError(models.BadRequestError, "invalid s3 source: bucket cannot be empty")
	}
	if c.Key == "" {
		return fetch.NewFetchError(models.BadRequestError, "invalid s3 source: key cannot be empty")
	}
	return nil
}

func (c SourceSpec) ToMap() map[string]interface{} {
	return structs.Map(c)
}

func DecodeSourceSpec(params map[string]interface{}) (SourceSpec, error) {
	var c SourceSpec
	if err := mapstructure.Decode(params, &c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// ParseSourceURI splits an s3://bucket/key URI into a SourceSpec. Region and
// endpoint are not part of the URI; the caller supplies them from config.
func ParseSourceURI(rawURI string) (SourceSpec, error) {
	parsed, err := url.Parse(rawURI)
	if err != nil {
		return SourceSpec{}, fetch.NewFetchError(models.BadRequestError, "bad s3 URI %q: %s", rawURI, err.Error())
	}
	if parsed.Scheme != fetch.SchemeS3 {
		return SourceSpec{}, fetch.NewFetchError(models.BadRequestError,
			"expected s3:// URI, got %q", rawURI)
	}
	spec := SourceSpec{
		Bucket: parsed.Host,
		Key:    strings.TrimPrefix(parsed.Path, "/"),
	}
	return spec, spec.Validate()
}
