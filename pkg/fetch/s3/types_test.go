//go:build unit || !integration

package s3

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SourceSpecSuite struct {
	suite.Suite
}

func TestSourceSpecSuite(t *testing.T) {
	suite.Run(t, new(SourceSpecSuite))
}

func (s *SourceSpecSuite) TestParseSourceURI() {
	tests := []struct {
		name        string
		uri         string
		expected    SourceSpec
		expectedErr string
	}{
		{
			name:     "simple",
			uri:      "s3://my-bucket/cluster/topology.yaml",
			expected: SourceSpec{Bucket: "my-bucket", Key: "cluster/topology.yaml"},
		},
		{
			name:     "key at root",
			uri:      "s3://my-bucket/topology.yaml",
			expected: SourceSpec{Bucket: "my-bucket", Key: "topology.yaml"},
		},
		{
			name:        "wrong scheme",
			uri:         "https://my-bucket/topology.yaml",
			expectedErr: "expected s3:// URI",
		},
		{
			name:        "missing key",
			uri:         "s3://my-bucket",
			expectedErr: "key cannot be empty",
		},
		{
			name:        "missing bucket",
			uri:         "s3:///topology.yaml",
			expectedErr: "bucket cannot be empty",
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			spec, err := ParseSourceURI(tc.uri)
			if tc.expectedErr != "" {
				s.Require().Error(err)
				s.Contains(err.Error(), tc.expectedErr)
				return
			}
			s.Require().NoError(err)
			s.Equal(tc.expected, spec)
		})
	}
}

func (s *SourceSpecSuite) TestSpecMapRoundTrip() {
	original := SourceSpec{
		Bucket:   "my-bucket",
		Key:      "topology.yaml",
		Region:   "eu-west-1",
		Endpoint: "http://localhost:9000",
	}
	decoded, err := DecodeSourceSpec(original.ToMap())
	s.Require().NoError(err)
	s.Equal(original, decoded)
}
