//go:build unit || !integration

package topology

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/slurmsync-project/slurmsync/pkg/logger"
	"github.com/slurmsync-project/slurmsync/pkg/models"
)

const validDocument = `
SchemaVersion: "1.0"
ClusterName: hpc-test
Region: eu-west-1
InstanceTypes:
  c5.xlarge:
    VCPUs: 4
    Memory: 8GB
  g4dn.12xlarge:
    VCPUs: 48
    Memory: 192GB
    Accelerators:
      - Name: gpu
        Type: t4
        Count: 4
Queues:
  - Name: queue-a
    Default: true
    ComputeResources:
      - Name: general
        InstanceType: c5.xlarge
        MinCount: 0
        MaxCount: 4
  - Name: queue-b
    Priority: 10
    ComputeResources:
      - Name: accel
        InstanceType: g4dn.12xlarge
        MinCount: 1
        MaxCount: 1
        GRES:
          - Name: gpu
            Type: t4
            Count: 1
`

type ParserSuite struct {
	suite.Suite
	parser *Parser
}

func TestParserSuite(t *testing.T) {
	suite.Run(t, new(ParserSuite))
}

func (s *ParserSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.parser = NewParser()
}

func (s *ParserSuite) TestParseValidDocument() {
	topology, err := s.parser.Parse([]byte(validDocument))
	s.Require().NoError(err)
	s.Equal("hpc-test", topology.ClusterName)
	s.Require().Len(topology.Queues, 2)
	s.Equal("queue-a", topology.Queues[0].Name)
	s.Equal("queue-b", topology.Queues[1].Name)
	s.True(topology.Queues[0].Default)
	s.Equal(10, topology.Queues[1].Priority)
	s.Equal(uint64(8192), topology.InstanceTypes["c5.xlarge"].Memory.MiB())
}

func (s *ParserSuite) TestParseIsDeterministic() {
	first, err := s.parser.Parse([]byte(validDocument))
	s.Require().NoError(err)
	second, err := s.parser.Parse([]byte(validDocument))
	s.Require().NoError(err)
	s.Equal(first, second)
}

func (s *ParserSuite) TestParseAppliesDefaults() {
	topology, err := s.parser.Parse([]byte(validDocument))
	s.Require().NoError(err)
	// MaxTime defaulted on both queues
	s.Equal("INFINITE", topology.Queues[0].MaxTime)
	s.Equal("INFINITE", topology.Queues[1].MaxTime)
}

func (s *ParserSuite) TestParseJSONDocument() {
	doc := `{"SchemaVersion": "1.0", "ClusterName": "hpc-test", "Queues": [` +
		`{"Name": "queue-a", "ComputeResources": [` +
		`{"Name": "general", "InstanceType": "c5.xlarge", "MinCount": 0, "MaxCount": 2}]}]}`
	topology, err := s.parser.Parse([]byte(doc))
	s.Require().NoError(err)
	s.Equal("hpc-test", topology.ClusterName)
}

func (s *ParserSuite) TestParseRejectsUnknownTopLevelKey() {
	doc := validDocument + "\nBogusKey: true\n"
	_, err := s.parser.Parse([]byte(doc))
	s.Require().Error(err)
	s.Contains(err.Error(), "BogusKey")
	s.True(models.IsErrorWithCode(err, models.BadRequestError))
}

func (s *ParserSuite) TestParseRejectsUnknownNestedKey() {
	doc := `
SchemaVersion: "1.0"
ClusterName: hpc-test
Queues:
  - Name: queue-a
    SpotPrice: 0.4
    ComputeResources:
      - Name: general
        InstanceType: c5.xlarge
        MaxCount: 2
`
	_, err := s.parser.Parse([]byte(doc))
	s.Require().Error(err)
	s.Contains(err.Error(), "SpotPrice")
	s.Contains(err.Error(), "line")
}

func (s *ParserSuite) TestParseSyntaxErrorCarriesLine() {
	doc := "SchemaVersion: \"1.0\"\nClusterName: [unclosed\n"
	_, err := s.parser.Parse([]byte(doc))
	s.Require().Error(err)
	s.Contains(err.Error(), "line")
}

func (s *ParserSuite) TestParseEmptyDocument() {
	_, err := s.parser.Parse([]byte("  \n\t\n"))
	s.Require().Error(err)
	s.Contains(err.Error(), "empty")
}

func (s *ParserSuite) TestParseRejectsMultipleDocuments() {
	doc := validDocument + "\n---\nSchemaVersion: \"1.0\"\n"
	_, err := s.parser.Parse([]byte(doc))
	s.Require().Error(err)
	s.Contains(err.Error(), "exactly one YAML document")
}

func (s *ParserSuite) TestSchemaVersionGate() {
	tests := []struct {
		name         string
		version      string
		expectedErr  string
		expectedCode models.ErrorCode
	}{
		{
			name:         "missing",
			version:      "",
			expectedErr:  "required field is missing",
			expectedCode: models.BadRequestError,
		},
		{
			name:         "garbage",
			version:      "not-a-version",
			expectedErr:  "not a valid version",
			expectedCode: models.BadRequestError,
		},
		{
			name:         "unsupported major",
			version:      "2.0",
			expectedErr:  "not supported",
			expectedCode: models.VersionMismatch,
		},
	}
	for _, tc := range tests {
		s.Run(tc.name, func() {
			doc := `
ClusterName: hpc-test
Queues:
  - Name: queue-a
    ComputeResources:
      - Name: general
        InstanceType: c5.xlarge
        MaxCount: 2
`
			if tc.version != "" {
				doc = "SchemaVersion: \"" + tc.version + "\"\n" + doc
			}
			_, err := s.parser.Parse([]byte(doc))
			s.Require().Error(err)
			s.Contains(err.Error(), tc.expectedErr)
			s.True(models.IsErrorWithCode(err, tc.expectedCode))
		})
	}
}

func (s *ParserSuite) TestSemanticViolationCarriesLocator() {
	doc := `
SchemaVersion: "1.0"
ClusterName: hpc-test
Queues:
  - Name: queue-a
    ComputeResources:
      - Name: general
        InstanceType: c5.xlarge
        MinCount: 5
        MaxCount: 2
`
	_, err := s.parser.Parse([]byte(doc))
	s.Require().Error(err)
	s.Contains(err.Error(), "Queues[0].ComputeResources[0]: MinCount 5 greater than MaxCount 2")
	s.True(models.IsErrorWithCode(err, models.ValidationFailed))
}

func (s *ParserSuite) TestDuplicateQueueRejected() {
	doc := `
SchemaVersion: "1.0"
ClusterName: hpc-test
Queues:
  - Name: queue-a
    ComputeResources:
      - Name: general
        InstanceType: c5.xlarge
        MaxCount: 2
  - Name: queue-a
    ComputeResources:
      - Name: other
        InstanceType: c5.xlarge
        MaxCount: 2
`
	_, err := s.parser.Parse([]byte(doc))
	s.Require().Error(err)
	s.Contains(err.Error(), `duplicate queue name "queue-a"`)
}

func (s *ParserSuite) TestCatalogInheritanceDuringParse() {
	doc := `
SchemaVersion: "1.0"
ClusterName: hpc-test
InstanceTypes:
  g4dn.12xlarge:
    VCPUs: 48
    Accelerators:
      - Name: gpu
        Type: t4
        Count: 4
Queues:
  - Name: queue-a
    ComputeResources:
      - Name: accel
        InstanceType: g4dn.12xlarge
        MaxCount: 2
`
	topology, err := s.parser.Parse([]byte(doc))
	s.Require().NoError(err)
	gres := topology.Queues[0].ComputeResources[0].GRES
	s.Require().Len(gres, 1)
	s.Equal("gpu", gres[0].Name)
	s.Equal(4, gres[0].Count)
}
