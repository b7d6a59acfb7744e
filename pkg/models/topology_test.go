//go:build unit || !integration

package models

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/slurmsync-project/slurmsync/pkg/logger"
)

type TopologySuite struct {
	suite.Suite
}

func TestTopologySuite(t *testing.T) {
	suite.Run(t, new(TopologySuite))
}

func (s *TopologySuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
}

func validTopology() *ClusterTopology {
	return &ClusterTopology{
		SchemaVersion: "1.0",
		ClusterName:   "hpc-test",
		Queues: []Queue{
			{
				Name:    "queue-a",
				MaxTime: "INFINITE",
				ComputeResources: []ComputeResource{
					{Name: "general", InstanceType: "c5.xlarge", MinCount: 0, MaxCount: 4},
				},
			},
		},
	}
}

func (s *TopologySuite) TestValidTopology() {
	s.NoError(validTopology().Validate())
}

func (s *TopologySuite) TestValidationFailures() {
	tests := []struct {
		name        string
		mutate      func(t *ClusterTopology)
		expectedErr string
	}{
		{
			name:        "empty cluster name",
			mutate:      func(t *ClusterTopology) { t.ClusterName = "" },
			expectedErr: "ClusterName: must not be empty",
		},
		{
			name:        "bad cluster name characters",
			mutate:      func(t *ClusterTopology) { t.ClusterName = "HPC_Prod" },
			expectedErr: "lowercase letters",
		},
		{
			name: "cluster name too long",
			mutate: func(t *ClusterTopology) {
				t.ClusterName = "a-very-long-cluster-name-that-exceeds-the-limit"
			},
			expectedErr: "longer than 40",
		},
		{
			name:        "no queues",
			mutate:      func(t *ClusterTopology) { t.Queues = nil },
			expectedErr: "at least one queue",
		},
		{
			name: "duplicate queue name",
			mutate: func(t *ClusterTopology) {
				t.Queues = append(t.Queues, t.Queues[0])
			},
			expectedErr: `duplicate queue name "queue-a"`,
		},
		{
			name: "queue without compute resources",
			mutate: func(t *ClusterTopology) {
				t.Queues[0].ComputeResources = nil
			},
			expectedErr: "has no compute resources",
		},
		{
			name: "duplicate compute resource name",
			mutate: func(t *ClusterTopology) {
				t.Queues[0].ComputeResources = append(
					t.Queues[0].ComputeResources, t.Queues[0].ComputeResources[0])
			},
			expectedErr: `duplicate compute resource name "general"`,
		},
		{
			name: "min greater than max",
			mutate: func(t *ClusterTopology) {
				t.Queues[0].ComputeResources[0].MinCount = 5
				t.Queues[0].ComputeResources[0].MaxCount = 2
			},
			expectedErr: "Queues[0].ComputeResources[0]: MinCount 5 greater than MaxCount 2",
		},
		{
			name: "negative min",
			mutate: func(t *ClusterTopology) {
				t.Queues[0].ComputeResources[0].MinCount = -1
			},
			expectedErr: "MinCount -1 must not be negative",
		},
		{
			name: "zero max",
			mutate: func(t *ClusterTopology) {
				t.Queues[0].ComputeResources[0].MaxCount = 0
			},
			expectedErr: "MaxCount 0 must be greater than zero",
		},
		{
			name: "gres with zero count",
			mutate: func(t *ClusterTopology) {
				t.Queues[0].ComputeResources[0].GRES = []GRESEntry{{Name: "gpu", Count: 0}}
			},
			expectedErr: "GRES count 0 must be greater than zero",
		},
		{
			name: "gres without name",
			mutate: func(t *ClusterTopology) {
				t.Queues[0].ComputeResources[0].GRES = []GRESEntry{{Name: "", Count: 1}}
			},
			expectedErr: "GRES name must not be empty",
		},
		{
			name: "negative priority",
			mutate: func(t *ClusterTopology) {
				t.Queues[0].Priority = -2
			},
			expectedErr: "Priority -2 must not be negative",
		},
		{
			name: "two default queues",
			mutate: func(t *ClusterTopology) {
				second := t.Queues[0]
				second.Name = "queue-b"
				t.Queues[0].Default = true
				second.Default = true
				t.Queues = append(t.Queues, second)
			},
			expectedErr: `marked Default but "queue-a" already is`,
		},
	}

	for _, tc := range tests {
		s.Run(tc.name, func() {
			topology := validTopology()
			tc.mutate(topology)
			err := topology.Validate()
			s.Require().Error(err)
			s.Contains(err.Error(), tc.expectedErr)
		})
	}
}

func (s *TopologySuite) TestNormalizeDefaults() {
	topology := validTopology()
	topology.Queues[0].MaxTime = ""
	topology.Normalize()
	s.Equal("INFINITE", topology.Queues[0].MaxTime)
}

func (s *TopologySuite) TestNormalizeInheritsCatalogAccelerators() {
	topology := validTopology()
	topology.InstanceTypes = map[string]InstanceType{
		"g4dn.12xlarge": {
			VCPUs:        48,
			Accelerators: []Accelerator{{Name: "gpu", Type: "t4", Count: 4}},
		},
	}
	topology.Queues[0].ComputeResources[0].InstanceType = "g4dn.12xlarge"
	topology.Normalize()

	gres := topology.Queues[0].ComputeResources[0].GRES
	s.Require().Len(gres, 1)
	s.Equal(GRESEntry{Name: "gpu", Type: "t4", Count: 4}, gres[0])
}

func (s *TopologySuite) TestNormalizeExplicitGRESWins() {
	topology := validTopology()
	topology.InstanceTypes = map[string]InstanceType{
		"g4dn.12xlarge": {
			Accelerators: []Accelerator{{Name: "gpu", Type: "t4", Count: 4}},
		},
	}
	topology.Queues[0].ComputeResources[0].InstanceType = "g4dn.12xlarge"
	topology.Queues[0].ComputeResources[0].GRES = []GRESEntry{{Name: "gpu", Type: "t4", Count: 1}}
	topology.Normalize()

	gres := topology.Queues[0].ComputeResources[0].GRES
	s.Require().Len(gres, 1)
	s.Equal(1, gres[0].Count)
}

func (s *TopologySuite) TestCapacityParsing() {
	var it InstanceType
	err := yaml.Unmarshal([]byte("VCPUs: 4\nMemory: 8GB"), &it)
	s.Require().NoError(err)
	s.Equal(uint64(8192), it.Memory.MiB())
}

func (s *TopologySuite) TestCopyIsDeep() {
	original := validTopology()
	original.Queues[0].ComputeResources[0].GRES = []GRESEntry{{Name: "gpu", Count: 1}}

	clone := original.Copy()
	clone.Queues[0].ComputeResources[0].GRES[0].Count = 9
	clone.Queues[0].Name = "changed"

	s.Equal(1, original.Queues[0].ComputeResources[0].GRES[0].Count)
	s.Equal("queue-a", original.Queues[0].Name)
}

func (s *TopologySuite) TestHasGRES() {
	topology := validTopology()
	s.False(topology.HasGRES())
	topology.Queues[0].ComputeResources[0].GRES = []GRESEntry{{Name: "gpu", Count: 1}}
	s.True(topology.HasGRES())
}
