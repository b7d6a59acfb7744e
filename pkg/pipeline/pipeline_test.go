//go:build unit || !integration

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/slurmsync-project/slurmsync/pkg/config"
	"github.com/slurmsync-project/slurmsync/pkg/fetch"
	"github.com/slurmsync-project/slurmsync/pkg/lib/backoff"
	"github.com/slurmsync-project/slurmsync/pkg/logger"
	"github.com/slurmsync-project/slurmsync/pkg/models"
	"github.com/slurmsync-project/slurmsync/pkg/reconciler"
)

const scenarioDocument = `
SchemaVersion: "1.0"
ClusterName: hpc-test
Queues:
  - Name: queue-a
    ComputeResources:
      - Name: general
        InstanceType: c5.xlarge
        MinCount: 0
        MaxCount: 4
  - Name: queue-b
    ComputeResources:
      - Name: accel
        InstanceType: g4dn.12xlarge
        MinCount: 1
        MaxCount: 1
        GRES:
          - Name: gpu
            Count: 1
`

// scriptedFetcher returns canned errors before succeeding, recording how
// often it was called.
type scriptedFetcher struct {
	failures []error
	content  []byte
	calls    int
}

func (f *scriptedFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	return f.content, nil
}

type PipelineSuite struct {
	suite.Suite
	ctx       context.Context
	outputDir string
	envDir    string
	stateDir  string
	cfg       config.SlurmsyncConfig
}

func TestPipelineSuite(t *testing.T) {
	suite.Run(t, new(PipelineSuite))
}

func (s *PipelineSuite) SetupTest() {
	logger.ConfigureTestLogging(s.T())
	s.ctx = context.Background()
	s.outputDir = s.T().TempDir()
	s.envDir = s.T().TempDir()
	s.stateDir = s.T().TempDir()

	s.cfg = config.Default()
	s.cfg.Source.URI = "test://topology.yaml"
	s.cfg.Source.TimeoutSeconds = 5
	s.cfg.Paths.OutputDir = s.outputDir
	s.cfg.Paths.EnvDir = s.envDir
	s.cfg.Paths.StateDir = s.stateDir
	s.cfg.Files.Owner = ""
	s.cfg.Files.Group = ""
}

func (s *PipelineSuite) newPipeline(fetcher fetch.Fetcher) *Pipeline {
	p, err := New(Params{
		Config:   s.cfg,
		Fetchers: fetch.NewRegistry(map[string]fetch.Fetcher{"test": fetcher}),
		Backoff:  backoff.NewNoop(),
	})
	s.Require().NoError(err)
	return p
}

func (s *PipelineSuite) TestFullPassThenIdempotentRerun() {
	fetcher := &scriptedFetcher{content: []byte(scenarioDocument)}
	p := s.newPipeline(fetcher)

	first, err := p.Run(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(first.Results, 5)
	for _, result := range first.Results {
		s.Equal(models.ReconcileStateReplaced, result.State, "artifact %s", result.Key)
	}
	s.True(first.RequiresReload())
	s.False(first.Failed())
	s.Equal("hpc-test", first.Cluster)
	s.NotEmpty(first.RunID)

	mainConf, err := os.ReadFile(filepath.Join(s.outputDir, "slurm_cluster.conf"))
	s.Require().NoError(err)
	s.Contains(string(mainConf), "PartitionName=queue-a")
	s.Contains(string(mainConf), "PartitionName=queue-b")

	gresConf, err := os.ReadFile(filepath.Join(s.outputDir, "slurm_cluster_gres.conf"))
	s.Require().NoError(err)
	s.Contains(string(gresConf), "Name=gpu")
	s.Contains(string(gresConf), "queue-b-st-accel")

	second, err := p.Run(s.ctx)
	s.Require().NoError(err)
	for _, result := range second.Results {
		s.Equal(models.ReconcileStateUnchanged, result.State, "artifact %s", result.Key)
	}
	s.False(second.RequiresReload())
	s.NotEqual(first.RunID, second.RunID)
}

func (s *PipelineSuite) TestTransientFailuresRetried() {
	fetcher := &scriptedFetcher{
		failures: []error{
			fetch.NewFetchError(models.NetworkFailure, "connection reset"),
			fetch.NewFetchError(models.TimeoutError, "deadline exceeded"),
		},
		content: []byte(scenarioDocument),
	}
	p := s.newPipeline(fetcher)

	summary, err := p.Run(s.ctx)
	s.Require().NoError(err)
	s.Equal(3, fetcher.calls)
	s.True(summary.RequiresReload())
}

func (s *PipelineSuite) TestRetriesAreBounded() {
	fetcher := &scriptedFetcher{
		failures: []error{
			fetch.NewFetchError(models.NetworkFailure, "down"),
			fetch.NewFetchError(models.NetworkFailure, "down"),
			fetch.NewFetchError(models.NetworkFailure, "down"),
			fetch.NewFetchError(models.NetworkFailure, "down"),
		},
	}
	p := s.newPipeline(fetcher)

	_, err := p.Run(s.ctx)
	s.Require().Error(err)
	s.Equal(s.cfg.Source.Attempts, fetcher.calls)
	s.True(models.IsErrorWithCode(err, models.NetworkFailure))
}

func (s *PipelineSuite) TestNotFoundFailsFast() {
	fetcher := &scriptedFetcher{
		failures: []error{fetch.NewFetchError(models.NotFoundError, "no such key")},
	}
	p := s.newPipeline(fetcher)

	_, err := p.Run(s.ctx)
	s.Require().Error(err)
	s.Equal(1, fetcher.calls)
	s.True(models.IsErrorWithCode(err, models.NotFoundError))
	// nothing was written
	entries, readErr := os.ReadDir(s.outputDir)
	s.Require().NoError(readErr)
	s.Empty(entries)
}

func (s *PipelineSuite) TestParseFailureAbortsBeforeWriting() {
	fetcher := &scriptedFetcher{content: []byte("SchemaVersion: \"1.0\"\nBogus: true\n")}
	p := s.newPipeline(fetcher)

	_, err := p.Run(s.ctx)
	s.Require().Error(err)
	entries, readErr := os.ReadDir(s.outputDir)
	s.Require().NoError(readErr)
	s.Empty(entries)
}

func (s *PipelineSuite) TestFetchedDocumentSavedForDiagnostics() {
	fetcher := &scriptedFetcher{content: []byte(scenarioDocument)}
	p := s.newPipeline(fetcher)

	_, err := p.Run(s.ctx)
	s.Require().NoError(err)

	saved, err := os.ReadFile(filepath.Join(s.stateDir, "topology.yaml"))
	s.Require().NoError(err)
	s.Equal(scenarioDocument, string(saved))
}

func (s *PipelineSuite) TestPartialFailureBlocksReload() {
	fetcher := &scriptedFetcher{content: []byte(scenarioDocument)}
	// point the env scripts at a directory that does not exist
	s.cfg.Paths.EnvDir = filepath.Join(s.envDir, "missing")
	rec, err := reconciler.New(reconciler.Params{
		AllowedRoots: []string{s.outputDir, s.cfg.Paths.EnvDir},
	})
	s.Require().NoError(err)
	p, err := New(Params{
		Config:     s.cfg,
		Fetchers:   fetch.NewRegistry(map[string]fetch.Fetcher{"test": fetcher}),
		Reconciler: rec,
		Backoff:    backoff.NewNoop(),
	})
	s.Require().NoError(err)

	summary, err := p.Run(s.ctx)
	s.Require().NoError(err)
	s.True(summary.Failed())
	s.False(summary.RequiresReload())

	var replaced, failed int
	for _, result := range summary.Results {
		switch result.State {
		case models.ReconcileStateReplaced:
			replaced++
		case models.ReconcileStateFailed:
			failed++
		}
	}
	s.Equal(3, replaced, "the config artifacts still land")
	s.Equal(2, failed, "both env scripts fail")
}

func (s *PipelineSuite) TestRenderDoesNotWrite() {
	fetcher := &scriptedFetcher{content: []byte(scenarioDocument)}
	s.cfg.Paths.StateDir = ""
	p := s.newPipeline(fetcher)

	artifacts, err := p.Render(s.ctx)
	s.Require().NoError(err)
	s.Len(artifacts, 5)

	entries, err := os.ReadDir(s.outputDir)
	s.Require().NoError(err)
	s.Empty(entries)
}
