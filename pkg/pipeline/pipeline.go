package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/slurmsync-project/slurmsync/pkg/config"
	"github.com/slurmsync-project/slurmsync/pkg/fetch"
	fetchhttp "github.com/slurmsync-project/slurmsync/pkg/fetch/http"
	fetchlocal "github.com/slurmsync-project/slurmsync/pkg/fetch/local"
	fetchs3 "github.com/slurmsync-project/slurmsync/pkg/fetch/s3"
	"github.com/slurmsync-project/slurmsync/pkg/lib/backoff"
	"github.com/slurmsync-project/slurmsync/pkg/logger"
	"github.com/slurmsync-project/slurmsync/pkg/models"
	"github.com/slurmsync-project/slurmsync/pkg/reconciler"
	"github.com/slurmsync-project/slurmsync/pkg/renderer"
	"github.com/slurmsync-project/slurmsync/pkg/s3helper"
	"github.com/slurmsync-project/slurmsync/pkg/topology"
)

// Params lets callers substitute any stage; tests use fake fetchers and
// temp-dir reconcilers. Zero-value fields are wired from the config.
type Params struct {
	Config     config.SlurmsyncConfig
	Fetchers   *fetch.Registry
	Parser     *topology.Parser
	Renderer   *renderer.Renderer
	Reconciler *reconciler.Reconciler
	Backoff    backoff.Backoff
}

// Pipeline is the single operation the provisioning layer consumes: one
// synchronous fetch -> parse -> render -> reconcile pass. Each stage runs to
// completion or failure before the next begins; nothing here spawns
// background work.
type Pipeline struct {
	cfg        config.SlurmsyncConfig
	fetchers   *fetch.Registry
	parser     *topology.Parser
	renderer   *renderer.Renderer
	reconciler *reconciler.Reconciler
	backoff    backoff.Backoff
}

func New(params Params) (*Pipeline, error) {
	p := &Pipeline{
		cfg:        params.Config,
		fetchers:   params.Fetchers,
		parser:     params.Parser,
		renderer:   params.Renderer,
		reconciler: params.Reconciler,
		backoff:    params.Backoff,
	}
	if p.fetchers == nil {
		p.fetchers = defaultFetchers(params.Config)
	}
	if p.parser == nil {
		p.parser = topology.NewParser()
	}
	if p.renderer == nil {
		p.renderer = renderer.New(renderer.Params{
			OutputDir:   params.Config.Paths.OutputDir,
			EnvDir:      params.Config.Paths.EnvDir,
			TemplateDir: params.Config.Paths.TemplateDir,
			Owner:       params.Config.Files.Owner,
			Group:       params.Config.Files.Group,
		})
	}
	if p.reconciler == nil {
		rec, err := reconciler.New(reconciler.Params{
			AllowedRoots: []string{params.Config.Paths.OutputDir, params.Config.Paths.EnvDir},
		})
		if err != nil {
			return nil, err
		}
		p.reconciler = rec
	}
	if p.backoff == nil {
		p.backoff = backoff.NewExponential(
			params.Config.Source.BackoffBase(), params.Config.Source.BackoffMax())
	}
	return p, nil
}

func defaultFetchers(cfg config.SlurmsyncConfig) *fetch.Registry {
	fetchers := map[string]fetch.Fetcher{
		fetch.SchemeLocal: fetchlocal.NewFetcher(),
		fetch.SchemeHTTP:  fetchhttp.NewFetcher(),
		fetch.SchemeHTTPS: fetchhttp.NewFetcher(),
	}
	// The s3 fetcher needs an AWS credential chain. When none resolves we
	// still register the scheme; the failure then surfaces at fetch time
	// with a proper error instead of "unknown scheme".
	if awsConfig, err := s3helper.DefaultAWSConfig(); err == nil {
		fetchers[fetch.SchemeS3] = fetchs3.NewFetcher(fetchs3.FetcherParams{
			ClientProvider: s3helper.NewClientProvider(s3helper.ClientProviderParams{AWSConfig: awsConfig}),
			Region:         cfg.Source.S3.Region,
			Endpoint:       cfg.Source.S3.Endpoint,
		})
	} else {
		log.Debug().Err(err).Msg("no AWS configuration available, s3:// sources disabled")
	}
	return fetch.NewRegistry(fetchers)
}

// Run executes one full provisioning pass and returns the summary. Fetch and
// parse failures abort the pass: no partial topology is usable. Reconcile
// failures do not abort; they are collected per artifact in the summary and
// block only the reload decision.
func (p *Pipeline) Run(ctx context.Context) (*models.ReconciliationSummary, error) {
	runID := uuid.NewString()
	ctx = logger.ContextWithRunIDLogger(ctx, runID)

	parsed, err := p.materialize(ctx)
	if err != nil {
		return nil, err
	}

	summary := p.reconciler.Reconcile(ctx, parsed.artifacts)
	summary.RunID = runID
	summary.Cluster = parsed.topology.ClusterName

	log.Ctx(ctx).Info().
		Str("cluster", parsed.topology.ClusterName).
		Int("artifacts", len(summary.Results)).
		Bool("reload_required", summary.RequiresReload()).
		Bool("failed", summary.Failed()).
		Msg("provisioning pass complete")
	return summary, nil
}

// Render runs fetch -> parse -> render only, for dry runs.
func (p *Pipeline) Render(ctx context.Context) ([]models.RenderedArtifact, error) {
	runID := uuid.NewString()
	ctx = logger.ContextWithRunIDLogger(ctx, runID)
	parsed, err := p.materialize(ctx)
	if err != nil {
		return nil, err
	}
	return parsed.artifacts, nil
}

type materialized struct {
	topology  *models.ClusterTopology
	artifacts []models.RenderedArtifact
}

func (p *Pipeline) materialize(ctx context.Context) (*materialized, error) {
	raw, err := p.fetchWithRetry(ctx)
	if err != nil {
		return nil, err
	}
	p.saveFetchedDocument(ctx, raw)

	parsedTopology, err := p.parser.Parse(raw)
	if err != nil {
		return nil, err
	}

	artifacts, err := p.renderer.Render(parsedTopology)
	if err != nil {
		// Unreachable for a parser-validated topology; a broken template
		// override is the usual cause.
		log.Ctx(ctx).Error().Err(err).Msg("rendering failed on a validated topology")
		return nil, err
	}
	return &materialized{topology: parsedTopology, artifacts: artifacts}, nil
}

// fetchWithRetry applies the caller-side retry policy the fetchers
// themselves deliberately lack: bounded attempts with exponential backoff,
// retrying only transient failures. NotFound and AccessDenied fail fast.
func (p *Pipeline) fetchWithRetry(ctx context.Context) ([]byte, error) {
	uri := p.cfg.Source.URI
	var lastErr error
	for attempt := 1; attempt <= p.cfg.Source.Attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.cfg.Source.Timeout())
		raw, err := p.fetchers.Fetch(attemptCtx, uri)
		cancel()
		if err == nil {
			log.Ctx(ctx).Debug().
				Str("uri", uri).
				Str("size", humanize.Bytes(uint64(len(raw)))).
				Int("attempt", attempt).
				Msg("fetched topology document")
			return raw, nil
		}
		lastErr = err
		if !models.IsRetryable(err) {
			return nil, err
		}
		if attempt < p.cfg.Source.Attempts {
			log.Ctx(ctx).Warn().Err(err).
				Str("uri", uri).
				Int("attempt", attempt).
				Msg("transient fetch failure, backing off")
			p.backoff.Backoff(ctx, attempt)
		}
		if ctx.Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// saveFetchedDocument keeps a diagnostic copy of the raw input in the state
// dir. Best-effort: the pass never fails because of it.
func (p *Pipeline) saveFetchedDocument(ctx context.Context, raw []byte) {
	stateDir := p.cfg.Paths.StateDir
	if stateDir == "" {
		return
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		log.Ctx(ctx).Debug().Err(err).Msg("failed to create state dir")
		return
	}
	path := filepath.Join(stateDir, "topology.yaml")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("failed to save fetched document")
	}
}
