package topology

import (
	"bytes"
	"io"

	"github.com/Masterminds/semver"
	"gopkg.in/yaml.v3"

	"github.com/slurmsync-project/slurmsync/pkg/models"
)

// supportedSchema gates the documents this parser understands. Anything
// outside the constraint is rejected up front rather than half-parsed.
var supportedSchema = mustConstraint("^1")

func mustConstraint(c string) *semver.Constraints {
	constraint, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return constraint
}

// Parser turns raw declarative bytes into a validated ClusterTopology.
//
// Parsing is strict: unknown keys anywhere in the document are an error, not
// silently ignored, because a misconfigured topology can start the scheduler
// with incomplete partitions. Parsing is pure (no I/O) and deterministic:
// the same bytes always yield the same topology or the same error.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse decodes, normalizes and validates a topology document. Structural
// errors carry the document line number; semantic invariant violations carry
// a path locator such as "Queues[1].ComputeResources[0]".
func (p *Parser) Parse(data []byte) (*models.ClusterTopology, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, NewParseError(models.BadRequestError, "topology document is empty")
	}

	topology := new(models.ClusterTopology)
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(topology); err != nil {
		return nil, NewParseError(models.BadRequestError,
			"failed to decode topology document: %s", err.Error()).
			WithHint("unknown keys are rejected; check the field names against the v1 schema")
	}
	// A second document in the stream is operator error, not extra data to
	// silently drop.
	if err := decoder.Decode(new(struct{})); err != io.EOF {
		return nil, NewParseError(models.BadRequestError,
			"topology source must contain exactly one YAML document")
	}

	if err := p.checkSchemaVersion(topology.SchemaVersion); err != nil {
		return nil, err
	}

	topology.Normalize()
	if err := topology.Validate(); err != nil {
		return nil, NewParseError(models.ValidationFailed,
			"invalid topology: %s", err.Error())
	}
	return topology, nil
}

func (p *Parser) checkSchemaVersion(raw string) error {
	if raw == "" {
		return NewParseError(models.BadRequestError, "SchemaVersion: required field is missing")
	}
	version, err := semver.NewVersion(raw)
	if err != nil {
		return NewParseError(models.BadRequestError,
			"SchemaVersion: %q is not a valid version: %s", raw, err.Error())
	}
	if !supportedSchema.Check(version) {
		return NewParseError(models.VersionMismatch,
			"SchemaVersion: %q is not supported (want %s)", raw, "^1").
			WithHint("regenerate the topology document with a v1 generator")
	}
	return nil
}
