package models

import (
	"fmt"
	"io/fs"
)

// RenderedArtifact is one output file of a provisioning pass: rendered (or
// verbatim) content plus the metadata it must carry on disk. Artifacts are
// produced fresh each run and never mutated after creation; the reconciler
// only compares them against what is already on disk.
type RenderedArtifact struct {
	// Key identifies the artifact within a pass ("main", "gres", ...).
	Key string
	// Target is the absolute path the artifact must end up at.
	Target string
	// Content is the full file content.
	Content []byte
	// Owner and Group are the required file ownership. Empty means leave
	// the process default and skip chown.
	Owner string
	Group string
	// Mode is the required permission mode.
	Mode fs.FileMode
}

func (a RenderedArtifact) String() string {
	return fmt.Sprintf("%s -> %s (%d bytes, %s)", a.Key, a.Target, len(a.Content), a.Mode)
}

// ReconcileState is the terminal state of one artifact after a single
// reconciliation pass. An artifact starts Pending and moves to exactly one
// of the other states; there are no further transitions and no internal
// retries.
type ReconcileState string

const (
	ReconcileStatePending   ReconcileState = "Pending"
	ReconcileStateUnchanged ReconcileState = "Unchanged"
	ReconcileStateReplaced  ReconcileState = "Replaced"
	ReconcileStateFailed    ReconcileState = "Failed"
)

// ArtifactResult records what happened to a single artifact.
type ArtifactResult struct {
	Key    string         `json:"Key" yaml:"Key"`
	Target string         `json:"Target" yaml:"Target"`
	State  ReconcileState `json:"State" yaml:"State"`
	// Reason is set only when State is Failed.
	Reason string `json:"Reason,omitempty" yaml:"Reason,omitempty"`
}

// ReconciliationSummary is the aggregate outcome of a provisioning pass. The
// orchestration layer restarts the scheduler's control-plane daemon only
// when RequiresReload() is true: a pass with any failed artifact must leave
// the previous, consistent configuration running.
type ReconciliationSummary struct {
	RunID   string           `json:"RunID" yaml:"RunID"`
	Cluster string           `json:"Cluster,omitempty" yaml:"Cluster,omitempty"`
	Results []ArtifactResult `json:"Results" yaml:"Results"`
	// ReloadError reports a service reload that was attempted and failed.
	// The files on disk are already consistent at that point, so it does
	// not mark the reconciliation itself as failed.
	ReloadError string `json:"ReloadError,omitempty" yaml:"ReloadError,omitempty"`
}

// Failed reports whether any artifact failed.
func (s *ReconciliationSummary) Failed() bool {
	for _, r := range s.Results {
		if r.State == ReconcileStateFailed {
			return true
		}
	}
	return false
}

// Changed reports whether any artifact was replaced.
func (s *ReconciliationSummary) Changed() bool {
	for _, r := range s.Results {
		if r.State == ReconcileStateReplaced {
			return true
		}
	}
	return false
}

// RequiresReload is true when the pass changed at least one artifact and
// none failed. Restarting against a half-updated configuration set is worse
// than leaving the old one running.
func (s *ReconciliationSummary) RequiresReload() bool {
	return s.Changed() && !s.Failed()
}

// FailedArtifacts returns the results for artifacts that failed.
func (s *ReconciliationSummary) FailedArtifacts() []ArtifactResult {
	var failed []ArtifactResult
	for _, r := range s.Results {
		if r.State == ReconcileStateFailed {
			failed = append(failed, r)
		}
	}
	return failed
}
