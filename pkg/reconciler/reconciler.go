package reconciler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/slurmsync-project/slurmsync/pkg/models"
)

type Params struct {
	// AllowedRoots are the only directories artifacts may land in. A target
	// resolving outside all of them is a failure, never a write.
	AllowedRoots []string
}

// Reconciler applies rendered artifacts to disk. Each artifact is handled
// independently in a single pass: compare, then atomically replace when
// different. One failing artifact never blocks the others, but any failure
// blocks the caller's decision to reload the scheduler.
type Reconciler struct {
	allowedRoots []string
}

func New(params Params) (*Reconciler, error) {
	if len(params.AllowedRoots) == 0 {
		return nil, NewReconcileError(models.ConfigurationError, "at least one allowed root is required")
	}
	roots := make([]string, 0, len(params.AllowedRoots))
	for _, root := range params.AllowedRoots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, NewReconcileError(models.ConfigurationError, "bad allowed root %q: %s", root, err.Error())
		}
		roots = append(roots, abs)
	}
	return &Reconciler{allowedRoots: roots}, nil
}

// Reconcile processes every artifact and returns the per-artifact states.
// The summary's RunID and Cluster fields are left for the caller to fill.
func (r *Reconciler) Reconcile(ctx context.Context, artifacts []models.RenderedArtifact) *models.ReconciliationSummary {
	summary := &models.ReconciliationSummary{
		Results: make([]models.ArtifactResult, 0, len(artifacts)),
	}
	for _, artifact := range artifacts {
		result := models.ArtifactResult{
			Key:    artifact.Key,
			Target: artifact.Target,
		}
		state, err := r.reconcileOne(ctx, artifact)
		result.State = state
		if err != nil {
			result.Reason = err.Error()
			log.Ctx(ctx).Error().Err(err).
				Str("artifact", artifact.Key).
				Str("target", artifact.Target).
				Msg("failed to reconcile artifact")
		} else {
			log.Ctx(ctx).Debug().
				Str("artifact", artifact.Key).
				Str("target", artifact.Target).
				Str("size", humanize.Bytes(uint64(len(artifact.Content)))).
				Str("state", string(state)).
				Msg("reconciled artifact")
		}
		summary.Results = append(summary.Results, result)
	}
	return summary
}

// reconcileOne moves a single artifact from Pending to exactly one terminal
// state. The rename is the sole mutating step on the target path: an
// interruption at any earlier point leaves the old file untouched.
func (r *Reconciler) reconcileOne(ctx context.Context, artifact models.RenderedArtifact) (models.ReconcileState, error) {
	target, err := r.resolveTarget(artifact.Target)
	if err != nil {
		return models.ReconcileStateFailed, err
	}

	uid, gid, err := lookupOwner(artifact.Owner, artifact.Group)
	if err != nil {
		return models.ReconcileStateFailed, err
	}

	unchanged, err := r.isUnchanged(target, artifact, uid, gid)
	if err != nil {
		return models.ReconcileStateFailed, err
	}
	if unchanged {
		return models.ReconcileStateUnchanged, nil
	}

	if err := r.replace(ctx, target, artifact, uid, gid); err != nil {
		return models.ReconcileStateFailed, err
	}
	return models.ReconcileStateReplaced, nil
}

// resolveTarget confines the target to the allowed roots. The parent
// directory is resolved through symlinks so a link inside a root cannot
// redirect the write elsewhere; the final path element itself must not be
// resolved, as it is what gets atomically replaced.
func (r *Reconciler) resolveTarget(target string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", NewReconcileError(models.IOFailure, "bad target path %q: %s", target, err.Error())
	}
	dir, base := filepath.Split(abs)
	resolvedDir, err := filepath.EvalSymlinks(filepath.Clean(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", NewReconcileError(models.IOFailure, "target directory %s does not exist", dir)
		}
		return "", NewReconcileError(models.IOFailure, "failed to resolve target directory %s: %s", dir, err.Error())
	}
	resolved := filepath.Join(resolvedDir, base)

	for _, root := range r.allowedRoots {
		resolvedRoot, err := filepath.EvalSymlinks(root)
		if err != nil {
			continue
		}
		if resolved == resolvedRoot || strings.HasPrefix(resolved, resolvedRoot+string(filepath.Separator)) {
			return resolved, nil
		}
	}
	return "", NewReconcileError(models.AccessDeniedError,
		"target %s resolves outside the allowed roots %v", target, r.allowedRoots)
}

// isUnchanged reports whether the on-disk file already matches the artifact
// in content, mode and (when ownership management is in effect) owner.
// Skipping the write avoids mtime churn and spurious service reloads.
func (r *Reconciler) isUnchanged(target string, artifact models.RenderedArtifact, uid, gid int) (bool, error) {
	info, err := os.Lstat(target)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, NewReconcileError(models.IOFailure, "failed to stat %s: %s", target, err.Error())
	}
	if !info.Mode().IsRegular() {
		// A symlink or other non-regular file at the target is always
		// replaced with a regular file.
		return false, nil
	}
	if info.Mode().Perm() != artifact.Mode.Perm() {
		return false, nil
	}
	if uid >= 0 {
		stat, ok := info.Sys().(*syscall.Stat_t)
		if !ok || int(stat.Uid) != uid || int(stat.Gid) != gid {
			return false, nil
		}
	}

	existing, err := os.ReadFile(target)
	if err != nil {
		return false, NewReconcileError(models.IOFailure, "failed to read %s: %s", target, err.Error())
	}
	return bytes.Equal(existing, artifact.Content), nil
}

// replace writes the artifact to a temporary file in the target directory,
// applies metadata, fsyncs and renames over the target. Failures remove the
// temporary file; the target is never touched until the rename.
func (r *Reconciler) replace(ctx context.Context, target string, artifact models.RenderedArtifact, uid, gid int) error {
	dir := filepath.Dir(target)
	sweepStaleTempFiles(ctx, dir, filepath.Base(target))

	tmp, err := os.CreateTemp(dir, tempPattern(filepath.Base(target)))
	if err != nil {
		return NewReconcileError(models.IOFailure,
			"failed to create temporary file in %s: %s", dir, err.Error())
	}
	tmpName := tmp.Name()
	cleanup := func(cause error) error {
		tmp.Close()
		_ = os.Remove(tmpName)
		return cause
	}

	if _, err := tmp.Write(artifact.Content); err != nil {
		return cleanup(NewReconcileError(models.IOFailure, "failed to write %s: %s", tmpName, err.Error()))
	}
	if err := tmp.Chmod(artifact.Mode); err != nil {
		return cleanup(NewReconcileError(models.IOFailure, "failed to chmod %s: %s", tmpName, err.Error()))
	}
	if uid >= 0 {
		if err := tmp.Chown(uid, gid); err != nil {
			return cleanup(NewReconcileError(models.AccessDeniedError,
				"failed to chown %s to %s:%s: %s", tmpName, artifact.Owner, artifact.Group, err.Error()))
		}
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(NewReconcileError(models.IOFailure, "failed to sync %s: %s", tmpName, err.Error()))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return NewReconcileError(models.IOFailure, "failed to close %s: %s", tmpName, err.Error())
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return NewReconcileError(models.IOFailure,
			"failed to rename %s over %s: %s", tmpName, target, err.Error())
	}
	return nil
}

// lookupOwner resolves the configured owner/group to numeric ids. Ownership
// management only applies when an owner is configured and the process can
// actually chown, i.e. it runs as root; otherwise (-1, -1) disables it and
// content+mode alone decide Unchanged vs Replaced.
func lookupOwner(owner, group string) (int, int, error) {
	if owner == "" || os.Geteuid() != 0 {
		return -1, -1, nil
	}
	u, err := user.Lookup(owner)
	if err != nil {
		return -1, -1, NewReconcileError(models.ConfigurationError,
			"unknown owner %q: %s", owner, err.Error())
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return -1, -1, errors.Wrapf(err, "non-numeric uid for user %q", owner)
	}

	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return -1, -1, errors.Wrapf(err, "non-numeric gid for user %q", owner)
	}
	if group != "" {
		g, err := user.LookupGroup(group)
		if err != nil {
			return -1, -1, NewReconcileError(models.ConfigurationError,
				"unknown group %q: %s", group, err.Error())
		}
		gid, err = strconv.Atoi(g.Gid)
		if err != nil {
			return -1, -1, errors.Wrapf(err, "non-numeric gid for group %q", group)
		}
	}
	return uid, gid, nil
}

func tempPattern(base string) string {
	return fmt.Sprintf(".%s.tmp-*", base)
}

// sweepStaleTempFiles removes leftovers of interrupted passes. Best-effort:
// a sweep failure never fails the artifact.
func sweepStaleTempFiles(ctx context.Context, dir, base string) {
	stale, err := filepath.Glob(filepath.Join(dir, tempPattern(base)))
	if err != nil {
		return
	}
	for _, path := range stale {
		if err := os.Remove(path); err == nil {
			log.Ctx(ctx).Debug().Str("path", path).Msg("removed stale temporary file")
		}
	}
}
