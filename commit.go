package mg

import (
	"errors"
	"strings"

	"github.com/mycroft/mg/ginternals"
	"github.com/mycroft/mg/ginternals/object"
	"golang.org/x/xerrors"
)

const branchRefPrefix = "refs/heads/"

// CurrentBranch returns the name of the branch HEAD points to, e.g.
// "main". It does not require the branch to have any commit yet.
func (r *Repository) CurrentBranch() (string, error) {
	target, err := r.dotGit.SymbolicTarget(ginternals.Head)
	if err != nil {
		return "", xerrors.Errorf("could not read HEAD: %w", err)
	}
	if !strings.HasPrefix(target, branchRefPrefix) {
		return "", xerrors.Errorf("HEAD does not point to a branch: %w", ginternals.ErrRefInvalid)
	}
	return target[len(branchRefPrefix):], nil
}

// CurrentCommit returns the commit HEAD points to.
// ErrRefNotFound is returned if the current branch has no commit yet.
func (r *Repository) CurrentCommit() (*object.Commit, error) {
	ref, err := r.dotGit.Reference(ginternals.Head)
	if err != nil {
		return nil, xerrors.Errorf("could not resolve HEAD: %w", err)
	}
	o, err := r.dotGit.Object(ref.Target())
	if err != nil {
		return nil, xerrors.Errorf("could not load commit %s: %w", ref.Target().String(), err)
	}
	return o.AsCommit()
}

// Commit snapshots the working tree and appends a new commit to the
// current branch, moving the branch ref (and HEAD, transitively) to
// it. The new commit's parent is the branch's previous commit, if any.
func (r *Repository) Commit(message string) (*object.Commit, error) {
	tree, err := r.WriteTreeFromWorkingTree("")
	if err != nil {
		return nil, xerrors.Errorf("could not build tree: %w", err)
	}

	branchRefName, err := r.dotGit.SymbolicTarget(ginternals.Head)
	if err != nil {
		return nil, xerrors.Errorf("could not read HEAD: %w", err)
	}

	var parentID ginternals.Oid
	headRef, err := r.dotGit.Reference(ginternals.Head)
	switch {
	case err == nil:
		parentID = headRef.Target()
	case errors.Is(err, ginternals.ErrRefNotFound):
		parentID = ginternals.NullOid
	default:
		return nil, xerrors.Errorf("could not resolve HEAD: %w", err)
	}

	commit := object.NewCommit(tree.ID(), parentID, message+"\n")

	oid, err := r.dotGit.WriteObject(commit.ToObject())
	if err != nil {
		return nil, xerrors.Errorf("could not write commit: %w", err)
	}

	if err := r.dotGit.WriteReference(ginternals.NewReference(branchRefName, oid)); err != nil {
		return nil, xerrors.Errorf("could not move branch ref: %w", err)
	}

	return commit.ToObject().AsCommit()
}

// Log returns the commit history starting at HEAD, most recent first
func (r *Repository) Log() ([]*object.Commit, error) {
	current, err := r.CurrentCommit()
	if err != nil {
		if errors.Is(err, ginternals.ErrRefNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var commits []*object.Commit
	for {
		commits = append(commits, current)
		if !current.HasParent() {
			break
		}
		o, err := r.dotGit.Object(current.ParentID())
		if err != nil {
			return nil, xerrors.Errorf("could not load parent commit: %w", err)
		}
		current, err = o.AsCommit()
		if err != nil {
			return nil, xerrors.Errorf("parent is not a commit: %w", err)
		}
	}
	return commits, nil
}
