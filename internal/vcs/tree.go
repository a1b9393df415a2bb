// Package vcs owns the version-control capability contract applyctl
// reconciles against.
//
// Ownership boundary:
// - the Tree capability interface and its revision/tag value types
// - pre-run tree snapshots and tag delta computation
// - the git command-line adapter
package vcs

import (
	"bytes"
	"errors"
)

// ErrPointlessCommit reports a commit attempt against a tree with nothing
// to commit.
var ErrPointlessCommit = errors.New("vcs: nothing to commit")

// RevisionID identifies one revision in the underlying version control
// system. The bytes are opaque to applyctl and preserved exactly.
type RevisionID []byte

func (r RevisionID) String() string {
	return string(r)
}

func (r RevisionID) Equal(other RevisionID) bool {
	return bytes.Equal(r, other)
}

// Tag pairs a tag name with the revision it points at.
type Tag struct {
	Name     string
	Revision RevisionID
}

// Tree is the minimal capability applyctl needs from a version-controlled
// working tree. Implementations must keep Tags ordering stable so tag
// deltas come out deterministic.
type Tree interface {
	// CurrentRevision returns the id of the latest revision, or an empty
	// id when the tree has no revisions yet.
	CurrentRevision() (RevisionID, error)

	// Tags returns the tag mapping in the tree's own iteration order.
	Tags() ([]Tag, error)

	// Commit records pending tracked changes under message and returns
	// the new revision id. Returns ErrPointlessCommit when the tree has
	// nothing to commit.
	Commit(message string) (RevisionID, error)

	// AbsPath resolves subpath against the tree root.
	AbsPath(subpath string) string
}
