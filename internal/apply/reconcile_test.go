package apply

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/danmuck/applyctl/internal/protocol"
	"github.com/danmuck/applyctl/internal/testutil/testlog"
	"github.com/danmuck/applyctl/internal/vcs"
)

// memTree is an in-memory Tree for reconciliation tests. pending marks
// uncommitted tracked edits; Commit consumes it and mints a new revision.
type memTree struct {
	dir      string
	revision vcs.RevisionID
	tags     []vcs.Tag
	pending  bool
	commits  []string
}

func (t *memTree) CurrentRevision() (vcs.RevisionID, error) { return t.revision, nil }
func (t *memTree) Tags() ([]vcs.Tag, error)                 { return t.tags, nil }

func (t *memTree) Commit(message string) (vcs.RevisionID, error) {
	if !t.pending {
		return nil, vcs.ErrPointlessCommit
	}
	t.pending = false
	t.commits = append(t.commits, message)
	t.revision = vcs.RevisionID(fmt.Sprintf("rev-%d", len(t.commits)))
	return t.revision, nil
}

func (t *memTree) AbsPath(subpath string) string { return filepath.Join(t.dir, subpath) }

func snapshotOf(t *testing.T, tree vcs.Tree) vcs.Snapshot {
	t.Helper()
	snap, err := vcs.TakeSnapshot(tree)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func TestReconcileCommitsPendingEdits(t *testing.T) {
	testlog.Start(t)
	tree := &memTree{revision: vcs.RevisionID("rev-0"), pending: true}
	before := snapshotOf(t, tree)

	result := &protocol.Result{Description: "Fix typo"}
	if err := reconcile(tree, before, result, CommitAuto); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(tree.commits) != 1 || tree.commits[0] != "Fix typo" {
		t.Fatalf("expected one commit with the description, got %v", tree.commits)
	}
	if !result.OldRevision.Equal(vcs.RevisionID("rev-0")) {
		t.Fatalf("unexpected old revision: %s", result.OldRevision)
	}
	if result.NewRevision.Equal(result.OldRevision) {
		t.Fatalf("new revision must differ after a successful run")
	}
}

func TestReconcileSkipsForcedCommitWhenScriptCommitted(t *testing.T) {
	testlog.Start(t)
	tree := &memTree{revision: vcs.RevisionID("rev-0")}
	before := snapshotOf(t, tree)
	// The script advanced the branch itself.
	tree.revision = vcs.RevisionID("rev-script")

	result := &protocol.Result{Description: "Upgraded deps"}
	if err := reconcile(tree, before, result, CommitAuto); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(tree.commits) != 0 {
		t.Fatalf("auto policy must not commit when the script already did: %v", tree.commits)
	}
	if !result.NewRevision.Equal(vcs.RevisionID("rev-script")) {
		t.Fatalf("unexpected new revision: %s", result.NewRevision)
	}
}

func TestReconcileExplicitYesAbsorbsPointlessCommit(t *testing.T) {
	testlog.Start(t)
	tree := &memTree{revision: vcs.RevisionID("rev-0")}
	before := snapshotOf(t, tree)
	tree.revision = vcs.RevisionID("rev-script")

	result := &protocol.Result{Description: "done"}
	if err := reconcile(tree, before, result, CommitYes); err != nil {
		t.Fatalf("pointless commit must be absorbed: %v", err)
	}
	if !result.NewRevision.Equal(vcs.RevisionID("rev-script")) {
		t.Fatalf("unexpected new revision: %s", result.NewRevision)
	}
}

func TestReconcileExplicitNoLeavesEditsUncommitted(t *testing.T) {
	testlog.Start(t)
	tree := &memTree{revision: vcs.RevisionID("rev-0"), pending: true}
	before := snapshotOf(t, tree)

	result := &protocol.Result{Description: "half done"}
	err := reconcile(tree, before, result, CommitNo)
	if !errors.Is(err, ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges when nothing was committed, got %v", err)
	}
	if !tree.pending {
		t.Fatalf("no-commit policy must not consume pending edits")
	}
}

func TestReconcileNoChanges(t *testing.T) {
	testlog.Start(t)
	tree := &memTree{revision: vcs.RevisionID("rev-0")}
	before := snapshotOf(t, tree)

	result := &protocol.Result{}
	if err := reconcile(tree, before, result, CommitAuto); !errors.Is(err, ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}
	if result.OldRevision != nil || result.NewRevision != nil {
		t.Fatalf("revisions must stay unset on a no-op: %+v", result)
	}
}

func TestReconcileIdempotentNoSpuriousCommit(t *testing.T) {
	testlog.Start(t)
	tree := &memTree{revision: vcs.RevisionID("rev-0"), pending: true}
	before := snapshotOf(t, tree)
	if err := reconcile(tree, before, &protocol.Result{Description: "first"}, CommitAuto); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}

	// Second pass over the settled tree: nothing left to commit.
	before = snapshotOf(t, tree)
	err := reconcile(tree, before, &protocol.Result{Description: "second"}, CommitAuto)
	if !errors.Is(err, ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges on second pass, got %v", err)
	}
	if len(tree.commits) != 1 {
		t.Fatalf("second pass must not commit again: %v", tree.commits)
	}
}

func TestReconcileComputesTagDeltaWhenUnreported(t *testing.T) {
	testlog.Start(t)
	tree := &memTree{
		revision: vcs.RevisionID("rev-0"),
		tags:     []vcs.Tag{{Name: "upstream/1.0", Revision: vcs.RevisionID("aaa")}},
	}
	before := snapshotOf(t, tree)
	tree.revision = vcs.RevisionID("rev-script")
	tree.tags = []vcs.Tag{
		{Name: "upstream/1.0", Revision: vcs.RevisionID("aaa")},
		{Name: "debian/1.0-1", Revision: vcs.RevisionID("bbb")},
	}

	result := &protocol.Result{Description: "import"}
	if err := reconcile(tree, before, result, CommitAuto); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(result.Tags) != 1 || result.Tags[0].Name != "debian/1.0-1" {
		t.Fatalf("unexpected tag delta: %+v", result.Tags)
	}
}

func TestReconcileKeepsExplicitEmptyTagList(t *testing.T) {
	testlog.Start(t)
	tree := &memTree{revision: vcs.RevisionID("rev-0")}
	before := snapshotOf(t, tree)
	tree.revision = vcs.RevisionID("rev-script")
	tree.tags = []vcs.Tag{{Name: "debian/1.0-1", Revision: vcs.RevisionID("bbb")}}

	// The script explicitly reported no tags; the engine must not
	// second-guess it.
	result := &protocol.Result{Description: "import", Tags: []vcs.Tag{}}
	if err := reconcile(tree, before, result, CommitAuto); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(result.Tags) != 0 {
		t.Fatalf("explicit empty tag list must stand, got %+v", result.Tags)
	}
}

func TestParseCommitPending(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		raw  string
		want CommitPending
		ok   bool
	}{
		{"", CommitAuto, true},
		{"auto", CommitAuto, true},
		{"yes", CommitYes, true},
		{"no", CommitNo, true},
		{"TRUE", CommitYes, true},
		{"maybe", CommitAuto, false},
	}
	for _, tc := range cases {
		got, err := ParseCommitPending(tc.raw)
		if tc.ok && err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("parse %q: expected error", tc.raw)
		}
		if tc.ok && got != tc.want {
			t.Fatalf("parse %q: want %v, got %v", tc.raw, tc.want, got)
		}
	}
}
