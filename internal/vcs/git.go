package vcs

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/danmuck/applyctl/internal/tools"
)

// gitEmptyTree is the id of git's well-known empty tree object, used to
// diff against when the old side of the bracket is an unborn branch.
const gitEmptyTree = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// GitTree adapts a git working tree to the Tree capability by shelling
// out to the git CLI.
type GitTree struct {
	root   string
	runner tools.CommandRunner
}

// OpenGitTree opens the git work tree containing path.
func OpenGitTree(path string) (*GitTree, error) {
	return OpenGitTreeWithRunner(path, tools.ExecRunner{})
}

// OpenGitTreeWithRunner opens a git work tree through a caller-supplied
// command runner.
func OpenGitTreeWithRunner(path string, runner tools.CommandRunner) (*GitTree, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("vcs: resolve %q: %w", path, err)
	}
	stdout, stderr, code, err := runner.Run(abs, "git", "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("vcs: run git: %w", err)
	}
	if code != 0 {
		return nil, fmt.Errorf("vcs: %q is not a git work tree: %s", path, strings.TrimSpace(string(stderr)))
	}
	return &GitTree{
		root:   strings.TrimSpace(string(stdout)),
		runner: runner,
	}, nil
}

// Root returns the top-level directory of the work tree.
func (t *GitTree) Root() string {
	return t.root
}

// CurrentRevision returns the commit id of HEAD, or an empty id when the
// branch is unborn.
func (t *GitTree) CurrentRevision() (RevisionID, error) {
	stdout, _, code, err := t.runner.Run(t.root, "git", "rev-parse", "--quiet", "--verify", "HEAD")
	if err != nil {
		return nil, fmt.Errorf("vcs: run git: %w", err)
	}
	if code != 0 {
		// Unborn branch: no commits yet.
		return nil, nil
	}
	return RevisionID(bytes.TrimSpace(stdout)), nil
}

// Tags returns the tag mapping in git's ref iteration order.
func (t *GitTree) Tags() ([]Tag, error) {
	stdout, stderr, code, err := t.runner.Run(t.root,
		"git", "for-each-ref", "--format=%(objectname) %(refname:short)", "refs/tags")
	if err != nil {
		return nil, fmt.Errorf("vcs: run git: %w", err)
	}
	if code != 0 {
		return nil, fmt.Errorf("vcs: list tags: %s", strings.TrimSpace(string(stderr)))
	}
	var tags []Tag
	for _, line := range strings.Split(strings.TrimSpace(string(stdout)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		revision, name, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("vcs: malformed tag ref %q", line)
		}
		tags = append(tags, Tag{Name: name, Revision: RevisionID(revision)})
	}
	return tags, nil
}

// CheckClean verifies the work tree has no pending changes to tracked
// files. Run it before a mutation script so pre-existing edits cannot
// leak into the reconciling commit.
func (t *GitTree) CheckClean() error {
	status, stderr, code, err := t.runner.Run(t.root,
		"git", "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return fmt.Errorf("vcs: run git: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("vcs: status: %s", strings.TrimSpace(string(stderr)))
	}
	if len(bytes.TrimSpace(status)) > 0 {
		return fmt.Errorf("vcs: work tree has uncommitted changes")
	}
	return nil
}

// Restore discards uncommitted tracked-file edits and moves the branch
// back to revision. An empty revision means the branch was unborn when
// captured; there is no commit to reset to, so Restore is a no-op.
func (t *GitTree) Restore(revision RevisionID) error {
	if len(revision) == 0 {
		return nil
	}
	_, stderr, code, err := t.runner.Run(t.root, "git", "reset", "--hard", revision.String())
	if err != nil {
		return fmt.Errorf("vcs: run git: %w", err)
	}
	if code != 0 {
		return fmt.Errorf("vcs: reset: %s", strings.TrimSpace(string(stderr)))
	}
	return nil
}

// Commit records pending changes to tracked files under message. Files
// the script created but never added stay out of the commit. Returns
// ErrPointlessCommit when no tracked file changed.
func (t *GitTree) Commit(message string) (RevisionID, error) {
	status, stderr, code, err := t.runner.Run(t.root,
		"git", "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return nil, fmt.Errorf("vcs: run git: %w", err)
	}
	if code != 0 {
		return nil, fmt.Errorf("vcs: status: %s", strings.TrimSpace(string(stderr)))
	}
	if len(bytes.TrimSpace(status)) == 0 {
		return nil, ErrPointlessCommit
	}
	_, stderr, code, err = t.runner.Run(t.root, "git", "commit", "-a", "-m", message)
	if err != nil {
		return nil, fmt.Errorf("vcs: run git: %w", err)
	}
	if code != 0 {
		return nil, fmt.Errorf("vcs: commit: %s", strings.TrimSpace(string(stderr)))
	}
	return t.CurrentRevision()
}

// AbsPath resolves subpath against the work tree root.
func (t *GitTree) AbsPath(subpath string) string {
	return filepath.Join(t.root, subpath)
}

// Diff returns the textual diff between two revisions.
func (t *GitTree) Diff(old, new RevisionID) ([]byte, error) {
	from := old.String()
	if from == "" {
		from = gitEmptyTree
	}
	stdout, stderr, code, err := t.runner.Run(t.root, "git", "diff", from, new.String())
	if err != nil {
		return nil, fmt.Errorf("vcs: run git: %w", err)
	}
	if code != 0 {
		return nil, fmt.Errorf("vcs: diff: %s", strings.TrimSpace(string(stderr)))
	}
	return stdout, nil
}
