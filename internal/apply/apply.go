// Package apply runs mutation scripts against version-controlled trees
// and reconciles the outcome.
//
// Ownership boundary:
// - the commit-pending policy and its tri-state parsing
// - the post-run reconciliation state machine
// - the changer capability interface and its script/composite variants
package apply

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/applyctl/internal/protocol"
	"github.com/danmuck/applyctl/internal/runner"
	"github.com/danmuck/applyctl/internal/vcs"
)

// CommitPending controls whether pending tree edits are committed after
// the script runs.
type CommitPending int

const (
	// CommitAuto commits pending edits only when the script itself made
	// no commits.
	CommitAuto CommitPending = iota
	CommitYes
	CommitNo
)

func (p CommitPending) String() string {
	switch p {
	case CommitYes:
		return "yes"
	case CommitNo:
		return "no"
	default:
		return "auto"
	}
}

// ParseCommitPending maps the user-facing tri-state to a policy value.
// The empty string means auto.
func ParseCommitPending(raw string) (CommitPending, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "auto":
		return CommitAuto, nil
	case "yes", "true":
		return CommitYes, nil
	case "no", "false":
		return CommitNo, nil
	default:
		return CommitAuto, fmt.Errorf("apply: invalid commit-pending value %q", raw)
	}
}

// Options configure one script application.
type Options struct {
	// CommitPending controls committing of leftover tree edits.
	CommitPending CommitPending

	// Subpath runs the script in a subdirectory of the tree.
	Subpath string

	// Env is forwarded to the script verbatim. applyctl does not
	// interpret the values; downstream layers use it for flags such as
	// changelog-update modes.
	Env map[string]string

	// ResumeMetadata, when non-nil, is encoded and exposed to the script
	// through the resume path.
	ResumeMetadata any

	// Codec selects the side-channel document format; JSON by default.
	Codec protocol.Codec

	// Timeout bounds the script run; zero means none.
	Timeout time.Duration
}

// Run executes command against tree and reconciles whatever it left
// behind. On success the returned result carries a revision bracket with
// OldRevision != NewRevision; a run that moved nothing fails with
// ErrNoChanges. A non-zero script exit fails with *runner.ScriptFailedError
// and no commit is attempted; restoring the tree is the caller's job.
func Run(ctx context.Context, tree vcs.Tree, command string, opts Options) (*protocol.Result, error) {
	before, err := vcs.TakeSnapshot(tree)
	if err != nil {
		return nil, fmt.Errorf("apply: snapshot tree: %w", err)
	}

	channel, err := protocol.NewChannel(opts.Codec, opts.ResumeMetadata)
	if err != nil {
		return nil, err
	}
	defer channel.Close()

	stdout, err := runner.Run(ctx, runner.Script{
		Command: command,
		Dir:     tree.AbsPath(opts.Subpath),
		Env:     append(channel.Environ(), overlayEnv(opts.Env)...),
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	result, err := channel.Decode()
	if err != nil {
		return nil, err
	}
	if result.Description == "" {
		result.Description = string(stdout)
	}

	if err := reconcile(tree, before, result, opts.CommitPending); err != nil {
		return nil, err
	}

	log.Info().
		Str("old_revision", result.OldRevision.String()).
		Str("new_revision", result.NewRevision.String()).
		Int("tags", len(result.Tags)).
		Msg("script applied")
	return result, nil
}

// Verify runs an opaque verification command in the tree after a
// successful apply. A non-zero exit yields a *VerifyFailedError.
func Verify(ctx context.Context, tree vcs.Tree, subpath, command string, timeout time.Duration) error {
	_, err := runner.Run(ctx, runner.Script{
		Command: command,
		Dir:     tree.AbsPath(subpath),
		Timeout: timeout,
	})
	var sf *runner.ScriptFailedError
	if errors.As(err, &sf) {
		return &VerifyFailedError{Command: command, ExitCode: sf.ExitCode}
	}
	return err
}

// overlayEnv renders the passthrough map as KEY=VALUE entries in sorted
// key order so runs stay reproducible.
func overlayEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make([]string, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, k+"="+env[k])
	}
	return entries
}
