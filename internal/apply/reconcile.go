package apply

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/applyctl/internal/protocol"
	"github.com/danmuck/applyctl/internal/vcs"
)

// reconcile decides whether to commit pending edits, fills in the tag
// delta when the script did not report one, and stamps the revision
// bracket on result.
func reconcile(tree vcs.Tree, before vcs.Snapshot, result *protocol.Result, pending CommitPending) error {
	newRevision, err := tree.CurrentRevision()
	if err != nil {
		return fmt.Errorf("apply: read revision: %w", err)
	}

	if result.Tags == nil {
		// nil means the script never reported tags; an explicit empty
		// list stands as-is.
		after, err := tree.Tags()
		if err != nil {
			return fmt.Errorf("apply: read tags: %w", err)
		}
		result.Tags = vcs.TagDelta(before.Tags, after)
	}

	if newRevision.Equal(before.Revision) && pending == CommitAuto {
		// The script edited files without committing anything; commit on
		// its behalf or the run is indistinguishable from a no-op.
		pending = CommitYes
	}

	if pending == CommitYes {
		revision, err := tree.Commit(result.Description)
		switch {
		case errors.Is(err, vcs.ErrPointlessCommit):
			// The script already committed everything it changed.
			log.Debug().Msg("pending commit was pointless, keeping script commits")
		case err != nil:
			return fmt.Errorf("apply: commit pending changes: %w", err)
		default:
			newRevision = revision
		}
	}

	if newRevision.Equal(before.Revision) {
		return ErrNoChanges
	}

	result.OldRevision = before.Revision
	result.NewRevision = newRevision
	return nil
}
