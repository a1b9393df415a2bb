package protocol

import (
	"fmt"

	"github.com/danmuck/applyctl/internal/vcs"
)

// Result is the decoded outcome of one mutation-script run.
type Result struct {
	// Description summarizes what the script did. When the script
	// supplies none, reconciliation falls back to its captured stdout.
	Description string

	// Value is an optional script-assigned weight. applyctl carries it
	// through without interpreting it.
	Value *int

	// Context carries arbitrary key/value metadata from the script.
	Context map[string]string

	// Tags lists the tags the script created or moved. A nil slice means
	// the script did not report tags at all, and reconciliation computes
	// the delta itself; an empty non-nil slice means the script
	// explicitly reported none.
	Tags []vcs.Tag

	// OldRevision and NewRevision bracket the effective change. Both are
	// stamped by reconciliation and differ on every successful run.
	OldRevision vcs.RevisionID
	NewRevision vcs.RevisionID
}

// resultDoc is the wire shape of the result document. Tags is a pointer
// so an absent key stays distinguishable from an explicit empty list.
type resultDoc struct {
	Description string            `json:"description" yaml:"description"`
	Value       *int              `json:"value" yaml:"value"`
	Context     map[string]string `json:"context" yaml:"context"`
	Tags        *[][]string       `json:"tags" yaml:"tags"`
}

func (d resultDoc) toResult() (*Result, error) {
	result := &Result{
		Description: d.Description,
		Value:       d.Value,
		Context:     d.Context,
	}
	if d.Tags != nil {
		tags := make([]vcs.Tag, 0, len(*d.Tags))
		for _, pair := range *d.Tags {
			if len(pair) != 2 {
				return nil, fmt.Errorf("%w: tag entry must be a (name, revision) pair", ErrDecode)
			}
			tags = append(tags, vcs.Tag{Name: pair[0], Revision: vcs.RevisionID(pair[1])})
		}
		result.Tags = tags
	}
	return result, nil
}
