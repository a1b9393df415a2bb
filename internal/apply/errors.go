package apply

import (
	"errors"
	"fmt"
)

// ErrNoChanges marks a run where neither the script nor the reconciling
// commit moved the tree to a new revision. Callers treat it as "nothing
// to do", not as a crash.
var ErrNoChanges = errors.New("apply: script made no changes")

// VerifyFailedError reports a verification command that exited non-zero
// after an otherwise successful apply.
type VerifyFailedError struct {
	Command  string
	ExitCode int
}

func (e *VerifyFailedError) Error() string {
	return fmt.Sprintf("apply: verify command %q failed with exit code %d", e.Command, e.ExitCode)
}
