package vcs

// Snapshot is the tree state captured once before a mutation script runs.
// It is never mutated afterwards; the reconciliation step only reads it
// to compute deltas.
type Snapshot struct {
	Revision RevisionID
	Tags     []Tag
}

// TakeSnapshot records the current revision and tag mapping of tree.
func TakeSnapshot(tree Tree) (Snapshot, error) {
	revision, err := tree.CurrentRevision()
	if err != nil {
		return Snapshot{}, err
	}
	tags, err := tree.Tags()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Revision: revision, Tags: tags}, nil
}

// TagDelta returns the tags in after that are new or moved relative to
// before, in after order. Tags deleted since before are not reported.
func TagDelta(before, after []Tag) []Tag {
	prev := make(map[string]RevisionID, len(before))
	for _, tag := range before {
		prev[tag.Name] = tag.Revision
	}
	delta := []Tag{}
	for _, tag := range after {
		if old, ok := prev[tag.Name]; !ok || !old.Equal(tag.Revision) {
			delta = append(delta, tag)
		}
	}
	return delta
}
