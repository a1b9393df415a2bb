package apply

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/applyctl/internal/protocol"
	"github.com/danmuck/applyctl/internal/testutil/testlog"
	"github.com/danmuck/applyctl/internal/vcs"
)

// stubChanger returns a canned result or error, for composite tests.
type stubChanger struct {
	name   string
	result *protocol.Result
	err    error
}

func (c *stubChanger) Name() string              { return c.name }
func (c *stubChanger) SuggestBranchName() string { return slugify(c.name) }

func (c *stubChanger) ProposeChanges(ctx context.Context, tree vcs.Tree, opts Options) (*protocol.Result, error) {
	return c.result, c.err
}

func (c *stubChanger) DescribeResult(result *protocol.Result) string {
	return result.Description
}

func TestScriptChangerProposeChanges(t *testing.T) {
	testlog.Start(t)
	tree := newFileTree(t)
	tree.pending = true

	changer := NewScriptChanger("fix typo", `printf '{"description": "Fix typo"}' > "$APPLYCTL_RESULT"`)
	result, err := changer.ProposeChanges(context.Background(), tree, Options{})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if changer.DescribeResult(result) != "Fix typo" {
		t.Fatalf("unexpected description: %q", changer.DescribeResult(result))
	}
	if changer.SuggestBranchName() != "fix-typo" {
		t.Fatalf("unexpected branch name: %q", changer.SuggestBranchName())
	}
}

func TestScriptChangerDescribeFallback(t *testing.T) {
	testlog.Start(t)
	changer := NewScriptChanger("", "scrub-obsolete.sh")
	if changer.Name() != "scrub-obsolete.sh" {
		t.Fatalf("unexpected name: %q", changer.Name())
	}
	got := changer.DescribeResult(&protocol.Result{})
	if got != "ran scrub-obsolete.sh" {
		t.Fatalf("unexpected fallback description: %q", got)
	}
}

func TestCompositeChangerAggregates(t *testing.T) {
	testlog.Start(t)
	ten := 10
	three := 3
	composite := NewCompositeChanger("debian tidy",
		&stubChanger{name: "tidy", result: &protocol.Result{
			Description: "Tidied",
			Value:       &ten,
			Context:     map[string]string{"files": "4"},
			OldRevision: vcs.RevisionID("rev-0"),
			NewRevision: vcs.RevisionID("rev-1"),
			Tags:        []vcs.Tag{{Name: "debian/1.0-1", Revision: vcs.RevisionID("rev-1")}},
		}},
		&stubChanger{name: "scrub", err: ErrNoChanges},
		&stubChanger{name: "bump", result: &protocol.Result{
			Description: "Bumped",
			Value:       &three,
			OldRevision: vcs.RevisionID("rev-1"),
			NewRevision: vcs.RevisionID("rev-2"),
		}},
	)

	result, err := composite.ProposeChanges(context.Background(), nil, Options{})
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if !result.OldRevision.Equal(vcs.RevisionID("rev-0")) {
		t.Fatalf("unexpected old revision: %s", result.OldRevision)
	}
	if !result.NewRevision.Equal(vcs.RevisionID("rev-2")) {
		t.Fatalf("unexpected new revision: %s", result.NewRevision)
	}
	if result.Description != "Tidied; Bumped" {
		t.Fatalf("unexpected aggregate description: %q", result.Description)
	}
	if result.Value == nil || *result.Value != 13 {
		t.Fatalf("unexpected aggregate value: %v", result.Value)
	}
	if result.Context["tidy.files"] != "4" {
		t.Fatalf("unexpected aggregate context: %v", result.Context)
	}
	if len(result.Tags) != 1 || result.Tags[0].Name != "debian/1.0-1" {
		t.Fatalf("unexpected aggregate tags: %+v", result.Tags)
	}
}

func TestCompositeChangerAllNoChanges(t *testing.T) {
	testlog.Start(t)
	composite := NewCompositeChanger("noop",
		&stubChanger{name: "a", err: ErrNoChanges},
		&stubChanger{name: "b", err: ErrNoChanges},
	)
	_, err := composite.ProposeChanges(context.Background(), nil, Options{})
	if !errors.Is(err, ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}
}

func TestCompositeChangerStopsOnFatalError(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("boom")
	applied := &stubChanger{name: "later", result: &protocol.Result{}}
	composite := NewCompositeChanger("mixed",
		&stubChanger{name: "broken", err: boom},
		applied,
	)
	_, err := composite.ProposeChanges(context.Background(), nil, Options{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the fatal error to propagate, got %v", err)
	}
}

func TestSlugify(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"Fix Typo":            "fix-typo",
		"scrub  obsolete !!":  "scrub-obsolete",
		"debian/tidy v2":      "debian-tidy-v2",
		"  leading and trail ": "leading-and-trail",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Fatalf("slugify(%q): want %q, got %q", in, want, got)
		}
	}
}
