package apply

import (
	"context"
	"errors"
	"strings"

	"github.com/danmuck/applyctl/internal/protocol"
	"github.com/danmuck/applyctl/internal/vcs"
)

// Changer is one mutation policy. Concrete changers wrap a single script
// or aggregate other changers; callers drive every variant through this
// interface.
type Changer interface {
	// Name identifies the changer in logs and reports.
	Name() string

	// SuggestBranchName proposes a branch name for the change.
	SuggestBranchName() string

	// ProposeChanges runs the mutation against tree and reconciles it.
	ProposeChanges(ctx context.Context, tree vcs.Tree, opts Options) (*protocol.Result, error)

	// DescribeResult renders a human-readable summary of result.
	DescribeResult(result *protocol.Result) string
}

// ScriptChanger applies a single mutation script.
type ScriptChanger struct {
	name    string
	command string
}

func NewScriptChanger(name, command string) *ScriptChanger {
	if strings.TrimSpace(name) == "" {
		name = command
	}
	return &ScriptChanger{name: name, command: command}
}

func (c *ScriptChanger) Name() string {
	return c.name
}

func (c *ScriptChanger) SuggestBranchName() string {
	return slugify(c.name)
}

func (c *ScriptChanger) ProposeChanges(ctx context.Context, tree vcs.Tree, opts Options) (*protocol.Result, error) {
	return Run(ctx, tree, c.command, opts)
}

func (c *ScriptChanger) DescribeResult(result *protocol.Result) string {
	if desc := strings.TrimSpace(result.Description); desc != "" {
		return desc
	}
	return "ran " + c.command
}

// CompositeChanger applies its children in sequence and aggregates their
// results. A child that had nothing to do is skipped; the composite
// itself fails with ErrNoChanges only when every child did.
type CompositeChanger struct {
	name     string
	children []Changer
}

func NewCompositeChanger(name string, children ...Changer) *CompositeChanger {
	return &CompositeChanger{name: name, children: children}
}

func (c *CompositeChanger) Name() string {
	return c.name
}

func (c *CompositeChanger) SuggestBranchName() string {
	return slugify(c.name)
}

func (c *CompositeChanger) ProposeChanges(ctx context.Context, tree vcs.Tree, opts Options) (*protocol.Result, error) {
	combined := &protocol.Result{
		Context: map[string]string{},
		Tags:    []vcs.Tag{},
	}
	var descriptions []string
	applied := false

	for _, child := range c.children {
		result, err := child.ProposeChanges(ctx, tree, opts)
		if errors.Is(err, ErrNoChanges) {
			continue
		}
		if err != nil {
			return nil, err
		}

		if !applied {
			combined.OldRevision = result.OldRevision
		}
		combined.NewRevision = result.NewRevision
		combined.Tags = append(combined.Tags, result.Tags...)
		if desc := child.DescribeResult(result); desc != "" {
			descriptions = append(descriptions, desc)
		}
		for k, v := range result.Context {
			combined.Context[child.Name()+"."+k] = v
		}
		if result.Value != nil {
			if combined.Value == nil {
				combined.Value = new(int)
			}
			*combined.Value += *result.Value
		}
		applied = true
	}

	if !applied {
		return nil, ErrNoChanges
	}
	combined.Description = strings.Join(descriptions, "; ")
	return combined, nil
}

func (c *CompositeChanger) DescribeResult(result *protocol.Result) string {
	return result.Description
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
