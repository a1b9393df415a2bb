// Package recipe loads declarative descriptions of scripted changes.
package recipe

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/danmuck/applyctl/internal/apply"
)

// Recipe is a reusable description of one scripted change: the command to
// run, the commit policy, and opaque environment passed to the script.
type Recipe struct {
	Name    string
	Command string

	// CommitPending is nil when the recipe did not set the field, so
	// callers can fall through to their own default.
	CommitPending *apply.CommitPending

	// Env is forwarded to the script verbatim; applyctl does not
	// interpret the values.
	Env map[string]string
}

type recipeDoc struct {
	Name          string            `yaml:"name"`
	Command       string            `yaml:"command"`
	CommitPending string            `yaml:"commit-pending"`
	Env           map[string]string `yaml:"env"`
}

// Load reads a recipe from a YAML file.
func Load(path string) (*Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("recipe: read %s: %w", path, err)
	}
	var doc recipeDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("recipe: parse %s: %w", path, err)
	}
	if strings.TrimSpace(doc.Command) == "" {
		return nil, fmt.Errorf("recipe: %s is missing a command", path)
	}
	var pending *apply.CommitPending
	if strings.TrimSpace(doc.CommitPending) != "" {
		parsed, err := apply.ParseCommitPending(doc.CommitPending)
		if err != nil {
			return nil, fmt.Errorf("recipe: %s: %w", path, err)
		}
		pending = &parsed
	}
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		name = doc.Command
	}
	return &Recipe{
		Name:          name,
		Command:       doc.Command,
		CommitPending: pending,
		Env:           doc.Env,
	}, nil
}

// Changer builds the script changer described by the recipe.
func (r *Recipe) Changer() *apply.ScriptChanger {
	return apply.NewScriptChanger(r.Name, r.Command)
}
