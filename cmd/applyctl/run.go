package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/applyctl/internal/apply"
	"github.com/danmuck/applyctl/internal/logging"
	"github.com/danmuck/applyctl/internal/recipe"
	"github.com/danmuck/applyctl/internal/vcs"
)

func run(args []string) error {
	fs := flag.NewFlagSet("applyctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to applyctl config (TOML)")
	recipePath := fs.String("recipe", "", "recipe to apply (YAML)")
	commitPending := fs.String("commit-pending", "", "commit pending changes after the script (auto|yes|no)")
	verifyCommand := fs.String("verify-command", "", "command run in the tree to verify the change")
	timeout := fs.Duration("timeout", 0, "script deadline, 0 disables")
	showDiff := fs.Bool("diff", false, "print the diff of the generated change")
	treePath := fs.String("tree", ".", "path to the git work tree")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: applyctl [flags] [command]\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	logging.ConfigureRuntime()

	cfg, err := loadToolConfig(*configPath)
	if err != nil {
		return err
	}
	if *timeout > 0 {
		cfg.Timeout = *timeout
	}

	var rec *recipe.Recipe
	if *recipePath != "" {
		rec, err = recipe.Load(*recipePath)
		if err != nil {
			return err
		}
	}

	command := fs.Arg(0)
	name := command
	if command == "" && rec != nil {
		command = rec.Command
		name = rec.Name
	}
	if command == "" {
		fs.Usage()
		return fmt.Errorf("no command specified")
	}

	pending, err := resolveCommitPending(*commitPending, rec, cfg)
	if err != nil {
		return err
	}

	env := map[string]string{}
	for k, v := range cfg.Env {
		env[k] = v
	}
	if rec != nil {
		for k, v := range rec.Env {
			env[k] = v
		}
	}

	tree, err := vcs.OpenGitTree(*treePath)
	if err != nil {
		return err
	}
	if err := tree.CheckClean(); err != nil {
		return err
	}
	before, err := tree.CurrentRevision()
	if err != nil {
		return err
	}

	ctx := context.Background()
	changer := apply.NewScriptChanger(name, command)
	result, err := changer.ProposeChanges(ctx, tree, apply.Options{
		CommitPending: pending,
		Env:           env,
		Codec:         cfg.ResultFormat,
		Timeout:       cfg.Timeout,
	})
	if err != nil {
		// Whatever the script half-did stays out of the tree.
		restoreTree(tree, before)
		return err
	}

	log.Info().Str("description", changer.DescribeResult(result)).Msg("succeeded")

	if *verifyCommand != "" {
		if err := apply.Verify(ctx, tree, "", *verifyCommand, cfg.Timeout); err != nil {
			return err
		}
		log.Info().Str("command", *verifyCommand).Msg("verified")
	}

	if *showDiff {
		diff, err := tree.Diff(result.OldRevision, result.NewRevision)
		if err != nil {
			return err
		}
		if _, err := os.Stdout.Write(diff); err != nil {
			return err
		}
	}

	return nil
}

// resolveCommitPending picks the commit policy by precedence: explicit
// flag, then a recipe that actually set the field, then the tool config.
func resolveCommitPending(flagValue string, rec *recipe.Recipe, cfg toolConfig) (apply.CommitPending, error) {
	if flagValue != "" {
		return apply.ParseCommitPending(flagValue)
	}
	if rec != nil && rec.CommitPending != nil {
		return *rec.CommitPending, nil
	}
	return cfg.CommitPending, nil
}

func restoreTree(tree *vcs.GitTree, revision vcs.RevisionID) {
	if err := tree.Restore(revision); err != nil {
		log.Warn().Err(err).Msg("failed to restore work tree")
	}
}
