package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"go.fel.dev/fel/internal/config"
	"go.fel.dev/fel/internal/engine"
	"go.fel.dev/fel/internal/git"
	"go.fel.dev/fel/internal/metadata"
	"go.fel.dev/fel/internal/push"
	"go.fel.dev/fel/internal/review"
)

type submitCmd struct{}

func (cmd *submitCmd) Run(ctx context.Context, logger *log.Logger, opts *globalOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	repo, err := git.Open(ctx, opts.C, git.OpenOptions{Log: logger})
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	if err := metadata.CheckRewriteRef(ctx, repo); err != nil {
		return fmt.Errorf("check notes.rewriteRef: %w", err)
	}

	remoteURL, err := repo.RemoteURL(ctx, cfg.DefaultRemote)
	if err != nil {
		return fmt.Errorf("get %s remote: %w", cfg.DefaultRemote, err)
	}

	owner, name, err := review.ParseGitHubRemote(remoteURL)
	if err != nil {
		return fmt.Errorf("parse %s remote: %w", cfg.DefaultRemote, err)
	}

	reviews, err := review.New(ctx, owner, name, cfg.Token, review.Options{})
	if err != nil {
		return fmt.Errorf("build review client: %w", err)
	}

	eng := &engine.Engine{
		Log:     logger,
		Repo:    repo,
		Pusher:  push.New(repo),
		Reviews: reviews,
		Config: engine.Config{
			DefaultRemote:        cfg.DefaultRemote,
			DefaultUpstream:      cfg.DefaultUpstream,
			BranchPrefix:         cfg.Submit.BranchPrefix,
			UseIndexedBranches:   cfg.Submit.UseIndexedBranches,
			AutoCreateBranches:   cfg.Submit.AutoCreateBranches,
			AuthoritativeCommits: cfg.Submit.AuthoritativeCommits,
		},
	}

	return eng.Run(ctx)
}
