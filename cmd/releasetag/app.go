package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/go-github/v60/github"
	"github.com/spf13/cobra"

	"github.com/release-tag-resolver/pkg/config"
	"github.com/release-tag-resolver/pkg/logging"
	"github.com/release-tag-resolver/pkg/project"
	"github.com/release-tag-resolver/pkg/vcs"
)

// app holds shared state for all subcommands.
type app struct {
	cfg     *config.Config
	project *project.Project
	logger  *slog.Logger
}

type opener func(cmd *cobra.Command) (*app, error)

// openApp loads the config, merges flags and opens the project handle.
func openApp(cmd *cobra.Command) (*app, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "warning: could not load config file: %v (using defaults)\n", err)
		}
		cfg = config.Default()
	}
	cfg = config.MergeFlags(cfg, cmd.Flags())

	logger := logging.New(os.Stderr, logging.LevelFromString(cfg.LogLevel), logging.Format(cfg.LogFormat))

	conv, err := cfg.Convention()
	if err != nil {
		return nil, err
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		project: project.Open(client, conv, project.WithLogger(logger)),
		logger:  logger,
	}, nil
}

func newClient(cfg *config.Config, logger *slog.Logger) (vcs.RepoClient, error) {
	if cfg.GitHub != "" {
		owner, repo, err := vcs.ParseGitHubRepo(cfg.GitHub)
		if err != nil {
			return nil, err
		}
		gh := github.NewClient(nil)
		if cfg.Token != "" {
			gh = gh.WithAuthToken(cfg.Token)
		}
		return vcs.NewGitHubClient(gh, owner, repo), nil
	}

	root, err := filepath.Abs(cfg.Repo)
	if err != nil {
		return nil, fmt.Errorf("resolve repository path %q: %w", cfg.Repo, err)
	}
	client, err := vcs.OpenGitRepo(root, cfg.Project+"@"+root, logger)
	if err != nil {
		return nil, err
	}
	return client, nil
}
