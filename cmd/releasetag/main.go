package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		os.Exit(2)
	}
}

func newRootCmd(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "releasetag",
		Short:        "Find the release a commit belongs to",
		Long:         `Answers which release tag points at a commit and which release tag a commit is based on, for CI pipelines and bisection tools.`,
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", ".releasetag.yml", "Path to config file")
	flags.String("project", "", "Project naming convention: linux | gcc | semver | <configured>")
	flags.String("repo", "", "Path to the local git repository")
	flags.String("github", "", "Read the repository through the GitHub API (owner/repo)")
	flags.String("github-token", os.Getenv("GITHUB_TOKEN"), "GitHub token for API access")
	flags.String("output", "", "Output format for batch: json | table")
	flags.String("log-level", "", "Log level: debug | info | warn | error")
	flags.Int("workers", 0, "Concurrent resolutions for batch")

	rootCmd.AddCommand(
		newShowCmd(open),
		newInterestedTagCmd(open),
		newReleaseTagCmd(open),
		newBaseReleaseTagCmd(open),
		newTagsCmd(open),
		newTagOrderCmd(open),
		newRemotesCmd(open),
		newBatchCmd(open),
	)
	return rootCmd
}
