package main

import (
	"bufio"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/release-tag-resolver/pkg/batch"
	"github.com/release-tag-resolver/pkg/reporter"
	"github.com/release-tag-resolver/pkg/tags"
)

func newShowCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show <commit>",
		Short: "Print a commit with its release tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			c, err := a.project.Commit(ctx, args[0])
			if err != nil {
				return err
			}
			interested, err := c.InterestedTag(ctx)
			if err != nil {
				return err
			}
			release, err := c.ReleaseTag(ctx)
			if err != nil {
				return err
			}
			base, err := c.BaseReleaseTag(ctx)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 1, ' ', 0)
			fmt.Fprintf(w, "commit\t%s\n", c.ID)
			fmt.Fprintf(w, "parents\t%s\n", strings.Join(c.ParentIDs(), " "))
			fmt.Fprintf(w, "author\t%s\n", c.Author.FormattedName())
			fmt.Fprintf(w, "committer\t%s\n", c.Committer.FormattedName())
			fmt.Fprintf(w, "date\t%s\n", c.Date().Format("2006-01-02 15:04:05 -0700"))
			fmt.Fprintf(w, "subject\t%s\n", c.Subject)
			fmt.Fprintf(w, "interested tag\t%s\n", tagName(interested))
			fmt.Fprintf(w, "release tag\t%s\n", tagName(release))
			if base != nil {
				fmt.Fprintf(w, "base release tag\t%s (exact: %t)\n", base.Name, base.Exact)
			} else {
				fmt.Fprintf(w, "base release tag\t(none)\n")
			}
			return w.Flush()
		},
	}
}

func newInterestedTagCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "interested-tag <commit>",
		Short: "Print the accepted tag pointing at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			c, err := a.project.Commit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err := c.InterestedTag(cmd.Context())
			if err != nil {
				return err
			}
			printTag(cmd, t)
			return nil
		},
	}
}

func newReleaseTagCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "release-tag <commit>",
		Short: "Print the release tag pointing at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			c, err := a.project.Commit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			t, err := c.ReleaseTag(cmd.Context())
			if err != nil {
				return err
			}
			printTag(cmd, t)
			return nil
		},
	}
}

func newBaseReleaseTagCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "base-release-tag <commit>",
		Short: "Print the nearest release tag at or below a commit and whether it is exact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			c, err := a.project.Commit(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			base, err := c.BaseReleaseTag(cmd.Context())
			if err != nil {
				return err
			}
			if base != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %t\n", base.Name, base.Exact)
			}
			return nil
		},
	}
}

func newTagsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List accepted tags in release order with their ordinals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			seq, err := a.project.TagsWithOrder(cmd.Context())
			if err != nil {
				return err
			}
			for i, name := range seq {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", i, name)
			}
			return nil
		},
	}
}

func newTagOrderCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "tag-order <tag>",
		Short: "Print the ordinal of a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			ord, err := a.project.TagOrder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ord)
			return nil
		},
	}
}

func newRemotesCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "remotes",
		Short: "List repository remotes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			remotes, err := a.project.Remotes(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range remotes {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r.Name, r.URL)
			}
			return nil
		},
	}
}

func newBatchCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "batch [commit...]",
		Short: "Resolve many commits; reads ids from stdin when none are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}

			ids := args
			if len(ids) == 0 {
				sc := bufio.NewScanner(cmd.InOrStdin())
				for sc.Scan() {
					if id := strings.TrimSpace(sc.Text()); id != "" {
						ids = append(ids, id)
					}
				}
				if err := sc.Err(); err != nil {
					return fmt.Errorf("read commit ids: %w", err)
				}
			}

			findings, err := batch.New(a.project, a.cfg.Workers, a.logger).Scan(cmd.Context(), ids)
			if err != nil {
				return err
			}
			return reporter.New(a.cfg.Output, cmd.OutOrStdout()).Report(findings)
		},
	}
}

func tagName(t *tags.Classified) string {
	if t == nil {
		return "(none)"
	}
	return t.Name
}

func printTag(cmd *cobra.Command, t *tags.Classified) {
	if t != nil {
		fmt.Fprintln(cmd.OutOrStdout(), t.Name)
	}
}
