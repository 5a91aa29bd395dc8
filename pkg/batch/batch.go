// Package batch resolves release tags for many commits at once, the way a CI
// job or a bisection run asks for them.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/release-tag-resolver/pkg/logging"
	"github.com/release-tag-resolver/pkg/project"
)

// DefaultWorkers bounds concurrent resolutions when none is configured.
const DefaultWorkers = 4

type Finding struct {
	Commit        string `json:"commit"`
	Subject       string `json:"subject"`
	Author        string `json:"author"`
	InterestedTag string `json:"interested_tag,omitempty"`
	ReleaseTag    string `json:"release_tag,omitempty"`
	BaseTag       string `json:"base_release_tag,omitempty"`
	Exact         bool   `json:"exact"`
}

type Scanner struct {
	project *project.Project
	workers int
	logger  *slog.Logger
}

func New(p *project.Project, workers int, logger *slog.Logger) *Scanner {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scanner{
		project: p,
		workers: workers,
		logger:  logger,
	}
}

// Scan resolves every commit. Findings keep the order of ids. The first failure
// cancels the remaining work and is returned; there are no partial results.
func (s *Scanner) Scan(ctx context.Context, ids []string) ([]Finding, error) {
	// build the order table once before fanning out
	if _, err := s.project.OrderTable(ctx); err != nil {
		return nil, err
	}

	findings := make([]Finding, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			f, err := s.resolve(ctx, id)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", id, err)
			}
			findings[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("batch resolved", "commits", len(ids), "workers", s.workers)
	return findings, nil
}

func (s *Scanner) resolve(ctx context.Context, id string) (Finding, error) {
	c, err := s.project.Commit(ctx, id)
	if err != nil {
		return Finding{}, err
	}

	finding := Finding{
		Commit:  c.ID,
		Subject: c.Subject,
		Author:  c.Author.FormattedName(),
	}

	interested, err := c.InterestedTag(ctx)
	if err != nil {
		return Finding{}, err
	}
	if interested != nil {
		finding.InterestedTag = interested.Name
	}

	release, err := c.ReleaseTag(ctx)
	if err != nil {
		return Finding{}, err
	}
	if release != nil {
		finding.ReleaseTag = release.Name
	}

	base, err := c.BaseReleaseTag(ctx)
	if err != nil {
		return Finding{}, err
	}
	if base != nil {
		finding.BaseTag = base.Name
		finding.Exact = base.Exact
	}
	return finding, nil
}
