// Package project is the query surface: a Project handle answers which release
// a commit belongs to and caches every answer for the handle's lifetime.
package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/release-tag-resolver/pkg/cache"
	"github.com/release-tag-resolver/pkg/logging"
	"github.com/release-tag-resolver/pkg/resolve"
	"github.com/release-tag-resolver/pkg/tags"
	"github.com/release-tag-resolver/pkg/vcs"
)

const (
	queryInterested = "interested"
	queryRelease    = "release"
	queryBase       = "base"
)

// BaseTag is the nearest release tag at or below a commit.
type BaseTag struct {
	Name  string
	Exact bool
}

// Project is a handle on one repository. Handles never share cached state:
// two handles on the same repository return distinct Commit instances.
type Project struct {
	handle string
	client vcs.RepoClient
	conv   *tags.Convention
	logger *slog.Logger

	commits *cache.Cache[*Commit]
	graphs  *cache.Cache[vcs.ParentMap]
	tables  *cache.Cache[*tags.OrderTable]
	direct  *cache.Cache[*tags.Classified]
	bases   *cache.Cache[*BaseTag]
	remotes *cache.Cache[[]vcs.Remote]
}

type Option func(*Project)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Project) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func Open(client vcs.RepoClient, conv *tags.Convention, opts ...Option) *Project {
	p := &Project{
		handle:  uuid.NewString(),
		client:  client,
		conv:    conv,
		logger:  logging.Discard(),
		commits: cache.New[*Commit](),
		graphs:  cache.New[vcs.ParentMap](),
		tables:  cache.New[*tags.OrderTable](),
		direct:  cache.New[*tags.Classified](),
		bases:   cache.New[*BaseTag](),
		remotes: cache.New[[]vcs.Remote](),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("project", client.Identity(), "handle", p.handle)
	return p
}

func (p *Project) Identity() string {
	return p.client.Identity()
}

func (p *Project) Convention() *tags.Convention {
	return p.conv
}

// Commit returns the commit with the given id. Repeated lookups of the same
// commit on one handle return the same instance, whether it is named by its
// full id or by an abbreviation.
func (p *Project) Commit(ctx context.Context, id string) (*Commit, error) {
	return p.commits.GetOrCompute(cache.Key(p.Identity(), id), func() (*Commit, error) {
		c, err := p.client.GetCommit(ctx, id)
		if err != nil {
			if errors.Is(err, vcs.ErrNotFound) {
				return nil, fmt.Errorf("%w %s: %w", resolve.ErrUnknownCommit, id, err)
			}
			return nil, err
		}
		if c.ID == id {
			return &Commit{Commit: *c, project: p}, nil
		}
		return p.commits.GetOrCompute(cache.Key(p.Identity(), c.ID), func() (*Commit, error) {
			return &Commit{Commit: *c, project: p}, nil
		})
	})
}

// Parents is the graph used for searches and for building the order table.
// A client that can load its whole graph at once is asked to, then a client
// with its own parent lookups, and otherwise parents come from the handle's
// commit cache.
func (p *Project) Parents(ctx context.Context, id string) ([]string, error) {
	if bulk, ok := p.client.(vcs.BulkGraph); ok {
		graph, err := p.graphs.GetOrCompute(cache.Key(p.Identity()), func() (vcs.ParentMap, error) {
			graph, err := bulk.LoadGraph(ctx)
			if err != nil {
				return nil, fmt.Errorf("load commit graph: %w", err)
			}
			p.logger.Debug("commit graph loaded", "commits", len(graph))
			return graph, nil
		})
		if err != nil {
			return nil, err
		}
		if parents, err := graph.Parents(ctx, id); err == nil {
			return parents, nil
		}
	} else if graph, ok := p.client.(vcs.Graph); ok {
		return graph.Parents(ctx, id)
	}

	c, err := p.Commit(ctx, id)
	if err != nil {
		if errors.Is(err, resolve.ErrUnknownCommit) {
			return nil, fmt.Errorf("commit %s: %w", id, vcs.ErrNotFound)
		}
		return nil, err
	}
	return c.Parents, nil
}

// OrderTable builds the tag order on first use.
func (p *Project) OrderTable(ctx context.Context) (*tags.OrderTable, error) {
	return p.tables.GetOrCompute(cache.Key(p.Identity()), func() (*tags.OrderTable, error) {
		raw, err := p.client.ListTags(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tags: %w", err)
		}
		var table *tags.OrderTable
		if checker, ok := p.client.(vcs.AncestryChecker); ok {
			table, err = tags.BuildWithAncestry(ctx, raw, p.conv, p, checker)
		} else {
			table, err = tags.Build(ctx, raw, p.conv, p)
		}
		if err != nil {
			return nil, fmt.Errorf("build tag order: %w", err)
		}
		if skipped := table.Skipped(); len(skipped) > 0 {
			p.logger.Warn("tags with unreadable targets left out of the order", "tags", skipped)
		}
		p.logger.Debug("tag order built", "raw", len(raw), "accepted", table.Len())
		return table, nil
	})
}

// TagsWithOrder returns the accepted tags, earliest release first. The slice
// is shared between callers.
func (p *Project) TagsWithOrder(ctx context.Context) ([]string, error) {
	table, err := p.OrderTable(ctx)
	if err != nil {
		return nil, err
	}
	return table.Sequence(), nil
}

// TagOrder returns the ordinal of an accepted tag or an error wrapping tags.ErrUnknownTag.
func (p *Project) TagOrder(ctx context.Context, name string) (int, error) {
	table, err := p.OrderTable(ctx)
	if err != nil {
		return 0, err
	}
	return table.OrderOf(name)
}

// Remotes returns the repository remotes.
func (p *Project) Remotes(ctx context.Context) ([]vcs.Remote, error) {
	return p.remotes.GetOrCompute(cache.Key(p.Identity()), func() ([]vcs.Remote, error) {
		remotes, err := p.client.ListRemotes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list remotes: %w", err)
		}
		return remotes, nil
	})
}

func (p *Project) searcher(ctx context.Context) (*resolve.Searcher, error) {
	table, err := p.OrderTable(ctx)
	if err != nil {
		return nil, err
	}
	return resolve.NewSearcher(table, p.conv, p), nil
}

func (p *Project) directTag(ctx context.Context, c *Commit, query string, filter resolve.Filter) (*tags.Classified, error) {
	return p.direct.GetOrCompute(cache.Key(p.Identity(), query, c.ID), func() (*tags.Classified, error) {
		s, err := p.searcher(ctx)
		if err != nil {
			return nil, err
		}
		res, err := s.Resolve(ctx, c.ID, resolve.DirectOnly, filter)
		if err != nil {
			return nil, p.fault(err, c.ID)
		}
		return res.Tag, nil
	})
}

func (p *Project) baseTag(ctx context.Context, c *Commit) (*BaseTag, error) {
	return p.bases.GetOrCompute(cache.Key(p.Identity(), queryBase, c.ID), func() (*BaseTag, error) {
		s, err := p.searcher(ctx)
		if err != nil {
			return nil, err
		}
		res, err := s.Resolve(ctx, c.ID, resolve.WithAncestors, resolve.ReleasesOnly)
		if err != nil {
			return nil, p.fault(err, c.ID)
		}
		if res.Kind == resolve.NoTag {
			return nil, nil
		}
		return &BaseTag{Name: res.Tag.Name, Exact: res.Exact}, nil
	})
}

// fault logs internal consistency errors; they point at a bug, not at the caller.
func (p *Project) fault(err error, commit string) error {
	if errors.Is(err, resolve.ErrInternal) {
		p.logger.Error("release tag resolution aborted", "commit", commit, "error", err)
	}
	return err
}
