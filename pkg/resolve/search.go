// Package resolve finds the release tag a commit belongs to.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/release-tag-resolver/pkg/tags"
	"github.com/release-tag-resolver/pkg/vcs"
)

var (
	// ErrUnknownCommit is returned when the queried commit is not in the graph.
	ErrUnknownCommit = errors.New("unknown commit")

	// ErrInternal marks an inconsistency between the order table and the graph.
	ErrInternal = errors.New("internal consistency fault")
)

type Mode int

const (
	// DirectOnly only looks at tags targeting the commit itself.
	DirectOnly Mode = iota
	// WithAncestors walks the ancestry for the nearest tagged commit.
	WithAncestors
)

// Filter selects which accepted tags may answer a query.
type Filter int

const (
	AnyAccepted Filter = iota
	ReleasesOnly
)

type Kind int

const (
	NoTag Kind = iota
	ExactTag
	AncestorTag
)

func (k Kind) String() string {
	switch k {
	case ExactTag:
		return "exact"
	case AncestorTag:
		return "ancestor"
	default:
		return "none"
	}
}

// Result is the answer to one query. Tag is nil for NoTag. Exact is true when
// the queried commit is the tag's target.
type Result struct {
	Kind  Kind
	Tag   *tags.Classified
	Exact bool
}

// Searcher resolves commits against one order table. It only reads the table
// and the graph, so one Searcher may serve concurrent queries.
type Searcher struct {
	table *tags.OrderTable
	conv  *tags.Convention
	graph vcs.Graph
}

func NewSearcher(table *tags.OrderTable, conv *tags.Convention, graph vcs.Graph) *Searcher {
	return &Searcher{table: table, conv: conv, graph: graph}
}

func (s *Searcher) Resolve(ctx context.Context, commit string, mode Mode, filter Filter) (*Result, error) {
	parents, err := s.graph.Parents(ctx, commit)
	if err != nil {
		return nil, commitError(commit, err)
	}

	here, err := s.best(s.table.TagsAt(commit), filter)
	if err != nil {
		return nil, err
	}
	if here != nil {
		if mode == DirectOnly {
			return &Result{Kind: ExactTag, Tag: here, Exact: true}, nil
		}
		return &Result{Kind: AncestorTag, Tag: here, Exact: true}, nil
	}
	if mode == DirectOnly {
		return &Result{Kind: NoTag}, nil
	}

	var candidates []*tags.Classified
	visited := map[string]bool{commit: true}
	queue := append([]string(nil), parents...)
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		tagged, err := s.best(s.table.TagsAt(id), filter)
		if err != nil {
			return nil, err
		}
		if tagged != nil {
			// everything below a tagged commit is older than it
			candidates = append(candidates, tagged)
			continue
		}

		next, err := s.graph.Parents(ctx, id)
		if err != nil {
			return nil, commitError(id, err)
		}
		queue = append(queue, next...)
	}

	found, err := s.best(candidates, filter)
	if err != nil {
		return nil, err
	}
	if found == nil {
		return &Result{Kind: NoTag}, nil
	}
	return &Result{Kind: AncestorTag, Tag: found, Exact: false}, nil
}

// best returns the highest-ordinal tag passing filter.
func (s *Searcher) best(list []*tags.Classified, filter Filter) (*tags.Classified, error) {
	var winner *tags.Classified
	top := -1
	for _, c := range list {
		if filter == ReleasesOnly && !s.conv.IsRelease(c.Kind) {
			continue
		}
		ord, err := s.table.OrderOf(c.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInternal, err)
		}
		if ord > top {
			winner, top = c, ord
		}
	}
	return winner, nil
}

func commitError(id string, err error) error {
	if errors.Is(err, vcs.ErrNotFound) {
		return fmt.Errorf("%w %s: %w", ErrUnknownCommit, id, err)
	}
	return fmt.Errorf("read commit %s: %w", id, err)
}
