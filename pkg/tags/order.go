package tags

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/release-tag-resolver/pkg/vcs"
)

// ErrUnknownTag is returned when a tag name is not part of the accepted set.
var ErrUnknownTag = errors.New("unknown tag")

// Classified is an accepted tag with its place in the release history.
type Classified struct {
	Name    string
	Commit  string
	Kind    Kind
	Ordinal int
	Created time.Time

	epoch   int
	version versionKey
}

// OrderTable is the total order over a project's accepted tags. Ordinal 0 is
// the earliest release. A table is immutable once built.
type OrderTable struct {
	seq      []string
	byName   map[string]*Classified
	byCommit map[string][]*Classified
	skipped  []string
}

// Build classifies raw and orders the accepted tags. Ancestry between tagged
// commits decides first; tags that ancestry cannot order are ranked by epoch,
// version, creation time and finally name.
func Build(ctx context.Context, raw []vcs.Tag, conv *Convention, graph vcs.Graph) (*OrderTable, error) {
	t, live, err := classifyAll(ctx, raw, conv, graph)
	if err != nil {
		return nil, err
	}
	edges, err := t.ancestry(ctx, graph)
	if err != nil {
		return nil, err
	}
	t.finish(topoSort(live, edges))
	return t, nil
}

// BuildWithAncestry orders the accepted tags like Build but asks checker for
// the ancestry between each pair of tagged commits instead of walking the
// graph. It suits remote stores where a reachability query is one request and
// a walk is one request per commit. graph is only used to confirm that tagged
// commits exist.
func BuildWithAncestry(ctx context.Context, raw []vcs.Tag, conv *Convention, graph vcs.Graph, checker vcs.AncestryChecker) (*OrderTable, error) {
	t, live, err := classifyAll(ctx, raw, conv, graph)
	if err != nil {
		return nil, err
	}

	commits := make([]string, 0, len(t.byCommit))
	for commit := range t.byCommit {
		commits = append(commits, commit)
	}
	slices.Sort(commits)

	edges := make(map[*Classified][]*Classified)
	link := func(lower, upper string) {
		for _, b := range t.byCommit[lower] {
			edges[b] = append(edges[b], t.byCommit[upper]...)
		}
	}
	for i, a := range commits {
		for _, b := range commits[i+1:] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			below, err := checker.IsAncestor(ctx, a, b)
			if err != nil {
				return nil, fmt.Errorf("compare tagged commits %s and %s: %w", a, b, err)
			}
			if below {
				link(a, b)
				continue
			}
			above, err := checker.IsAncestor(ctx, b, a)
			if err != nil {
				return nil, fmt.Errorf("compare tagged commits %s and %s: %w", b, a, err)
			}
			if above {
				link(b, a)
			}
		}
	}

	t.finish(topoSort(live, edges))
	return t, nil
}

// classifyAll keeps the tags conv accepts, first occurrence of a name winning,
// and drops those whose target cannot be read.
func classifyAll(ctx context.Context, raw []vcs.Tag, conv *Convention, graph vcs.Graph) (*OrderTable, []*Classified, error) {
	t := &OrderTable{
		byName:   make(map[string]*Classified),
		byCommit: make(map[string][]*Classified),
	}

	var accepted []*Classified
	for _, tag := range raw {
		kind := conv.Classify(tag.Name)
		if kind == Unclassified {
			continue
		}
		if _, dup := t.byName[tag.Name]; dup {
			continue
		}
		c := &Classified{
			Name:    tag.Name,
			Commit:  tag.Commit,
			Kind:    kind,
			Created: tag.Created,
			epoch:   conv.epoch(tag.Name),
			version: conv.versionKey(tag.Name),
		}
		t.byName[c.Name] = c
		accepted = append(accepted, c)
	}
	for _, c := range accepted {
		t.byCommit[c.Commit] = append(t.byCommit[c.Commit], c)
	}

	if err := t.dropUnreadable(ctx, graph); err != nil {
		return nil, nil, err
	}
	live := accepted[:0]
	for _, c := range accepted {
		if t.byName[c.Name] == c {
			live = append(live, c)
		}
	}
	return t, live, nil
}

func (t *OrderTable) finish(ordered []*Classified) {
	t.seq = make([]string, 0, len(ordered))
	for i, c := range ordered {
		c.Ordinal = i
		t.seq = append(t.seq, c.Name)
	}
	for _, list := range t.byCommit {
		slices.SortFunc(list, func(a, b *Classified) int { return a.Ordinal - b.Ordinal })
	}
}

// dropUnreadable removes tags whose target is missing from the graph, such as
// tags pointing at trees or at commits outside a shallow clone.
func (t *OrderTable) dropUnreadable(ctx context.Context, graph vcs.Graph) error {
	for commit, list := range t.byCommit {
		_, err := graph.Parents(ctx, commit)
		if err == nil {
			continue
		}
		if !errors.Is(err, vcs.ErrNotFound) {
			return fmt.Errorf("read tagged commit %s: %w", commit, err)
		}
		for _, c := range list {
			delete(t.byName, c.Name)
			t.skipped = append(t.skipped, c.Name)
		}
		delete(t.byCommit, commit)
	}
	slices.Sort(t.skipped)
	return nil
}

// ancestry links every tag to the tags on its nearest tagged ancestors. The
// walk from a tagged commit stops at the first tagged commit on each path.
func (t *OrderTable) ancestry(ctx context.Context, graph vcs.Graph) (map[*Classified][]*Classified, error) {
	edges := make(map[*Classified][]*Classified)

	for commit, here := range t.byCommit {
		parents, err := graph.Parents(ctx, commit)
		if err != nil {
			return nil, fmt.Errorf("walk from tagged commit %s: %w", commit, err)
		}

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

			if below, ok := t.byCommit[id]; ok {
				for _, b := range below {
					edges[b] = append(edges[b], here...)
				}
				continue
			}
			next, err := graph.Parents(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("walk from tagged commit %s: %w", commit, err)
			}
			queue = append(queue, next...)
		}
	}
	return edges, nil
}

// topoSort runs Kahn's algorithm, releasing ready tags in secondary-key order.
func topoSort(accepted []*Classified, edges map[*Classified][]*Classified) []*Classified {
	indegree := make(map[*Classified]int, len(accepted))
	for _, tos := range edges {
		for _, to := range tos {
			indegree[to]++
		}
	}

	ready := &readyQueue{}
	for _, c := range accepted {
		if indegree[c] == 0 {
			heap.Push(ready, c)
		}
	}

	out := make([]*Classified, 0, len(accepted))
	for ready.Len() > 0 {
		c := heap.Pop(ready).(*Classified)
		out = append(out, c)
		for _, to := range edges[c] {
			indegree[to]--
			if indegree[to] == 0 {
				heap.Push(ready, to)
			}
		}
	}

	// only reachable with a cyclic graph; keep the order total regardless
	if len(out) < len(accepted) {
		var rest []*Classified
		for _, c := range accepted {
			if indegree[c] > 0 {
				rest = append(rest, c)
			}
		}
		slices.SortFunc(rest, func(a, b *Classified) int {
			if secondaryLess(a, b) {
				return -1
			}
			if secondaryLess(b, a) {
				return 1
			}
			return 0
		})
		out = append(out, rest...)
	}
	return out
}

// secondaryLess orders tags that ancestry leaves unordered.
func secondaryLess(a, b *Classified) bool {
	if a.epoch != b.epoch {
		return a.epoch < b.epoch
	}
	if c := compareVersions(a.version, b.version); c != 0 {
		return c < 0
	}
	if !a.Created.Equal(b.Created) {
		return a.Created.Before(b.Created)
	}
	return a.Name < b.Name
}

type readyQueue []*Classified

func (q readyQueue) Len() int           { return len(q) }
func (q readyQueue) Less(i, j int) bool { return secondaryLess(q[i], q[j]) }
func (q readyQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *readyQueue) Push(x any)        { *q = append(*q, x.(*Classified)) }
func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}

// OrderOf returns the ordinal of an accepted tag.
func (t *OrderTable) OrderOf(name string) (int, error) {
	c, ok := t.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTag, name)
	}
	return c.Ordinal, nil
}

// Sequence returns the accepted tag names in ordinal order. The slice is
// shared by every caller and must not be modified.
func (t *OrderTable) Sequence() []string {
	return t.seq
}

func (t *OrderTable) Len() int {
	return len(t.seq)
}

func (t *OrderTable) Tag(name string) (*Classified, bool) {
	c, ok := t.byName[name]
	return c, ok
}

// TagsAt returns the accepted tags targeting commit, lowest ordinal first.
func (t *OrderTable) TagsAt(commit string) []*Classified {
	return t.byCommit[commit]
}

// Skipped lists accepted tag names dropped because their target could not be read.
func (t *OrderTable) Skipped() []string {
	return t.skipped
}
