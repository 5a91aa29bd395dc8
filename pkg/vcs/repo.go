package vcs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by a RepoClient when a commit id does not exist in the store.
var ErrNotFound = errors.New("not found")

type Tag struct {
	Name    string
	Commit  string
	Created time.Time
}

type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// FormattedName renders the signature the way git prints it: "Name <email>".
func (s Signature) FormattedName() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

type Commit struct {
	ID        string
	Parents   []string
	Author    Signature
	Committer Signature
	Subject   string
}

// Date is the committer date.
func (c *Commit) Date() time.Time {
	return c.Committer.When
}

type Remote struct {
	Name string
	URL  string
}

type RepoClient interface {
	// Identity returns a key naming the underlying project. Two clients
	// describing the same logical project return equal keys.
	Identity() string

	// ListTags returns every tag in the repository, unclassified.
	ListTags(ctx context.Context) ([]Tag, error)

	// GetCommit returns the commit with the given id or an error wrapping ErrNotFound.
	GetCommit(ctx context.Context, id string) (*Commit, error)

	// ListRemotes returns the configured remotes.
	ListRemotes(ctx context.Context) ([]Remote, error)
}

// Graph exposes the parent links of a commit graph.
type Graph interface {
	Parents(ctx context.Context, id string) ([]string, error)
}

// BulkGraph is implemented by clients that can read every parent link in one pass.
type BulkGraph interface {
	LoadGraph(ctx context.Context) (ParentMap, error)
}

// ParentMap is a fully loaded commit graph keyed by full commit id.
type ParentMap map[string][]string

func (m ParentMap) Parents(ctx context.Context, id string) ([]string, error) {
	parents, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("commit %s: %w", id, ErrNotFound)
	}
	return parents, nil
}

// AncestryChecker answers reachability questions without walking the graph locally.
type AncestryChecker interface {
	// IsAncestor reports whether ancestor is reachable from descendant.
	// A commit is its own ancestor.
	IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error)
}
