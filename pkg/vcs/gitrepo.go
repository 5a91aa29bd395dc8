package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/release-tag-resolver/pkg/logging"
)

// GitRepoClient reads a local repository in process.
type GitRepoClient struct {
	// go-git repositories are not safe for concurrent object reads
	mu       sync.Mutex
	repo     *git.Repository
	root     string
	identity string
	logger   *slog.Logger
}

// OpenGitRepo opens the repository containing path. identity names the project
// for cache namespacing; when empty the path is used.
func OpenGitRepo(path, identity string, logger *slog.Logger) (*GitRepoClient, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", path, err)
	}
	if identity == "" {
		identity = path
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &GitRepoClient{
		repo:     repo,
		root:     path,
		identity: identity,
		logger:   logger,
	}, nil
}

func (g *GitRepoClient) Identity() string {
	return g.identity
}

func (g *GitRepoClient) ListTags(ctx context.Context) ([]Tag, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	refs, err := g.repo.Tags()
	if err != nil {
		return nil, fmt.Errorf("list tags in %s: %w", g.root, err)
	}
	defer refs.Close()

	var tags []Tag
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		tag, err := g.peel(ref)
		if err != nil {
			return err
		}
		tags = append(tags, tag)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tags in %s: %w", g.root, err)
	}
	return tags, nil
}

// peel follows annotated tags down to the object they finally point at.
func (g *GitRepoClient) peel(ref *plumbing.Reference) (Tag, error) {
	tag := Tag{Name: ref.Name().Short(), Commit: ref.Hash().String()}

	obj, err := g.repo.TagObject(ref.Hash())
	switch {
	case errors.Is(err, plumbing.ErrObjectNotFound):
		// lightweight tag: the ref names the commit itself
		if c, err := g.repo.CommitObject(ref.Hash()); err == nil {
			tag.Created = c.Committer.When
		}
		return tag, nil
	case err != nil:
		return Tag{}, fmt.Errorf("read tag %s: %w", tag.Name, err)
	}

	tag.Created = obj.Tagger.When
	for obj.TargetType == plumbing.TagObject {
		next, err := g.repo.TagObject(obj.Target)
		if err != nil {
			return Tag{}, fmt.Errorf("peel tag %s: %w", tag.Name, err)
		}
		obj = next
	}
	tag.Commit = obj.Target.String()
	return tag, nil
}

func (g *GitRepoClient) GetCommit(ctx context.Context, id string) (*Commit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	hash, err := g.repo.ResolveRevision(plumbing.Revision(id))
	if err != nil {
		if isMissingObject(err) {
			return nil, fmt.Errorf("commit %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("resolve commit %s: %w", id, err)
	}

	c, err := g.repo.CommitObject(*hash)
	if err != nil {
		if isMissingObject(err) {
			return nil, fmt.Errorf("commit %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("read commit %s: %w", id, err)
	}
	return fromObject(c), nil
}

// LoadGraph reads the parent links of every commit in the object store in one pass.
func (g *GitRepoClient) LoadGraph(ctx context.Context) (ParentMap, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	iter, err := g.repo.CommitObjects()
	if err != nil {
		return nil, fmt.Errorf("iterate commits in %s: %w", g.root, err)
	}
	defer iter.Close()

	graph := make(ParentMap)
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		graph[c.Hash.String()] = hashStrings(c.ParentHashes)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterate commits in %s: %w", g.root, err)
	}

	g.logger.Debug("commit graph loaded", "commits", len(graph))
	return graph, nil
}

func (g *GitRepoClient) ListRemotes(ctx context.Context) ([]Remote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	remotes, err := g.repo.Remotes()
	if err != nil {
		return nil, fmt.Errorf("list remotes in %s: %w", g.root, err)
	}

	out := make([]Remote, 0, len(remotes))
	for _, r := range remotes {
		cfg := r.Config()
		var url string
		if len(cfg.URLs) > 0 {
			url = cfg.URLs[0]
		}
		out = append(out, Remote{Name: cfg.Name, URL: url})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func fromObject(c *object.Commit) *Commit {
	return &Commit{
		ID:        c.Hash.String(),
		Parents:   hashStrings(c.ParentHashes),
		Author:    Signature{Name: c.Author.Name, Email: c.Author.Email, When: c.Author.When},
		Committer: Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: c.Committer.When},
		Subject:   subjectOf(strings.TrimLeft(c.Message, "\n")),
	}
}

func hashStrings(hashes []plumbing.Hash) []string {
	out := make([]string, 0, len(hashes))
	for _, h := range hashes {
		out = append(out, h.String())
	}
	return out
}

// isMissingObject reports lookups of revisions or objects that do not exist,
// including ids naming trees or blobs rather than commits.
func isMissingObject(err error) bool {
	return errors.Is(err, plumbing.ErrObjectNotFound) ||
		errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.Is(err, object.ErrUnsupportedObject)
}
