package vcs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/go-github/v60/github"
)

// GitHubClient reads tags and commits through the GitHub REST API.
type GitHubClient struct {
	client *github.Client
	owner  string
	repo   string

	mu      sync.Mutex
	parents ParentMap
}

func NewGitHubClient(client *github.Client, owner, repo string) *GitHubClient {
	return &GitHubClient{
		client:  client,
		owner:   owner,
		repo:    repo,
		parents: make(ParentMap),
	}
}

func (g *GitHubClient) Identity() string {
	return "github.com/" + g.owner + "/" + g.repo
}

func (g *GitHubClient) ListTags(ctx context.Context) ([]Tag, error) {
	var allTags []Tag
	opts := &github.ListOptions{PerPage: 100}

	for {
		tags, resp, err := g.client.Repositories.ListTags(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list tags for %s/%s: %w", g.owner, g.repo, err)
		}
		for _, t := range tags {
			allTags = append(allTags, Tag{
				Name:   t.GetName(),
				Commit: t.GetCommit().GetSHA(),
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return allTags, nil
}

func (g *GitHubClient) GetCommit(ctx context.Context, id string) (*Commit, error) {
	rc, _, err := g.client.Repositories.GetCommit(ctx, g.owner, g.repo, id, nil)
	if err != nil {
		if isMissing(err) {
			return nil, fmt.Errorf("commit %s in %s/%s: %w", id, g.owner, g.repo, ErrNotFound)
		}
		return nil, fmt.Errorf("get commit %s in %s/%s: %w", id, g.owner, g.repo, err)
	}

	c := &Commit{
		ID:      rc.GetSHA(),
		Subject: subjectOf(rc.GetCommit().GetMessage()),
	}
	for _, p := range rc.Parents {
		c.Parents = append(c.Parents, p.GetSHA())
	}
	if a := rc.GetCommit().GetAuthor(); a != nil {
		c.Author = Signature{Name: a.GetName(), Email: a.GetEmail(), When: a.GetDate().Time}
	}
	if cm := rc.GetCommit().GetCommitter(); cm != nil {
		c.Committer = Signature{Name: cm.GetName(), Email: cm.GetEmail(), When: cm.GetDate().Time}
	}
	return c, nil
}

// Parents answers from commits already seen, otherwise it fetches a page of
// history starting at id so that the following ancestors are answered locally.
func (g *GitHubClient) Parents(ctx context.Context, id string) ([]string, error) {
	g.mu.Lock()
	parents, ok := g.parents[id]
	g.mu.Unlock()
	if ok {
		return parents, nil
	}

	opts := &github.CommitsListOptions{
		SHA:         id,
		ListOptions: github.ListOptions{PerPage: 100},
	}
	commits, _, err := g.client.Repositories.ListCommits(ctx, g.owner, g.repo, opts)
	if err != nil {
		if isMissing(err) {
			return nil, fmt.Errorf("commit %s in %s/%s: %w", id, g.owner, g.repo, ErrNotFound)
		}
		return nil, fmt.Errorf("list commits from %s in %s/%s: %w", id, g.owner, g.repo, err)
	}
	if len(commits) == 0 {
		return nil, fmt.Errorf("commit %s in %s/%s: %w", id, g.owner, g.repo, ErrNotFound)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	for _, rc := range commits {
		ps := make([]string, 0, len(rc.Parents))
		for _, p := range rc.Parents {
			ps = append(ps, p.GetSHA())
		}
		g.parents[rc.GetSHA()] = ps
	}
	// id may be abbreviated; the first listed commit is the one it names
	first := commits[0].GetSHA()
	g.parents[id] = g.parents[first]
	return g.parents[id], nil
}

// IsAncestor asks the compare API whether ancestor is reachable from descendant.
func (g *GitHubClient) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	comparison, _, err := g.client.Repositories.CompareCommits(ctx, g.owner, g.repo, descendant, ancestor, nil)
	if err != nil {
		if isMissing(err) {
			return false, fmt.Errorf("compare %s...%s in %s/%s: %w", descendant, ancestor, g.owner, g.repo, ErrNotFound)
		}
		return false, fmt.Errorf("compare %s...%s in %s/%s: %w", descendant, ancestor, g.owner, g.repo, err)
	}
	// "behind" means the head (ancestor) is contained in the base (descendant)
	status := comparison.GetStatus()
	return status == "behind" || status == "identical", nil
}

func (g *GitHubClient) ListRemotes(ctx context.Context) ([]Remote, error) {
	repo, _, err := g.client.Repositories.Get(ctx, g.owner, g.repo)
	if err != nil {
		return nil, fmt.Errorf("get repository %s/%s: %w", g.owner, g.repo, err)
	}
	return []Remote{{Name: "origin", URL: repo.GetCloneURL()}}, nil
}

// isMissing reports whether the API rejected the lookup because the object does not exist.
// GitHub answers 422 rather than 404 for malformed or unknown SHAs.
func isMissing(err error) bool {
	var errResp *github.ErrorResponse
	if !errors.As(err, &errResp) || errResp.Response == nil {
		return false
	}
	code := errResp.Response.StatusCode
	return code == http.StatusNotFound || code == http.StatusUnprocessableEntity
}

func subjectOf(message string) string {
	subject, _, _ := strings.Cut(message, "\n")
	return strings.TrimSpace(subject)
}

func ParseGitHubRepo(repoURL string) (owner, repo string, err error) {
	repoURL = strings.TrimPrefix(repoURL, "https://")
	repoURL = strings.TrimPrefix(repoURL, "http://")
	repoURL = strings.TrimPrefix(repoURL, "github.com/")
	repoURL = strings.TrimSuffix(repoURL, ".git")
	repoURL = strings.TrimSuffix(repoURL, "/")

	parts := strings.SplitN(repoURL, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse GitHub repo from %q", repoURL)
	}
	return parts[0], parts[1], nil
}
