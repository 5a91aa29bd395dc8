package project

import (
	"context"

	"github.com/release-tag-resolver/pkg/resolve"
	"github.com/release-tag-resolver/pkg/tags"
	"github.com/release-tag-resolver/pkg/vcs"
)

// Commit is a commit read through a Project. Its tag queries are answered
// from the owning handle's caches.
type Commit struct {
	vcs.Commit
	project *Project
}

// ParentIDs returns the parent commit ids in order.
func (c *Commit) ParentIDs() []string {
	return c.Parents
}

// InterestedTag returns the accepted tag targeting this commit, or nil.
func (c *Commit) InterestedTag(ctx context.Context) (*tags.Classified, error) {
	return c.project.directTag(ctx, c, queryInterested, resolve.AnyAccepted)
}

// ReleaseTag is InterestedTag restricted to release tags.
func (c *Commit) ReleaseTag(ctx context.Context) (*tags.Classified, error) {
	return c.project.directTag(ctx, c, queryRelease, resolve.ReleasesOnly)
}

// BaseReleaseTag returns the nearest release tag at or below this commit, or
// nil when no ancestor carries one.
func (c *Commit) BaseReleaseTag(ctx context.Context) (*BaseTag, error) {
	return c.project.baseTag(ctx, c)
}
