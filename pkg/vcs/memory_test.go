package vcs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo(t *testing.T) {
	repo := NewMemoryRepo("linux").
		AddCommit("A").
		AddCommit("B", "A").
		AddTag("v4.0", "A").
		AddTag("v4.1", "B").
		AddRemote("origin", "git://example/linux.git")
	ctx := context.Background()

	c, err := repo.GetCommit(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, c.Parents)

	// callers cannot mutate the stored graph
	c.Parents[0] = "Z"
	again, err := repo.GetCommit(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, again.Parents)
	assert.Equal(t, 2, repo.Lookups())

	_, err = repo.GetCommit(ctx, "C")
	assert.ErrorIs(t, err, ErrNotFound)

	tags, err := repo.ListTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.True(t, tags[0].Created.Before(tags[1].Created))

	parents, err := repo.Parents(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, parents)
	assert.Equal(t, ParentMap{"A": nil, "B": {"A"}}, repo.ParentMap())

	remotes, err := repo.ListRemotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, "origin", remotes[0].Name)
}

func TestMemoryRepoAbbreviatedIDs(t *testing.T) {
	repo := NewMemoryRepo("gcc").
		AddCommit("f8a5d2b4c1e0").
		AddCommit("f8a5e913aa07", "f8a5d2b4c1e0")
	ctx := context.Background()

	c, err := repo.GetCommit(ctx, "f8a5d2")
	require.NoError(t, err)
	assert.Equal(t, "f8a5d2b4c1e0", c.ID)

	_, err = repo.GetCommit(ctx, "f8a5")
	assert.ErrorIs(t, err, ErrNotFound, "ambiguous prefix")

	_, err = repo.GetCommit(ctx, "f8a")
	assert.ErrorIs(t, err, ErrNotFound, "prefix too short")
}

func TestParentMap(t *testing.T) {
	graph := ParentMap{"B": {"A"}}

	parents, err := graph.Parents(context.Background(), "B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, parents)

	_, err = graph.Parents(context.Background(), "Z")
	assert.ErrorIs(t, err, ErrNotFound)
}
