package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/release-tag-resolver/pkg/tags"
	"github.com/release-tag-resolver/pkg/vcs"
)

func searcher(t *testing.T, repo *vcs.MemoryRepo, conv *tags.Convention) *Searcher {
	t.Helper()
	raw, err := repo.ListTags(context.Background())
	require.NoError(t, err)
	graph := repo
	table, err := tags.Build(context.Background(), raw, conv, graph)
	require.NoError(t, err)
	return NewSearcher(table, conv, graph)
}

// v2613History:
//
//	root - A(v2.6.13-rc7) - m - B(v2.6.13) - C
//	                  \
//	                   D
func v2613History() *vcs.MemoryRepo {
	return vcs.NewMemoryRepo("linux").
		AddCommit("root").
		AddCommit("A", "root").
		AddCommit("m", "A").
		AddCommit("B", "m").
		AddCommit("C", "B").
		AddCommit("D", "A").
		AddTag("v2.6.13-rc7", "A").
		AddTag("v2.6.13", "B")
}

func TestResolveWithAncestors(t *testing.T) {
	s := searcher(t, v2613History(), tags.MustCompileBuiltin("linux"))
	ctx := context.Background()

	tests := []struct {
		commit string
		kind   Kind
		tag    string
		exact  bool
	}{
		{"B", AncestorTag, "v2.6.13", true},
		{"C", AncestorTag, "v2.6.13", false},
		{"D", AncestorTag, "v2.6.13-rc7", false},
		{"A", AncestorTag, "v2.6.13-rc7", true},
		{"m", AncestorTag, "v2.6.13-rc7", false},
		{"root", NoTag, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.commit, func(t *testing.T) {
			res, err := s.Resolve(ctx, tt.commit, WithAncestors, ReleasesOnly)
			require.NoError(t, err)
			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.exact, res.Exact)
			if tt.tag == "" {
				assert.Nil(t, res.Tag)
				return
			}
			require.NotNil(t, res.Tag)
			assert.Equal(t, tt.tag, res.Tag.Name)
		})
	}
}

func TestResolveDirectOnly(t *testing.T) {
	repo := vcs.NewMemoryRepo("proj").
		AddCommit("a").
		AddCommit("b", "a").
		AddCommit("c", "b").
		AddTag("v0.9.0", "a").
		AddTag("v1.0.0-rc1", "b")
	s := searcher(t, repo, tags.MustCompileBuiltin("semver"))
	ctx := context.Background()

	res, err := s.Resolve(ctx, "b", DirectOnly, AnyAccepted)
	require.NoError(t, err)
	assert.Equal(t, ExactTag, res.Kind)
	assert.Equal(t, "v1.0.0-rc1", res.Tag.Name)
	assert.True(t, res.Exact)

	res, err = s.Resolve(ctx, "b", DirectOnly, ReleasesOnly)
	require.NoError(t, err)
	assert.Equal(t, NoTag, res.Kind)

	res, err = s.Resolve(ctx, "c", DirectOnly, AnyAccepted)
	require.NoError(t, err)
	assert.Equal(t, NoTag, res.Kind)

	// a pre-release is not a stop point when only releases count
	res, err = s.Resolve(ctx, "c", WithAncestors, ReleasesOnly)
	require.NoError(t, err)
	assert.Equal(t, AncestorTag, res.Kind)
	assert.Equal(t, "v0.9.0", res.Tag.Name)
	assert.False(t, res.Exact)
}

func TestResolveMergePicksHighestOrdinal(t *testing.T) {
	// two maintenance lines merged back together
	repo := vcs.NewMemoryRepo("linux").
		AddCommit("root").
		AddCommit("x", "root").
		AddCommit("y", "root").
		AddCommit("x1", "x").
		AddCommit("merge", "x1", "y").
		AddTag("v4.0", "y").
		AddTag("v3.19", "x")
	s := searcher(t, repo, tags.MustCompileBuiltin("linux"))

	res, err := s.Resolve(context.Background(), "merge", WithAncestors, ReleasesOnly)
	require.NoError(t, err)
	assert.Equal(t, "v4.0", res.Tag.Name)
	assert.False(t, res.Exact)
}

func TestResolveNearerTagHidesOlderOnes(t *testing.T) {
	// the older tag is reachable along an untagged side path too
	repo := vcs.NewMemoryRepo("linux").
		AddCommit("old").
		AddCommit("new", "old").
		AddCommit("side", "old").
		AddCommit("tip", "new", "side").
		AddTag("v4.0", "old").
		AddTag("v4.1", "new")
	s := searcher(t, repo, tags.MustCompileBuiltin("linux"))

	res, err := s.Resolve(context.Background(), "tip", WithAncestors, ReleasesOnly)
	require.NoError(t, err)
	assert.Equal(t, "v4.1", res.Tag.Name)
}

func TestResolveDiamondTerminates(t *testing.T) {
	repo := vcs.NewMemoryRepo("diamonds").AddCommit("base")
	prev := "base"
	for _, level := range []string{"1", "2", "3", "4", "5", "6", "7", "8"} {
		l, r, join := "l"+level, "r"+level, "j"+level
		repo.AddCommit(l, prev).AddCommit(r, prev).AddCommit(join, l, r)
		prev = join
	}
	s := searcher(t, repo, tags.MustCompileBuiltin("linux"))

	before := repo.Lookups()
	res, err := s.Resolve(context.Background(), prev, WithAncestors, ReleasesOnly)
	require.NoError(t, err)
	assert.Equal(t, NoTag, res.Kind)
	// each of the 25 commits is read at most once
	assert.LessOrEqual(t, repo.Lookups()-before, 25)
}

func TestResolveUnknownCommit(t *testing.T) {
	s := searcher(t, v2613History(), tags.MustCompileBuiltin("linux"))

	_, err := s.Resolve(context.Background(), "deadbeef", WithAncestors, ReleasesOnly)
	assert.ErrorIs(t, err, ErrUnknownCommit)
	assert.ErrorIs(t, err, vcs.ErrNotFound)

	_, err = s.Resolve(context.Background(), "deadbeef", DirectOnly, AnyAccepted)
	assert.True(t, errors.Is(err, ErrUnknownCommit))
}

func TestResolveMissingParent(t *testing.T) {
	repo := vcs.NewMemoryRepo("shallow").AddCommit("tip", "gone")
	s := searcher(t, repo, tags.MustCompileBuiltin("linux"))

	_, err := s.Resolve(context.Background(), "tip", WithAncestors, ReleasesOnly)
	assert.ErrorIs(t, err, ErrUnknownCommit)
}

func TestResolveHonoursCancellation(t *testing.T) {
	s := searcher(t, v2613History(), tags.MustCompileBuiltin("linux"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Resolve(ctx, "C", WithAncestors, ReleasesOnly)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "none", NoTag.String())
	assert.Equal(t, "exact", ExactTag.String())
	assert.Equal(t, "ancestor", AncestorTag.String())
}
