package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/release-tag-resolver/pkg/project"
	"github.com/release-tag-resolver/pkg/resolve"
	"github.com/release-tag-resolver/pkg/tags"
	"github.com/release-tag-resolver/pkg/vcs"
)

func linuxProject() *project.Project {
	repo := vcs.NewMemoryRepo("linux").
		AddCommit("root").
		AddCommit("A", "root").
		AddCommit("B", "A").
		AddCommit("C", "B").
		AddCommit("D", "A").
		AddTag("v2.6.13-rc7", "A").
		AddTag("v2.6.13", "B")
	return project.Open(repo, tags.MustCompileBuiltin("linux"))
}

func TestScan(t *testing.T) {
	s := New(linuxProject(), 2, nil)

	findings, err := s.Scan(context.Background(), []string{"B", "C", "D", "root"})
	require.NoError(t, err)
	require.Len(t, findings, 4)

	assert.Equal(t, Finding{
		Commit: "B", Subject: "commit B", Author: " <>",
		InterestedTag: "v2.6.13", ReleaseTag: "v2.6.13", BaseTag: "v2.6.13", Exact: true,
	}, findings[0])
	assert.Equal(t, "v2.6.13", findings[1].BaseTag)
	assert.False(t, findings[1].Exact)
	assert.Empty(t, findings[1].ReleaseTag)
	assert.Equal(t, "v2.6.13-rc7", findings[2].BaseTag)
	assert.Empty(t, findings[3].BaseTag)
}

func TestScanFailsOnUnknownCommit(t *testing.T) {
	s := New(linuxProject(), 0, nil)

	findings, err := s.Scan(context.Background(), []string{"B", "nope"})
	assert.ErrorIs(t, err, resolve.ErrUnknownCommit)
	assert.Nil(t, findings)
}

func TestNewDefaultsWorkers(t *testing.T) {
	s := New(linuxProject(), -1, nil)
	assert.Equal(t, DefaultWorkers, s.workers)
}
