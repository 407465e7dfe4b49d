package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(s string) *string { return &s }

func fixture() []Member {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Member{
		{ID: "root", FullName: "Root", RankName: "Gold", JoinedAt: t0},
		{ID: "b", UplineID: ptr("root"), FullName: "B", RankName: "Starter", PersonalVolume: 20, JoinedAt: t0.Add(2 * time.Hour), Depth: 1},
		{ID: "a", UplineID: ptr("root"), FullName: "A", RankName: "Bronze", PersonalVolume: 100.5, JoinedAt: t0.Add(time.Hour), Depth: 1},
		{ID: "a1", UplineID: ptr("a"), FullName: "A1", RankName: "Starter", PersonalVolume: 10, JoinedAt: t0.Add(3 * time.Hour), Depth: 2},
		{ID: "orphan", UplineID: ptr("ghost"), FullName: "Orphan", Depth: 2},
	}
}

func TestBuildTree(t *testing.T) {
	root := BuildTree("root", fixture())
	require.NotNil(t, root)
	assert.Equal(t, 0, root.Depth)
	require.Len(t, root.Children, 2)

	// children ordered by join date
	assert.Equal(t, "a", root.Children[0].ID)
	assert.Equal(t, "b", root.Children[1].ID)
	require.Len(t, root.Children[0].Children, 1)
	assert.Equal(t, "a1", root.Children[0].Children[0].ID)
	assert.Equal(t, 2, root.Children[0].Children[0].Depth)
	assert.NotNil(t, root.Children[1].Children)
	assert.Empty(t, root.Children[1].Children)
}

func TestBuildTreeEmptyDownline(t *testing.T) {
	root := BuildTree("solo", []Member{{ID: "solo", FullName: "Solo"}})
	require.NotNil(t, root)
	assert.Empty(t, root.Children)

	assert.Nil(t, BuildTree("missing", fixture()))
}

func TestBuildTreeCycle(t *testing.T) {
	rows := []Member{
		{ID: "root"},
		{ID: "x", UplineID: ptr("root")},
		{ID: "y", UplineID: ptr("x")},
		{ID: "root", UplineID: ptr("y")},
	}
	root := BuildTree("root", rows)
	require.NotNil(t, root)
	require.Len(t, root.Children, 1)
	require.Len(t, root.Children[0].Children, 1)
	assert.Empty(t, root.Children[0].Children[0].Children)
}

func TestComputeStats(t *testing.T) {
	s := ComputeStats(BuildTree("root", fixture()))
	assert.Equal(t, 3, s.TotalMembers)
	assert.Equal(t, 2, s.DirectCount)
	assert.Equal(t, 2, s.MaxDepth)
	assert.Equal(t, map[int]int{1: 2, 2: 1}, s.PerDepth)
	assert.Equal(t, 130.5, s.TotalPV)
	assert.Equal(t, 2, s.RankBreakdown["Starter"])

	empty := ComputeStats(nil)
	assert.Zero(t, empty.TotalMembers)
}

func TestClampDepth(t *testing.T) {
	assert.Equal(t, 3, ClampDepth(0, 3, 10))
	assert.Equal(t, 10, ClampDepth(50, 3, 10))
	assert.Equal(t, 5, ClampDepth(5, 3, 10))
}
