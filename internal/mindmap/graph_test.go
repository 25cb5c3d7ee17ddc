package mindmap

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func edgeTargets(graph Graph) map[string]string {
	parents := make(map[string]string, len(graph.Edges))
	for _, edge := range graph.Edges {
		parents[edge.Target] = edge.Source
	}
	return parents
}

func TestProjectHeadingWithListItems(t *testing.T) {
	graph := Project("# Title\n- item one\n- item two", "Doc")

	require.Len(t, graph.Nodes, 4)
	require.Equal(t, Node{ID: RootID, Label: "Doc"}, graph.Nodes[0])
	require.Equal(t, "Title", graph.Nodes[1].Label)
	require.Equal(t, "item one", graph.Nodes[2].Label)
	require.Equal(t, "item two", graph.Nodes[3].Label)

	parents := edgeTargets(graph)
	require.Equal(t, RootID, parents["node-0"])
	require.Equal(t, "node-0", parents["node-1"])
	require.Equal(t, "node-0", parents["node-2"])

	require.Equal(t, Edge{
		ID:     "edge-node-0-node-1",
		Source: "node-0",
		Target: "node-1",
		Type:   EdgeType,
		Marker: EdgeMarker,
	}, graph.Edges[1])
}

func TestBuildKeepsNonHeadingLinesAsSiblings(t *testing.T) {
	graph := Project("intro\n# Plan\nfirst paragraph\n- step one\n- step two\nclosing words", "Doc")

	parents := edgeTargets(graph)
	require.Equal(t, RootID, parents["node-0"])
	require.Equal(t, RootID, parents["node-1"])
	for _, id := range []string{"node-2", "node-3", "node-4", "node-5"} {
		require.Equal(t, "node-1", parents[id], id)
	}
	for _, node := range graph.Nodes[3:] {
		require.Equal(t, 2, node.Level, node.Label)
	}
}

func TestProjectSkipsLongLinesWithoutTouchingState(t *testing.T) {
	long := strings.Repeat("w", 150)
	withLong := Project("# A\n"+long+"\n- child", "T")
	without := Project("# A\n\n- child", "T")

	require.Len(t, withLong.Nodes, 3)
	for _, node := range withLong.Nodes {
		require.NotEqual(t, "node-1", node.ID)
	}
	require.Equal(t, without, withLong)
}

func TestProjectLayout(t *testing.T) {
	graph := Project("# One\n## Two\ntext", "")

	require.Equal(t, UntitledNote, graph.Nodes[0].Label)
	require.Equal(t, Position{X: 0, Y: 0}, graph.Nodes[0].Position)
	require.Equal(t, Position{X: 250, Y: -100}, graph.Nodes[1].Position)
	require.Equal(t, Position{X: 500, Y: 0}, graph.Nodes[2].Position)
	require.Equal(t, Position{X: 750, Y: 100}, graph.Nodes[3].Position)
}

func TestProjectParentSelection(t *testing.T) {
	content := strings.Join([]string{
		"# A",      // node-0
		"## B",     // node-1
		"- b item", // node-2
		"## C",     // node-3
		"# D",      // node-4
		"### E",    // node-5
		"#### F",   // node-6
		"## G",     // node-7
	}, "\n")
	parents := edgeTargets(Project(content, "root title"))

	require.Equal(t, RootID, parents["node-0"])
	require.Equal(t, "node-0", parents["node-1"])
	require.Equal(t, "node-1", parents["node-2"])
	require.Equal(t, "node-0", parents["node-3"])
	require.Equal(t, RootID, parents["node-4"])
	require.Equal(t, "node-4", parents["node-5"])
	require.Equal(t, "node-5", parents["node-6"])
	require.Equal(t, "node-4", parents["node-7"])
}

func TestProjectHeadingWithMissingLowerLevelFallsBack(t *testing.T) {
	parents := edgeTargets(Project("### Deep\n## Shallower", ""))

	require.Equal(t, RootID, parents["node-0"])
	require.Equal(t, RootID, parents["node-1"])
}

func TestProjectEmptyContent(t *testing.T) {
	graph := Project("", "Only root")
	require.Len(t, graph.Nodes, 1)
	require.Empty(t, graph.Edges)
}

func TestProjectIsDeterministic(t *testing.T) {
	content := "# Plan\n- [ ] first\n- [x] second\n1. numbered\n---\nnote"
	require.Equal(t, Project(content, "P"), Project(content, "P"))
}
