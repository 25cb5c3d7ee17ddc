package mindmap

import "fmt"

const (
	RootID       = "root"
	UntitledNote = "Untitled Note"

	EdgeType   = "smoothstep"
	EdgeMarker = "arrowclosed"

	originX = 250
	originY = -200
	xOffset = 250
	yOffset = 100
)

// Position is a layout coordinate.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Node is one vertex of the projected tree. Kind is empty for the root.
type Node struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Kind     Kind     `json:"kind,omitempty"`
	Level    int      `json:"level"`
	Position Position `json:"position"`
}

// Edge links a parent node to a child node.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Marker string `json:"marker"`
}

// Graph is the projection of one note.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Project classifies content and builds its graph.
func Project(content, title string) Graph {
	return Build(ClassifyContent(content), title)
}

// Build turns classified lines into a tree rooted at a node labeled with title.
// Line indexes become node ids, so lines must be passed in content order.
// Only headings advance the current level. List items and paragraphs sit one
// level below the current heading and become siblings under it, so consecutive
// list items never chain into one another.
func Build(lines []Line, title string) Graph {
	rootLabel := title
	if rootLabel == "" {
		rootLabel = UntitledNote
	}
	graph := Graph{
		Nodes: []Node{{ID: RootID, Label: rootLabel}},
		Edges: []Edge{},
	}

	lastAtLevel := map[int]string{0: RootID}
	current := 0

	for index, line := range lines {
		if !line.ProducesNode() {
			continue
		}

		level := current + 1
		if line.Kind == KindHeading {
			level = line.Level
		}

		var parent string
		if level > current {
			parent = lastAtLevel[current]
		} else {
			parent = nearestBelow(lastAtLevel, level)
		}

		id := fmt.Sprintf("node-%d", index)
		graph.Nodes = append(graph.Nodes, Node{
			ID:    id,
			Label: CleanLabel(line.Text),
			Kind:  line.Kind,
			Level: level,
			Position: Position{
				X: originX + (level-1)*xOffset,
				Y: originY + len(graph.Nodes)*yOffset,
			},
		})
		graph.Edges = append(graph.Edges, Edge{
			ID:     fmt.Sprintf("edge-%s-%s", parent, id),
			Source: parent,
			Target: id,
			Type:   EdgeType,
			Marker: EdgeMarker,
		})

		lastAtLevel[level] = id
		if line.Kind == KindHeading {
			current = level
		}
	}
	return graph
}

// nearestBelow returns the last node recorded at the closest populated level
// under level. Level 0 always holds the root.
func nearestBelow(lastAtLevel map[int]string, level int) string {
	for candidate := level - 1; candidate > 0; candidate-- {
		if id, ok := lastAtLevel[candidate]; ok {
			return id
		}
	}
	return RootID
}
