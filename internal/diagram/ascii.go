package diagram

import (
	"fmt"
	"strings"
)

// kindTag returns a short ASCII marker for a node kind.
func kindTag(kind NodeKind) string {
	switch kind {
	case NodeKindTrigger:
		return "[TRIG]"
	case NodeKindDecision:
		return "[IF?]"
	case NodeKindBranch:
		return "[FORK]"
	case NodeKindMerge:
		return "[JOIN]"
	case NodeKindTerminate:
		return "[END]"
	case NodeKindWorkflow:
		return "[FLOW]"
	default:
		return ""
	}
}

// RenderASCII renders a DiagramModel as a text-based diagram using a
// level-based layout with box-drawing characters. Labeled edges are listed
// below the boxes since they cannot be drawn positionally.
func RenderASCII(model *DiagramModel) string {
	if model.Empty() {
		return "(empty workflow)\n"
	}

	var b strings.Builder

	for levelIdx, level := range model.Levels {
		var boxes []asciiBox
		for _, nodeID := range level {
			node := findNode(model.Nodes, nodeID)
			if node == nil {
				continue
			}
			boxes = append(boxes, makeBox(node))
		}

		renderBoxRow(&b, boxes)

		if levelIdx < len(model.Levels)-1 {
			renderConnector(&b, len(boxes))
		}
	}

	// Edge listing: the box layout shows levels, not individual edges.
	if len(model.Edges) > 0 {
		b.WriteString("\n")
		for _, e := range model.Edges {
			if e.Label != "" {
				b.WriteString(fmt.Sprintf("  %s ─→ %s (%s)\n", e.From, e.To, e.Label))
			} else {
				b.WriteString(fmt.Sprintf("  %s ─→ %s\n", e.From, e.To))
			}
		}
	}

	return b.String()
}

// asciiBox holds the rendered lines of a single box.
type asciiBox struct {
	lines []string
	width int
}

// makeBox creates an ASCII box for a node.
func makeBox(node *Node) asciiBox {
	var contentLines []string
	contentLines = append(contentLines, firstLine(node.Label))
	if tag := kindTag(node.Kind); tag != "" {
		contentLines = append(contentLines, tag)
	}

	maxLen := 0
	for _, line := range contentLines {
		if len(line) > maxLen {
			maxLen = len(line)
		}
	}
	width := maxLen + 4 // 2 border + 2 padding

	var lines []string
	top := "┌" + strings.Repeat("─", width-2) + "┐"
	bot := "└" + strings.Repeat("─", width-2) + "┘"
	lines = append(lines, top)
	for _, content := range contentLines {
		padded := content + strings.Repeat(" ", maxLen-len(content))
		lines = append(lines, "│ "+padded+" │")
	}
	lines = append(lines, bot)

	return asciiBox{lines: lines, width: width}
}

// firstLine returns only the first line of a multi-line label.
func firstLine(s string) string {
	if i := strings.Index(s, "\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// renderBoxRow writes boxes side by side.
func renderBoxRow(b *strings.Builder, boxes []asciiBox) {
	if len(boxes) == 0 {
		return
	}

	maxHeight := 0
	for _, box := range boxes {
		if len(box.lines) > maxHeight {
			maxHeight = len(box.lines)
		}
	}

	for row := 0; row < maxHeight; row++ {
		for i, box := range boxes {
			if i > 0 {
				b.WriteString("  ") // gap between boxes
			}
			if row < len(box.lines) {
				b.WriteString(box.lines[row])
			} else {
				b.WriteString(strings.Repeat(" ", box.width))
			}
		}
		b.WriteByte('\n')
	}
}

// renderConnector draws a vertical connector between levels.
func renderConnector(b *strings.Builder, boxCount int) {
	if boxCount == 0 {
		return
	}
	b.WriteString("       │\n")
	b.WriteString("       ▼\n")
}

// findNode looks up a node by ID in the model's node list.
func findNode(nodes []*Node, id string) *Node {
	for _, n := range nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
