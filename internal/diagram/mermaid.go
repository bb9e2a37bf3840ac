package diagram

import (
	"fmt"
	"strings"
)

// emptyMermaid is the sentinel diagram emitted for a definition with no
// renderable steps.
const emptyMermaid = "graph TD\n    empty((\"Empty Workflow\"))\n"

// RenderMermaid renders a DiagramModel as a Mermaid flowchart string.
// Output is byte-deterministic for a given model: nodes in discovery order,
// then edges in discovery order, then the fixed style block.
func RenderMermaid(model *DiagramModel) string {
	if model.Empty() {
		return emptyMermaid
	}

	var b strings.Builder
	b.WriteString("graph TD\n")

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    %s\n", mermaidNodeDef(node)))
	}

	for _, edge := range model.Edges {
		label := ""
		if edge.Label != "" {
			label = fmt.Sprintf("|%s|", mermaidEscapeLabel(edge.Label))
		}
		b.WriteString(fmt.Sprintf("    %s -->%s %s\n", edge.From, label, edge.To))
	}

	// Style classes keyed by step type.
	b.WriteString("\n")
	b.WriteString("    classDef trigger fill:#1a5276,stroke:#0e3a52,color:#fff\n")
	b.WriteString("    classDef decision fill:#b7791a,stroke:#8a5c14,color:#fff\n")
	b.WriteString("    classDef branch fill:#6c3483,stroke:#4a235a,color:#fff\n")
	b.WriteString("    classDef merge fill:#2d6a2d,stroke:#1a4a1a,color:#fff\n")
	b.WriteString("    classDef terminate fill:#8b1a1a,stroke:#5c0e0e,color:#fff\n")
	b.WriteString("    classDef workflow fill:#1a6b6b,stroke:#0e4a4a,color:#fff\n")
	b.WriteString("    classDef step fill:#6b6b6b,stroke:#4a4a4a,color:#fff\n")

	for _, node := range model.Nodes {
		b.WriteString(fmt.Sprintf("    class %s %s\n", node.ID, mermaidClass(node.Kind)))
	}

	return b.String()
}

// mermaidNodeDef returns a Mermaid node definition with the shape for its
// kind. Each kind has a distinct marker; unknown kinds use the rectangle.
func mermaidNodeDef(node *Node) string {
	label := mermaidEscapeLabel(node.Label)
	switch node.Kind {
	case NodeKindTrigger:
		return fmt.Sprintf("%s([%q])", node.ID, label)
	case NodeKindDecision:
		return fmt.Sprintf("%s{%q}", node.ID, label)
	case NodeKindBranch:
		return fmt.Sprintf("%s{{%q}}", node.ID, label)
	case NodeKindMerge:
		return fmt.Sprintf("%s[\\%q/]", node.ID, label)
	case NodeKindTerminate:
		return fmt.Sprintf("%s((%q))", node.ID, label)
	case NodeKindWorkflow:
		return fmt.Sprintf("%s[[%q]]", node.ID, label)
	default:
		return fmt.Sprintf("%s[%q]", node.ID, label)
	}
}

// mermaidClass maps a node kind to its style class name.
func mermaidClass(kind NodeKind) string {
	switch kind {
	case NodeKindTrigger:
		return "trigger"
	case NodeKindDecision:
		return "decision"
	case NodeKindBranch:
		return "branch"
	case NodeKindMerge:
		return "merge"
	case NodeKindTerminate:
		return "terminate"
	case NodeKindWorkflow:
		return "workflow"
	default:
		return "step"
	}
}

// mermaidEscapeLabel strips characters that break Mermaid label syntax.
func mermaidEscapeLabel(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "|", "/")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
