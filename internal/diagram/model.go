// Package diagram flattens workflow definitions into a renderer-neutral
// model and renders it as Mermaid text, ASCII, or a PNG image. Rendering is
// best-effort visualization, never a validation gate: malformed steps are
// skipped, not failed.
package diagram

// NodeKind classifies a diagram node by its workflow step type.
type NodeKind string

const (
	NodeKindTrigger   NodeKind = "trigger"
	NodeKindDecision  NodeKind = "decision"
	NodeKindBranch    NodeKind = "branch"
	NodeKindMerge     NodeKind = "merge"
	NodeKindTerminate NodeKind = "terminate"
	NodeKindWorkflow  NodeKind = "workflow"
	NodeKindDefault   NodeKind = "default"
)

// DiagramModel is the intermediate representation used by all renderers.
// Nodes are in first-discovery order and Edges in discovery order, so output
// is deterministic for a given definition.
type DiagramModel struct {
	Nodes  []*Node
	Edges  []Edge
	Levels [][]string
}

// Node represents a single step in the diagram, keyed by sanitized id.
type Node struct {
	ID    string // sanitized identifier
	Label string
	Kind  NodeKind
}

// Edge is a directed, optionally labeled connection between two nodes.
// From and To are sanitized identifiers; To may name a node that was never
// registered (a dangling by-id reference), which renderers draw as a plain
// placeholder.
type Edge struct {
	From  string
	To    string
	Label string
}

// Empty reports whether the model contains nothing to draw.
func (m *DiagramModel) Empty() bool {
	return len(m.Nodes) == 0 && len(m.Edges) == 0
}
