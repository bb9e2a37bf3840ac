package diagram

import (
	"fmt"
	"strings"

	"github.com/loomworks/loom/pkg/schema"
)

// edge labels by edge kind; next entries are unlabeled.
const (
	labelCriteriaMet = "Criteria Met"
	labelOtherwise   = "Otherwise"
	labelDefault     = "default"
	labelError       = "error"
	labelTimeout     = "timeout"
)

// flattenWalk threads node and edge collection through the DFS so the
// algorithm has no shared state and stays testable in isolation.
type flattenWalk struct {
	model *DiagramModel
	nodes map[string]*Node // keyed by sanitized id

	// visiting guards against unbounded recursion through inline cycles:
	// re-entering an inline step on the current stack emits the edge only,
	// matching by-id reference behavior. done keeps a step walked twice via
	// shared pointers from emitting its edges twice.
	visiting map[*schema.Step]bool
	done     map[*schema.Step]bool
}

// Flatten walks a WorkflowDefinition depth-first from every root step and
// produces the node/edge model. Steps without an id are silently skipped.
// By-id edge targets are never recursed into: the referenced node appears
// only if its step is defined as a root or inline step somewhere.
func Flatten(def *schema.WorkflowDefinition) *DiagramModel {
	w := &flattenWalk{
		model:    &DiagramModel{},
		nodes:    make(map[string]*Node),
		visiting: make(map[*schema.Step]bool),
		done:     make(map[*schema.Step]bool),
	}
	if def != nil {
		for i := range def.Steps {
			w.visit(&def.Steps[i])
		}
	}
	w.model.Levels = buildLevels(w.model)
	return w.model
}

func (w *flattenWalk) visit(step *schema.Step) {
	if step.ID == "" {
		return
	}
	if w.visiting[step] || w.done[step] {
		return
	}
	w.visiting[step] = true
	defer func() {
		delete(w.visiting, step)
		w.done[step] = true
	}()

	from := w.register(step)

	for i := range step.Next {
		w.edge(from, step.Next[i], "")
	}
	if step.OnConditionPass != nil {
		w.edge(from, *step.OnConditionPass, labelCriteriaMet)
	}
	if step.OnConditionFail != nil {
		w.edge(from, *step.OnConditionFail, labelOtherwise)
	}
	for i := range step.Conditions {
		w.edge(from, step.Conditions[i].Next, valueLabel(step.Conditions[i].Value))
	}
	if step.DefaultNext != nil {
		w.edge(from, *step.DefaultNext, labelDefault)
	}
	if step.OnError != nil {
		w.edge(from, *step.OnError, labelError)
	}
	if step.OnTimeout != nil {
		w.edge(from, *step.OnTimeout, labelTimeout)
	}
}

// register adds the step as a node on first discovery and returns its
// sanitized id.
func (w *flattenWalk) register(step *schema.Step) string {
	sid := SanitizeID(step.ID)
	if _, ok := w.nodes[sid]; !ok {
		node := &Node{
			ID:    sid,
			Label: step.DisplayLabel(),
			Kind:  kindForType(step.Type),
		}
		w.nodes[sid] = node
		w.model.Nodes = append(w.model.Nodes, node)
	}
	return sid
}

// edge emits one edge and recurses into inline targets. Targets without an
// id produce nothing.
func (w *flattenWalk) edge(from string, ref schema.StepRef, label string) {
	target := ref.TargetID()
	if target == "" {
		return
	}
	w.model.Edges = append(w.model.Edges, Edge{
		From:  from,
		To:    SanitizeID(target),
		Label: label,
	})
	if ref.Inline != nil {
		w.visit(ref.Inline)
	}
}

// kindForType maps a step type to its diagram node kind. Unknown types fall
// back to the default shape.
func kindForType(t schema.StepType) NodeKind {
	switch t {
	case schema.StepTypeTrigger:
		return NodeKindTrigger
	case schema.StepTypeDecision:
		return NodeKindDecision
	case schema.StepTypeBranch:
		return NodeKindBranch
	case schema.StepTypeMerge:
		return NodeKindMerge
	case schema.StepTypeTerminate:
		return NodeKindTerminate
	case schema.StepTypeWorkflow:
		return NodeKindWorkflow
	default:
		return NodeKindDefault
	}
}

// valueLabel renders a condition value as an edge label.
func valueLabel(v any) string {
	return fmt.Sprintf("%v", v)
}

// SanitizeID converts a step id into a diagram-safe identifier: characters
// outside [A-Za-z0-9_] become underscores, under a stable prefix so
// identifiers never begin with a digit.
func SanitizeID(id string) string {
	var b strings.Builder
	b.Grow(len(id) + 2)
	b.WriteString("n_")
	for _, r := range id {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// buildLevels assigns each registered node a depth by BFS over the edge list,
// for the level-based ASCII layout. Nodes never reached by an edge sit at
// level 0. Cycles are safe: a node is assigned once.
func buildLevels(model *DiagramModel) [][]string {
	if len(model.Nodes) == 0 {
		return nil
	}

	registered := make(map[string]bool, len(model.Nodes))
	for _, n := range model.Nodes {
		registered[n.ID] = true
	}

	incoming := make(map[string]int)
	out := make(map[string][]string)
	for _, e := range model.Edges {
		if !registered[e.From] || !registered[e.To] {
			continue
		}
		incoming[e.To]++
		out[e.From] = append(out[e.From], e.To)
	}

	depth := make(map[string]int, len(model.Nodes))
	var queue []string
	for _, n := range model.Nodes {
		if incoming[n.ID] == 0 {
			depth[n.ID] = 0
			queue = append(queue, n.ID)
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range out[id] {
			if _, seen := depth[next]; !seen {
				depth[next] = depth[id] + 1
				queue = append(queue, next)
			}
		}
	}

	max := 0
	for _, n := range model.Nodes {
		if d, ok := depth[n.ID]; ok && d > max {
			max = d
		}
	}
	levels := make([][]string, max+1)
	for _, n := range model.Nodes {
		d := depth[n.ID] // nodes inside cycles default to 0
		levels[d] = append(levels[d], n.ID)
	}
	return levels
}
