package diagram

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

// RenderImage renders a DiagramModel as a PNG image using graphviz.
// Returns the PNG bytes. Dangling edge targets get a plain placeholder node
// so every emitted edge is drawn.
func RenderImage(model *DiagramModel) ([]byte, error) {
	ctx := context.Background()

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("diagram: create graphviz: %w", err)
	}
	defer gv.Close()

	gv.SetLayout(graphviz.DOT)

	graph, err := gv.Graph()
	if err != nil {
		return nil, fmt.Errorf("diagram: create graph: %w", err)
	}
	defer graph.Close()

	graph.SetRankDir(cgraph.TBRank)

	gvNodes := make(map[string]*cgraph.Node, len(model.Nodes))
	for _, node := range model.Nodes {
		gvNode, nErr := graph.CreateNodeByName(node.ID)
		if nErr != nil {
			return nil, fmt.Errorf("diagram: create node %s: %w", node.ID, nErr)
		}
		gvNode.SetLabel(firstLine(node.Label))
		applyNodeStyle(gvNode, node.Kind)
		gvNodes[node.ID] = gvNode
	}

	for _, edge := range model.Edges {
		fromGV := gvNodes[edge.From]
		if fromGV == nil {
			continue
		}
		toGV := gvNodes[edge.To]
		if toGV == nil {
			// By-id reference to a step defined nowhere: placeholder node.
			placeholder, nErr := graph.CreateNodeByName(edge.To)
			if nErr != nil {
				continue
			}
			placeholder.SetStyle(cgraph.DashedNodeStyle)
			gvNodes[edge.To] = placeholder
			toGV = placeholder
		}
		e, eErr := graph.CreateEdgeByName("", fromGV, toGV)
		if eErr == nil && edge.Label != "" {
			e.SetLabel(edge.Label)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.PNG, &buf); err != nil {
		return nil, fmt.Errorf("diagram: render PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// applyNodeStyle sets graphviz shape and color attributes for a node kind.
func applyNodeStyle(gvNode *cgraph.Node, kind NodeKind) {
	gvNode.SetStyle(cgraph.FilledNodeStyle)
	switch kind {
	case NodeKindTrigger:
		gvNode.SetShape(cgraph.EllipseShape)
		gvNode.SetFillColor("#1a5276")
		gvNode.SetFontColor("white")
	case NodeKindDecision:
		gvNode.SetShape(cgraph.DiamondShape)
		gvNode.SetFillColor("#b7791a")
		gvNode.SetFontColor("white")
	case NodeKindBranch:
		gvNode.SetShape(cgraph.HexagonShape)
		gvNode.SetFillColor("#6c3483")
		gvNode.SetFontColor("white")
	case NodeKindMerge:
		gvNode.SetShape(cgraph.TrapeziumShape)
		gvNode.SetFillColor("#2d6a2d")
		gvNode.SetFontColor("white")
	case NodeKindTerminate:
		gvNode.SetShape(cgraph.CircleShape)
		gvNode.SetFillColor("#8b1a1a")
		gvNode.SetFontColor("white")
		gvNode.SetWidth(0.6)
		gvNode.SetHeight(0.6)
	case NodeKindWorkflow:
		gvNode.SetShape(cgraph.Box3DShape)
		gvNode.SetFillColor("#1a6b6b")
		gvNode.SetFontColor("white")
	default:
		gvNode.SetShape(cgraph.BoxShape)
		gvNode.SetFillColor("#d3d3d3")
		gvNode.SetFontColor("black")
	}
}
