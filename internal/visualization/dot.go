// Package visualization renders agent graphs and reward curves in various
// output formats.
package visualization

import (
	"fmt"
	"strings"

	"github.com/IrisYanfGuo/exam/internal/graph"
	"github.com/IrisYanfGuo/exam/internal/ljal"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// Valid reports whether f is a supported graph format.
func (f Format) Valid() bool {
	return f == FormatDOT || f == FormatJSON
}

// nodeColors maps learner roles to DOT colors.
var nodeColors = map[string]string{
	"independent": "lightgray",
	"joint":       "steelblue",
}

// role is "joint" for agents that condition on successors, "independent"
// otherwise.
func role(g *graph.Graph, agent int) string {
	if g.OutDegree(agent) > 0 {
		return "joint"
	}
	return "independent"
}

// tableShape returns the dimensions of agent's value table, with cols -1
// when the context space overflows.
func tableShape(g *graph.Graph, agent, actions int) (rows, cols int) {
	return actions, ljal.ContextSize(actions, g.OutDegree(agent))
}

// RenderDOT produces a Graphviz DOT representation of the agent graph. Each
// node is labelled with its value-table shape for the given action count.
func RenderDOT(g *graph.Graph, actions int) string {
	var b strings.Builder
	b.WriteString("digraph ljal {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, agent := range g.Nodes() {
		rows, cols := tableShape(g, agent, actions)
		label := fmt.Sprintf("agent %d\\nQ %dx%d", agent, rows, cols)
		fmt.Fprintf(&b, "  a%d [label=\"%s\", fillcolor=%q, tooltip=%q];\n",
			agent, label, nodeColors[role(g, agent)], role(g, agent))
	}
	b.WriteString("\n")

	for _, arc := range g.Arcs() {
		fmt.Fprintf(&b, "  a%d -> a%d;\n", arc.From, arc.To)
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON-ready graph representation with nodes and
// edges arrays.
func RenderJSON(g *graph.Graph, actions int) map[string]interface{} {
	nodes := make([]map[string]interface{}, 0, g.Len())
	for _, agent := range g.Nodes() {
		rows, cols := tableShape(g, agent, actions)
		nodes = append(nodes, map[string]interface{}{
			"id":         agent,
			"role":       role(g, agent),
			"successors": append([]int{}, g.Successors(agent)...),
			"out_degree": g.OutDegree(agent),
			"in_degree":  g.InDegree(agent),
			"rows":       rows,
			"cols":       cols,
		})
	}

	edges := make([]map[string]interface{}, 0)
	for _, arc := range g.Arcs() {
		edges = append(edges, map[string]interface{}{
			"source": arc.From,
			"target": arc.To,
		})
	}

	return map[string]interface{}{
		"nodes": nodes,
		"edges": edges,
	}
}
