// Package graph provides the directed agent dependency graph the learner is
// built from. An arc from -> to means agent from conditions its value table
// on agent to's action; to is a successor of from.
package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeRange is returned when an arc endpoint is not an agent.
	ErrNodeRange = errors.New("node out of range")

	// ErrSelfLoop is returned for an arc from an agent to itself.
	ErrSelfLoop = errors.New("self-loop")

	// ErrDuplicateArc is returned when an arc already exists.
	ErrDuplicateArc = errors.New("duplicate arc")
)

// Arc is a directed dependency edge.
type Arc struct {
	From int `json:"from" yaml:"from"`
	To   int `json:"to" yaml:"to"`
}

// Graph is an adjacency-list digraph over agents 0..n-1. Successor lists
// keep insertion order.
type Graph struct {
	succ [][]int
}

// New creates a graph of n agents with no arcs.
func New(n int) *Graph {
	if n < 0 {
		n = 0
	}
	return &Graph{succ: make([][]int, n)}
}

// FromArcs creates a graph of n agents and adds arcs in order.
func FromArcs(n int, arcs []Arc) (*Graph, error) {
	g := New(n)
	for _, a := range arcs {
		if err := g.AddArc(a.From, a.To); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddArc appends to to from's successor list.
func (g *Graph) AddArc(from, to int) error {
	n := len(g.succ)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("arc %d->%d with %d agents: %w", from, to, n, ErrNodeRange)
	}
	if from == to {
		return fmt.Errorf("arc %d->%d: %w", from, to, ErrSelfLoop)
	}
	for _, s := range g.succ[from] {
		if s == to {
			return fmt.Errorf("arc %d->%d: %w", from, to, ErrDuplicateArc)
		}
	}
	g.succ[from] = append(g.succ[from], to)
	return nil
}

// Len returns the number of agents.
func (g *Graph) Len() int {
	return len(g.succ)
}

// Nodes returns the agent identifiers 0..n-1.
func (g *Graph) Nodes() []int {
	nodes := make([]int, len(g.succ))
	for i := range nodes {
		nodes[i] = i
	}
	return nodes
}

// Successors returns agent's successors in insertion order. The returned
// slice must not be modified.
func (g *Graph) Successors(agent int) []int {
	return g.succ[agent]
}

// OutDegree returns the number of successors of agent.
func (g *Graph) OutDegree(agent int) int {
	return len(g.succ[agent])
}

// InDegree returns the number of agents that list agent as a successor.
func (g *Graph) InDegree(agent int) int {
	count := 0
	for _, succ := range g.succ {
		for _, s := range succ {
			if s == agent {
				count++
			}
		}
	}
	return count
}

// Arcs returns every arc ordered by source agent, then insertion order.
func (g *Graph) Arcs() []Arc {
	var arcs []Arc
	for from, succ := range g.succ {
		for _, to := range succ {
			arcs = append(arcs, Arc{From: from, To: to})
		}
	}
	return arcs
}
