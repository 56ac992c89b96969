package workflow

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for execution graphs.
// Chain AddNode, AddEdge, AddConditionalEdge, and SetEntry calls to
// declare the workflow, then call Compile to produce an immutable
// CompiledGraph that is safe to share across sessions.
//
// Graph is NOT safe for concurrent use during building. Construct it
// from a single goroutine at startup.
//
// Example:
//
//	g := workflow.NewGraph[State]().
//	    AddNode("draft-brand", draftBrand).
//	    AddNode("validate-required-fields", validate).
//	    AddEdge("draft-brand", "validate-required-fields").
//	    AddConditionalEdge("validate-required-fields", route).
//	    SetEntry("draft-brand")
//
//	compiled, err := g.Compile()
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string
}

// NewGraph creates a new graph builder for state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
	}
}

// AddNode adds a named step to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("workflow: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("workflow: node ID cannot be reserved word 'End'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("workflow: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("workflow: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("workflow: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge between two nodes.
// The target may be a node ID or workflow.End.
// Returns the graph for method chaining.
//
// Edge validation happens at Compile time, not here, so edges may be
// added in any order relative to their nodes.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge attaches a router that picks the next node at run
// time based on state. Returns the graph for method chaining.
//
// The router must return a declared node ID or workflow.End; anything
// else is a runtime RouterError. A node can have either simple edges or
// a conditional edge, not both; the conditional edge wins if both are
// present.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("workflow: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntry designates the entry point node.
// Must be called before Compile. Returns the graph for method chaining.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
