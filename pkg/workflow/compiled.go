package workflow

// CompiledGraph is an immutable, executable graph produced by Compile.
//
// CompiledGraph is safe for concurrent use: one compiled graph serves
// every session's runs. The structure cannot be modified after
// compilation.
type CompiledGraph[S any] struct {
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string

	isConditional map[string]bool
	isTerminal    map[string]bool
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph, in no particular order.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	ids := make([]string, 0, len(cg.nodes))
	for id := range cg.nodes {
		ids = append(ids, id)
	}
	return ids
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the nodes reachable from id via simple edges.
// Returns nil for End or unknown nodes. Conditional targets are
// runtime-determined and not included.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == End {
		return nil
	}
	return cg.edges[id]
}

// IsConditional returns true if the node has a conditional edge.
func (cg *CompiledGraph[S]) IsConditional(id string) bool {
	return cg.isConditional[id]
}

// IsTerminal returns true if the node has no outgoing edges and no
// router, meaning execution stops after it runs.
func (cg *CompiledGraph[S]) IsTerminal(id string) bool {
	return cg.isTerminal[id]
}

// getNode returns the node function for the given ID.
func (cg *CompiledGraph[S]) getNode(id string) (NodeFunc[S], bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}

// getRouter returns the router function for the given node.
func (cg *CompiledGraph[S]) getRouter(id string) (RouterFunc[S], bool) {
	router, exists := cg.conditionalEdges[id]
	return router, exists
}
