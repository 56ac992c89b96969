package workflow

// End is the terminal transition identifier.
// A router may return End to finish the run; a node with no outgoing
// edge at all is implicitly terminal.
const End = "__end__"

// Update is a partial contribution a step makes to the state.
// Steps never mutate state directly; they describe what changed and the
// executor merges it. Field-wise the merge is a shallow overwrite: set
// fields replace the stored value, unset fields are left alone.
type Update[S any] interface {
	// Apply merges the update into state and returns the result.
	Apply(state S) S

	// Payload renders the contributed fields for event reporting.
	// Only fields the step actually set should appear.
	Payload() map[string]any
}

// NodeFunc is the signature for all step functions.
// A step receives the full accumulated state and returns the partial
// update it produced. Returning a nil Update means the step contributed
// nothing this run.
//
// Example:
//
//	func draft(ctx workflow.Context, s State) (workflow.Update[State], error) {
//	    text, err := gen.GenerateText(ctx, brandPrompt(s))
//	    if err != nil {
//	        return nil, err
//	    }
//	    return &StateUpdate{BrandText: &text}, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (Update[S], error)

// RouterFunc decides the next node for a conditional edge.
// It is evaluated against the state after the source node's update has
// been merged, and must return a valid node ID or End.
type RouterFunc[S any] func(ctx Context, state S) string
