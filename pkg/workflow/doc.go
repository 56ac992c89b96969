/*
Package workflow provides graph-based orchestration for multi-turn
content-generation workflows.

# Overview

workflow is the execution core of listingflow. Named steps are arranged
in a directed graph with unconditional and conditional edges; the graph
is declared once at startup, compiled into an immutable structure, and
shared across all sessions. Each client turn runs the whole graph from
the entry point against the session's accumulated state.

Steps return partial updates rather than whole states: the executor
merges each contribution into its working state and reports it to an
observer, which is how the engine streams step-by-step progress and
decides when a turn pauses for more input.

# Basic Usage

	type State struct {
	    Input  string
	    Output string
	}

	type Produced struct{ Text string }

	func (u Produced) Apply(s State) State         { s.Output = u.Text; return s }
	func (u Produced) Payload() map[string]any     { return map[string]any{"text": u.Text} }

	func process(ctx workflow.Context, s State) (workflow.Update[State], error) {
	    return Produced{Text: "Processed: " + s.Input}, nil
	}

	g := workflow.NewGraph[State]().
	    AddNode("process", process).
	    SetEntry("process")

	compiled, err := g.Compile()
	if err != nil {
	    log.Fatal(err)
	}

	ctx := workflow.NewContext(context.Background())
	final, err := compiled.Run(ctx, State{Input: "hello"}, nil)

A node with no outgoing edge is terminal: the run stops after it
executes. Routers may also return workflow.End explicitly.

# Conditional Branching

	g.AddConditionalEdge("validate", func(ctx workflow.Context, s State) string {
	    if len(s.Missing) > 0 {
	        return "await-more-input"
	    }
	    return "generate-post"
	})

The router runs against the state after the source node's update has
been merged. Returning an unknown node ID is a runtime RouterError.

# Observing Steps

Pass a StepObserver to Run to receive every step outcome in traversal
order. The observer decides whether a failed step aborts the run or the
traversal continues with an empty contribution:

	final, err := compiled.Run(ctx, state, func(o workflow.StepOutcome[State]) workflow.Decision {
	    if o.Err != nil && !o.Terminal {
	        return workflow.Continue // degrade, don't abort
	    }
	    emit(o)
	    return workflow.Continue
	})

With a nil observer any step failure stops the run and is returned.

# Observability

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	final, err := compiled.Run(ctx, state, observe,
	    workflow.WithObservabilityLogger(logger),
	    workflow.WithMetrics(true),
	    workflow.WithTracing(true),
	    workflow.WithRunID("turn-123"))

Logs carry run_id, node_id, and duration_ms fields. OpenTelemetry
metrics: listingflow.step.executions, listingflow.step.latency_ms, and
friends. Tracing produces workflow.run > workflow.step.{id} spans.

# Thread Safety

  - Graph[S] is NOT safe for concurrent use during construction
  - CompiledGraph[S] IS safe for concurrent use (immutable)
  - Context IS safe for concurrent use

Within one Run, steps execute strictly sequentially.
*/
package workflow
