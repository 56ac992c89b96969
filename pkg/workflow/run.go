package workflow

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/rovista/listingflow/pkg/workflow/observability"
)

// Decision tells the executor whether to keep traversing after a step.
type Decision int

// Observer decisions.
const (
	// Continue proceeds to the next node.
	Continue Decision = iota
	// Stop ends the run after the current step.
	Stop
)

// StepOutcome describes one completed step to the observer.
type StepOutcome[S any] struct {
	// Node is the step that just executed.
	Node string
	// Update is the step's partial contribution, nil if the step failed
	// or contributed nothing.
	Update Update[S]
	// Err is the step failure, if any. Step failures do not abort the
	// run by themselves; the observer decides.
	Err error
	// State is the working state after merging Update.
	State S
	// Terminal is true when execution stops after this step.
	Terminal bool
	// Next is the node that will execute next, or End.
	Next string
}

// StepObserver receives every step outcome in traversal order and
// decides whether the run continues. A nil observer applies the default
// policy: stop and return the error on any step failure.
type StepObserver[S any] func(StepOutcome[S]) Decision

// Run executes the graph from its entry point against the given state.
// Returns the final working state and any execution-level error.
//
// Each step receives the full accumulated state and returns a partial
// update which the executor merges before following an edge. Step
// failures are surfaced through the observer (soft by default policy of
// the caller); routing failures, cancellation, and the iteration guard
// end the run with an error.
//
// Execution is strictly sequential: one node at a time, outcomes
// observed in graph-traversal order.
func (cg *CompiledGraph[S]) Run(ctx Context, state S, observe StepObserver[S], opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	var execCtx context.Context = ctx
	var runSpan trace.Span
	if cfg.tracingEnabled {
		execCtx, runSpan = cfg.spans.StartRunSpan(ctx, "workflow", runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var stepCount int
	result, stepCount, runErr = cg.runSteps(execCtx, ctx, state, observe, &cfg)

	duration := time.Since(startTime)
	cfg.metrics.RecordRun(ctx, runErr == nil, duration)

	if runErr != nil {
		lastNode := ""
		switch e := runErr.(type) {
		case *NodeError:
			lastNode = e.NodeID
		case *MaxIterationsError:
			lastNode = e.LastNodeID
		case *CancellationError:
			lastNode = e.NodeID
		case *RouterError:
			lastNode = e.FromNode
		}
		observability.LogRunError(cfg.logger, runID, runErr, float64(duration.Milliseconds()), lastNode)
	} else {
		observability.LogRunComplete(cfg.logger, runID, float64(duration.Milliseconds()), stepCount)
	}

	return result, runErr
}

// runSteps is the traversal loop. tracingCtx carries span context; wfCtx
// is the workflow Context handed to steps.
func (cg *CompiledGraph[S]) runSteps(tracingCtx context.Context, wfCtx Context, state S, observe StepObserver[S], cfg *runConfig) (S, int, error) {
	current := cg.entryPoint
	iterations := 0
	stepCount := 0

	for current != End {
		iterations++
		if iterations > cfg.maxIterations {
			return state, stepCount, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
			}
		}

		select {
		case <-wfCtx.Done():
			return state, stepCount, &CancellationError{
				NodeID: current,
				Cause:  wfCtx.Err(),
			}
		default:
		}

		observability.LogStepStart(cfg.logger, current)

		stepTracingCtx := tracingCtx
		var stepSpan trace.Span
		if cfg.tracingEnabled {
			stepTracingCtx, stepSpan = cfg.spans.StartStepSpan(tracingCtx, current)
		}

		stepStart := time.Now()
		update, stepErr := cg.executeNode(wfCtx, current, state)
		stepDuration := time.Since(stepStart)

		cfg.metrics.RecordStepExecution(stepTracingCtx, current, stepDuration, stepErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(stepSpan, stepErr)
		}

		if stepErr != nil {
			observability.LogStepError(cfg.logger, current, stepErr)
		} else {
			observability.LogStepComplete(cfg.logger, current, float64(stepDuration.Milliseconds()))
			if update != nil {
				state = update.Apply(state)
			}
		}
		stepCount++

		next, err := cg.nextNode(wfCtx, state, current)
		if err != nil {
			return state, stepCount, err
		}

		outcome := StepOutcome[S]{
			Node:     current,
			Update:   update,
			Err:      stepErr,
			State:    state,
			Terminal: next == End,
			Next:     next,
		}

		if observe == nil {
			if stepErr != nil {
				return state, stepCount, stepErr
			}
		} else if observe(outcome) == Stop {
			return state, stepCount, nil
		}

		current = next
	}

	return state, stepCount, nil
}

// executeNode executes a single step with panic recovery.
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result Update[S], err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		// Unreachable if compilation succeeded.
		return nil, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	nodeCtx := ctx
	if ec, ok := ctx.(*executionContext); ok {
		nodeCtx = ec.withNodeID(nodeID)
	}

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return nil, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the step after current. Conditional edges win over
// simple edges; a node with neither is terminal.
func (cg *CompiledGraph[S]) nextNode(ctx Context, state S, current string) (string, error) {
	if router, exists := cg.getRouter(current); exists {
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withNodeID(current)
		}

		next := router(routerCtx, state)

		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidRouterResult,
			}
		}

		if next != End {
			if _, exists := cg.getNode(next); !exists {
				return "", &RouterError{
					FromNode: current,
					Returned: next,
					Err:      ErrRouterTargetNotFound,
				}
			}
		}

		return next, nil
	}

	edges := cg.edges[current]
	if len(edges) == 0 {
		// Implicitly terminal.
		return End, nil
	}

	// Simple edges are single-successor; take the first.
	return edges[0], nil
}
