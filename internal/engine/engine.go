// Package engine runs one conversation turn: merge the caller's partial
// input into the session, execute the content graph from its entry
// point against the full accumulated state, and stream events back.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rovista/listingflow/internal/content"
	"github.com/rovista/listingflow/internal/history"
	"github.com/rovista/listingflow/internal/session"
	"github.com/rovista/listingflow/pkg/workflow"
)

// ErrSessionNotFound indicates a turn was requested for a session that
// was never created, or that has been deleted. Hard stop: no graph run.
var ErrSessionNotFound = session.ErrNotFound

// Engine executes turns against the shared compiled graph.
// Safe for concurrent use; turns for the same session are serialized by
// the session store's run lock.
type Engine struct {
	graph    *workflow.CompiledGraph[content.State]
	sessions *session.Store
	history  history.Store
	logger   *slog.Logger
	metrics  bool
	tracing  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHistory enables turn-record persistence.
func WithHistory(store history.Store) Option {
	return func(e *Engine) {
		e.history = store
	}
}

// WithMetrics enables OpenTelemetry metrics for graph runs.
func WithMetrics(enabled bool) Option {
	return func(e *Engine) {
		e.metrics = enabled
	}
}

// WithTracing enables OpenTelemetry tracing for graph runs.
func WithTracing(enabled bool) Option {
	return func(e *Engine) {
		e.tracing = enabled
	}
}

// New creates an Engine over a compiled graph and a session store.
func New(graph *workflow.CompiledGraph[content.State], sessions *session.Store, opts ...Option) *Engine {
	e := &Engine{
		graph:    graph,
		sessions: sessions,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunTurn executes one turn for the session: merges the caller's
// partial update into the accumulated state, then traverses the graph
// from the entry point, emitting one step-update per completed step.
//
// The turn ends in one of three ways: an input-request when validation
// finds required fields missing (no final event), exactly one final
// event when a terminal step is reached (a terminal step's failure is
// folded into the final event), or an error return for hard stops.
// Non-terminal step failures are soft: one error event, then the run
// continues with an empty contribution.
//
// Turns for the same session never interleave; a second message for a
// session blocks behind the in-flight turn.
func (e *Engine) RunTurn(ctx context.Context, sessionID string, update content.Update, sink EventSink) error {
	turn, err := e.sessions.BeginTurn(sessionID)
	if err != nil {
		sink(errorEvent("no session established - connect before sending messages"))
		return fmt.Errorf("run turn: %w", ErrSessionNotFound)
	}
	defer turn.End()

	return e.runTurn(ctx, turn, sessionID, update, sink)
}

// runTurn executes the turn body once the run lock is held. All state
// merges go through the turn, so a stale turn whose session was deleted
// (and possibly recreated by a reconnect) can never write into another
// session incarnation.
func (e *Engine) runTurn(ctx context.Context, turn *session.Turn, sessionID string, update content.Update, sink EventSink) error {
	state, err := turn.Merge(update)
	if err != nil {
		sink(errorEvent("session ended - no further turns will run"))
		return fmt.Errorf("run turn: %w", ErrSessionNotFound)
	}

	runID := uuid.New().String()
	wfCtx := workflow.NewContext(ctx,
		workflow.WithLogger(e.logger),
		workflow.WithContextRunID(runID))

	var (
		endedAt string // node where the turn ended
		aborted bool   // session vanished mid-run; go silent
	)

	finalState, runErr := e.graph.Run(wfCtx, state, func(o workflow.StepOutcome[content.State]) workflow.Decision {
		if o.Err != nil {
			if o.Terminal {
				// A terminal step's failure is the turn's outcome, not a
				// separate error event.
				endedAt = o.Node
				sink(finalEvent(o.Node, fmt.Sprintf("%s failed: %v", o.Node, o.Err),
					map[string]any{"status": content.StatusFailed}))
				return workflow.Stop
			}
			sink(errorEvent(fmt.Sprintf("%s failed: %v", o.Node, o.Err)))
			return workflow.Continue
		}

		if o.Update != nil {
			// Persist every step's output as it is produced, so a paused
			// turn keeps everything merged so far.
			if upd, ok := o.Update.(content.Update); ok && !upd.IsZero() {
				if _, err := turn.Merge(upd); err != nil {
					aborted = true
					return workflow.Stop
				}
			}
			sink(stepUpdate(o.Node, o.Update.Payload()))
		}

		if o.Node == content.NodeValidate && len(o.State.Missing) > 0 {
			endedAt = o.Node
			sink(inputRequest(o.Node, content.FieldNames(o.State.Missing)))
			return workflow.Stop
		}

		if o.Terminal {
			endedAt = o.Node
			sink(e.terminalEvent(o.Node, o.State))
		}

		return workflow.Continue
	},
		workflow.WithRunID(runID),
		workflow.WithObservabilityLogger(e.logger),
		workflow.WithMetrics(e.metrics),
		workflow.WithTracing(e.tracing),
	)

	if aborted {
		// Session deleted while running; late events are dropped, the
		// partial work is discarded with it.
		e.logger.Debug("turn abandoned, session deleted mid-run",
			slog.String("session_id", sessionID),
			slog.String("run_id", runID))
		return nil
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
			return runErr
		}
		sink(errorEvent(runErr.Error()))
		return runErr
	}

	e.recordTurn(sessionID, runID, endedAt, finalState)
	return nil
}

// terminalEvent shapes the final event for a successfully reached
// terminal step.
func (e *Engine) terminalEvent(node string, s content.State) Event {
	switch node {
	case content.NodePublish, content.NodeAnnouncePreview:
		data := map[string]any{"post_text": s.PostText}
		message := "turn complete"
		if s.Publish != nil {
			message = s.Publish.Message
			data["status"] = s.Publish.Status
			if s.Publish.PostID != "" {
				data["post_id"] = s.Publish.PostID
			}
			if s.Publish.URL != "" {
				data["url"] = s.Publish.URL
			}
		}
		return finalEvent(node, message, data)
	default:
		return finalEvent(node, "turn complete", nil)
	}
}

// recordTurn appends the turn to the history trail. Best effort: a
// failed append is logged and the turn still succeeds.
func (e *Engine) recordTurn(sessionID, runID, terminal string, s content.State) {
	if e.history == nil {
		return
	}

	snapshot, err := json.Marshal(s)
	if err != nil {
		e.logger.Warn("turn record serialization failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		return
	}

	rec := history.Record{
		SessionID: sessionID,
		RunID:     runID,
		Terminal:  terminal,
		State:     snapshot,
	}
	if err := e.history.Append(rec); err != nil {
		e.logger.Warn("turn record append failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
	}
}
