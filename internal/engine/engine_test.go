package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovista/listingflow/internal/content"
	"github.com/rovista/listingflow/internal/gen"
	"github.com/rovista/listingflow/internal/history"
	"github.com/rovista/listingflow/internal/session"
)

// scriptedText generates text via a script function; the default echoes
// a canned reply per call.
type scriptedText struct {
	script func(call int, prompt string) (string, error)
	calls  int
}

func (f *scriptedText) GenerateText(_ context.Context, _, prompt string) (string, error) {
	call := f.calls
	f.calls++
	if f.script != nil {
		return f.script(call, prompt)
	}
	return "generated text", nil
}

type staticImage struct{}

func (staticImage) GenerateImage(_ context.Context, _ string) (string, error) {
	return "assets/hero.png", nil
}

type scriptedPublisher struct {
	outcome *gen.PublishOutcome
	err     error
	calls   int
}

func (f *scriptedPublisher) Publish(_ context.Context, _ gen.PublishRequest) (*gen.PublishOutcome, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &gen.PublishOutcome{OK: true, Message: "posted", PostID: "p-1", URL: "https://social.example/p-1"}, nil
}

// harness bundles a wired engine with its collaborators and a sink.
type harness struct {
	engine   *Engine
	sessions *session.Store
	history  *history.MemoryStore
	text     *scriptedText
	pub      *scriptedPublisher

	events []Event
}

func newHarness(t *testing.T, visualAssets bool) *harness {
	t.Helper()

	h := &harness{
		text:     &scriptedText{},
		pub:      &scriptedPublisher{},
		sessions: session.NewStore(),
		history:  history.NewMemoryStore(),
	}

	graph, err := content.BuildGraph(&content.Steps{
		Text:        h.text,
		Image:       staticImage{},
		Publisher:   h.pub,
		Destination: "facebook",
	}, content.Flags{VisualAssets: visualAssets})
	require.NoError(t, err)

	h.engine = New(graph, h.sessions, WithHistory(h.history))
	return h
}

func (h *harness) sink(ev Event) {
	h.events = append(h.events, ev)
}

func (h *harness) eventTypes() []EventType {
	types := make([]EventType, len(h.events))
	for i, ev := range h.events {
		types[i] = ev.Type
	}
	return types
}

func (h *harness) lastEvent() Event {
	return h.events[len(h.events)-1]
}

// completeDetails supplies every required field.
func completeDetails(shouldPublish bool) content.Update {
	return content.DetailsUpdate("Andheri West", "2.5Cr", "3", "pool, gym", shouldPublish)
}

// TestRunTurn_UnknownSession tests the hard stop before any graph work.
func TestRunTurn_UnknownSession(t *testing.T) {
	h := newHarness(t, false)

	err := h.engine.RunTurn(context.Background(), "ghost", content.StartUpdate("3BHK in Andheri"), h.sink)

	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.Len(t, h.events, 1)
	assert.Equal(t, EventError, h.events[0].Type)
	assert.Contains(t, h.events[0].Message, "no session established")
}

// TestRunTurn_IncompleteInput_PausesWithInputRequest tests the opening
// turn of the reference conversation: free text only, every structured
// field still missing.
func TestRunTurn_IncompleteInput_PausesWithInputRequest(t *testing.T) {
	h := newHarness(t, true)
	h.sessions.Create("s-1", "agent-1")

	err := h.engine.RunTurn(context.Background(), "s-1", content.StartUpdate("3BHK in Andheri"), h.sink)
	require.NoError(t, err)

	assert.Equal(t, []EventType{
		EventStepUpdate, // draft-brand
		EventStepUpdate, // draft-visual-prompt
		EventStepUpdate, // generate-image
		EventStepUpdate, // validate-required-fields
		EventInputRequest,
	}, h.eventTypes())

	request := h.lastEvent()
	assert.Equal(t, content.NodeValidate, request.Step)
	assert.Equal(t, []string{"location", "price", "bedrooms", "features"}, request.Fields)

	// Generated content is already persisted for the next turn.
	v, ok := h.sessions.Get("s-1")
	require.True(t, ok)
	assert.Equal(t, "generated text", v.State.BrandText)
	assert.Equal(t, "assets/hero.png", v.State.ImageRef)
}

// TestRunTurn_PartialDetails_RequestsOnlyRemaining tests that a second
// incomplete turn lists only the fields still missing.
func TestRunTurn_PartialDetails_RequestsOnlyRemaining(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		content.StartUpdate("3BHK in Andheri"), h.sink))

	h.events = nil
	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		content.DetailsUpdate("Andheri West", "2.5Cr", "", "", false), h.sink))

	request := h.lastEvent()
	require.Equal(t, EventInputRequest, request.Type)
	assert.Equal(t, []string{"bedrooms", "features"}, request.Fields)
}

// TestRunTurn_CompleteDetails_PublishesAndFinalizes tests the closing
// turn: full details with auto-publish, rerun from the entry, exactly
// one final event.
func TestRunTurn_CompleteDetails_PublishesAndFinalizes(t *testing.T) {
	h := newHarness(t, true)
	h.sessions.Create("s-1", "agent-1")

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		content.StartUpdate("3BHK in Andheri"), h.sink))

	h.events = nil
	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		completeDetails(true), h.sink))

	assert.Equal(t, []EventType{
		EventStepUpdate, // draft-brand
		EventStepUpdate, // draft-visual-prompt
		EventStepUpdate, // generate-image
		EventStepUpdate, // validate-required-fields
		EventStepUpdate, // generate-post
		EventStepUpdate, // publish
		EventFinal,
	}, h.eventTypes())

	final := h.lastEvent()
	assert.Equal(t, content.NodePublish, final.Step)
	assert.Equal(t, content.StatusPublished, final.Data["status"])
	assert.Equal(t, "p-1", final.Data["post_id"])
	assert.Equal(t, "generated text", final.Data["post_text"])
	assert.Equal(t, 1, h.pub.calls)
}

// TestRunTurn_NoAutoPublish_Previews tests that shouldPublish=false
// keeps the post inside the process.
func TestRunTurn_NoAutoPublish_Previews(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		content.StartUpdate("2BHK in Pune"), h.sink))
	h.events = nil

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		completeDetails(false), h.sink))

	final := h.lastEvent()
	require.Equal(t, EventFinal, final.Type)
	assert.Equal(t, content.NodeAnnouncePreview, final.Step)
	assert.Equal(t, content.StatusPreview, final.Data["status"])
	assert.Equal(t, 0, h.pub.calls)
}

// TestRunTurn_NonTerminalFailure_IsSoft tests that a failed generation
// step produces one error event and the turn keeps going.
func TestRunTurn_NonTerminalFailure_IsSoft(t *testing.T) {
	h := newHarness(t, true)
	h.sessions.Create("s-1", "agent-1")

	// Visual-prompt drafting (second text call) fails; everything else works.
	h.text.script = func(call int, _ string) (string, error) {
		if call == 1 {
			return "", errors.New("rate limited")
		}
		return "generated text", nil
	}

	err := h.engine.RunTurn(context.Background(), "s-1",
		content.StartUpdate("3BHK in Andheri"), h.sink)
	require.NoError(t, err)

	assert.Equal(t, []EventType{
		EventStepUpdate, // draft-brand
		EventError,      // draft-visual-prompt failed, turn continues
		EventStepUpdate, // generate-image
		EventStepUpdate, // validate-required-fields
		EventInputRequest,
	}, h.eventTypes())

	assert.Contains(t, h.events[1].Message, content.NodeDraftVisualPrompt)
	assert.Contains(t, h.events[1].Message, "rate limited")
}

// TestRunTurn_TerminalFailure_FoldsIntoFinal tests that a publish
// transport failure ends the turn with a failed final event, not an
// error event.
func TestRunTurn_TerminalFailure_FoldsIntoFinal(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")
	h.pub.err = errors.New("connection refused")

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		content.StartUpdate("3BHK in Andheri"), h.sink))
	h.events = nil

	err := h.engine.RunTurn(context.Background(), "s-1", completeDetails(true), h.sink)
	require.NoError(t, err)

	final := h.lastEvent()
	assert.Equal(t, EventFinal, final.Type)
	assert.Equal(t, content.NodePublish, final.Step)
	assert.Equal(t, content.StatusFailed, final.Data["status"])
	assert.Contains(t, final.Message, "connection refused")

	for _, ev := range h.events {
		assert.NotEqual(t, EventError, ev.Type, "terminal failure must not emit a separate error event")
	}
}

// TestRunTurn_PlatformRejection_IsFailedPublish tests that a rejected
// post still finishes the turn normally with a failed publish result.
func TestRunTurn_PlatformRejection_IsFailedPublish(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")
	h.pub.outcome = &gen.PublishOutcome{OK: false, Message: "token expired"}

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		content.StartUpdate("3BHK in Andheri"), h.sink))
	h.events = nil

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1", completeDetails(true), h.sink))

	final := h.lastEvent()
	assert.Equal(t, EventFinal, final.Type)
	assert.Equal(t, content.StatusFailed, final.Data["status"])
	assert.Equal(t, "token expired", final.Message)
}

// TestRunTurn_SessionDeletedMidRun tests the disconnect race: the turn
// aborts silently, with no events after the delete.
func TestRunTurn_SessionDeletedMidRun(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")

	// The post-generation call (second text call this turn) simulates
	// the client disconnecting while the turn is in flight.
	h.text.script = func(call int, prompt string) (string, error) {
		if strings.Contains(prompt, "Write a social post") {
			h.sessions.Delete("s-1")
		}
		return "generated text", nil
	}

	err := h.engine.RunTurn(context.Background(), "s-1", completeDetails(true), h.sink)
	require.NoError(t, err)

	for _, ev := range h.events {
		assert.NotEqual(t, EventFinal, ev.Type, "aborted turn must not finalize")
	}
	assert.Equal(t, 0, h.pub.calls, "nothing may publish after the session is gone")
}

// TestRunTurn_SessionRecreatedMidRun tests the disconnect-reconnect
// race: the session is deleted and recreated under the same ID while a
// turn is in flight, and the stale turn's output must not leak into the
// fresh session.
func TestRunTurn_SessionRecreatedMidRun(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")

	h.text.script = func(call int, prompt string) (string, error) {
		if strings.Contains(prompt, "Write a social post") {
			h.sessions.Delete("s-1")
			h.sessions.Create("s-1", "agent-1")
		}
		return "generated text", nil
	}

	err := h.engine.RunTurn(context.Background(), "s-1", completeDetails(true), h.sink)
	require.NoError(t, err)

	for _, ev := range h.events {
		assert.NotEqual(t, EventFinal, ev.Type, "aborted turn must not finalize")
	}
	assert.Equal(t, 0, h.pub.calls, "nothing may publish after the session is gone")

	// The reconnected client's session starts clean.
	v, ok := h.sessions.Get("s-1")
	require.True(t, ok)
	assert.Empty(t, v.State.UserInput)
	assert.Empty(t, v.State.PostText)
	assert.Empty(t, v.State.Listing.Location)
	assert.Nil(t, v.State.Publish)
}

// TestRunTurn_SessionEndedAfterTurnBegan tests the narrow window where
// the session is deleted after the run lock is acquired but before the
// caller's input merges: the turn reports the ended session instead of
// pretending none existed.
func TestRunTurn_SessionEndedAfterTurnBegan(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")

	turn, err := h.sessions.BeginTurn("s-1")
	require.NoError(t, err)
	defer turn.End()

	h.sessions.Delete("s-1")

	err = h.engine.runTurn(context.Background(), turn, "s-1", completeDetails(true), h.sink)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.Len(t, h.events, 1)
	assert.Equal(t, EventError, h.events[0].Type)
	assert.Contains(t, h.events[0].Message, "session ended")
	assert.Equal(t, 0, h.text.calls, "no graph work for an ended session")
}

// TestRunTurn_RecordsHistory tests the audit trail of completed turns.
func TestRunTurn_RecordsHistory(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		content.StartUpdate("3BHK in Andheri"), h.sink))
	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		completeDetails(true), h.sink))

	recs, err := h.history.List("s-1")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, content.NodeValidate, recs[0].Terminal)
	assert.Equal(t, content.NodePublish, recs[1].Terminal)
	assert.Equal(t, 1, recs[0].Sequence)
	assert.Equal(t, 2, recs[1].Sequence)
}

// TestRunTurn_StaleContentSurvivesRerun tests the accumulate-only
// contract: a rerun regenerates content but never clears fields the
// caller supplied earlier.
func TestRunTurn_StaleContentSurvivesRerun(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		content.StartUpdate("3BHK in Andheri"), h.sink))
	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		completeDetails(false), h.sink))

	v, ok := h.sessions.Get("s-1")
	require.True(t, ok)
	assert.Equal(t, "3BHK in Andheri", v.State.UserInput)
	assert.Equal(t, "Andheri West", v.State.Listing.Location)
	assert.Empty(t, v.State.Missing)
	require.NotNil(t, v.State.Publish)
}

// TestRunTurn_RerunReachesSameTerminal tests that re-running over the
// same merged state lands on the same terminal branch.
func TestRunTurn_RerunReachesSameTerminal(t *testing.T) {
	h := newHarness(t, false)
	h.sessions.Create("s-1", "agent-1")

	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		completeDetails(false), h.sink))
	first := h.lastEvent()
	require.Equal(t, EventFinal, first.Type)
	assert.Equal(t, content.NodeAnnouncePreview, first.Step)

	// A second turn with an empty update changes nothing; the graph is
	// re-executed in full and ends on the same branch.
	h.events = nil
	require.NoError(t, h.engine.RunTurn(context.Background(), "s-1",
		content.Update{}, h.sink))

	second := h.lastEvent()
	require.Equal(t, EventFinal, second.Type)
	assert.Equal(t, content.NodeAnnouncePreview, second.Step)
	assert.Equal(t, content.StatusPreview, second.Data["status"])
	assert.Equal(t, 0, h.pub.calls)
}
