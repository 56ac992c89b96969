package workflow

import (
	"context"
)

// Test state types used across tests

// Counter is a simple state for testing accumulation.
type Counter struct {
	Value int
}

// CounterAdd contributes an increment to Counter.
type CounterAdd struct {
	N int
}

func (u CounterAdd) Apply(s Counter) Counter {
	s.Value += u.N
	return s
}

func (u CounterAdd) Payload() map[string]any {
	return map[string]any{"add": u.N}
}

// Trace is a state for testing traversal order and routing.
type Trace struct {
	Steps  []string
	GoLeft bool
	Done   bool
}

// TraceMark contributes one visited step name to Trace.
type TraceMark struct {
	Name string
}

func (u TraceMark) Apply(s Trace) Trace {
	s.Steps = append(s.Steps, u.Name)
	return s
}

func (u TraceMark) Payload() map[string]any {
	return map[string]any{"step": u.Name}
}

// Helper node functions

// addOne is a step that increments the counter.
func addOne(ctx Context, s Counter) (Update[Counter], error) {
	return CounterAdd{N: 1}, nil
}

// makeMark creates a step that records its execution.
func makeMark(name string) NodeFunc[Trace] {
	return func(ctx Context, s Trace) (Update[Trace], error) {
		return TraceMark{Name: name}, nil
	}
}

// makeFailing creates a step that returns the given error.
func makeFailing(err error) NodeFunc[Trace] {
	return func(ctx Context, s Trace) (Update[Trace], error) {
		return nil, err
	}
}

// makePanicking creates a step that panics with the given value.
func makePanicking(value any) NodeFunc[Trace] {
	return func(ctx Context, s Trace) (Update[Trace], error) {
		panic(value)
	}
}

// silent is a step that contributes nothing.
func silent(ctx Context, s Trace) (Update[Trace], error) {
	return nil, nil
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}
