package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/charscan/internal/log"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name      string
	doFunc    func(ctx context.Context, state *State) error
	callCount int
}

// Do implements Step.Do.
func (m *mockStep) Do(ctx context.Context, state *State) error {
	m.callCount++
	if m.doFunc != nil {
		return m.doFunc(ctx, state)
	}
	return nil
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.continueOnError {
			t.Error("expected continueOnError to be false by default")
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		logger := log.NewDiscardLogger()
		p := New(WithContinueOnError(true), WithLogger(logger))
		if !p.continueOnError {
			t.Error("expected continueOnError to be true")
		}
		if p.logger != logger {
			t.Error("expected custom logger")
		}
	})
}

func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	if p.StepCount() != 3 {
		t.Fatalf("expected 3 steps, got %d", p.StepCount())
	}

	expected := []string{"first", "second", "third"}
	for i, name := range p.StepNames() {
		if name != expected[i] {
			t.Errorf("step %d: got %q, expected %q", i, name, expected[i])
		}
	}
}

func TestPipelineExecute(t *testing.T) {
	t.Parallel()

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		p := New(WithLogger(log.NewDiscardLogger()))
		for _, name := range []string{"a", "b", "c"} {
			p.AddStep(&mockStep{name: name, doFunc: func(_ context.Context, _ *State) error {
				order = append(order, name)
				return nil
			}})
		}

		state := NewState("https://example.com/")
		if err := p.Execute(context.Background(), state); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(order) != 3 || order[0] != "a" || order[2] != "c" {
			t.Errorf("unexpected execution order: %v", order)
		}
		if len(state.Report.PerformedSteps) != 3 {
			t.Errorf("expected 3 performed steps, got %v", state.Report.PerformedSteps)
		}
	})

	t.Run("stops on first error by default", func(t *testing.T) {
		t.Parallel()

		errStep := errors.New("step failed")
		failing := &mockStep{name: "failing", doFunc: func(_ context.Context, _ *State) error {
			return errStep
		}}
		after := &mockStep{name: "after"}

		p := New(WithLogger(log.NewDiscardLogger()))
		p.AddSteps(failing, after)

		state := NewState("https://example.com/")
		err := p.Execute(context.Background(), state)
		if !errors.Is(err, errStep) {
			t.Errorf("expected errStep, got %v", err)
		}
		if after.callCount != 0 {
			t.Error("expected later step not to run")
		}
		if state.Report.ErrorMessage != "step failed" {
			t.Errorf("expected error recorded in report, got %q", state.Report.ErrorMessage)
		}
		if len(state.Report.PerformedSteps) != 1 || state.Report.PerformedSteps[0] != "failing" {
			t.Errorf("expected failing step recorded, got %v", state.Report.PerformedSteps)
		}
	})

	t.Run("continues on error when configured", func(t *testing.T) {
		t.Parallel()

		failing := &mockStep{name: "failing", doFunc: func(_ context.Context, _ *State) error {
			return errors.New("boom")
		}}
		after := &mockStep{name: "after"}

		p := New(WithLogger(log.NewDiscardLogger()), WithContinueOnError(true))
		p.AddSteps(failing, after)

		state := NewState("https://example.com/")
		if err := p.Execute(context.Background(), state); err != nil {
			t.Errorf("expected nil error, got %v", err)
		}
		if after.callCount != 1 {
			t.Error("expected later step to run")
		}
		if state.Report.ErrorMessage == "" {
			t.Error("expected error recorded in report")
		}
	})

	t.Run("cancelled context marks report timed out", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "never"}
		p := New(WithLogger(log.NewDiscardLogger()))
		p.AddStep(step)

		state := NewState("https://example.com/")
		err := p.Execute(ctx, state)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if step.callCount != 0 {
			t.Error("expected step not to run")
		}
		if !state.Report.TimedOut {
			t.Error("expected TimedOut to be set")
		}
	})

	t.Run("nil state", func(t *testing.T) {
		t.Parallel()

		if err := New().Execute(context.Background(), nil); !errors.Is(err, ErrNoReport) {
			t.Errorf("expected ErrNoReport, got %v", err)
		}
	})
}
