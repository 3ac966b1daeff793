package fsm_test

import (
	"context"
	"errors"
	"testing"

	adapter "github.com/neomorfeo/queueiq/internal/adapter/fsm"
	"github.com/neomorfeo/queueiq/internal/domain"
)

func TestValidator_AllTicketTransitions(t *testing.T) {
	v := adapter.New(domain.TicketTransitions)
	ctx := context.Background()

	for _, tr := range domain.TicketTransitions {
		dst, err := v.Apply(ctx, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestValidator_AllSessionTransitions(t *testing.T) {
	v := adapter.New(domain.SessionTransitions)
	ctx := context.Background()

	for _, tr := range domain.SessionTransitions {
		dst, err := v.Apply(ctx, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestValidator_InvalidTransition(t *testing.T) {
	v := adapter.New(domain.TicketTransitions)
	ctx := context.Background()

	// Can't start service on a ticket that was never called.
	_, err := v.Apply(ctx, domain.StatusWaiting, domain.EventStart)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if trErr.Event != domain.EventStart {
		t.Errorf("event = %q, want %q", trErr.Event, domain.EventStart)
	}
	if trErr.Current != domain.StatusWaiting {
		t.Errorf("current = %q, want %q", trErr.Current, domain.StatusWaiting)
	}
}

func TestValidator_TicketLifecycle(t *testing.T) {
	v := adapter.New(domain.TicketTransitions)
	ctx := context.Background()

	steps := []struct {
		from  domain.Status
		event domain.Event
		want  domain.Status
	}{
		{domain.StatusWaiting, domain.EventCall, domain.StatusCalled},
		{domain.StatusCalled, domain.EventStart, domain.StatusInProgress},
		{domain.StatusInProgress, domain.EventComplete, domain.StatusCompleted},
	}

	for _, step := range steps {
		got, err := v.Apply(ctx, step.from, step.event)
		if err != nil {
			t.Fatalf("Apply(%q, %q) error: %v", step.from, step.event, err)
		}
		if got != step.want {
			t.Errorf("Apply(%q, %q) = %q, want %q", step.from, step.event, got, step.want)
		}
	}
}

func TestValidator_SessionCompleteFromPausedRejected(t *testing.T) {
	v := adapter.New(domain.SessionTransitions)
	ctx := context.Background()

	_, err := v.Apply(ctx, domain.StatusPaused, domain.EventComplete)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
}

func TestValidator_CancelFromMultipleSources(t *testing.T) {
	v := adapter.New(domain.TicketTransitions)
	ctx := context.Background()

	// Cancel is valid from waiting, called, and in_progress alike.
	for _, src := range []domain.Status{domain.StatusWaiting, domain.StatusCalled, domain.StatusInProgress} {
		got, err := v.Apply(ctx, src, domain.EventCancel)
		if err != nil {
			t.Fatalf("Apply(%q, cancel) error: %v", src, err)
		}
		if got != domain.StatusCancelled {
			t.Errorf("Apply(%q, cancel) = %q, want %q", src, got, domain.StatusCancelled)
		}
	}
}

func TestValidator_MachinesAreIndependent(t *testing.T) {
	// The session machine must not accept ticket-only events.
	v := adapter.New(domain.SessionTransitions)
	ctx := context.Background()

	_, err := v.Apply(ctx, domain.StatusWaiting, domain.EventCall)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
}
