package domain_test

import (
	"errors"
	"testing"

	"github.com/aryan0dhankhar/jobmatch/internal/domain"
)

func TestParseApplicationStatus(t *testing.T) {
	for _, st := range domain.AllStatuses {
		got, err := domain.ParseApplicationStatus(string(st))
		if err != nil {
			t.Errorf("ParseApplicationStatus(%q) unexpected error: %v", st, err)
		}
		if got != st {
			t.Errorf("ParseApplicationStatus(%q) = %q", st, got)
		}
	}

	for _, bad := range []string{"", "pending", "HIRED", "ACCEPTED "} {
		_, err := domain.ParseApplicationStatus(bad)
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Errorf("ParseApplicationStatus(%q) expected ValidationError, got %v", bad, err)
		}
	}
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	terminal := []domain.ApplicationStatus{domain.StatusAccepted, domain.StatusRejected, domain.StatusWithdrawn}
	for _, from := range terminal {
		if !from.IsTerminal() {
			t.Errorf("%s should be terminal", from)
		}
		for _, to := range domain.AllStatuses {
			if domain.CanTransition(from, to) {
				t.Errorf("CanTransition(%s, %s) should be false", from, to)
			}
		}
	}
}

func TestNonTerminalStatesArePermittedSet(t *testing.T) {
	open := []domain.ApplicationStatus{
		domain.StatusPending,
		domain.StatusOpened,
		domain.StatusReviewing,
		domain.StatusInterviewScheduled,
	}
	for _, from := range open {
		if from.IsTerminal() {
			t.Errorf("%s should not be terminal", from)
		}
		for _, to := range domain.AllStatuses {
			want := from != to
			if got := domain.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestBackwardMoveAllowed(t *testing.T) {
	if !domain.CanTransition(domain.StatusInterviewScheduled, domain.StatusReviewing) {
		t.Error("INTERVIEW_SCHEDULED -> REVIEWING should be allowed")
	}
}

func TestWithdrawnReachableFromAnyOpenState(t *testing.T) {
	for _, from := range []domain.ApplicationStatus{
		domain.StatusPending, domain.StatusOpened, domain.StatusReviewing, domain.StatusInterviewScheduled,
	} {
		if !domain.CanTransition(from, domain.StatusWithdrawn) {
			t.Errorf("%s -> WITHDRAWN should be allowed", from)
		}
	}
}

func TestErrorKindsWrap(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{domain.NotFoundf("job %s", "j1"), domain.ErrNotFound},
		{domain.Conflictf("already applied"), domain.ErrConflict},
		{domain.Forbiddenf("not your job"), domain.ErrForbidden},
		{domain.InvalidStatef("job not active"), domain.ErrInvalidState},
	}
	for _, c := range cases {
		if !errors.Is(c.err, c.kind) {
			t.Errorf("%v should wrap %v", c.err, c.kind)
		}
	}
	if got := domain.NotFoundf("job %s", "j1").Error(); got != "job j1: not found" {
		t.Errorf("unexpected message %q", got)
	}
}
