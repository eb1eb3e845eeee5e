package domain

import (
	"errors"
	"testing"
)

func TestRouteStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		from    RouteStatus
		to      RouteStatus
		allowed bool
	}{
		{"planned to in_progress", RoutePlanned, RouteInProgress, true},
		{"planned to completed", RoutePlanned, RouteCompleted, true},
		{"in_progress to completed", RouteInProgress, RouteCompleted, true},
		{"in_progress to planned", RouteInProgress, RoutePlanned, false},
		{"completed to planned", RouteCompleted, RoutePlanned, false},
		{"completed to in_progress", RouteCompleted, RouteInProgress, false},
		{"completed to completed", RouteCompleted, RouteCompleted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := Route{ID: "r1", Status: tc.from}
			err := r.CanTransitionTo(tc.to)

			if tc.allowed && err != nil {
				t.Fatalf("expected %s -> %s to be allowed, got %v", tc.from, tc.to, err)
			}
			if !tc.allowed && err == nil {
				t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
			}
		})
	}
}

func TestCompletedRouteRejectsWithTypedError(t *testing.T) {
	r := Route{ID: "r1", Status: RouteCompleted}

	err := r.CanTransitionTo(RouteInProgress)
	if !errors.Is(err, ErrRouteAlreadyCompleted) {
		t.Fatalf("expected ErrRouteAlreadyCompleted, got %v", err)
	}
}

func TestJobAssignable(t *testing.T) {
	assignable := []JobStatus{JobPending, JobScheduled, JobInProgress}
	for _, s := range assignable {
		if !(Job{Status: s}).Assignable() {
			t.Errorf("expected status %q to be assignable", s)
		}
	}

	closed := []JobStatus{JobCompleted, JobCancelled}
	for _, s := range closed {
		if (Job{Status: s}).Assignable() {
			t.Errorf("expected status %q to not be assignable", s)
		}
	}
}
