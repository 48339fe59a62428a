package domain

import (
	"testing"
	"time"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to AppointmentStatus
		allowed  bool
	}{
		{StatusPending, StatusCalled, true},
		{StatusPending, StatusServed, true},
		{StatusCalled, StatusServed, true},
		{StatusCalled, StatusPending, false},
		{StatusServed, StatusPending, false},
		{StatusServed, StatusCalled, false},
		{StatusPending, StatusPending, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.allowed {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []AppointmentStatus{StatusPending, StatusCalled, StatusServed} {
		if !s.Valid() {
			t.Errorf("expected %s to be valid", s)
		}
	}
	if AppointmentStatus("cancelled").Valid() {
		t.Error("cancelled should not be a valid status")
	}
}

func TestScheduledAt(t *testing.T) {
	appt := &Appointment{ID: "a1", Date: "2025-06-01", Time: "14:30"}
	at, err := appt.ScheduledAt(time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2025, 6, 1, 14, 30, 0, 0, time.UTC)
	if !at.Equal(want) {
		t.Fatalf("ScheduledAt = %s, want %s", at, want)
	}
}

func TestScheduledAt_Invalid(t *testing.T) {
	appt := &Appointment{ID: "a2", Date: "junk", Time: "14:30"}
	if _, err := appt.ScheduledAt(time.UTC); err == nil {
		t.Fatal("expected parse error for malformed date")
	}
}
