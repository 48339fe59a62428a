package domain

import (
	"fmt"
	"time"
)

// AppointmentStatus enumerates lifecycle states for queue appointments.
type AppointmentStatus string

const (
	StatusPending AppointmentStatus = "pending"
	StatusCalled  AppointmentStatus = "called"
	StatusServed  AppointmentStatus = "served"
)

// DateLayout is the calendar-date format for appointment dates. Dates are
// compared as opaque keys; no timezone normalization is applied.
const DateLayout = "2006-01-02"

// TimeLayout is the time-of-day format for appointment times.
const TimeLayout = "15:04"

// Appointment is the aggregate for a walk-in queue entry.
type Appointment struct {
	ID           string
	Name         string
	Phone        string
	Service      string
	Date         string
	Time         string
	QueueNumber  int
	Status       AppointmentStatus
	ReminderSent bool
	CreatedAt    time.Time
	CalledAt     *time.Time
	ServedAt     *time.Time
}

// Transitions are one-directional: pending may be served directly when counter
// staff skip the call step, but nothing ever moves backwards.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending: {StatusCalled, StatusServed},
	StatusCalled:  {StatusServed},
	StatusServed:  {},
}

// CanTransition reports whether moving from the current status to next is legal.
func (s AppointmentStatus) CanTransition(next AppointmentStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Valid reports whether the status is a known state.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCalled, StatusServed:
		return true
	}
	return false
}

// ScheduledAt combines the appointment's date and time into a point in time
// within the given location.
func (a *Appointment) ScheduledAt(loc *time.Location) (time.Time, error) {
	at, err := time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.Time, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule for appointment %s: %w", a.ID, err)
	}
	return at, nil
}
