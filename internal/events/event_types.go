package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAppointmentBooked EventType = "appointment_booked"
	EventQueueCalled       EventType = "queue_called"
	EventReminderDue       EventType = "reminder_due"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	AppointmentID string      `json:"appointment_id"`
	Timestamp     time.Time   `json:"timestamp"`
	Payload       interface{} `json:"payload"`
}

// AppointmentBookedPayload payload.
type AppointmentBookedPayload struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	Service     string `json:"service"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	QueueNumber int    `json:"queue_number"`
}

// QueueCalledPayload payload.
type QueueCalledPayload struct {
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	QueueNumber int    `json:"queue_number"`
}

// ReminderDuePayload payload.
type ReminderDuePayload struct {
	Phone       string `json:"phone"`
	Service     string `json:"service"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	QueueNumber int    `json:"queue_number"`
}
