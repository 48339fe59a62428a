package dto

import (
	"time"

	"github.com/spec-kit/queue-service/internal/domain"
)

// BookRequest payload.
type BookRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Service string `json:"service"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// BookResponse confirms a booking.
type BookResponse struct {
	ID          string `json:"id"`
	QueueNumber int    `json:"queue_number"`
}

// CallNextResponse reports the appointment being called.
type CallNextResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	QueueNumber int    `json:"queue_number"`
}

// MarkServedRequest payload.
type MarkServedRequest struct {
	ID string `json:"id"`
}

// AppointmentResponse represents an appointment record.
type AppointmentResponse struct {
	ID           string                   `json:"id"`
	Name         string                   `json:"name"`
	Phone        string                   `json:"phone"`
	Service      string                   `json:"service"`
	Date         string                   `json:"date"`
	Time         string                   `json:"time"`
	QueueNumber  int                      `json:"queue_number"`
	Status       domain.AppointmentStatus `json:"status"`
	ReminderSent bool                     `json:"reminder_sent"`
	CreatedAt    time.Time                `json:"created_at"`
	CalledAt     *time.Time               `json:"called_at,omitempty"`
	ServedAt     *time.Time               `json:"served_at,omitempty"`
}

// FromAppointment maps a domain record to its response shape.
func FromAppointment(appt *domain.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:           appt.ID,
		Name:         appt.Name,
		Phone:        appt.Phone,
		Service:      appt.Service,
		Date:         appt.Date,
		Time:         appt.Time,
		QueueNumber:  appt.QueueNumber,
		Status:       appt.Status,
		ReminderSent: appt.ReminderSent,
		CreatedAt:    appt.CreatedAt,
		CalledAt:     appt.CalledAt,
		ServedAt:     appt.ServedAt,
	}
}
