package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/queue-service/internal/api/dto"
	"github.com/spec-kit/queue-service/internal/service"
	apperrors "github.com/spec-kit/queue-service/pkg/util"
)

// AppointmentsHandler manages queue endpoints.
type AppointmentsHandler struct {
	service *service.QueueService
}

// NewAppointmentsHandler constructs handler.
func NewAppointmentsHandler(queueService *service.QueueService) *AppointmentsHandler {
	return &AppointmentsHandler{service: queueService}
}

// Book POST /api/book.
func (h *AppointmentsHandler) Book(c *fiber.Ctx) error {
	var req dto.BookRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	appt, err := h.service.Book(c.UserContext(), service.BookInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Service: req.Service,
		Date:    req.Date,
		Time:    req.Time,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.BookResponse{
		ID:          appt.ID,
		QueueNumber: appt.QueueNumber,
	}})
}

// Queue GET /api/queue.
func (h *AppointmentsHandler) Queue(c *fiber.Ctx) error {
	appts, err := h.service.ListQueue(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.AppointmentResponse, 0, len(appts))
	for i := range appts {
		items = append(items, dto.FromAppointment(&appts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CallNext POST /api/callNext.
func (h *AppointmentsHandler) CallNext(c *fiber.Ctx) error {
	appt, err := h.service.CallNext(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.CallNextResponse{
		ID:          appt.ID,
		Name:        appt.Name,
		QueueNumber: appt.QueueNumber,
	}})
}

// MarkServed POST /api/served.
func (h *AppointmentsHandler) MarkServed(c *fiber.Ctx) error {
	var req dto.MarkServedRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	appt, err := h.service.MarkServed(c.UserContext(), req.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromAppointment(appt)})
}

// Search GET /api/search.
func (h *AppointmentsHandler) Search(c *fiber.Ctx) error {
	appts, err := h.service.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	items := make([]dto.AppointmentResponse, 0, len(appts))
	for i := range appts {
		items = append(items, dto.FromAppointment(&appts[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
