package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/queue-service/internal/domain"
	apperrors "github.com/spec-kit/queue-service/pkg/util"
)

// AppointmentRepository encapsulates appointment persistence. Implementations
// must make queue-number allocation plus insert atomic per date, and the
// reminder flag a compare-and-set.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *domain.Appointment) error
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	ListPending(ctx context.Context) ([]domain.Appointment, error)
	ClaimNextPending(ctx context.Context, at time.Time) (*domain.Appointment, error)
	MarkServed(ctx context.Context, id string, at time.Time) (*domain.Appointment, error)
	ListReminderCandidates(ctx context.Context) ([]domain.Appointment, error)
	ClaimReminder(ctx context.Context, id string) (bool, error)
	Search(ctx context.Context, query string) ([]domain.Appointment, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository instantiates the Postgres-backed repository.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

const appointmentColumns = `id, name, phone, service, appointment_date, appointment_time,
       queue_number, status, reminder_sent, created_at, called_at, served_at`

// Create allocates the next queue number for the appointment's date and inserts
// the record in one transaction. An advisory lock on the date key serializes
// concurrent bookings for the same date, so count+1 can never be observed twice.
func (r *appointmentRepository) Create(ctx context.Context, appt *domain.Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "queue:"+appt.Date); err != nil {
		return err
	}

	var count int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM appointments WHERE appointment_date=$1`, appt.Date,
	).Scan(&count); err != nil {
		return err
	}
	appt.QueueNumber = count + 1

	const query = `
        INSERT INTO appointments (id, name, phone, service, appointment_date, appointment_time,
                                  queue_number, status, reminder_sent, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	if _, err := tx.Exec(ctx, query,
		appt.ID,
		appt.Name,
		appt.Phone,
		appt.Service,
		appt.Date,
		appt.Time,
		appt.QueueNumber,
		appt.Status,
		appt.ReminderSent,
		appt.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.NewAllocationConflict(appt.Date, err)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *appointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	return scanAppointment(row)
}

func (r *appointmentRepository) ListPending(ctx context.Context) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
              FROM appointments WHERE status=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ClaimNextPending atomically moves the globally oldest pending appointment to
// called. SKIP LOCKED keeps two concurrent call-next requests from racing on the
// same row.
func (r *appointmentRepository) ClaimNextPending(ctx context.Context, at time.Time) (*domain.Appointment, error) {
	query := `
        UPDATE appointments SET status=$1, called_at=$2
        WHERE id = (
            SELECT id FROM appointments
            WHERE status=$3
            ORDER BY created_at ASC
            LIMIT 1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING ` + appointmentColumns
	row := r.pool.QueryRow(ctx, query, domain.StatusCalled, at, domain.StatusPending)
	return scanAppointment(row)
}

// MarkServed is forward-only and idempotent: a repeat call leaves the original
// served_at in place.
func (r *appointmentRepository) MarkServed(ctx context.Context, id string, at time.Time) (*domain.Appointment, error) {
	query := `
        UPDATE appointments SET status=$1, served_at=COALESCE(served_at, $2)
        WHERE id=$3
        RETURNING ` + appointmentColumns
	row := r.pool.QueryRow(ctx, query, domain.StatusServed, at, id)
	return scanAppointment(row)
}

func (r *appointmentRepository) ListReminderCandidates(ctx context.Context) ([]domain.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
              FROM appointments WHERE status=$1 AND reminder_sent=FALSE
              ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

// ClaimReminder flips reminder_sent false to true exactly once. The returned
// bool reports whether this caller won the flip.
func (r *appointmentRepository) ClaimReminder(ctx context.Context, id string) (bool, error) {
	cmd, err := r.pool.Exec(ctx, `
        UPDATE appointments SET reminder_sent=TRUE
        WHERE id=$1 AND status=$2 AND reminder_sent=FALSE`,
		id, domain.StatusPending)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *appointmentRepository) Search(ctx context.Context, query string) ([]domain.Appointment, error) {
	term := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	sql := `SELECT ` + appointmentColumns + `
            FROM appointments
            WHERE LOWER(name) LIKE $1 OR LOWER(phone) LIKE $1 OR queue_number::text LIKE $1
            ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, sql, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAppointments(rows)
}

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var appt domain.Appointment
	if err := row.Scan(
		&appt.ID,
		&appt.Name,
		&appt.Phone,
		&appt.Service,
		&appt.Date,
		&appt.Time,
		&appt.QueueNumber,
		&appt.Status,
		&appt.ReminderSent,
		&appt.CreatedAt,
		&appt.CalledAt,
		&appt.ServedAt,
	); err != nil {
		return nil, err
	}
	return &appt, nil
}

func scanAppointments(rows pgx.Rows) ([]domain.Appointment, error) {
	var result []domain.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *appt)
	}
	return result, rows.Err()
}
