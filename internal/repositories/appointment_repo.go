package repositories

import (
	"context"
	"slices"
	"sync"
	"time"

	"healthcrm/internal/common"
	"healthcrm/internal/models"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *models.Appointment) error
	GetByID(ctx context.Context, ownerID uuid.UUID, id string) (*models.Appointment, error)
	Update(ctx context.Context, a *models.Appointment) error
	Delete(ctx context.Context, ownerID uuid.UUID, id string) error
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Appointment, error)
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}

const (
	appointmentColumns = `id, owner_id, patient_name, title, starts_at, ends_at, status, location, notes, email_thread_id`

	insertAppointmentQuery = `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	selectAppointmentQuery = `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE owner_id = $1 AND id = $2
	`
	updateAppointmentQuery = `
		UPDATE appointments
		SET patient_name = $1, title = $2, starts_at = $3, ends_at = $4, status = $5, location = $6, notes = $7, email_thread_id = $8
		WHERE owner_id = $9 AND id = $10
	`
	deleteAppointmentQuery = `DELETE FROM appointments WHERE owner_id = $1 AND id = $2`

	listAppointmentsQuery = `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE owner_id = $1
		ORDER BY starts_at
	`
	listAppointmentsBetweenQuery = `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE starts_at >= $1 AND starts_at < $2 AND status <> 'cancelled'
		ORDER BY starts_at
	`
)

type appointmentRepo struct {
	db Database
}

func NewAppointmentRepo(db Database) AppointmentRepository {
	return &appointmentRepo{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (models.Appointment, error) {
	var (
		a      models.Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.PatientName, &a.Title, &a.Start, &a.End, &status, &a.Location, &a.Notes, &a.EmailThreadID)
	a.Status = models.AppointmentStatus(status)
	return a, err
}

func (r *appointmentRepo) Create(ctx context.Context, a *models.Appointment) error {
	_, err := r.db.Exec(ctx, insertAppointmentQuery, a.ID, a.OwnerID, a.PatientName, a.Title, a.Start, a.End,
		string(a.Status), a.Location, a.Notes, a.EmailThreadID)
	return err
}

func (r *appointmentRepo) GetByID(ctx context.Context, ownerID uuid.UUID, id string) (*models.Appointment, error) {
	a, err := scanAppointment(r.db.QueryRow(ctx, selectAppointmentQuery, ownerID, id))
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *appointmentRepo) Update(ctx context.Context, a *models.Appointment) error {
	return requireRow(r.db.Exec(ctx, updateAppointmentQuery, a.PatientName, a.Title, a.Start, a.End,
		string(a.Status), a.Location, a.Notes, a.EmailThreadID, a.OwnerID, a.ID))
}

func (r *appointmentRepo) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	return requireRow(r.db.Exec(ctx, deleteAppointmentQuery, ownerID, id))
}

func (r *appointmentRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Appointment, error) {
	return r.list(ctx, listAppointmentsQuery, ownerID)
}

func (r *appointmentRepo) ListStartingBetween(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	return r.list(ctx, listAppointmentsBetweenQuery, from, to)
}

func (r *appointmentRepo) list(ctx context.Context, query string, args ...any) ([]models.Appointment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}

type memoryAppointmentRepo struct {
	mu           sync.RWMutex
	appointments []models.Appointment
}

// NewMemoryAppointmentRepo keeps appointments in process memory.
func NewMemoryAppointmentRepo() AppointmentRepository {
	return &memoryAppointmentRepo{}
}

func (r *memoryAppointmentRepo) index(ownerID uuid.UUID, id string) int {
	return slices.IndexFunc(r.appointments, func(a models.Appointment) bool {
		return a.OwnerID == ownerID && a.ID == id
	})
}

func (r *memoryAppointmentRepo) Create(_ context.Context, a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.appointments = append(r.appointments, *a)
	return nil
}

func (r *memoryAppointmentRepo) GetByID(_ context.Context, ownerID uuid.UUID, id string) (*models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.index(ownerID, id)
	if i < 0 {
		return nil, common.ErrNotFound
	}
	a := r.appointments[i]
	return &a, nil
}

func (r *memoryAppointmentRepo) Update(_ context.Context, a *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(a.OwnerID, a.ID)
	if i < 0 {
		return common.ErrNotFound
	}
	r.appointments[i] = *a
	return nil
}

func (r *memoryAppointmentRepo) Delete(_ context.Context, ownerID uuid.UUID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.index(ownerID, id)
	if i < 0 {
		return common.ErrNotFound
	}
	r.appointments = slices.Delete(r.appointments, i, i+1)
	return nil
}

func (r *memoryAppointmentRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Appointment, 0)
	for _, a := range r.appointments {
		if a.OwnerID == ownerID {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return out, nil
}

func (r *memoryAppointmentRepo) ListStartingBetween(_ context.Context, from, to time.Time) ([]models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Appointment, 0)
	for _, a := range r.appointments {
		if !a.Start.Before(from) && a.Start.Before(to) && a.Status != models.AppointmentCancelled {
			out = append(out, a)
		}
	}
	sortByStart(out)
	return out, nil
}

func sortByStart(appointments []models.Appointment) {
	slices.SortStableFunc(appointments, func(a, b models.Appointment) int {
		return a.Start.Compare(b.Start)
	})
}
