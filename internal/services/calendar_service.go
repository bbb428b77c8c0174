package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"healthcrm/internal/calendar"
	"healthcrm/internal/common"
	"healthcrm/internal/models"
	"healthcrm/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const calendarBack = "/calendar"

type AppointmentRequest struct {
	PatientName string                   `json:"patient_name"`
	Title       string                   `json:"title"`
	Start       time.Time                `json:"start"`
	End         time.Time                `json:"end"`
	Status      models.AppointmentStatus `json:"status"`
	Location    string                   `json:"location"`
	Notes       string                   `json:"notes"`
}

func (r AppointmentRequest) validate() error {
	var statusErr error
	if r.Status != "" {
		statusErr = common.ValidateOneOf(string(r.Status), "status",
			string(models.AppointmentScheduled), string(models.AppointmentConfirmed),
			string(models.AppointmentCompleted), string(models.AppointmentCancelled))
	}
	return errors.Join(
		common.ValidateRequiredString(r.Title, "title"),
		common.ValidateRequiredString(r.PatientName, "patient_name"),
		common.ValidateTimeRange(r.Start, r.End),
		common.ValidateMaxLength(r.Notes, "notes", 4000),
		statusErr,
	)
}

type CalendarService interface {
	List(ctx context.Context, ownerID uuid.UUID, day *time.Time) ([]models.Appointment, error)
	Get(ctx context.Context, ownerID uuid.UUID, id string) (*models.Appointment, error)
	Create(ctx context.Context, ownerID uuid.UUID, req AppointmentRequest) (*models.Appointment, error)
	Update(ctx context.Context, ownerID uuid.UUID, id string, req AppointmentRequest) (*models.Appointment, error)
	Delete(ctx context.Context, ownerID uuid.UUID, id string) error
	LinkFromEmail(ctx context.Context, ownerID uuid.UUID, emailID string, start, end time.Time) (*models.Appointment, error)
	RelatedEmails(ctx context.Context, ownerID uuid.UUID, id string) ([]models.Email, error)
	Upcoming(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}

type calendarService struct {
	repo   repositories.AppointmentRepository
	emails EmailService
	log    *zap.Logger
}

func NewCalendarService(repo repositories.AppointmentRepository, emails EmailService, log *zap.Logger) CalendarService {
	return &calendarService{repo: repo, emails: emails, log: log}
}

func appointmentNotFound(id string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewNotFound("appointment", id, calendarBack)
	}
	return err
}

func (s *calendarService) List(ctx context.Context, ownerID uuid.UUID, day *time.Time) ([]models.Appointment, error) {
	appointments, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if day != nil {
		appointments = calendar.OnDay(appointments, *day)
	}
	return appointments, nil
}

func (s *calendarService) Get(ctx context.Context, ownerID uuid.UUID, id string) (*models.Appointment, error) {
	a, err := s.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, appointmentNotFound(id, err)
	}
	return a, nil
}

func (s *calendarService) Create(ctx context.Context, ownerID uuid.UUID, req AppointmentRequest) (*models.Appointment, error) {
	if req.End.IsZero() && !req.Start.IsZero() {
		req.End = req.Start.Add(calendar.DefaultDuration)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	status := req.Status
	if status == "" {
		status = models.AppointmentScheduled
	}
	a := &models.Appointment{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		PatientName: strings.TrimSpace(req.PatientName),
		Title:       strings.TrimSpace(req.Title),
		Start:       req.Start,
		End:         req.End,
		Status:      status,
		Location:    req.Location,
		Notes:       req.Notes,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return a, nil
}

func (s *calendarService) Update(ctx context.Context, ownerID uuid.UUID, id string, req AppointmentRequest) (*models.Appointment, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	a.PatientName = strings.TrimSpace(req.PatientName)
	a.Title = strings.TrimSpace(req.Title)
	a.Start = req.Start
	a.End = req.End
	if a.End.IsZero() {
		a.End = a.Start.Add(calendar.DefaultDuration)
	}
	if req.Status != "" {
		a.Status = req.Status
	}
	a.Location = req.Location
	a.Notes = req.Notes
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, appointmentNotFound(id, err)
	}
	return a, nil
}

func (s *calendarService) Delete(ctx context.Context, ownerID uuid.UUID, id string) error {
	return appointmentNotFound(id, s.repo.Delete(ctx, ownerID, id))
}

// LinkFromEmail schedules an appointment for the sender of an email and ties
// it to the email's thread.
func (s *calendarService) LinkFromEmail(ctx context.Context, ownerID uuid.UUID, emailID string, start, end time.Time) (*models.Appointment, error) {
	if start.IsZero() {
		return nil, fmt.Errorf("%w: start is required", common.ErrValidation)
	}
	e, err := s.emails.Get(ctx, ownerID, emailID)
	if err != nil {
		return nil, err
	}
	a := calendar.LinkEmail(*e, start, end)
	a.ID = uuid.NewString()
	a.OwnerID = ownerID
	if err := s.repo.Create(ctx, &a); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	s.log.Debug("appointment linked to email", zap.String("appointment_id", a.ID), zap.String("email_id", emailID))
	return &a, nil
}

func (s *calendarService) RelatedEmails(ctx context.Context, ownerID uuid.UUID, id string) ([]models.Email, error) {
	a, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	emails, err := s.emails.List(ctx, ownerID, EmailFilter{})
	if err != nil {
		return nil, err
	}
	return calendar.RelatedEmails(*a, emails), nil
}

// Upcoming lists non-cancelled appointments of every owner starting in [from, to).
func (s *calendarService) Upcoming(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	return s.repo.ListStartingBetween(ctx, from, to)
}
