package models

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

type Appointment struct {
	ID            string            `json:"id" db:"id"`
	OwnerID       uuid.UUID         `json:"owner_id" db:"owner_id"`
	PatientName   string            `json:"patient_name" db:"patient_name"`
	Title         string            `json:"title" db:"title"`
	Start         time.Time         `json:"start" db:"starts_at"`
	End           time.Time         `json:"end" db:"ends_at"`
	Status        AppointmentStatus `json:"status" db:"status"`
	Location      string            `json:"location" db:"location"`
	Notes         string            `json:"notes" db:"notes"`
	EmailThreadID string            `json:"email_thread_id,omitempty" db:"email_thread_id"`
}
