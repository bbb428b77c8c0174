// Package calendar links emails to appointments and finds the emails related
// to an appointment.
package calendar

import (
	"strings"
	"time"

	"healthcrm/internal/common"
	"healthcrm/internal/models"
)

// DefaultDuration is used when an appointment is created from an email
// without an explicit end.
const DefaultDuration = 30 * time.Minute

// LinkEmail builds an appointment for the email at start. The appointment's
// EmailThreadID is the email id so related emails can be found later.
func LinkEmail(e models.Email, start, end time.Time) models.Appointment {
	if end.IsZero() || !end.After(start) {
		end = start.Add(DefaultDuration)
	}
	title := strings.TrimSpace(e.Subject)
	if title == "" {
		title = "Follow-up"
	}
	patient := e.Sender
	if patient == "" {
		patient = e.SenderEmail
	}
	return models.Appointment{
		OwnerID:       e.OwnerID,
		PatientName:   patient,
		Title:         title,
		Start:         start,
		End:           end,
		Status:        models.AppointmentScheduled,
		EmailThreadID: e.ID,
	}
}

// RelatedEmails returns the emails linked to the appointment by thread id,
// plus emails whose sender name or subject contains the appointment's
// patient name or title, ignoring case. Results keep input order and are
// not ranked.
func RelatedEmails(a models.Appointment, emails []models.Email) []models.Email {
	out := make([]models.Email, 0)
	for _, e := range emails {
		if IsRelated(a, e) {
			out = append(out, e)
		}
	}
	return out
}

// IsRelated reports whether e belongs to the appointment.
func IsRelated(a models.Appointment, e models.Email) bool {
	if a.EmailThreadID != "" && e.ID == a.EmailThreadID {
		return true
	}
	for _, needle := range []string{a.PatientName, a.Title} {
		needle = strings.TrimSpace(needle)
		if needle == "" {
			continue
		}
		if common.ContainsFold(e.Sender, needle) || common.ContainsFold(e.Subject, needle) {
			return true
		}
	}
	return false
}

// OnDay filters appointments starting on the calendar day of day, in day's
// location.
func OnDay(appointments []models.Appointment, day time.Time) []models.Appointment {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	return Between(appointments, from, from.AddDate(0, 0, 1))
}

// Between filters appointments with from <= Start < to.
func Between(appointments []models.Appointment, from, to time.Time) []models.Appointment {
	out := make([]models.Appointment, 0)
	for _, a := range appointments {
		if !a.Start.Before(from) && a.Start.Before(to) {
			out = append(out, a)
		}
	}
	return out
}
