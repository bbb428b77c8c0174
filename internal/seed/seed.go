// Package seed loads the demo users, mailboxes, appointments and CRM records.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"healthcrm/internal/common"
	"healthcrm/internal/models"
	"healthcrm/internal/repositories"
	"healthcrm/internal/services"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:embed fixtures.toml
var fixturesTOML string

type User struct {
	Email    string   `toml:"email"`
	Name     string   `toml:"name"`
	Password string   `toml:"password"`
	Roles    []string `toml:"roles"`
}

type Email struct {
	ID          string   `toml:"id"`
	Subject     string   `toml:"subject"`
	Sender      string   `toml:"sender"`
	SenderEmail string   `toml:"sender_email"`
	Recipient   string   `toml:"recipient"`
	Body        string   `toml:"body"`
	Folder      string   `toml:"folder"`
	Read        bool     `toml:"read"`
	Starred     bool     `toml:"starred"`
	Labels      []string `toml:"labels"`
	HoursAgo    int      `toml:"hours_ago"`
}

type Appointment struct {
	ID            string `toml:"id"`
	PatientName   string `toml:"patient_name"`
	Title         string `toml:"title"`
	DayOffset     int    `toml:"day_offset"`
	Start         string `toml:"start"`
	Minutes       int    `toml:"minutes"`
	Status        string `toml:"status"`
	Location      string `toml:"location"`
	EmailThreadID string `toml:"email_thread_id"`
}

type Patient struct {
	FirstName   string `toml:"first_name"`
	LastName    string `toml:"last_name"`
	DateOfBirth string `toml:"date_of_birth"`
	Email       string `toml:"email"`
	Phone       string `toml:"phone"`
	Insurance   string `toml:"insurance"`
	Status      string `toml:"status"`
}

type Organization struct {
	Name     string `toml:"name"`
	Type     string `toml:"type"`
	Address  string `toml:"address"`
	Phone    string `toml:"phone"`
	Website  string `toml:"website"`
	Contacts int    `toml:"contacts"`
}

type Contact struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
	Phone string `toml:"phone"`
	Title string `toml:"title"`
}

type Deal struct {
	Title         string  `toml:"title"`
	Value         float64 `toml:"value"`
	Stage         string  `toml:"stage"`
	Owner         string  `toml:"owner"`
	ExpectedClose string  `toml:"expected_close"`
}

type Prescription struct {
	PatientName string `toml:"patient_name"`
	Medication  string `toml:"medication"`
	Dosage      string `toml:"dosage"`
	Frequency   string `toml:"frequency"`
	Refills     int    `toml:"refills"`
	Status      string `toml:"status"`
	Prescriber  string `toml:"prescriber"`
}

type Call struct {
	ContactName string `toml:"contact_name"`
	Phone       string `toml:"phone"`
	Direction   string `toml:"direction"`
	Outcome     string `toml:"outcome"`
	Duration    int    `toml:"duration_seconds"`
	Notes       string `toml:"notes"`
}

type Workflow struct {
	Name        string   `toml:"name"`
	Description string   `toml:"description"`
	Trigger     string   `toml:"trigger"`
	Steps       []string `toml:"steps"`
	Status      string   `toml:"status"`
}

// Fixtures is the decoded demo data set.
type Fixtures struct {
	Users         []User         `toml:"users"`
	Emails        []Email        `toml:"emails"`
	Appointments  []Appointment  `toml:"appointments"`
	Patients      []Patient      `toml:"patients"`
	Organizations []Organization `toml:"organizations"`
	Contacts      []Contact      `toml:"contacts"`
	Deals         []Deal         `toml:"deals"`
	Prescriptions []Prescription `toml:"prescriptions"`
	Calls         []Call         `toml:"calls"`
	Workflows     []Workflow     `toml:"workflows"`
}

// Load decodes the embedded fixtures.
func Load() (*Fixtures, error) {
	return Decode(fixturesTOML)
}

func Decode(data string) (*Fixtures, error) {
	var f Fixtures
	meta, err := toml.Decode(data, &f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode fixtures: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown fixture keys: %v", undecoded)
	}
	return &f, nil
}

// Collections are the in-memory record stores the fixtures fill.
type Collections struct {
	Patients      *repositories.Collection[models.Patient]
	Organizations *repositories.Collection[models.Organization]
	Contacts      *repositories.Collection[models.Contact]
	Deals         *repositories.Collection[models.Deal]
	Prescriptions *repositories.Collection[models.Prescription]
	Calls         *repositories.Collection[models.CallRecord]
	Workflows     *repositories.Collection[models.Workflow]
}

// Seeder writes fixtures through the same repositories the server uses.
type Seeder struct {
	Auth         services.AuthService
	Users        repositories.UserRepository
	Emails       repositories.EmailRepository
	Appointments repositories.AppointmentRepository
	Log          *zap.Logger
	Now          func() time.Time
}

// Accounts creates every fixture user that does not exist yet and gives each
// new account the demo mailbox and schedule. Existing accounts are left
// untouched so restarting against postgres does not duplicate data.
func (s *Seeder) Accounts(ctx context.Context, f *Fixtures) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	for _, u := range f.Users {
		_, err := s.Users.GetByEmail(ctx, u.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, common.ErrNotFound) {
			return err
		}
		user, err := s.Auth.Register(ctx, u.Email, u.Name, u.Password, u.Roles)
		if err != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
		if err := s.mailbox(ctx, user, f.Emails, now()); err != nil {
			return err
		}
		if err := s.schedule(ctx, user.ID, f.Appointments, now()); err != nil {
			return err
		}
		s.Log.Info("seeded account", zap.String("email", user.Email), zap.Strings("roles", user.Roles))
	}
	return nil
}

func (s *Seeder) mailbox(ctx context.Context, user *models.User, emails []Email, now time.Time) error {
	// oldest first so the newest ends up on top of the mailbox
	for i := len(emails) - 1; i >= 0; i-- {
		e := emails[i]
		folder, ok := models.ParseFolder(e.Folder)
		if !ok {
			return fmt.Errorf("fixture email %s has unknown folder %q", e.ID, e.Folder)
		}
		sender, senderEmail, recipient := e.Sender, e.SenderEmail, e.Recipient
		if folder == models.FolderSent || folder == models.FolderDrafts {
			sender, senderEmail = user.Name, user.Email
		} else {
			recipient = user.Email
		}
		labels := e.Labels
		if labels == nil {
			labels = []string{}
		}
		record := &models.Email{
			ID:          e.ID,
			OwnerID:     user.ID,
			Subject:     e.Subject,
			Sender:      sender,
			SenderEmail: senderEmail,
			Recipient:   recipient,
			Body:        e.Body,
			Read:        e.Read,
			Starred:     e.Starred,
			Folder:      folder,
			Labels:      labels,
			ReceivedAt:  now.Add(-time.Duration(e.HoursAgo) * time.Hour).UTC(),
		}
		if err := s.Emails.Create(ctx, record); err != nil {
			return fmt.Errorf("failed to seed email %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *Seeder) schedule(ctx context.Context, ownerID uuid.UUID, appointments []Appointment, now time.Time) error {
	y, m, d := now.Date()
	for _, a := range appointments {
		clock, err := time.Parse("15:04", a.Start)
		if err != nil {
			return fmt.Errorf("fixture appointment %s has bad start %q: %w", a.ID, a.Start, err)
		}
		start := time.Date(y, m, d+a.DayOffset, clock.Hour(), clock.Minute(), 0, 0, now.Location())
		status := models.AppointmentStatus(a.Status)
		if status == "" {
			status = models.AppointmentScheduled
		}
		record := &models.Appointment{
			ID:            a.ID,
			OwnerID:       ownerID,
			PatientName:   a.PatientName,
			Title:         a.Title,
			Start:         start,
			End:           start.Add(time.Duration(a.Minutes) * time.Minute),
			Status:        status,
			Location:      a.Location,
			EmailThreadID: a.EmailThreadID,
		}
		if err := s.Appointments.Create(ctx, record); err != nil {
			return fmt.Errorf("failed to seed appointment %s: %w", a.ID, err)
		}
	}
	return nil
}

// NewCollections builds the record collections filled with fixture data.
func NewCollections(f *Fixtures) *Collections {
	c := &Collections{
		Patients:      repositories.NewCollection[models.Patient](),
		Organizations: repositories.NewCollection[models.Organization](),
		Contacts:      repositories.NewCollection[models.Contact](),
		Deals:         repositories.NewCollection[models.Deal](),
		Prescriptions: repositories.NewCollection[models.Prescription](),
		Calls:         repositories.NewCollection[models.CallRecord](),
		Workflows:     repositories.NewCollection[models.Workflow](),
	}
	if f == nil {
		return c
	}

	ctx := context.Background()
	for _, p := range f.Patients {
		c.Patients.Create(ctx, models.Patient{FirstName: p.FirstName, LastName: p.LastName, DateOfBirth: p.DateOfBirth,
			Email: p.Email, Phone: p.Phone, Insurance: p.Insurance, Status: p.Status})
	}
	for _, o := range f.Organizations {
		c.Organizations.Create(ctx, models.Organization{Name: o.Name, Type: o.Type, Address: o.Address,
			Phone: o.Phone, Website: o.Website, Contacts: o.Contacts})
	}
	for _, ct := range f.Contacts {
		c.Contacts.Create(ctx, models.Contact{Name: ct.Name, Email: ct.Email, Phone: ct.Phone, Title: ct.Title})
	}
	for _, d := range f.Deals {
		c.Deals.Create(ctx, models.Deal{Title: d.Title, Value: d.Value, Stage: models.DealStage(d.Stage),
			Owner: d.Owner, ExpectedClose: d.ExpectedClose})
	}
	for _, p := range f.Prescriptions {
		c.Prescriptions.Create(ctx, models.Prescription{PatientName: p.PatientName, Medication: p.Medication,
			Dosage: p.Dosage, Frequency: p.Frequency, Refills: p.Refills, Status: p.Status, Prescriber: p.Prescriber})
	}
	for _, call := range f.Calls {
		c.Calls.Create(ctx, models.CallRecord{ContactName: call.ContactName, Phone: call.Phone,
			Direction: call.Direction, Outcome: call.Outcome, Duration: call.Duration, Notes: call.Notes})
	}
	for _, w := range f.Workflows {
		c.Workflows.Create(ctx, models.Workflow{Name: w.Name, Description: w.Description, Trigger: w.Trigger,
			Steps: w.Steps, Status: models.WorkflowStatus(w.Status)})
	}
	return c
}
