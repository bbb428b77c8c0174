package models

import (
	"errors"
	"fmt"
	"time"

	"healthcrm/internal/common"
)

// Record is implemented by the flat CRM records kept in in-memory collections.
// WithID returns a copy of the record carrying id.
type Record[T any] interface {
	RecordID() string
	WithID(id string) T
	Validate() error
	Matches(query string) bool
}

type Patient struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	DateOfBirth string    `json:"date_of_birth"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Insurance   string    `json:"insurance"`
	Status      string    `json:"status"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
}

func (p Patient) RecordID() string { return p.ID }

func (p Patient) WithID(id string) Patient {
	p.ID = id
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = "active"
	}
	return p
}

func (p Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

func (p Patient) Validate() error {
	return errors.Join(
		common.ValidateRequiredString(p.FirstName, "first_name"),
		common.ValidateRequiredString(p.LastName, "last_name"),
		common.ValidateMaxLength(p.Notes, "notes", 4000),
	)
}

func (p Patient) Matches(q string) bool {
	return common.ContainsFold(p.FullName(), q) || common.ContainsFold(p.Email, q) || common.ContainsFold(p.Phone, q)
}

type Contact struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Title          string `json:"title"`
	OrganizationID string `json:"organization_id,omitempty"`
}

func (c Contact) RecordID() string { return c.ID }

func (c Contact) WithID(id string) Contact {
	c.ID = id
	return c
}

func (c Contact) Validate() error {
	return common.ValidateRequiredString(c.Name, "name")
}

func (c Contact) Matches(q string) bool {
	return common.ContainsFold(c.Name, q) || common.ContainsFold(c.Email, q)
}

type Organization struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"` // hospital, clinic, pharmacy, insurer, lab
	Address  string `json:"address"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Status   string `json:"status"`
	Contacts int    `json:"contacts"`
}

func (o Organization) RecordID() string { return o.ID }

func (o Organization) WithID(id string) Organization {
	o.ID = id
	if o.Status == "" {
		o.Status = "active"
	}
	return o
}

func (o Organization) Validate() error {
	return errors.Join(
		common.ValidateRequiredString(o.Name, "name"),
		validateOptional(o.Type, "type", "hospital", "clinic", "pharmacy", "insurer", "lab"),
	)
}

func (o Organization) Matches(q string) bool {
	return common.ContainsFold(o.Name, q) || common.ContainsFold(o.Type, q)
}

// DealStage is the pipeline column a deal sits in
type DealStage string

const (
	DealLead        DealStage = "lead"
	DealQualified   DealStage = "qualified"
	DealProposal    DealStage = "proposal"
	DealNegotiation DealStage = "negotiation"
	DealWon         DealStage = "won"
	DealLost        DealStage = "lost"
)

// Open reports whether the deal is still in the pipeline
func (s DealStage) Open() bool {
	return s != DealWon && s != DealLost
}

func ValidateDealStage(stage DealStage) error {
	return common.ValidateOneOf(string(stage), "stage",
		string(DealLead), string(DealQualified), string(DealProposal),
		string(DealNegotiation), string(DealWon), string(DealLost))
}

type Deal struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	OrganizationID string    `json:"organization_id,omitempty"`
	ContactID      string    `json:"contact_id,omitempty"`
	Value          float64   `json:"value"`
	Stage          DealStage `json:"stage"`
	ExpectedClose  string    `json:"expected_close,omitempty"`
	Owner          string    `json:"owner"`
}

func (d Deal) RecordID() string { return d.ID }

func (d Deal) WithID(id string) Deal {
	d.ID = id
	if d.Stage == "" {
		d.Stage = DealLead
	}
	return d
}

func (d Deal) Validate() error {
	var valueErr error
	if d.Value < 0 {
		valueErr = fmt.Errorf("%w: value cannot be negative", common.ErrValidation)
	}
	var stageErr error
	if d.Stage != "" {
		stageErr = ValidateDealStage(d.Stage)
	}
	return errors.Join(common.ValidateRequiredString(d.Title, "title"), valueErr, stageErr)
}

func (d Deal) Matches(q string) bool {
	return common.ContainsFold(d.Title, q) || common.ContainsFold(d.Owner, q)
}

type Prescription struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Medication  string    `json:"medication"`
	Dosage      string    `json:"dosage"`
	Frequency   string    `json:"frequency"`
	Refills     int       `json:"refills"`
	Status      string    `json:"status"` // active, completed, cancelled
	Prescriber  string    `json:"prescriber"`
	IssuedAt    time.Time `json:"issued_at"`
}

func (p Prescription) RecordID() string { return p.ID }

func (p Prescription) WithID(id string) Prescription {
	p.ID = id
	if p.Status == "" {
		p.Status = "active"
	}
	if p.IssuedAt.IsZero() {
		p.IssuedAt = time.Now().UTC()
	}
	return p
}

func (p Prescription) Validate() error {
	var refillsErr error
	if p.Refills < 0 {
		refillsErr = fmt.Errorf("%w: refills cannot be negative", common.ErrValidation)
	}
	return errors.Join(
		common.ValidateRequiredString(p.PatientName, "patient_name"),
		common.ValidateRequiredString(p.Medication, "medication"),
		common.ValidateRequiredString(p.Dosage, "dosage"),
		validateOptional(p.Status, "status", "active", "completed", "cancelled"),
		refillsErr,
	)
}

func (p Prescription) Matches(q string) bool {
	return common.ContainsFold(p.PatientName, q) || common.ContainsFold(p.Medication, q)
}

type CallRecord struct {
	ID          string    `json:"id"`
	ContactName string    `json:"contact_name"`
	Phone       string    `json:"phone"`
	Direction   string    `json:"direction"` // inbound, outbound
	Outcome     string    `json:"outcome"`   // answered, missed, voicemail
	Duration    int       `json:"duration_seconds"`
	Notes       string    `json:"notes"`
	CalledAt    time.Time `json:"called_at"`
}

func (c CallRecord) RecordID() string { return c.ID }

func (c CallRecord) WithID(id string) CallRecord {
	c.ID = id
	if c.CalledAt.IsZero() {
		c.CalledAt = time.Now().UTC()
	}
	return c
}

func (c CallRecord) Validate() error {
	var durationErr error
	if c.Duration < 0 {
		durationErr = fmt.Errorf("%w: duration cannot be negative", common.ErrValidation)
	}
	return errors.Join(
		common.ValidateRequiredString(c.ContactName, "contact_name"),
		common.ValidateOneOf(c.Direction, "direction", "inbound", "outbound"),
		validateOptional(c.Outcome, "outcome", "answered", "missed", "voicemail"),
		durationErr,
	)
}

func (c CallRecord) Matches(q string) bool {
	return common.ContainsFold(c.ContactName, q) || common.ContainsFold(c.Phone, q)
}

type WorkflowStatus string

const (
	WorkflowDraft  WorkflowStatus = "draft"
	WorkflowActive WorkflowStatus = "active"
	WorkflowPaused WorkflowStatus = "paused"
)

type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Trigger     string         `json:"trigger"`
	Steps       []string       `json:"steps"`
	Status      WorkflowStatus `json:"status"`
	RunCount    int            `json:"run_count"`
}

func (w Workflow) RecordID() string { return w.ID }

func (w Workflow) WithID(id string) Workflow {
	w.ID = id
	if w.Status == "" {
		w.Status = WorkflowDraft
	}
	return w
}

func (w Workflow) Validate() error {
	return errors.Join(
		common.ValidateRequiredString(w.Name, "name"),
		common.ValidateRequiredString(w.Trigger, "trigger"),
		validateOptional(string(w.Status), "status", string(WorkflowDraft), string(WorkflowActive), string(WorkflowPaused)),
	)
}

func (w Workflow) Matches(q string) bool {
	return common.ContainsFold(w.Name, q) || common.ContainsFold(w.Trigger, q)
}

func validateOptional(value, field string, allowed ...string) error {
	if value == "" {
		return nil
	}
	return common.ValidateOneOf(value, field, allowed...)
}
