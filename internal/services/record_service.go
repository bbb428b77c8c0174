package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"healthcrm/internal/common"
	"healthcrm/internal/latency"
	"healthcrm/internal/models"
	"healthcrm/internal/repositories"
)

// RecordService is the CRUD surface shared by the flat CRM screens.
type RecordService[T models.Record[T]] interface {
	List(ctx context.Context, query string) ([]T, error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, item T) (T, error)
	Delete(ctx context.Context, id string) error
}

type recordService[T models.Record[T]] struct {
	resource string
	back     string
	items    *repositories.Collection[T]
}

// NewRecordService serves items as resource; not-found errors point back to
// the screen at back.
func NewRecordService[T models.Record[T]](resource, back string, items *repositories.Collection[T]) RecordService[T] {
	return &recordService[T]{resource: resource, back: back, items: items}
}

func (s *recordService[T]) notFound(id string, err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewNotFound(s.resource, id, s.back)
	}
	return err
}

func (s *recordService[T]) List(ctx context.Context, query string) ([]T, error) {
	return s.items.List(ctx, query)
}

func (s *recordService[T]) Get(ctx context.Context, id string) (T, error) {
	item, err := s.items.Get(ctx, id)
	return item, s.notFound(id, err)
}

func (s *recordService[T]) Create(ctx context.Context, item T) (T, error) {
	if err := item.Validate(); err != nil {
		var zero T
		return zero, err
	}
	return s.items.Create(ctx, item)
}

func (s *recordService[T]) Update(ctx context.Context, id string, item T) (T, error) {
	if err := item.Validate(); err != nil {
		var zero T
		return zero, err
	}
	out, err := s.items.Update(ctx, id, item)
	return out, s.notFound(id, err)
}

func (s *recordService[T]) Delete(ctx context.Context, id string) error {
	return s.notFound(id, s.items.Delete(ctx, id))
}

func (s *recordService[T]) modify(ctx context.Context, id string, fn func(T) (T, error)) (T, error) {
	out, err := s.items.Modify(ctx, id, fn)
	return out, s.notFound(id, err)
}

// PatientService adds a simulated round-trip to detail loads.
type PatientService struct {
	RecordService[models.Patient]
	delay time.Duration
}

func NewPatientService(items *repositories.Collection[models.Patient], delay time.Duration) *PatientService {
	return &PatientService{
		RecordService: NewRecordService("patient", "/patients", items),
		delay:         delay,
	}
}

// Get waits out the simulated latency first and gives up when ctx is cancelled.
func (s *PatientService) Get(ctx context.Context, id string) (models.Patient, error) {
	if err := latency.Wait(ctx, s.delay); err != nil {
		return models.Patient{}, err
	}
	return s.RecordService.Get(ctx, id)
}

type DealService struct {
	*recordService[models.Deal]
}

func NewDealService(items *repositories.Collection[models.Deal]) *DealService {
	return &DealService{&recordService[models.Deal]{resource: "deal", back: "/deals", items: items}}
}

// MoveStage moves a deal to another pipeline column.
func (s *DealService) MoveStage(ctx context.Context, id string, stage models.DealStage) (models.Deal, error) {
	if err := models.ValidateDealStage(stage); err != nil {
		return models.Deal{}, err
	}
	return s.modify(ctx, id, func(d models.Deal) (models.Deal, error) {
		d.Stage = stage
		return d, nil
	})
}

// OpenPipeline returns the number and total value of deals not yet won or lost.
func (s *DealService) OpenPipeline(ctx context.Context) (int, float64, error) {
	deals, err := s.List(ctx, "")
	if err != nil {
		return 0, 0, err
	}
	var (
		count int
		total float64
	)
	for _, d := range deals {
		if d.Stage.Open() {
			count++
			total += d.Value
		}
	}
	return count, total, nil
}

type WorkflowService struct {
	*recordService[models.Workflow]
}

func NewWorkflowService(items *repositories.Collection[models.Workflow]) *WorkflowService {
	return &WorkflowService{&recordService[models.Workflow]{resource: "workflow", back: "/workflows", items: items}}
}

func (s *WorkflowService) Activate(ctx context.Context, id string) (models.Workflow, error) {
	return s.setStatus(ctx, id, models.WorkflowActive)
}

func (s *WorkflowService) Pause(ctx context.Context, id string) (models.Workflow, error) {
	return s.setStatus(ctx, id, models.WorkflowPaused)
}

func (s *WorkflowService) setStatus(ctx context.Context, id string, status models.WorkflowStatus) (models.Workflow, error) {
	return s.modify(ctx, id, func(w models.Workflow) (models.Workflow, error) {
		if status == models.WorkflowActive && len(w.Steps) == 0 {
			return w, fmt.Errorf("%w: workflow %q has no steps", common.ErrValidation, w.Name)
		}
		w.Status = status
		return w, nil
	})
}

func (s *WorkflowService) ActiveCount(ctx context.Context) (int, error) {
	workflows, err := s.List(ctx, "")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, w := range workflows {
		if w.Status == models.WorkflowActive {
			n++
		}
	}
	return n, nil
}

type PrescriptionService struct {
	*recordService[models.Prescription]
}

func NewPrescriptionService(items *repositories.Collection[models.Prescription]) *PrescriptionService {
	return &PrescriptionService{&recordService[models.Prescription]{resource: "prescription", back: "/prescriptions", items: items}}
}

func (s *PrescriptionService) SetStatus(ctx context.Context, id, status string) (models.Prescription, error) {
	if err := common.ValidateOneOf(status, "status", "active", "completed", "cancelled"); err != nil {
		return models.Prescription{}, err
	}
	return s.modify(ctx, id, func(p models.Prescription) (models.Prescription, error) {
		p.Status = status
		return p, nil
	})
}

type CallService struct {
	*recordService[models.CallRecord]
}

func NewCallService(items *repositories.Collection[models.CallRecord]) *CallService {
	return &CallService{&recordService[models.CallRecord]{resource: "call", back: "/calls", items: items}}
}

// ByContact lists calls with the named contact, most recently logged first.
func (s *CallService) ByContact(ctx context.Context, name string) ([]models.CallRecord, error) {
	calls, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]models.CallRecord, 0)
	for i := len(calls) - 1; i >= 0; i-- {
		if common.ContainsFold(calls[i].ContactName, name) {
			out = append(out, calls[i])
		}
	}
	return out, nil
}
