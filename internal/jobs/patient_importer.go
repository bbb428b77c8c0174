package jobs

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"healthcrm/internal/common"
	"healthcrm/internal/latency"
	"healthcrm/internal/models"
	"healthcrm/internal/services"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxImportErrors = 50

	// DefaultImportRetention is how long a finished import stays pollable.
	DefaultImportRetention = time.Hour
)

// PatientCreator is the part of the patient service an import writes through.
type PatientCreator interface {
	Create(ctx context.Context, p models.Patient) (models.Patient, error)
}

type importJob struct {
	status models.ImportStatus
	cancel context.CancelFunc
	done   chan struct{}
}

// ImportRunner runs CSV patient imports in the background. Each import has
// its own cancel function; progress is polled through Status.
type ImportRunner struct {
	patients      PatientCreator
	notifications services.NotificationService
	log           *zap.Logger
	rowDelay      time.Duration
	retention     time.Duration
	now           func() time.Time

	mu   sync.Mutex
	jobs map[string]*importJob
	wg   sync.WaitGroup
}

func NewImportRunner(patients PatientCreator, notifications services.NotificationService, log *zap.Logger, rowDelay time.Duration) *ImportRunner {
	return &ImportRunner{
		patients:      patients,
		notifications: notifications,
		log:           log,
		rowDelay:      rowDelay,
		retention:     DefaultImportRetention,
		now:           time.Now,
		jobs:          make(map[string]*importJob),
	}
}

var patientColumns = []string{"first_name", "last_name", "date_of_birth", "email", "phone", "insurance", "notes"}

// parsePatientCSV reads the whole file up front so a malformed upload is
// rejected before a job is created.
func parsePatientCSV(r io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse CSV: %v", common.ErrValidation, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: CSV must have a header row and at least one data row", common.ErrValidation)
	}

	header := make([]string, len(records[0]))
	for i, col := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(col))
	}
	for _, required := range []string{"first_name", "last_name"} {
		if !slices.Contains(header, required) {
			return nil, fmt.Errorf("%w: CSV header must include %s", common.ErrValidation, required)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) && slices.Contains(patientColumns, col) {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Start validates the upload and begins importing it. The returned status is
// a snapshot; poll Status for progress.
func (r *ImportRunner) Start(ownerID uuid.UUID, data io.Reader) (models.ImportStatus, error) {
	rows, err := parsePatientCSV(data)
	if err != nil {
		return models.ImportStatus{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	job := &importJob{
		status: models.ImportStatus{
			ID:        uuid.NewString(),
			State:     models.ImportRunning,
			Total:     len(rows),
			StartedAt: r.now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	r.evictFinished()
	r.jobs[job.status.ID] = job
	snapshot := job.status
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx, ownerID, job, rows)

	r.log.Info("patient import started", zap.String("import_id", snapshot.ID), zap.Int("rows", snapshot.Total))
	return snapshot, nil
}

func (r *ImportRunner) run(ctx context.Context, ownerID uuid.UUID, job *importJob, rows []map[string]string) {
	defer r.wg.Done()
	defer close(job.done)
	defer job.cancel()

	for i, row := range rows {
		if err := latency.Wait(ctx, r.rowDelay); err != nil {
			r.finish(ctx, ownerID, job, models.ImportCancelled)
			return
		}
		_, err := r.patients.Create(ctx, models.Patient{
			FirstName:   row["first_name"],
			LastName:    row["last_name"],
			DateOfBirth: row["date_of_birth"],
			Email:       row["email"],
			Phone:       row["phone"],
			Insurance:   row["insurance"],
			Notes:       row["notes"],
		})

		if err != nil && ctx.Err() != nil {
			r.finish(ctx, ownerID, job, models.ImportCancelled)
			return
		}

		r.mu.Lock()
		job.status.Processed++
		if err != nil {
			job.status.Failed++
			if len(job.status.Errors) < maxImportErrors {
				job.status.Errors = append(job.status.Errors, fmt.Sprintf("row %d: %v", i+2, err))
			}
		}
		r.mu.Unlock()
	}

	if ctx.Err() != nil {
		r.finish(ctx, ownerID, job, models.ImportCancelled)
		return
	}

	state := models.ImportCompleted
	r.mu.Lock()
	if job.status.Total > 0 && job.status.Failed == job.status.Total {
		state = models.ImportFailed
	}
	r.mu.Unlock()
	r.finish(ctx, ownerID, job, state)
}

// evictFinished drops imports that finished more than retention ago. Callers
// hold r.mu.
func (r *ImportRunner) evictFinished() {
	cutoff := r.now().Add(-r.retention)
	for id, job := range r.jobs {
		if job.status.FinishedAt != nil && job.status.FinishedAt.Before(cutoff) {
			delete(r.jobs, id)
		}
	}
}

func (r *ImportRunner) finish(ctx context.Context, ownerID uuid.UUID, job *importJob, state models.ImportState) {
	now := r.now().UTC()
	r.mu.Lock()
	job.status.State = state
	job.status.FinishedAt = &now
	status := job.status
	r.mu.Unlock()

	r.log.Info("patient import finished",
		zap.String("import_id", status.ID),
		zap.String("state", string(state)),
		zap.Int("processed", status.Processed),
		zap.Int("failed", status.Failed))

	// the job context may already be cancelled
	ctx = context.WithoutCancel(ctx)
	switch state {
	case models.ImportCompleted:
		msg := fmt.Sprintf("Imported %d of %d patients.", status.Processed-status.Failed, status.Total)
		r.notifications.Push(ctx, ownerID, models.ToastSuccess, "Import complete", msg)
	case models.ImportFailed:
		r.notifications.Push(ctx, ownerID, models.ToastError, "Import failed", "No rows could be imported.")
	case models.ImportCancelled:
		r.notifications.Push(ctx, ownerID, models.ToastInfo, "Import cancelled",
			fmt.Sprintf("Stopped after %d of %d rows.", status.Processed, status.Total))
	}
}

func (r *ImportRunner) Status(id string) (models.ImportStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return models.ImportStatus{}, common.NewNotFound("import", id, "/patients")
	}
	status := job.status
	status.Errors = slices.Clone(job.status.Errors)
	return status, nil
}

// Cancel stops a running import. Cancelling a finished import is a no-op.
func (r *ImportRunner) Cancel(id string) (models.ImportStatus, error) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return models.ImportStatus{}, common.NewNotFound("import", id, "/patients")
	}
	job.cancel()
	<-job.done
	return r.Status(id)
}

// Wait blocks until the import finishes or ctx is done.
func (r *ImportRunner) Wait(ctx context.Context, id string) (models.ImportStatus, error) {
	r.mu.Lock()
	job, ok := r.jobs[id]
	r.mu.Unlock()
	if !ok {
		return models.ImportStatus{}, common.NewNotFound("import", id, "/patients")
	}
	select {
	case <-job.done:
		return r.Status(id)
	case <-ctx.Done():
		return models.ImportStatus{}, ctx.Err()
	}
}

// Shutdown cancels every running import and waits for them to stop.
func (r *ImportRunner) Shutdown() {
	r.mu.Lock()
	for _, job := range r.jobs {
		job.cancel()
	}
	r.mu.Unlock()
	r.wg.Wait()
}
