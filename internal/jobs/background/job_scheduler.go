package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"healthcrm/internal/models"
	"healthcrm/internal/services"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const (
	reminderInterval = time.Minute
	reminderLead     = 15 * time.Minute
	sweepInterval    = 5 * time.Minute
)

// UpcomingLister finds appointments starting within a window.
type UpcomingLister interface {
	Upcoming(ctx context.Context, from, to time.Time) ([]models.Appointment, error)
}

// Sweeper drops expired entries from an in-process store.
type Sweeper interface {
	Sweep() int
}

// JobScheduler runs the periodic jobs: appointment reminders and, when the
// key/value store lives in process memory, expiry sweeps.
type JobScheduler struct {
	scheduler     gocron.Scheduler
	appointments  UpcomingLister
	notifications services.NotificationService
	sweeper       Sweeper
	log           *zap.Logger
	now           func() time.Time

	mu       sync.Mutex
	reminded map[string]time.Time // appointment id+start -> start
	jobs     map[string]gocron.Job
}

// NewJobScheduler creates the scheduler and registers its jobs. sweeper may be nil.
func NewJobScheduler(appointments UpcomingLister, notifications services.NotificationService,
	sweeper Sweeper, log *zap.Logger) (*JobScheduler, error) {

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	js := &JobScheduler{
		scheduler:     scheduler,
		appointments:  appointments,
		notifications: notifications,
		sweeper:       sweeper,
		log:           log,
		now:           time.Now,
		reminded:      make(map[string]time.Time),
		jobs:          make(map[string]gocron.Job),
	}
	if err := js.registerJobs(); err != nil {
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.log.Info("starting background job scheduler", zap.Int("jobs", len(js.jobs)))
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	js.log.Info("stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	reminders, err := js.scheduler.NewJob(
		gocron.DurationJob(reminderInterval),
		gocron.NewTask(js.sendReminders, context.Background()),
		gocron.WithName("appointment-reminders"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create reminders job: %w", err)
	}
	js.jobs["reminders"] = reminders

	if js.sweeper != nil {
		sweep, err := js.scheduler.NewJob(
			gocron.DurationJob(sweepInterval),
			gocron.NewTask(js.sweepStore),
			gocron.WithName("store-sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to create sweep job: %w", err)
		}
		js.jobs["sweep"] = sweep
	}
	return nil
}

// sendReminders pushes one toast per appointment starting within the lead
// window. An appointment moved to a new start time is reminded again.
func (js *JobScheduler) sendReminders(ctx context.Context) error {
	now := js.now()
	upcoming, err := js.appointments.Upcoming(ctx, now, now.Add(reminderLead))
	if err != nil {
		js.log.Error("failed to load upcoming appointments", zap.Error(err))
		return err
	}

	js.mu.Lock()
	defer js.mu.Unlock()

	sent := 0
	for _, a := range upcoming {
		key := a.ID + "@" + a.Start.UTC().Format(time.RFC3339)
		if _, ok := js.reminded[key]; ok {
			continue
		}
		js.reminded[key] = a.Start
		minutes := int(a.Start.Sub(now).Round(time.Minute) / time.Minute)
		js.notifications.Push(ctx, a.OwnerID, models.ToastInfo, "Upcoming appointment",
			fmt.Sprintf("%s with %s starts in %d min.", a.Title, a.PatientName, minutes))
		sent++
	}

	for key, start := range js.reminded {
		if start.Before(now) {
			delete(js.reminded, key)
		}
	}
	if sent > 0 {
		js.log.Debug("appointment reminders sent", zap.Int("count", sent))
	}
	return nil
}

func (js *JobScheduler) sweepStore() {
	if removed := js.sweeper.Sweep(); removed > 0 {
		js.log.Debug("swept expired keys", zap.Int("removed", removed))
	}
}
