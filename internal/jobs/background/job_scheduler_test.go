package background

import (
	"context"
	"testing"
	"time"

	"healthcrm/internal/caching"
	"healthcrm/internal/models"
	"healthcrm/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockUpcomingLister struct {
	mock.Mock
}

func (m *MockUpcomingLister) Upcoming(ctx context.Context, from, to time.Time) ([]models.Appointment, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Appointment), args.Error(1)
}

func TestSendReminders_OncePerAppointmentStart(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	owner := uuid.New()
	appt := models.Appointment{ID: "a1", OwnerID: owner, Title: "Checkup", PatientName: "Jane Roe", Start: now.Add(10 * time.Minute)}

	lister := &MockUpcomingLister{}
	lister.On("Upcoming", ctx, now, now.Add(reminderLead)).Return([]models.Appointment{appt}, nil)

	notifications := services.NewNotificationService(caching.NewMemoryStore(), zaptest.NewLogger(t))
	js, err := NewJobScheduler(lister, notifications, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = js.Stop() }()
	js.now = func() time.Time { return now }

	require.NoError(t, js.sendReminders(ctx))
	require.NoError(t, js.sendReminders(ctx))

	toasts, err := notifications.Drain(ctx, owner)
	require.NoError(t, err)
	require.Len(t, toasts, 1)
	assert.Equal(t, "Checkup with Jane Roe starts in 10 min.", toasts[0].Message)
	lister.AssertExpectations(t)
}

func TestSendReminders_RescheduledAppointmentRemindedAgain(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	owner := uuid.New()
	first := models.Appointment{ID: "a1", OwnerID: owner, Title: "Checkup", PatientName: "Jane", Start: now.Add(5 * time.Minute)}
	moved := first
	moved.Start = now.Add(12 * time.Minute)

	lister := &MockUpcomingLister{}
	lister.On("Upcoming", ctx, now, now.Add(reminderLead)).Return([]models.Appointment{first}, nil).Once()
	lister.On("Upcoming", ctx, now, now.Add(reminderLead)).Return([]models.Appointment{moved}, nil).Once()

	notifications := services.NewNotificationService(caching.NewMemoryStore(), zaptest.NewLogger(t))
	js, err := NewJobScheduler(lister, notifications, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = js.Stop() }()
	js.now = func() time.Time { return now }

	require.NoError(t, js.sendReminders(ctx))
	require.NoError(t, js.sendReminders(ctx))

	toasts, _ := notifications.Drain(ctx, owner)
	assert.Len(t, toasts, 2)
}

func TestSweepJobRegisteredOnlyWithSweeper(t *testing.T) {
	lister := &MockUpcomingLister{}
	notifications := services.NewNotificationService(caching.NewMemoryStore(), zaptest.NewLogger(t))

	js, err := NewJobScheduler(lister, notifications, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.NotContains(t, js.jobs, "sweep")
	_ = js.Stop()

	js, err = NewJobScheduler(lister, notifications, caching.NewMemoryStore(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Contains(t, js.jobs, "sweep")
	_ = js.Stop()
}
