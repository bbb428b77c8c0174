package services

import (
	"context"
	"time"

	"healthcrm/internal/auth"
	"healthcrm/internal/models"
)

type Dashboard struct {
	UnreadInbox       int                  `json:"unread_inbox"`
	TodayAppointments []models.Appointment `json:"today_appointments"`
	OpenDeals         int                  `json:"open_deals"`
	OpenDealsValue    float64              `json:"open_deals_value"`
	ActiveWorkflows   int                  `json:"active_workflows"`
	PendingActions    int                  `json:"pending_actions"`
	Roles             []string             `json:"roles"`
}

type DashboardService interface {
	Summary(ctx context.Context, p *auth.Principal) (*Dashboard, error)
}

type dashboardService struct {
	emails    EmailService
	calendar  CalendarService
	deals     *DealService
	workflows *WorkflowService
	status    StatusService
	now       func() time.Time
}

func NewDashboardService(emails EmailService, calendar CalendarService, deals *DealService,
	workflows *WorkflowService, status StatusService) DashboardService {
	return &dashboardService{
		emails:    emails,
		calendar:  calendar,
		deals:     deals,
		workflows: workflows,
		status:    status,
		now:       time.Now,
	}
}

func (s *dashboardService) Summary(ctx context.Context, p *auth.Principal) (*Dashboard, error) {
	counts, err := s.emails.FolderCounts(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	today := s.now()
	appointments, err := s.calendar.List(ctx, p.UserID, &today)
	if err != nil {
		return nil, err
	}
	openDeals, value, err := s.deals.OpenPipeline(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.workflows.ActiveCount(ctx)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		UnreadInbox:       counts[models.FolderInbox],
		TodayAppointments: appointments,
		OpenDeals:         openDeals,
		OpenDealsValue:    value,
		ActiveWorkflows:   active,
		PendingActions:    s.status.Pending(p.UserID),
		Roles:             p.Roles.Names(),
	}, nil
}
