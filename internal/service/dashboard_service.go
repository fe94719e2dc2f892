package service

import (
	"context"
	"fmt"
	"time"

	"educonnect/internal/model"
	"educonnect/internal/rbac"
	"educonnect/internal/repository"
)

const (
	recentActivityLimit = 5
	upcomingWindow      = 30 * 24 * time.Hour
)

// AdminDashboard is the landing summary for administrators.
type AdminDashboard struct {
	TotalUsers       int64        `json:"totalUsers"`
	ActiveUsers      int          `json:"activeUsers"`
	Students         int64        `json:"students"`
	Events           int64        `json:"events"`
	TodayActivities  int64        `json:"todayActivities"`
	TodayAttendance  int64        `json:"todayAttendance"`
	RecentActivities []AuditEntry `json:"recentActivities"`
}

// StudentDashboard is the landing summary for students.
type StudentDashboard struct {
	AttendanceRate      int          `json:"attendanceRate"`
	EventsAttended      int          `json:"eventsAttended"`
	UpcomingEvents      int          `json:"upcomingEvents"`
	UnreadNotifications int          `json:"unreadNotifications"`
	RecentActivities    []AuditEntry `json:"recentActivities"`
}

// DashboardService builds the landing pages.
type DashboardService interface {
	Admin(ctx context.Context, actorID string, role rbac.Role) (*AdminDashboard, error)
	Student(ctx context.Context, principalID string) (*StudentDashboard, error)
}

type dashboardService struct {
	users         repository.UserRepository
	events        repository.EventRepository
	attendance    repository.AttendanceRepository
	notifications repository.NotificationRepository
	auditRepo     repository.AuditRepository
	audit         AuditService
	now           func() time.Time
}

// NewDashboardService creates a new dashboard service.
func NewDashboardService(
	users repository.UserRepository,
	events repository.EventRepository,
	attendance repository.AttendanceRepository,
	notifications repository.NotificationRepository,
	auditRepo repository.AuditRepository,
	audit AuditService,
) DashboardService {
	return &dashboardService{
		users:         users,
		events:        events,
		attendance:    attendance,
		notifications: notifications,
		auditRepo:     auditRepo,
		audit:         audit,
		now:           time.Now,
	}
}

// Admin summarises the system. Super admins see everyone's recent activity,
// admins only their own.
func (s *dashboardService) Admin(ctx context.Context, actorID string, role rbac.Role) (*AdminDashboard, error) {
	var (
		d   AdminDashboard
		err error
	)
	if d.TotalUsers, err = s.users.Count(ctx, ""); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	active, err := s.users.List(ctx, repository.UserFilter{Status: model.UserStatusActive})
	if err != nil {
		return nil, fmt.Errorf("count active users: %w", err)
	}
	d.ActiveUsers = len(active)
	if d.Students, err = s.users.Count(ctx, rbac.ClientUser.String()); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}
	if d.Events, err = s.events.Count(ctx); err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	today := startOfDay(s.now())
	if d.TodayActivities, err = s.auditRepo.CountSince(ctx, today); err != nil {
		return nil, fmt.Errorf("count today's activity: %w", err)
	}
	if d.TodayAttendance, err = s.attendance.CountSince(ctx, today); err != nil {
		return nil, fmt.Errorf("count today's attendance: %w", err)
	}

	scope := actorID
	if role == rbac.SuperAdmin {
		scope = ""
	}
	if d.RecentActivities, err = s.audit.Recent(ctx, scope, recentActivityLimit); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *dashboardService) Student(ctx context.Context, principalID string) (*StudentDashboard, error) {
	records, err := s.attendance.ListForUser(ctx, principalID, 0)
	if err != nil {
		return nil, fmt.Errorf("list own attendance: %w", err)
	}
	sum := summarize(records)

	now := s.now()
	upcoming, err := s.events.ListBetween(ctx, now, now.Add(upcomingWindow))
	if err != nil {
		return nil, fmt.Errorf("list upcoming events: %w", err)
	}

	inbox, err := s.notifications.ListForRecipient(ctx, principalID, notificationWindow)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	unread := 0
	for i := range inbox {
		if !inbox[i].ReadBy(principalID) {
			unread++
		}
	}

	recent, err := s.audit.Recent(ctx, principalID, recentActivityLimit)
	if err != nil {
		return nil, err
	}

	return &StudentDashboard{
		AttendanceRate:      sum.Rate,
		EventsAttended:      sum.Present,
		UpcomingEvents:      len(upcoming),
		UnreadNotifications: unread,
		RecentActivities:    recent,
	}, nil
}
