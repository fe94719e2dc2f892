package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
	"educonnect/internal/repository"
)

const (
	reportWindow        = 200
	reportGenerationErr = "Error generating report data"
)

// ReportInput selects a generator and its parameters.
type ReportInput struct {
	ReportType model.ReportType `json:"reportType" validate:"required"`
	EventID    string           `json:"eventId"`
	UserID     string           `json:"userId"`
	DateFrom   string           `json:"dateFrom"`
	DateTo     string           `json:"dateTo"`
}

// ReportView is a stored report with its author's display name.
type ReportView struct {
	model.Report
	GeneratedByName string `json:"generatedByName"`
}

// ReportService generates and stores attendance reports.
type ReportService interface {
	Generate(ctx context.Context, actorID string, in ReportInput) (*model.Report, error)
	List(ctx context.Context, page int) (Page[ReportView], error)
	Get(ctx context.Context, id uuid.UUID) (*ReportView, error)
}

type reportService struct {
	reports    repository.ReportRepository
	attendance repository.AttendanceRepository
	events     repository.EventRepository
	users      repository.UserRepository
	audit      AuditRecorder
	log        *zap.Logger
	loc        *time.Location
}

// NewReportService creates a new report service. Date parameters are read in loc.
func NewReportService(
	reports repository.ReportRepository,
	attendance repository.AttendanceRepository,
	events repository.EventRepository,
	users repository.UserRepository,
	audit AuditRecorder,
	log *zap.Logger,
	loc *time.Location,
) ReportService {
	return &reportService{
		reports:    reports,
		attendance: attendance,
		events:     events,
		users:      users,
		audit:      audit,
		log:        log,
		loc:        loc,
	}
}

// Generate validates parameters, computes the results and stores the report.
// A failing query is stored as a report carrying an error, as the page shows it.
func (s *reportService) Generate(ctx context.Context, actorID string, in ReportInput) (*model.Report, error) {
	if !in.ReportType.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidReportType, in.ReportType)
	}
	dates, err := ParseDateRange(in.DateFrom, in.DateTo, s.loc)
	if err != nil {
		return nil, err
	}

	params := map[string]string{}
	setParam(params, "dateFrom", in.DateFrom)
	setParam(params, "dateTo", in.DateTo)

	var results model.ReportResults
	switch in.ReportType {
	case model.ReportAttendanceSummary:
		results, err = s.attendanceSummary(ctx, dates)
	case model.ReportEventAttendance:
		eventID, perr := uuid.Parse(strings.TrimSpace(in.EventID))
		if perr != nil {
			return nil, fmt.Errorf("%w: event is required", apperrors.ErrInvalidInput)
		}
		setParam(params, "eventId", eventID.String())
		results, err = s.eventAttendance(ctx, eventID)
	case model.ReportUserAttendance:
		userID := strings.TrimSpace(in.UserID)
		if userID == "" {
			return nil, fmt.Errorf("%w: user is required", apperrors.ErrInvalidInput)
		}
		setParam(params, "userId", userID)
		results, err = s.userAttendance(ctx, userID, dates)
	}
	if err != nil {
		s.log.Error("generate report", zap.String("type", string(in.ReportType)), zap.Error(err))
		results = model.ReportResults{Summary: map[string]any{}, Details: []map[string]any{}, Error: reportGenerationErr}
	}

	report := &model.Report{
		ReportType:  in.ReportType,
		Parameters:  params,
		Results:     results,
		GeneratedBy: actorID,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}
	s.audit.Record(ctx, actorID, model.AuditActionCreate, fmt.Sprintf("Generated report: %s", in.ReportType))
	return report, nil
}

func (s *reportService) List(ctx context.Context, page int) (Page[ReportView], error) {
	reports, err := s.reports.List(ctx, reportWindow)
	if err != nil {
		return Page[ReportView]{}, fmt.Errorf("list reports: %w", err)
	}
	views, err := s.withAuthors(ctx, reports)
	if err != nil {
		return Page[ReportView]{}, err
	}
	return Paginate(views, page, DefaultPageSize), nil
}

func (s *reportService) Get(ctx context.Context, id uuid.UUID) (*ReportView, error) {
	report, err := s.reports.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.withAuthors(ctx, []model.Report{*report})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *reportService) attendanceSummary(ctx context.Context, dates DateRange) (model.ReportResults, error) {
	records, err := s.attendance.List(ctx, repository.AttendanceFilter{From: dates.From, To: dates.To})
	if err != nil {
		return model.ReportResults{}, err
	}
	sum := summarize(records)
	return model.ReportResults{
		Summary: map[string]any{
			"totalRecords":   sum.Total,
			"present":        sum.Present,
			"absent":         sum.Absent,
			"late":           sum.Late,
			"excused":        sum.Excused,
			"attendanceRate": sum.Rate,
		},
		Details: []map[string]any{},
	}, nil
}

func (s *reportService) eventAttendance(ctx context.Context, eventID uuid.UUID) (model.ReportResults, error) {
	eventName := "Unknown Event"
	event, err := s.events.FindByID(ctx, eventID)
	switch {
	case err == nil:
		eventName = event.Name
	case !errors.Is(err, apperrors.ErrNotFound):
		return model.ReportResults{}, err
	}

	records, err := s.attendance.List(ctx, repository.AttendanceFilter{EventID: eventID})
	if err != nil {
		return model.ReportResults{}, err
	}
	sum := summarize(records)
	names, err := s.names(ctx, records)
	if err != nil {
		return model.ReportResults{}, err
	}

	details := make([]map[string]any, 0, len(records))
	for _, r := range records {
		details = append(details, map[string]any{
			"userId":    r.UserID,
			"userName":  nameOr(names, r.UserID, "Unknown User"),
			"status":    string(r.Status),
			"timestamp": r.Timestamp,
		})
	}
	return model.ReportResults{
		Summary: map[string]any{
			"eventName":      eventName,
			"totalAttendees": sum.Total,
			"present":        sum.Present,
			"absent":         sum.Absent,
			"late":           sum.Late,
			"excused":        sum.Excused,
		},
		Details: details,
	}, nil
}

func (s *reportService) userAttendance(ctx context.Context, userID string, dates DateRange) (model.ReportResults, error) {
	userName := "Unknown User"
	user, err := s.users.FindByID(ctx, userID)
	switch {
	case err == nil:
		userName = displayOrEmail(user)
	case !errors.Is(err, apperrors.ErrNotFound):
		return model.ReportResults{}, err
	}

	records, err := s.attendance.List(ctx, repository.AttendanceFilter{UserID: userID, From: dates.From, To: dates.To})
	if err != nil {
		return model.ReportResults{}, err
	}
	sum := summarize(records)

	eventIDs := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		eventIDs = append(eventIDs, r.EventID)
	}
	events, err := s.events.FindByIDs(ctx, eventIDs)
	if err != nil {
		return model.ReportResults{}, err
	}
	eventNames := make(map[uuid.UUID]string, len(events))
	for _, e := range events {
		eventNames[e.ID] = e.Name
	}

	details := make([]map[string]any, 0, len(records))
	for _, r := range records {
		name, ok := eventNames[r.EventID]
		if !ok {
			name = "Unknown Event"
		}
		details = append(details, map[string]any{
			"eventId":   r.EventID.String(),
			"eventName": name,
			"status":    string(r.Status),
			"timestamp": r.Timestamp,
		})
	}
	return model.ReportResults{
		Summary: map[string]any{
			"userName":       userName,
			"totalRecords":   sum.Total,
			"present":        sum.Present,
			"attendanceRate": sum.Rate,
		},
		Details: details,
	}, nil
}

func (s *reportService) names(ctx context.Context, records []model.AttendanceRecord) (map[string]string, error) {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(users))
	for i := range users {
		out[users[i].ID] = displayOrEmail(&users[i])
	}
	return out, nil
}

func (s *reportService) withAuthors(ctx context.Context, reports []model.Report) ([]ReportView, error) {
	ids := make([]string, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.GeneratedBy)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load report authors: %w", err)
	}
	names := make(map[string]string, len(users))
	for i := range users {
		names[users[i].ID] = displayOrEmail(&users[i])
	}
	views := make([]ReportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, ReportView{Report: r, GeneratedByName: nameOr(names, r.GeneratedBy, "Unknown")})
	}
	return views, nil
}

// displayOrEmail prefers "First Last" and falls back to the email.
func displayOrEmail(u *model.User) string {
	if u.FirstName != "" && u.LastName != "" {
		return u.FullName()
	}
	return u.Email
}

func nameOr(names map[string]string, id, fallback string) string {
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return fallback
}

func setParam(params map[string]string, key, value string) {
	if v := strings.TrimSpace(value); v != "" {
		params[key] = v
	}
}
