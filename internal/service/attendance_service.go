package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
	"educonnect/internal/repository"
)

// studentHistoryLimit caps a student's own attendance history.
const studentHistoryLimit = 200

// AttendanceInput marks or edits one attendance record.
type AttendanceInput struct {
	UserID    string    `json:"userId" validate:"required"`
	EventID   uuid.UUID `json:"eventId" validate:"required"`
	Status    string    `json:"status" validate:"required"`
	Timestamp time.Time `json:"timestamp"`
	Notes     string    `json:"notes"`
}

// AttendanceQuery filters the admin attendance listing.
type AttendanceQuery struct {
	EventID uuid.UUID
	UserID  string
	Status  string
	From    string
	To      string
	Page    int
}

// AttendanceView is a record joined with the names the pages display.
type AttendanceView struct {
	model.AttendanceRecord
	StudentName  string `json:"studentName"`
	StudentEmail string `json:"studentEmail,omitempty"`
	EventName    string `json:"eventName"`
}

// AttendanceSummary counts a student's records by status.
type AttendanceSummary struct {
	Total   int `json:"total"`
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Excused int `json:"excused"`
	Rate    int `json:"attendanceRate"`
}

// StudentAttendance is a student's own history.
type StudentAttendance struct {
	Records []AttendanceView  `json:"records"`
	Summary AttendanceSummary `json:"summary"`
}

// AttendanceService records and reports attendance.
type AttendanceService interface {
	List(ctx context.Context, q AttendanceQuery) (Page[AttendanceView], error)
	Get(ctx context.Context, id uuid.UUID) (*AttendanceView, error)
	Mark(ctx context.Context, actorID string, in AttendanceInput) (*model.AttendanceRecord, error)
	Update(ctx context.Context, actorID string, id uuid.UUID, in AttendanceInput) (*model.AttendanceRecord, error)
	Delete(ctx context.Context, actorID string, id uuid.UUID) error
	History(ctx context.Context, principalID string) (*StudentAttendance, error)
}

type attendanceService struct {
	records repository.AttendanceRepository
	events  repository.EventRepository
	users   repository.UserRepository
	audit   AuditRecorder
	loc     *time.Location
}

// NewAttendanceService creates a new attendance service. Date filters are read in loc.
func NewAttendanceService(
	records repository.AttendanceRepository,
	events repository.EventRepository,
	users repository.UserRepository,
	audit AuditRecorder,
	loc *time.Location,
) AttendanceService {
	return &attendanceService{records: records, events: events, users: users, audit: audit, loc: loc}
}

func (s *attendanceService) List(ctx context.Context, q AttendanceQuery) (Page[AttendanceView], error) {
	dates, err := ParseDateRange(q.From, q.To, s.loc)
	if err != nil {
		return Page[AttendanceView]{}, err
	}
	filter := repository.AttendanceFilter{EventID: q.EventID, UserID: q.UserID, From: dates.From, To: dates.To}
	if q.Status != "" {
		if filter.Status, err = parseStatus(q.Status); err != nil {
			return Page[AttendanceView]{}, err
		}
	}

	records, err := s.records.List(ctx, filter)
	if err != nil {
		return Page[AttendanceView]{}, fmt.Errorf("list attendance: %w", err)
	}
	views, err := s.describe(ctx, records)
	if err != nil {
		return Page[AttendanceView]{}, err
	}
	return Paginate(views, q.Page, DefaultPageSize), nil
}

func (s *attendanceService) Get(ctx context.Context, id uuid.UUID) (*AttendanceView, error) {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.describe(ctx, []model.AttendanceRecord{*record})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *attendanceService) Mark(ctx context.Context, actorID string, in AttendanceInput) (*model.AttendanceRecord, error) {
	status, err := parseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	student, event, err := s.subjects(ctx, in.UserID, in.EventID)
	if err != nil {
		return nil, err
	}

	record := &model.AttendanceRecord{
		UserID:     student.ID,
		EventID:    event.ID,
		Status:     status,
		Timestamp:  in.Timestamp,
		RecordedBy: actorID,
		Notes:      strings.TrimSpace(in.Notes),
	}
	err = s.records.WithTransaction(ctx, func(ctx context.Context, records repository.AttendanceRepository, events repository.EventRepository) error {
		if err := records.Create(ctx, record); err != nil {
			return fmt.Errorf("create attendance: %w", err)
		}
		if status == model.AttendancePresent {
			return events.AddAttendee(ctx, event.ID, student.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, model.AuditActionCreate,
		fmt.Sprintf("Marked attendance: %s - %s - %s", student.Email, event.Name, status))
	return record, nil
}

func (s *attendanceService) Update(ctx context.Context, actorID string, id uuid.UUID, in AttendanceInput) (*model.AttendanceRecord, error) {
	status, err := parseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	student, event, err := s.subjects(ctx, in.UserID, in.EventID)
	if err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(in.Notes)
	var changes []model.FieldChange
	changes = diff(changes, "userId", record.UserID, student.ID)
	changes = diff(changes, "eventId", record.EventID.String(), event.ID.String())
	changes = diff(changes, "status", string(record.Status), string(status))
	changes = diff(changes, "notes", record.Notes, notes)

	record.UserID = student.ID
	record.EventID = event.ID
	record.Status = status
	record.Notes = notes
	if !in.Timestamp.IsZero() {
		record.Timestamp = in.Timestamp
	}

	err = s.records.WithTransaction(ctx, func(ctx context.Context, records repository.AttendanceRepository, events repository.EventRepository) error {
		if err := records.Update(ctx, record); err != nil {
			return fmt.Errorf("update attendance: %w", err)
		}
		if status == model.AttendancePresent {
			return events.AddAttendee(ctx, event.ID, student.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.RecordChange(ctx, actorID, model.AuditActionUpdate, "attendance",
		fmt.Sprintf("Updated attendance: %s - %s - %s", student.Email, event.Name, status), changes)
	return record, nil
}

func (s *attendanceService) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	record, err := s.records.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.records.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete attendance: %w", err)
	}
	s.audit.Record(ctx, actorID, model.AuditActionDelete,
		fmt.Sprintf("Deleted attendance record %s for user %s", record.ID, record.UserID))
	return nil
}

func (s *attendanceService) History(ctx context.Context, principalID string) (*StudentAttendance, error) {
	records, err := s.records.ListForUser(ctx, principalID, studentHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("list own attendance: %w", err)
	}
	views, err := s.describe(ctx, records)
	if err != nil {
		return nil, err
	}
	return &StudentAttendance{Records: views, Summary: summarize(records)}, nil
}

// subjects loads the student and event an attendance record refers to.
func (s *attendanceService) subjects(ctx context.Context, userID string, eventID uuid.UUID) (*model.User, *model.Event, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, nil, fmt.Errorf("%w: student is required", apperrors.ErrInvalidInput)
	}
	if eventID == uuid.Nil {
		return nil, nil, fmt.Errorf("%w: event is required", apperrors.ErrInvalidInput)
	}
	student, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: student not found", apperrors.ErrInvalidInput)
		}
		return nil, nil, err
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: event not found", apperrors.ErrInvalidInput)
		}
		return nil, nil, err
	}
	return student, event, nil
}

// describe attaches student and event names; missing ones render as Unknown.
func (s *attendanceService) describe(ctx context.Context, records []model.AttendanceRecord) ([]AttendanceView, error) {
	userIDs := make([]string, 0, len(records))
	eventIDs := make([]uuid.UUID, 0, len(records))
	for _, r := range records {
		userIDs = append(userIDs, r.UserID)
		eventIDs = append(eventIDs, r.EventID)
	}
	users, err := s.users.FindByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load students: %w", err)
	}
	events, err := s.events.FindByIDs(ctx, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}

	userByID := make(map[string]model.User, len(users))
	for _, u := range users {
		userByID[u.ID] = u
	}
	eventByID := make(map[uuid.UUID]model.Event, len(events))
	for _, e := range events {
		eventByID[e.ID] = e
	}

	views := make([]AttendanceView, 0, len(records))
	for _, r := range records {
		v := AttendanceView{AttendanceRecord: r, StudentName: "Unknown", EventName: "Unknown Event"}
		if u, ok := userByID[r.UserID]; ok {
			if name := u.FullName(); name != "" {
				v.StudentName = name
			}
			v.StudentEmail = u.Email
		}
		if e, ok := eventByID[r.EventID]; ok {
			v.EventName = e.Name
		}
		views = append(views, v)
	}
	return views, nil
}

func summarize(records []model.AttendanceRecord) AttendanceSummary {
	var sum AttendanceSummary
	for _, r := range records {
		sum.Total++
		switch r.Status {
		case model.AttendancePresent:
			sum.Present++
		case model.AttendanceAbsent:
			sum.Absent++
		case model.AttendanceLate:
			sum.Late++
		case model.AttendanceExcused:
			sum.Excused++
		}
	}
	sum.Rate = attendanceRate(sum.Present, sum.Total)
	return sum
}

// attendanceRate is round(present/total*100), zero when there are no records.
func attendanceRate(present, total int) int {
	if total == 0 {
		return 0
	}
	return (present*200 + total) / (total * 2)
}

func parseStatus(s string) (model.AttendanceStatus, error) {
	status, err := model.ParseAttendanceStatus(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, s)
	}
	return status, nil
}
