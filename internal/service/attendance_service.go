package service

import (
	"context"
	"fmt"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	interfaces "college-records/internal/interfaces/infrastructure"
	serviceInterfaces "college-records/internal/interfaces/service"
	"college-records/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var _ serviceInterfaces.AttendanceService = (*AttendanceService)(nil)

// AttendanceService manages class sessions and per-student attendance records
type AttendanceService struct {
	store interfaces.Store
}

func NewAttendanceService(store interfaces.Store) *AttendanceService {
	return &AttendanceService{store: store}
}

// FindOrCreateSession is idempotent on (offering, classDate, periodNumber)
func (s *AttendanceService) FindOrCreateSession(ctx context.Context, principal *user.Principal, req *domain.CreateSessionRequest) (*domain.SessionResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.ClassDate.IsZero() {
		return nil, domain.NewValidationError("classDate", "classDate is required")
	}

	var result *domain.SessionResult
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		offering, err := getOffering(ctx, uow, req.OfferingID)
		if err != nil {
			return err
		}
		if err := authorizeOffering(ctx, uow, principal, offering); err != nil {
			return err
		}

		session := &domain.AttendanceSession{
			SessionID:       uuid.New(),
			OfferingID:      offering.OfferingID,
			TeacherID:       offering.TeacherID,
			ClassDate:       domain.DateOnly(req.ClassDate.Time),
			PeriodNumber:    req.PeriodNumber,
			Status:          domain.SessionHeld,
			SyllabusCovered: req.SyllabusCovered,
		}
		created, err := uow.Sessions().CreateIfAbsent(ctx, session)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		if !created {
			existing, err := uow.Sessions().GetBySlot(ctx, offering.OfferingID, session.ClassDate, session.PeriodNumber)
			if err != nil {
				return fmt.Errorf("failed to get session: %w", err)
			}
			if existing == nil {
				return fmt.Errorf("session for %s period %d vanished after conflict",
					session.ClassDate.Format("2006-01-02"), session.PeriodNumber)
			}
			session = existing
		} else if _, err := seedRoster(ctx, uow, session); err != nil {
			return err
		}

		count, err := uow.Enrollments().CountByOffering(ctx, offering.OfferingID)
		if err != nil {
			return fmt.Errorf("failed to count enrollments: %w", err)
		}
		result = &domain.SessionResult{SessionID: session.SessionID, StudentsCount: int(count), Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"session_id":  result.SessionID,
		"offering_id": req.OfferingID,
		"created":     result.Created,
	}).Debug("Attendance session resolved")
	return result, nil
}

// seedRoster gives every enrolled student without a record an absent one
func seedRoster(ctx context.Context, uow interfaces.UnitOfWork, session *domain.AttendanceSession) (int, error) {
	if session.Status != domain.SessionHeld {
		return 0, domain.NewConflictError("attendance_session", session.SessionID.String(),
			"cannot seed records of a %s session", session.Status)
	}
	enrollments, err := uow.Enrollments().ListByOffering(ctx, session.OfferingID)
	if err != nil {
		return 0, fmt.Errorf("failed to list enrollments: %w", err)
	}

	seeded := 0
	for _, e := range enrollments {
		created, err := uow.Records().CreateIfAbsent(ctx, &domain.AttendanceRecord{
			RecordID:  uuid.New(),
			SessionID: session.SessionID,
			StudentID: e.StudentID,
			Status:    domain.RecordAbsent,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to seed record: %w", err)
		}
		if created {
			seeded++
		}
	}
	return seeded, nil
}

// SeedRoster creates the missing default-absent records of a session
func (s *AttendanceService) SeedRoster(ctx context.Context, sessionID uuid.UUID) (int, error) {
	var seeded int
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		session, err := getSession(ctx, uow, sessionID)
		if err != nil {
			return err
		}
		seeded, err = seedRoster(ctx, uow, session)
		return err
	})
	return seeded, err
}

func getSession(ctx context.Context, uow interfaces.UnitOfWork, id uuid.UUID) (*domain.AttendanceSession, error) {
	session, err := uow.Sessions().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, domain.NewNotFoundError("attendance_session", id)
	}
	return session, nil
}

// authorizedSession loads a session and checks the principal may act on it
func authorizedSession(ctx context.Context, uow interfaces.UnitOfWork, principal *user.Principal, sessionID uuid.UUID) (*domain.AttendanceSession, error) {
	session, err := getSession(ctx, uow, sessionID)
	if err != nil {
		return nil, err
	}
	offering, err := getOffering(ctx, uow, session.OfferingID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOffering(ctx, uow, principal, offering); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *AttendanceService) GetSession(ctx context.Context, principal *user.Principal, sessionID uuid.UUID) (*domain.SessionView, error) {
	session, err := authorizedSession(ctx, s.store, principal, sessionID)
	if err != nil {
		return nil, err
	}
	records, err := s.store.Records().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	view := &domain.SessionView{Session: *session, Records: make([]domain.AttendanceRecord, 0, len(records))}
	for _, r := range records {
		view.Records = append(view.Records, *r)
	}
	return view, nil
}

// writeRecord applies status to (session, student); unmarked removes the record
func writeRecord(
	ctx context.Context,
	uow interfaces.UnitOfWork,
	principal *user.Principal,
	sessionID, studentID uuid.UUID,
	next func(current domain.RecordStatus) (domain.RecordStatus, error),
) (domain.RecordStatus, error) {
	session, err := authorizedSession(ctx, uow, principal, sessionID)
	if err != nil {
		return "", err
	}
	if session.Status != domain.SessionHeld {
		return "", domain.NewConflictError("attendance_session", sessionID.String(),
			"records of a %s session cannot change", session.Status)
	}

	enrollment, err := uow.Enrollments().GetByStudentAndOffering(ctx, studentID, session.OfferingID)
	if err != nil {
		return "", fmt.Errorf("failed to get enrollment: %w", err)
	}
	if enrollment == nil {
		return "", domain.NewValidationError("studentId", "student %s is not enrolled in the session's offering", studentID)
	}

	record, err := uow.Records().Get(ctx, sessionID, studentID)
	if err != nil {
		return "", fmt.Errorf("failed to get record: %w", err)
	}
	current := domain.RecordUnmarked
	if record != nil {
		current = record.Status
	}

	status, err := next(current)
	if err != nil {
		return "", err
	}

	if status == domain.RecordUnmarked {
		if record != nil {
			if err := uow.Records().Delete(ctx, record.RecordID); err != nil {
				return "", fmt.Errorf("failed to clear record: %w", err)
			}
		}
		return status, nil
	}

	if err := uow.Records().Upsert(ctx, &domain.AttendanceRecord{
		RecordID:  uuid.New(),
		SessionID: sessionID,
		StudentID: studentID,
		Status:    status,
	}); err != nil {
		return "", fmt.Errorf("failed to write record: %w", err)
	}
	return status, nil
}

func (s *AttendanceService) SetRecordStatus(ctx context.Context, principal *user.Principal, req *domain.SetRecordStatusRequest) (*domain.RecordResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	status, err := domain.ParseRecordStatus(req.Status)
	if err != nil {
		return nil, err
	}

	var result domain.RecordResult
	err = s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		written, err := writeRecord(ctx, uow, principal, req.SessionID, req.StudentID,
			func(domain.RecordStatus) (domain.RecordStatus, error) { return status, nil })
		result.Status = written
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ToggleRecord advances unmarked -> present -> absent -> unmarked
func (s *AttendanceService) ToggleRecord(ctx context.Context, principal *user.Principal, req *domain.ToggleRecordRequest) (*domain.RecordResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var result domain.RecordResult
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		written, err := writeRecord(ctx, uow, principal, req.SessionID, req.StudentID,
			func(current domain.RecordStatus) (domain.RecordStatus, error) {
				return domain.NextRecordStatus(current), nil
			})
		result.Status = written
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *AttendanceService) UpdateSessionStatus(ctx context.Context, principal *user.Principal, sessionID uuid.UUID, req *domain.UpdateSessionStatusRequest) (*domain.AttendanceSession, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	to := domain.SessionStatus(req.Status)

	var updated *domain.AttendanceSession
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		session, err := authorizedSession(ctx, uow, principal, sessionID)
		if err != nil {
			return err
		}
		if session.Status == to {
			updated = session
			return nil
		}
		if !domain.CanTransitionSession(session.Status, to) {
			return domain.NewConflictError("attendance_session", sessionID.String(),
				"cannot move a %s session to %s", session.Status, to)
		}
		session.Status = to
		if err := uow.Sessions().Update(ctx, session); err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{"session_id": sessionID, "status": to}).Info("Attendance session status changed")
	return updated, nil
}
