package repository

import (
	"context"
	"time"

	domain "college-records/internal/domain/academic"
	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OfferingRepository implements OfferingRepository using GORM
type OfferingRepository struct {
	db *gorm.DB
}

func NewOfferingRepository(db *gorm.DB) interfaces.OfferingRepository {
	return &OfferingRepository{db: db}
}

func (r *OfferingRepository) Create(ctx context.Context, offering *domain.CourseOffering) error {
	return translateError(r.db.WithContext(ctx).Create(offering).Error)
}

func (r *OfferingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CourseOffering, error) {
	return first[domain.CourseOffering](r.db.WithContext(ctx).Where("offering_id = ?", id))
}

func (r *OfferingRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.CourseOffering, error) {
	return first[domain.CourseOffering](r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("offering_id = ?", id))
}

func (r *OfferingRepository) List(ctx context.Context, filter interfaces.OfferingFilter) ([]*domain.CourseOffering, error) {
	q := r.db.WithContext(ctx)
	if filter.CourseIDs != nil {
		q = q.Where("course_id IN ?", filter.CourseIDs)
	}
	if filter.SectionIDs != nil {
		q = q.Where("section_id IN ?", filter.SectionIDs)
	}
	if filter.TermID != nil {
		q = q.Where("academic_term_id = ?", *filter.TermID)
	}

	var offerings []*domain.CourseOffering
	err := q.Order("created_at, offering_id").Find(&offerings).Error
	return offerings, err
}

func (r *OfferingRepository) Update(ctx context.Context, offering *domain.CourseOffering) error {
	return translateError(r.db.WithContext(ctx).Save(offering).Error)
}

func (r *OfferingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteBy[domain.CourseOffering](ctx, r.db, "offering", "offering_id", id)
}

// EnrollmentRepository implements EnrollmentRepository using GORM
type EnrollmentRepository struct {
	db *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) interfaces.EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *domain.Enrollment) error {
	return translateError(r.db.WithContext(ctx).Create(enrollment).Error)
}

func (r *EnrollmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error) {
	return first[domain.Enrollment](r.db.WithContext(ctx).Where("enrollment_id = ?", id))
}

func (r *EnrollmentRepository) GetByStudentAndOffering(ctx context.Context, studentID, offeringID uuid.UUID) (*domain.Enrollment, error) {
	return first[domain.Enrollment](r.db.WithContext(ctx).
		Where("student_id = ? AND offering_id = ?", studentID, offeringID))
}

func (r *EnrollmentRepository) ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.Enrollment, error) {
	var enrollments []*domain.Enrollment
	err := r.db.WithContext(ctx).Where("offering_id = ?", offeringID).Order("created_at, enrollment_id").Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.Enrollment, error) {
	var enrollments []*domain.Enrollment
	err := r.db.WithContext(ctx).Where("student_id = ?", studentID).Order("created_at, enrollment_id").Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) CountByOffering(ctx context.Context, offeringID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Enrollment{}).Where("offering_id = ?", offeringID).Count(&count).Error
	return count, err
}

func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *domain.Enrollment) error {
	return translateError(r.db.WithContext(ctx).Save(enrollment).Error)
}

func (r *EnrollmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteBy[domain.Enrollment](ctx, r.db, "enrollment", "enrollment_id", id)
}

// SessionRepository implements SessionRepository using GORM
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) interfaces.SessionRepository {
	return &SessionRepository{db: db}
}

// CreateIfAbsent is INSERT ... ON CONFLICT DO NOTHING on the session slot
func (r *SessionRepository) CreateIfAbsent(ctx context.Context, session *domain.AttendanceSession) (bool, error) {
	if session.SessionID == uuid.Nil {
		session.SessionID = uuid.New()
	}
	session.ClassDate = domain.DateOnly(session.ClassDate)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "offering_id"}, {Name: "class_date"}, {Name: "period_number"}},
			DoNothing: true,
		}).
		Create(session)
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AttendanceSession, error) {
	return first[domain.AttendanceSession](r.db.WithContext(ctx).Where("session_id = ?", id))
}

func (r *SessionRepository) GetBySlot(ctx context.Context, offeringID uuid.UUID, classDate time.Time, period int) (*domain.AttendanceSession, error) {
	return first[domain.AttendanceSession](r.db.WithContext(ctx).
		Where("offering_id = ? AND class_date = ? AND period_number = ?", offeringID, domain.DateOnly(classDate), period))
}

func (r *SessionRepository) ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.AttendanceSession, error) {
	var sessions []*domain.AttendanceSession
	err := r.db.WithContext(ctx).
		Where("offering_id = ?", offeringID).
		Order("class_date, period_number").
		Find(&sessions).Error
	return sessions, err
}

func (r *SessionRepository) Update(ctx context.Context, session *domain.AttendanceSession) error {
	return translateError(r.db.WithContext(ctx).Save(session).Error)
}

func (r *SessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteBy[domain.AttendanceSession](ctx, r.db, "attendance_session", "session_id", id)
}

// RecordRepository implements RecordRepository using GORM
type RecordRepository struct {
	db *gorm.DB
}

func NewRecordRepository(db *gorm.DB) interfaces.RecordRepository {
	return &RecordRepository{db: db}
}

var recordKey = []clause.Column{{Name: "session_id"}, {Name: "student_id"}}

func (r *RecordRepository) Upsert(ctx context.Context, record *domain.AttendanceRecord) error {
	if record.RecordID == uuid.Nil {
		record.RecordID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   recordKey,
			DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
		}).
		Create(record).Error)
}

func (r *RecordRepository) CreateIfAbsent(ctx context.Context, record *domain.AttendanceRecord) (bool, error) {
	if record.RecordID == uuid.Nil {
		record.RecordID = uuid.New()
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: recordKey, DoNothing: true}).
		Create(record)
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *RecordRepository) Get(ctx context.Context, sessionID, studentID uuid.UUID) (*domain.AttendanceRecord, error) {
	return first[domain.AttendanceRecord](r.db.WithContext(ctx).
		Where("session_id = ? AND student_id = ?", sessionID, studentID))
}

func (r *RecordRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.AttendanceRecord, error) {
	var records []*domain.AttendanceRecord
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).Order("created_at, record_id").Find(&records).Error
	return records, err
}

func (r *RecordRepository) Update(ctx context.Context, record *domain.AttendanceRecord) error {
	return translateError(r.db.WithContext(ctx).Save(record).Error)
}

func (r *RecordRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteBy[domain.AttendanceRecord](ctx, r.db, "attendance_record", "record_id", id)
}
