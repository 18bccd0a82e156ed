package repository

import (
	"context"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ComponentRepository implements ComponentRepository using GORM
type ComponentRepository struct {
	db *gorm.DB
}

func NewComponentRepository(db *gorm.DB) interfaces.ComponentRepository {
	return &ComponentRepository{db: db}
}

func (r *ComponentRepository) Create(ctx context.Context, component *domain.TestComponent) error {
	return translateError(r.db.WithContext(ctx).Create(component).Error)
}

func (r *ComponentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TestComponent, error) {
	return first[domain.TestComponent](r.db.WithContext(ctx).Where("component_id = ?", id))
}

func (r *ComponentRepository) ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.TestComponent, error) {
	var components []*domain.TestComponent
	err := r.db.WithContext(ctx).Where("offering_id = ?", offeringID).Order("created_at, component_id").Find(&components).Error
	return components, err
}

func (r *ComponentRepository) Update(ctx context.Context, component *domain.TestComponent) error {
	return translateError(r.db.WithContext(ctx).Save(component).Error)
}

func (r *ComponentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteBy[domain.TestComponent](ctx, r.db, "test_component", "component_id", id)
}

// MarkRepository implements MarkRepository using GORM
type MarkRepository struct {
	db *gorm.DB
}

func NewMarkRepository(db *gorm.DB) interfaces.MarkRepository {
	return &MarkRepository{db: db}
}

func (r *MarkRepository) Upsert(ctx context.Context, mark *domain.StudentMark) error {
	if mark.MarkID == uuid.Nil {
		mark.MarkID = uuid.New()
	}
	return translateError(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "enrollment_id"}, {Name: "test_component_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"marks_obtained", "updated_at"}),
		}).
		Create(mark).Error)
}

func (r *MarkRepository) Get(ctx context.Context, enrollmentID, componentID uuid.UUID) (*domain.StudentMark, error) {
	return first[domain.StudentMark](r.db.WithContext(ctx).
		Where("enrollment_id = ? AND test_component_id = ?", enrollmentID, componentID))
}

func (r *MarkRepository) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]*domain.StudentMark, error) {
	var marks []*domain.StudentMark
	err := r.db.WithContext(ctx).Where("enrollment_id = ?", enrollmentID).Order("created_at, mark_id").Find(&marks).Error
	return marks, err
}

func (r *MarkRepository) Update(ctx context.Context, mark *domain.StudentMark) error {
	return translateError(r.db.WithContext(ctx).Save(mark).Error)
}

func (r *MarkRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteBy[domain.StudentMark](ctx, r.db, "student_mark", "mark_id", id)
}

// ReconciliationLogRepository implements ReconciliationLogRepository using GORM
type ReconciliationLogRepository struct {
	db *gorm.DB
}

func NewReconciliationLogRepository(db *gorm.DB) interfaces.ReconciliationLogRepository {
	return &ReconciliationLogRepository{db: db}
}

func (r *ReconciliationLogRepository) Create(ctx context.Context, entry *domain.ReconciliationLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ReconciliationLogRepository) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationLog, error) {
	var entries []*domain.ReconciliationLog
	err := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("created_at").Find(&entries).Error
	return entries, err
}

// UserRepository implements user.UserRepository using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) user.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *user.User) error {
	return translateError(r.db.WithContext(ctx).Create(u).Error)
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return first[user.User](r.db.WithContext(ctx).Where("user_id = ?", id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return first[user.User](r.db.WithContext(ctx).Where("LOWER(username) = LOWER(?)", username))
}

func (r *UserRepository) Update(ctx context.Context, u *user.User) error {
	return translateError(r.db.WithContext(ctx).Save(u).Error)
}
