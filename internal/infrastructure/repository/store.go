package repository

import (
	"context"
	"errors"
	"fmt"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	interfaces "college-records/internal/interfaces/infrastructure"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError turns a unique-index violation into a ConflictError and a
// foreign key violation into a DependencyError
func translateError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.NewConflictError(pgErr.TableName, pgErr.ConstraintName, "%s", pgErr.Detail)
		case pgForeignKeyViolation:
			return &domain.DependencyError{Entity: pgErr.TableName, ID: pgErr.ConstraintName, Dependents: "referencing rows", Count: 1}
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.NewConflictError("", "", "%v", err)
	}
	return err
}

// first runs q.First and maps a missing row to (nil, nil)
func first[T any](q *gorm.DB) (*T, error) {
	var dest T
	if err := q.First(&dest).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dest, nil
}

// deleteBy removes the row keyed by column=id, reporting a missing row as NotFound
func deleteBy[T any](ctx context.Context, db *gorm.DB, entity, column string, id any) error {
	var model T
	res := db.WithContext(ctx).Where(column+" = ?", id).Delete(&model)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NewNotFoundError(entity, id)
	}
	return nil
}

// Store is the PostgreSQL implementation of interfaces.Store
type Store struct {
	db *gorm.DB
	unitOfWork
}

// NewStore wraps an open gorm connection
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, unitOfWork: unitOfWork{db: db}}
}

func (s *Store) Transaction(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(unitOfWork{db: tx})
	})
}

// PlacementRows runs the audit join through sqlx on the same pool
func (s *Store) PlacementRows(ctx context.Context, filter domain.PlacementFilter) ([]domain.PlacementRow, error) {
	sqlDB, err := s.db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	db := sqlx.NewDb(sqlDB, "pgx")

	q := sq.StatementBuilder.PlaceholderFormat(sq.Dollar).
		Select(
			"e.enrollment_id",
			"s.student_id",
			"s.usn",
			"s.college_id AS student_college_id",
			"s.department_id AS student_department_id",
			"s.section_id AS student_section_id",
			"o.offering_id",
			"o.section_id AS offering_section_id",
			"o.academic_term_id",
			"c.course_id",
			"c.code AS course_code",
			"c.department_id AS course_department_id",
			"d.college_id AS course_college_id",
		).
		From("students s").
		Join("enrollments e ON e.student_id = s.student_id").
		Join("course_offerings o ON o.offering_id = e.offering_id").
		Join("courses c ON c.course_id = o.course_id").
		Join("departments d ON d.department_id = c.department_id").
		Where(sq.Eq{"s.semester": filter.Semester}).
		OrderBy("s.usn", "e.enrollment_id")
	if filter.CollegeID != nil {
		q = q.Where(sq.Eq{"s.college_id": *filter.CollegeID})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build placement query: %w", err)
	}

	var rows []domain.PlacementRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load placement rows: %w", err)
	}
	return rows, nil
}

func (s *Store) Health(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// unitOfWork hands out repositories bound to one *gorm.DB, which is a
// transaction inside Store.Transaction
type unitOfWork struct {
	db *gorm.DB
}

func (u unitOfWork) Colleges() interfaces.CollegeRepository { return NewCollegeRepository(u.db) }
func (u unitOfWork) Departments() interfaces.DepartmentRepository {
	return NewDepartmentRepository(u.db)
}
func (u unitOfWork) Sections() interfaces.SectionRepository   { return NewSectionRepository(u.db) }
func (u unitOfWork) Courses() interfaces.CourseRepository     { return NewCourseRepository(u.db) }
func (u unitOfWork) Terms() interfaces.TermRepository         { return NewTermRepository(u.db) }
func (u unitOfWork) Teachers() interfaces.TeacherRepository   { return NewTeacherRepository(u.db) }
func (u unitOfWork) Students() interfaces.StudentRepository   { return NewStudentRepository(u.db) }
func (u unitOfWork) Offerings() interfaces.OfferingRepository { return NewOfferingRepository(u.db) }
func (u unitOfWork) Enrollments() interfaces.EnrollmentRepository {
	return NewEnrollmentRepository(u.db)
}
func (u unitOfWork) Sessions() interfaces.SessionRepository     { return NewSessionRepository(u.db) }
func (u unitOfWork) Records() interfaces.RecordRepository       { return NewRecordRepository(u.db) }
func (u unitOfWork) Components() interfaces.ComponentRepository { return NewComponentRepository(u.db) }
func (u unitOfWork) Marks() interfaces.MarkRepository           { return NewMarkRepository(u.db) }
func (u unitOfWork) ReconciliationLogs() interfaces.ReconciliationLogRepository {
	return NewReconciliationLogRepository(u.db)
}
func (u unitOfWork) Users() user.UserRepository { return NewUserRepository(u.db) }

var _ interfaces.Store = (*Store)(nil)
