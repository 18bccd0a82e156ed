package repository

import (
	"context"
	"time"

	domain "college-records/internal/domain/academic"
	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CollegeRepository implements CollegeRepository using GORM
type CollegeRepository struct {
	db *gorm.DB
}

func NewCollegeRepository(db *gorm.DB) interfaces.CollegeRepository {
	return &CollegeRepository{db: db}
}

func (r *CollegeRepository) Create(ctx context.Context, college *domain.College) error {
	return translateError(r.db.WithContext(ctx).Create(college).Error)
}

func (r *CollegeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.College, error) {
	return first[domain.College](r.db.WithContext(ctx).Where("college_id = ?", id))
}

func (r *CollegeRepository) GetByCode(ctx context.Context, code string) (*domain.College, error) {
	return first[domain.College](r.db.WithContext(ctx).Where("code = ?", code))
}

// DepartmentRepository implements DepartmentRepository using GORM
type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) interfaces.DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) Create(ctx context.Context, department *domain.Department) error {
	return translateError(r.db.WithContext(ctx).Create(department).Error)
}

func (r *DepartmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	return first[domain.Department](r.db.WithContext(ctx).Where("department_id = ?", id))
}

func (r *DepartmentRepository) GetByCollegeAndCode(ctx context.Context, collegeID uuid.UUID, code string) (*domain.Department, error) {
	return first[domain.Department](r.db.WithContext(ctx).Where("college_id = ? AND code = ?", collegeID, code))
}

func (r *DepartmentRepository) ListByCollege(ctx context.Context, collegeID uuid.UUID) ([]*domain.Department, error) {
	var departments []*domain.Department
	err := r.db.WithContext(ctx).Where("college_id = ?", collegeID).Order("code").Find(&departments).Error
	return departments, err
}

// SectionRepository implements SectionRepository using GORM
type SectionRepository struct {
	db *gorm.DB
}

func NewSectionRepository(db *gorm.DB) interfaces.SectionRepository {
	return &SectionRepository{db: db}
}

func (r *SectionRepository) Create(ctx context.Context, section *domain.Section) error {
	return translateError(r.db.WithContext(ctx).Create(section).Error)
}

func (r *SectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Section, error) {
	return first[domain.Section](r.db.WithContext(ctx).Where("section_id = ?", id))
}

func (r *SectionRepository) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*domain.Section, error) {
	var sections []*domain.Section
	err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("created_at, section_id").
		Find(&sections).Error
	return sections, err
}

func (r *SectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteBy[domain.Section](ctx, r.db, "section", "section_id", id)
}

// CourseRepository implements CourseRepository using GORM
type CourseRepository struct {
	db *gorm.DB
}

func NewCourseRepository(db *gorm.DB) interfaces.CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(ctx context.Context, course *domain.Course) error {
	return translateError(r.db.WithContext(ctx).Create(course).Error)
}

func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	return first[domain.Course](r.db.WithContext(ctx).Where("course_id = ?", id))
}

func (r *CourseRepository) GetByDepartmentAndCode(ctx context.Context, departmentID uuid.UUID, code string) (*domain.Course, error) {
	return first[domain.Course](r.db.WithContext(ctx).Where("department_id = ? AND code = ?", departmentID, code))
}

func (r *CourseRepository) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*domain.Course, error) {
	var courses []*domain.Course
	err := r.db.WithContext(ctx).Where("department_id = ?", departmentID).Order("code").Find(&courses).Error
	return courses, err
}

// TermRepository implements TermRepository using GORM
type TermRepository struct {
	db *gorm.DB
}

func NewTermRepository(db *gorm.DB) interfaces.TermRepository {
	return &TermRepository{db: db}
}

func (r *TermRepository) Create(ctx context.Context, term *domain.AcademicTerm) error {
	return translateError(r.db.WithContext(ctx).Create(term).Error)
}

func (r *TermRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.AcademicTerm, error) {
	return first[domain.AcademicTerm](r.db.WithContext(ctx).Where("academic_term_id = ?", id))
}

func (r *TermRepository) GetByCode(ctx context.Context, code string) (*domain.AcademicTerm, error) {
	return first[domain.AcademicTerm](r.db.WithContext(ctx).Where("code = ?", code))
}

func (r *TermRepository) GetCurrent(ctx context.Context, at time.Time) (*domain.AcademicTerm, error) {
	day := domain.DateOnly(at)
	return first[domain.AcademicTerm](r.db.WithContext(ctx).
		Where("start_date <= ? AND end_date >= ?", day, day).
		Order("start_date DESC"))
}

// TeacherRepository implements TeacherRepository using GORM
type TeacherRepository struct {
	db *gorm.DB
}

func NewTeacherRepository(db *gorm.DB) interfaces.TeacherRepository {
	return &TeacherRepository{db: db}
}

func (r *TeacherRepository) Create(ctx context.Context, teacher *domain.Teacher) error {
	return translateError(r.db.WithContext(ctx).Create(teacher).Error)
}

func (r *TeacherRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Teacher, error) {
	return first[domain.Teacher](r.db.WithContext(ctx).Where("teacher_id = ?", id))
}

func (r *TeacherRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Teacher, error) {
	return first[domain.Teacher](r.db.WithContext(ctx).Where("user_id = ?", userID))
}

// StudentRepository implements StudentRepository using GORM
type StudentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) interfaces.StudentRepository {
	return &StudentRepository{db: db}
}

func (r *StudentRepository) Create(ctx context.Context, student *domain.Student) error {
	return translateError(r.db.WithContext(ctx).Create(student).Error)
}

func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	return first[domain.Student](r.db.WithContext(ctx).Where("student_id = ?", id))
}

func (r *StudentRepository) GetByUSN(ctx context.Context, usn string) (*domain.Student, error) {
	return first[domain.Student](r.db.WithContext(ctx).Where("usn = ?", usn))
}

func (r *StudentRepository) ListBySection(ctx context.Context, sectionID uuid.UUID) ([]*domain.Student, error) {
	var students []*domain.Student
	err := r.db.WithContext(ctx).Where("section_id = ?", sectionID).Order("usn").Find(&students).Error
	return students, err
}

func (r *StudentRepository) Update(ctx context.Context, student *domain.Student) error {
	return translateError(r.db.WithContext(ctx).Save(student).Error)
}

func (r *StudentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return deleteBy[domain.Student](ctx, r.db, "student", "student_id", id)
}
