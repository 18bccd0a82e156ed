package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
)

func conflict(entity, key string, args ...any) error {
	return domain.NewConflictError(entity, key, "duplicate key value violates unique constraint (%s)", fmt.Sprint(args...))
}

func missing(entity string, id uuid.UUID) error {
	return domain.NewNotFoundError(entity, id)
}

func (u *session) Colleges() interfaces.CollegeRepository       { return collegeRepo{u} }
func (u *session) Departments() interfaces.DepartmentRepository { return departmentRepo{u} }
func (u *session) Sections() interfaces.SectionRepository       { return sectionRepo{u} }
func (u *session) Courses() interfaces.CourseRepository         { return courseRepo{u} }
func (u *session) Terms() interfaces.TermRepository             { return termRepo{u} }
func (u *session) Teachers() interfaces.TeacherRepository       { return teacherRepo{u} }
func (u *session) Students() interfaces.StudentRepository       { return studentRepo{u} }
func (u *session) Offerings() interfaces.OfferingRepository     { return offeringRepo{u} }
func (u *session) Enrollments() interfaces.EnrollmentRepository { return enrollmentRepo{u} }
func (u *session) Sessions() interfaces.SessionRepository       { return sessionRepo{u} }
func (u *session) Records() interfaces.RecordRepository         { return recordRepo{u} }
func (u *session) Components() interfaces.ComponentRepository   { return componentRepo{u} }
func (u *session) Marks() interfaces.MarkRepository             { return markRepo{u} }
func (u *session) ReconciliationLogs() interfaces.ReconciliationLogRepository {
	return logRepo{u}
}
func (u *session) Users() user.UserRepository { return userRepo{u} }

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// Colleges

type collegeRepo struct{ u *session }

func (r collegeRepo) Create(ctx context.Context, c *domain.College) error {
	defer r.u.lock()()
	t := r.u.db().colleges
	ensureID(&c.CollegeID)
	if t.find(func(x domain.College) bool { return x.Code == c.Code }) != nil {
		return conflict("college", "colleges_code_key", c.Code)
	}
	r.u.stamp(&c.CreatedAt, &c.UpdatedAt)
	t.put(c.CollegeID, *c)
	return nil
}

func (r collegeRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.College, error) {
	defer r.u.lock()()
	return r.u.db().colleges.find(func(x domain.College) bool { return x.CollegeID == id }), nil
}

func (r collegeRepo) GetByCode(ctx context.Context, code string) (*domain.College, error) {
	defer r.u.lock()()
	return r.u.db().colleges.find(func(x domain.College) bool { return x.Code == code }), nil
}

// Departments

type departmentRepo struct{ u *session }

func (r departmentRepo) Create(ctx context.Context, d *domain.Department) error {
	defer r.u.lock()()
	t := r.u.db().departments
	ensureID(&d.DepartmentID)
	if t.find(func(x domain.Department) bool { return x.CollegeID == d.CollegeID && x.Code == d.Code }) != nil {
		return conflict("department", "idx_departments_college_code", d.Code)
	}
	r.u.stamp(&d.CreatedAt, &d.UpdatedAt)
	t.put(d.DepartmentID, *d)
	return nil
}

func (r departmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Department, error) {
	defer r.u.lock()()
	return r.u.db().departments.find(func(x domain.Department) bool { return x.DepartmentID == id }), nil
}

func (r departmentRepo) GetByCollegeAndCode(ctx context.Context, collegeID uuid.UUID, code string) (*domain.Department, error) {
	defer r.u.lock()()
	return r.u.db().departments.find(func(x domain.Department) bool {
		return x.CollegeID == collegeID && x.Code == code
	}), nil
}

func (r departmentRepo) ListByCollege(ctx context.Context, collegeID uuid.UUID) ([]*domain.Department, error) {
	defer r.u.lock()()
	return r.u.db().departments.filter(func(x domain.Department) bool { return x.CollegeID == collegeID }), nil
}

// Sections

type sectionRepo struct{ u *session }

func (r sectionRepo) Create(ctx context.Context, s *domain.Section) error {
	defer r.u.lock()()
	ensureID(&s.SectionID)
	r.u.stamp(&s.CreatedAt, &s.UpdatedAt)
	r.u.db().sections.put(s.SectionID, *s)
	return nil
}

func (r sectionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Section, error) {
	defer r.u.lock()()
	return r.u.db().sections.find(func(x domain.Section) bool { return x.SectionID == id }), nil
}

func (r sectionRepo) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*domain.Section, error) {
	defer r.u.lock()()
	return r.u.db().sections.filter(func(x domain.Section) bool { return x.DepartmentID == departmentID }), nil
}

func (r sectionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()
	if !r.u.db().sections.remove(id) {
		return missing("section", id)
	}
	return nil
}

// Courses

type courseRepo struct{ u *session }

func (r courseRepo) Create(ctx context.Context, c *domain.Course) error {
	defer r.u.lock()()
	t := r.u.db().courses
	ensureID(&c.CourseID)
	if t.find(func(x domain.Course) bool { return x.DepartmentID == c.DepartmentID && x.Code == c.Code }) != nil {
		return conflict("course", "idx_courses_department_code", c.Code)
	}
	r.u.stamp(&c.CreatedAt, &c.UpdatedAt)
	t.put(c.CourseID, *c)
	return nil
}

func (r courseRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	defer r.u.lock()()
	return r.u.db().courses.find(func(x domain.Course) bool { return x.CourseID == id }), nil
}

func (r courseRepo) GetByDepartmentAndCode(ctx context.Context, departmentID uuid.UUID, code string) (*domain.Course, error) {
	defer r.u.lock()()
	return r.u.db().courses.find(func(x domain.Course) bool {
		return x.DepartmentID == departmentID && x.Code == code
	}), nil
}

func (r courseRepo) ListByDepartment(ctx context.Context, departmentID uuid.UUID) ([]*domain.Course, error) {
	defer r.u.lock()()
	return r.u.db().courses.filter(func(x domain.Course) bool { return x.DepartmentID == departmentID }), nil
}

// Terms

type termRepo struct{ u *session }

func (r termRepo) Create(ctx context.Context, t *domain.AcademicTerm) error {
	defer r.u.lock()()
	tbl := r.u.db().terms
	ensureID(&t.AcademicTermID)
	if tbl.find(func(x domain.AcademicTerm) bool { return x.Code == t.Code }) != nil {
		return conflict("academic_term", "academic_terms_code_key", t.Code)
	}
	r.u.stamp(&t.CreatedAt, &t.UpdatedAt)
	tbl.put(t.AcademicTermID, *t)
	return nil
}

func (r termRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AcademicTerm, error) {
	defer r.u.lock()()
	return r.u.db().terms.find(func(x domain.AcademicTerm) bool { return x.AcademicTermID == id }), nil
}

func (r termRepo) GetByCode(ctx context.Context, code string) (*domain.AcademicTerm, error) {
	defer r.u.lock()()
	return r.u.db().terms.find(func(x domain.AcademicTerm) bool { return x.Code == code }), nil
}

func (r termRepo) GetCurrent(ctx context.Context, at time.Time) (*domain.AcademicTerm, error) {
	defer r.u.lock()()
	day := domain.DateOnly(at)
	var best *domain.AcademicTerm
	for _, t := range r.u.db().terms.filter(func(x domain.AcademicTerm) bool {
		return !day.Before(domain.DateOnly(x.StartDate)) && !day.After(domain.DateOnly(x.EndDate))
	}) {
		if best == nil || t.StartDate.After(best.StartDate) {
			best = t
		}
	}
	return best, nil
}

// Teachers

type teacherRepo struct{ u *session }

func (r teacherRepo) Create(ctx context.Context, t *domain.Teacher) error {
	defer r.u.lock()()
	tbl := r.u.db().teachers
	ensureID(&t.TeacherID)
	if tbl.find(func(x domain.Teacher) bool { return x.UserID == t.UserID }) != nil {
		return conflict("teacher", "teachers_user_id_key", t.UserID)
	}
	r.u.stamp(&t.CreatedAt, &t.UpdatedAt)
	tbl.put(t.TeacherID, *t)
	return nil
}

func (r teacherRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Teacher, error) {
	defer r.u.lock()()
	return r.u.db().teachers.find(func(x domain.Teacher) bool { return x.TeacherID == id }), nil
}

func (r teacherRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Teacher, error) {
	defer r.u.lock()()
	return r.u.db().teachers.find(func(x domain.Teacher) bool { return x.UserID == userID }), nil
}

// Students

type studentRepo struct{ u *session }

func (r studentRepo) Create(ctx context.Context, s *domain.Student) error {
	defer r.u.lock()()
	t := r.u.db().students
	ensureID(&s.StudentID)
	if t.find(func(x domain.Student) bool { return x.USN == s.USN }) != nil {
		return conflict("student", "students_usn_key", s.USN)
	}
	r.u.stamp(&s.CreatedAt, &s.UpdatedAt)
	t.put(s.StudentID, *s)
	return nil
}

func (r studentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	defer r.u.lock()()
	return r.u.db().students.find(func(x domain.Student) bool { return x.StudentID == id }), nil
}

func (r studentRepo) GetByUSN(ctx context.Context, usn string) (*domain.Student, error) {
	defer r.u.lock()()
	return r.u.db().students.find(func(x domain.Student) bool { return x.USN == usn }), nil
}

func (r studentRepo) ListBySection(ctx context.Context, sectionID uuid.UUID) ([]*domain.Student, error) {
	defer r.u.lock()()
	return r.u.db().students.filter(func(x domain.Student) bool { return x.SectionID == sectionID }), nil
}

func (r studentRepo) Update(ctx context.Context, s *domain.Student) error {
	defer r.u.lock()()
	t := r.u.db().students
	if _, ok := t.get(s.StudentID); !ok {
		return missing("student", s.StudentID)
	}
	if t.find(func(x domain.Student) bool { return x.USN == s.USN && x.StudentID != s.StudentID }) != nil {
		return conflict("student", "students_usn_key", s.USN)
	}
	r.u.stamp(nil, &s.UpdatedAt)
	t.put(s.StudentID, *s)
	return nil
}

func (r studentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()
	if !r.u.db().students.remove(id) {
		return missing("student", id)
	}
	return nil
}

// Offerings

type offeringRepo struct{ u *session }

func (r offeringRepo) Create(ctx context.Context, o *domain.CourseOffering) error {
	defer r.u.lock()()
	ensureID(&o.OfferingID)
	r.u.stamp(&o.CreatedAt, &o.UpdatedAt)
	r.u.db().offerings.put(o.OfferingID, *o)
	return nil
}

func (r offeringRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.CourseOffering, error) {
	defer r.u.lock()()
	return r.u.db().offerings.find(func(x domain.CourseOffering) bool { return x.OfferingID == id }), nil
}

// GetByIDForUpdate needs no extra locking here: writers are serialized by the store mutex.
func (r offeringRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.CourseOffering, error) {
	return r.GetByID(ctx, id)
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (r offeringRepo) List(ctx context.Context, f interfaces.OfferingFilter) ([]*domain.CourseOffering, error) {
	defer r.u.lock()()
	return r.u.db().offerings.filter(func(x domain.CourseOffering) bool {
		if f.CourseIDs != nil && !containsID(f.CourseIDs, x.CourseID) {
			return false
		}
		if f.SectionIDs != nil && !containsID(f.SectionIDs, x.SectionID) {
			return false
		}
		if f.TermID != nil && x.AcademicTermID != *f.TermID {
			return false
		}
		return true
	}), nil
}

func (r offeringRepo) Update(ctx context.Context, o *domain.CourseOffering) error {
	defer r.u.lock()()
	t := r.u.db().offerings
	if _, ok := t.get(o.OfferingID); !ok {
		return missing("offering", o.OfferingID)
	}
	r.u.stamp(nil, &o.UpdatedAt)
	t.put(o.OfferingID, *o)
	return nil
}

func (r offeringRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()
	if !r.u.db().offerings.remove(id) {
		return missing("offering", id)
	}
	return nil
}

// Enrollments

type enrollmentRepo struct{ u *session }

func (r enrollmentRepo) taken(e *domain.Enrollment) bool {
	return r.u.db().enrollments.find(func(x domain.Enrollment) bool {
		return x.StudentID == e.StudentID && x.OfferingID == e.OfferingID && x.EnrollmentID != e.EnrollmentID
	}) != nil
}

func (r enrollmentRepo) Create(ctx context.Context, e *domain.Enrollment) error {
	defer r.u.lock()()
	ensureID(&e.EnrollmentID)
	if r.taken(e) {
		return conflict("enrollment", "idx_enrollments_student_offering", e.StudentID, "/", e.OfferingID)
	}
	r.u.stamp(&e.CreatedAt, &e.UpdatedAt)
	r.u.db().enrollments.put(e.EnrollmentID, *e)
	return nil
}

func (r enrollmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Enrollment, error) {
	defer r.u.lock()()
	return r.u.db().enrollments.find(func(x domain.Enrollment) bool { return x.EnrollmentID == id }), nil
}

func (r enrollmentRepo) GetByStudentAndOffering(ctx context.Context, studentID, offeringID uuid.UUID) (*domain.Enrollment, error) {
	defer r.u.lock()()
	return r.u.db().enrollments.find(func(x domain.Enrollment) bool {
		return x.StudentID == studentID && x.OfferingID == offeringID
	}), nil
}

func (r enrollmentRepo) ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.Enrollment, error) {
	defer r.u.lock()()
	return r.u.db().enrollments.filter(func(x domain.Enrollment) bool { return x.OfferingID == offeringID }), nil
}

func (r enrollmentRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]*domain.Enrollment, error) {
	defer r.u.lock()()
	return r.u.db().enrollments.filter(func(x domain.Enrollment) bool { return x.StudentID == studentID }), nil
}

func (r enrollmentRepo) CountByOffering(ctx context.Context, offeringID uuid.UUID) (int64, error) {
	defer r.u.lock()()
	return int64(len(r.u.db().enrollments.filter(func(x domain.Enrollment) bool { return x.OfferingID == offeringID }))), nil
}

func (r enrollmentRepo) Update(ctx context.Context, e *domain.Enrollment) error {
	defer r.u.lock()()
	t := r.u.db().enrollments
	if _, ok := t.get(e.EnrollmentID); !ok {
		return missing("enrollment", e.EnrollmentID)
	}
	if r.taken(e) {
		return conflict("enrollment", "idx_enrollments_student_offering", e.StudentID, "/", e.OfferingID)
	}
	r.u.stamp(nil, &e.UpdatedAt)
	t.put(e.EnrollmentID, *e)
	return nil
}

func (r enrollmentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()
	if !r.u.db().enrollments.remove(id) {
		return missing("enrollment", id)
	}
	return nil
}

// Sessions

type sessionRepo struct{ u *session }

func sameSlot(a, b *domain.AttendanceSession) bool {
	return a.OfferingID == b.OfferingID &&
		domain.DateOnly(a.ClassDate).Equal(domain.DateOnly(b.ClassDate)) &&
		a.PeriodNumber == b.PeriodNumber
}

func (r sessionRepo) CreateIfAbsent(ctx context.Context, s *domain.AttendanceSession) (bool, error) {
	defer r.u.lock()()
	t := r.u.db().sessions
	if t.find(func(x domain.AttendanceSession) bool { return sameSlot(&x, s) }) != nil {
		return false, nil
	}
	ensureID(&s.SessionID)
	s.ClassDate = domain.DateOnly(s.ClassDate)
	r.u.stamp(&s.CreatedAt, &s.UpdatedAt)
	t.put(s.SessionID, *s)
	return true, nil
}

func (r sessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.AttendanceSession, error) {
	defer r.u.lock()()
	return r.u.db().sessions.find(func(x domain.AttendanceSession) bool { return x.SessionID == id }), nil
}

func (r sessionRepo) GetBySlot(ctx context.Context, offeringID uuid.UUID, classDate time.Time, period int) (*domain.AttendanceSession, error) {
	defer r.u.lock()()
	probe := &domain.AttendanceSession{OfferingID: offeringID, ClassDate: classDate, PeriodNumber: period}
	return r.u.db().sessions.find(func(x domain.AttendanceSession) bool { return sameSlot(&x, probe) }), nil
}

func (r sessionRepo) ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.AttendanceSession, error) {
	defer r.u.lock()()
	return r.u.db().sessions.filter(func(x domain.AttendanceSession) bool { return x.OfferingID == offeringID }), nil
}

func (r sessionRepo) Update(ctx context.Context, s *domain.AttendanceSession) error {
	defer r.u.lock()()
	t := r.u.db().sessions
	if _, ok := t.get(s.SessionID); !ok {
		return missing("attendance_session", s.SessionID)
	}
	if t.find(func(x domain.AttendanceSession) bool { return x.SessionID != s.SessionID && sameSlot(&x, s) }) != nil {
		return conflict("attendance_session", "idx_sessions_offering_date_period", s.OfferingID)
	}
	r.u.stamp(nil, &s.UpdatedAt)
	t.put(s.SessionID, *s)
	return nil
}

func (r sessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()
	if !r.u.db().sessions.remove(id) {
		return missing("attendance_session", id)
	}
	return nil
}

// Records

type recordRepo struct{ u *session }

func (r recordRepo) lookup(sessionID, studentID uuid.UUID) *domain.AttendanceRecord {
	return r.u.db().records.find(func(x domain.AttendanceRecord) bool {
		return x.SessionID == sessionID && x.StudentID == studentID
	})
}

func (r recordRepo) Upsert(ctx context.Context, rec *domain.AttendanceRecord) error {
	defer r.u.lock()()
	if existing := r.lookup(rec.SessionID, rec.StudentID); existing != nil {
		existing.Status = rec.Status
		r.u.stamp(nil, &existing.UpdatedAt)
		r.u.db().records.put(existing.RecordID, *existing)
		*rec = *existing
		return nil
	}
	ensureID(&rec.RecordID)
	r.u.stamp(&rec.CreatedAt, &rec.UpdatedAt)
	r.u.db().records.put(rec.RecordID, *rec)
	return nil
}

func (r recordRepo) CreateIfAbsent(ctx context.Context, rec *domain.AttendanceRecord) (bool, error) {
	defer r.u.lock()()
	if r.lookup(rec.SessionID, rec.StudentID) != nil {
		return false, nil
	}
	ensureID(&rec.RecordID)
	r.u.stamp(&rec.CreatedAt, &rec.UpdatedAt)
	r.u.db().records.put(rec.RecordID, *rec)
	return true, nil
}

func (r recordRepo) Get(ctx context.Context, sessionID, studentID uuid.UUID) (*domain.AttendanceRecord, error) {
	defer r.u.lock()()
	return r.lookup(sessionID, studentID), nil
}

func (r recordRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*domain.AttendanceRecord, error) {
	defer r.u.lock()()
	return r.u.db().records.filter(func(x domain.AttendanceRecord) bool { return x.SessionID == sessionID }), nil
}

func (r recordRepo) Update(ctx context.Context, rec *domain.AttendanceRecord) error {
	defer r.u.lock()()
	t := r.u.db().records
	if _, ok := t.get(rec.RecordID); !ok {
		return missing("attendance_record", rec.RecordID)
	}
	if other := r.lookup(rec.SessionID, rec.StudentID); other != nil && other.RecordID != rec.RecordID {
		return conflict("attendance_record", "idx_records_session_student", rec.SessionID, "/", rec.StudentID)
	}
	r.u.stamp(nil, &rec.UpdatedAt)
	t.put(rec.RecordID, *rec)
	return nil
}

func (r recordRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()
	if !r.u.db().records.remove(id) {
		return missing("attendance_record", id)
	}
	return nil
}

// Components

type componentRepo struct{ u *session }

func (r componentRepo) Create(ctx context.Context, c *domain.TestComponent) error {
	defer r.u.lock()()
	ensureID(&c.ComponentID)
	r.u.stamp(&c.CreatedAt, &c.UpdatedAt)
	r.u.db().components.put(c.ComponentID, *c)
	return nil
}

func (r componentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.TestComponent, error) {
	defer r.u.lock()()
	return r.u.db().components.find(func(x domain.TestComponent) bool { return x.ComponentID == id }), nil
}

func (r componentRepo) ListByOffering(ctx context.Context, offeringID uuid.UUID) ([]*domain.TestComponent, error) {
	defer r.u.lock()()
	return r.u.db().components.filter(func(x domain.TestComponent) bool { return x.OfferingID == offeringID }), nil
}

func (r componentRepo) Update(ctx context.Context, c *domain.TestComponent) error {
	defer r.u.lock()()
	t := r.u.db().components
	if _, ok := t.get(c.ComponentID); !ok {
		return missing("test_component", c.ComponentID)
	}
	r.u.stamp(nil, &c.UpdatedAt)
	t.put(c.ComponentID, *c)
	return nil
}

// Delete refuses a component still named as a condition input, like the
// self-referencing foreign keys of test_components.
func (r componentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()
	dependents := r.u.db().components.filter(func(x domain.TestComponent) bool {
		return x.ComponentID != id &&
			((x.ConditionFirstID != nil && *x.ConditionFirstID == id) ||
				(x.ConditionSecondID != nil && *x.ConditionSecondID == id))
	})
	if len(dependents) > 0 {
		return &domain.DependencyError{Entity: "test_component", ID: id.String(), Dependents: "conditional components", Count: int64(len(dependents))}
	}
	if !r.u.db().components.remove(id) {
		return missing("test_component", id)
	}
	return nil
}

// Marks

type markRepo struct{ u *session }

func (r markRepo) lookup(enrollmentID, componentID uuid.UUID) *domain.StudentMark {
	return r.u.db().marks.find(func(x domain.StudentMark) bool {
		return x.EnrollmentID == enrollmentID && x.TestComponentID == componentID
	})
}

func (r markRepo) Upsert(ctx context.Context, m *domain.StudentMark) error {
	defer r.u.lock()()
	if existing := r.lookup(m.EnrollmentID, m.TestComponentID); existing != nil {
		existing.MarksObtained = m.MarksObtained
		r.u.stamp(nil, &existing.UpdatedAt)
		r.u.db().marks.put(existing.MarkID, *existing)
		*m = *existing
		return nil
	}
	ensureID(&m.MarkID)
	r.u.stamp(&m.CreatedAt, &m.UpdatedAt)
	r.u.db().marks.put(m.MarkID, *m)
	return nil
}

func (r markRepo) Get(ctx context.Context, enrollmentID, componentID uuid.UUID) (*domain.StudentMark, error) {
	defer r.u.lock()()
	return r.lookup(enrollmentID, componentID), nil
}

func (r markRepo) ListByEnrollment(ctx context.Context, enrollmentID uuid.UUID) ([]*domain.StudentMark, error) {
	defer r.u.lock()()
	return r.u.db().marks.filter(func(x domain.StudentMark) bool { return x.EnrollmentID == enrollmentID }), nil
}

func (r markRepo) Update(ctx context.Context, m *domain.StudentMark) error {
	defer r.u.lock()()
	t := r.u.db().marks
	if _, ok := t.get(m.MarkID); !ok {
		return missing("student_mark", m.MarkID)
	}
	if other := r.lookup(m.EnrollmentID, m.TestComponentID); other != nil && other.MarkID != m.MarkID {
		return conflict("student_mark", "idx_marks_enrollment_component", m.EnrollmentID, "/", m.TestComponentID)
	}
	r.u.stamp(nil, &m.UpdatedAt)
	t.put(m.MarkID, *m)
	return nil
}

func (r markRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.u.lock()()
	if !r.u.db().marks.remove(id) {
		return missing("student_mark", id)
	}
	return nil
}

// Reconciliation logs

type logRepo struct{ u *session }

func (r logRepo) Create(ctx context.Context, l *domain.ReconciliationLog) error {
	defer r.u.lock()()
	ensureID(&l.LogID)
	r.u.stamp(&l.CreatedAt, nil)
	r.u.db().logs.put(l.LogID, *l)
	return nil
}

func (r logRepo) ListByRun(ctx context.Context, runID uuid.UUID) ([]*domain.ReconciliationLog, error) {
	defer r.u.lock()()
	return r.u.db().logs.filter(func(x domain.ReconciliationLog) bool { return x.RunID == runID }), nil
}

// Users

type userRepo struct{ u *session }

func (r userRepo) Create(ctx context.Context, usr *user.User) error {
	defer r.u.lock()()
	t := r.u.db().users
	ensureID(&usr.ID)
	if t.find(func(x user.User) bool { return strings.EqualFold(x.Username, usr.Username) }) != nil {
		return conflict("user", "users_username_key", usr.Username)
	}
	r.u.stamp(&usr.CreatedAt, &usr.UpdatedAt)
	t.put(usr.ID, *usr)
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	defer r.u.lock()()
	return r.u.db().users.find(func(x user.User) bool { return x.ID == id }), nil
}

func (r userRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	defer r.u.lock()()
	return r.u.db().users.find(func(x user.User) bool { return strings.EqualFold(x.Username, username) }), nil
}

func (r userRepo) Update(ctx context.Context, usr *user.User) error {
	defer r.u.lock()()
	t := r.u.db().users
	if _, ok := t.get(usr.ID); !ok {
		return missing("user", usr.ID)
	}
	r.u.stamp(nil, &usr.UpdatedAt)
	t.put(usr.ID, *usr)
	return nil
}
