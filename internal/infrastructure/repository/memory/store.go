// Package memory is an in-process Store used by tests and by
// database.driver=memory. It enforces the same unique indexes as the
// schema and rolls a transaction back by restoring a snapshot.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domain "college-records/internal/domain/academic"
	"college-records/internal/domain/user"
	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
)

// table keeps rows in insertion order
type table[T any] struct {
	rows  map[uuid.UUID]T
	order []uuid.UUID
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[uuid.UUID]T)}
}

func (t *table[T]) get(id uuid.UUID) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) put(id uuid.UUID, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) remove(id uuid.UUID) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// filter returns copies of every row matching keep, in insertion order
func (t *table[T]) filter(keep func(T) bool) []*T {
	var out []*T
	for _, id := range t.order {
		v := t.rows[id]
		if keep == nil || keep(v) {
			c := v
			out = append(out, &c)
		}
	}
	return out
}

func (t *table[T]) find(keep func(T) bool) *T {
	for _, id := range t.order {
		if v := t.rows[id]; keep(v) {
			return &v
		}
	}
	return nil
}

func (t *table[T]) clone() *table[T] {
	c := &table[T]{rows: make(map[uuid.UUID]T, len(t.rows)), order: append([]uuid.UUID(nil), t.order...)}
	for k, v := range t.rows {
		c.rows[k] = v
	}
	return c
}

type tables struct {
	colleges    *table[domain.College]
	departments *table[domain.Department]
	sections    *table[domain.Section]
	courses     *table[domain.Course]
	terms       *table[domain.AcademicTerm]
	teachers    *table[domain.Teacher]
	students    *table[domain.Student]
	offerings   *table[domain.CourseOffering]
	enrollments *table[domain.Enrollment]
	sessions    *table[domain.AttendanceSession]
	records     *table[domain.AttendanceRecord]
	components  *table[domain.TestComponent]
	marks       *table[domain.StudentMark]
	logs        *table[domain.ReconciliationLog]
	users       *table[user.User]
}

func newTables() *tables {
	return &tables{
		colleges:    newTable[domain.College](),
		departments: newTable[domain.Department](),
		sections:    newTable[domain.Section](),
		courses:     newTable[domain.Course](),
		terms:       newTable[domain.AcademicTerm](),
		teachers:    newTable[domain.Teacher](),
		students:    newTable[domain.Student](),
		offerings:   newTable[domain.CourseOffering](),
		enrollments: newTable[domain.Enrollment](),
		sessions:    newTable[domain.AttendanceSession](),
		records:     newTable[domain.AttendanceRecord](),
		components:  newTable[domain.TestComponent](),
		marks:       newTable[domain.StudentMark](),
		logs:        newTable[domain.ReconciliationLog](),
		users:       newTable[user.User](),
	}
}

func (t *tables) clone() *tables {
	return &tables{
		colleges:    t.colleges.clone(),
		departments: t.departments.clone(),
		sections:    t.sections.clone(),
		courses:     t.courses.clone(),
		terms:       t.terms.clone(),
		teachers:    t.teachers.clone(),
		students:    t.students.clone(),
		offerings:   t.offerings.clone(),
		enrollments: t.enrollments.clone(),
		sessions:    t.sessions.clone(),
		records:     t.records.clone(),
		components:  t.components.clone(),
		marks:       t.marks.clone(),
		logs:        t.logs.clone(),
		users:       t.users.clone(),
	}
}

// Store is the in-memory implementation of interfaces.Store
type Store struct {
	mu   sync.Mutex
	data *tables
	now  func() time.Time
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{data: newTables(), now: time.Now}
}

// session binds repositories to the store; inTx means the store mutex is
// already held by Transaction.
type session struct {
	s    *Store
	inTx bool
}

func (u *session) lock() func() {
	if u.inTx {
		return func() {}
	}
	u.s.mu.Lock()
	return u.s.mu.Unlock
}

func (u *session) db() *tables { return u.s.data }

func (u *session) stamp(created, updated *time.Time) {
	now := u.s.now()
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func (s *Store) root() *session { return &session{s: s} }

func (s *Store) Colleges() interfaces.CollegeRepository       { return s.root().Colleges() }
func (s *Store) Departments() interfaces.DepartmentRepository { return s.root().Departments() }
func (s *Store) Sections() interfaces.SectionRepository       { return s.root().Sections() }
func (s *Store) Courses() interfaces.CourseRepository         { return s.root().Courses() }
func (s *Store) Terms() interfaces.TermRepository             { return s.root().Terms() }
func (s *Store) Teachers() interfaces.TeacherRepository       { return s.root().Teachers() }
func (s *Store) Students() interfaces.StudentRepository       { return s.root().Students() }
func (s *Store) Offerings() interfaces.OfferingRepository     { return s.root().Offerings() }
func (s *Store) Enrollments() interfaces.EnrollmentRepository { return s.root().Enrollments() }
func (s *Store) Sessions() interfaces.SessionRepository       { return s.root().Sessions() }
func (s *Store) Records() interfaces.RecordRepository         { return s.root().Records() }
func (s *Store) Components() interfaces.ComponentRepository   { return s.root().Components() }
func (s *Store) Marks() interfaces.MarkRepository             { return s.root().Marks() }
func (s *Store) ReconciliationLogs() interfaces.ReconciliationLogRepository {
	return s.root().ReconciliationLogs()
}
func (s *Store) Users() user.UserRepository { return s.root().Users() }

// Transaction holds the store lock for the whole of fn and restores the
// pre-transaction snapshot when fn fails.
func (s *Store) Transaction(ctx context.Context, fn func(uow interfaces.UnitOfWork) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(&session{s: s, inTx: true}); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// PlacementRows performs the audit join in memory
func (s *Store) PlacementRows(ctx context.Context, filter domain.PlacementFilter) ([]domain.PlacementRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	db := s.data

	var rows []domain.PlacementRow
	for _, sid := range db.students.order {
		st := db.students.rows[sid]
		if st.Semester != filter.Semester {
			continue
		}
		if filter.CollegeID != nil && st.CollegeID != *filter.CollegeID {
			continue
		}
		for _, eid := range db.enrollments.order {
			en := db.enrollments.rows[eid]
			if en.StudentID != st.StudentID {
				continue
			}
			off, ok := db.offerings.get(en.OfferingID)
			if !ok {
				continue
			}
			course, ok := db.courses.get(off.CourseID)
			if !ok {
				continue
			}
			dept, _ := db.departments.get(course.DepartmentID)
			rows = append(rows, domain.PlacementRow{
				EnrollmentID:        en.EnrollmentID,
				StudentID:           st.StudentID,
				USN:                 st.USN,
				StudentCollegeID:    st.CollegeID,
				StudentDepartmentID: st.DepartmentID,
				StudentSectionID:    st.SectionID,
				OfferingID:          off.OfferingID,
				OfferingSectionID:   off.SectionID,
				AcademicTermID:      off.AcademicTermID,
				CourseID:            course.CourseID,
				CourseCode:          course.Code,
				CourseDepartmentID:  course.DepartmentID,
				CourseCollegeID:     dept.CollegeID,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].USN < rows[j].USN })
	return rows, nil
}

func (s *Store) Health(ctx context.Context) error {
	return ctx.Err()
}

var _ interfaces.Store = (*Store)(nil)
