package service

import (
	"context"
	"fmt"
	"strings"

	domain "college-records/internal/domain/academic"
	interfaces "college-records/internal/interfaces/infrastructure"
	serviceInterfaces "college-records/internal/interfaces/service"
	"college-records/pkg/logger"

	"github.com/google/uuid"
)

var _ serviceInterfaces.RegistryService = (*RegistryService)(nil)

// RegistryService is the validated create/delete path for every entity.
// Natural keys the database cannot enforce are checked here.
type RegistryService struct {
	store interfaces.Store
}

func NewRegistryService(store interfaces.Store) *RegistryService {
	return &RegistryService{store: store}
}

func (s *RegistryService) CreateCollege(ctx context.Context, req *domain.CreateCollegeRequest) (*domain.College, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.Code)

	college := &domain.College{CollegeID: uuid.New(), Code: code, Name: strings.TrimSpace(req.Name)}
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		existing, err := uow.Colleges().GetByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to get college: %w", err)
		}
		if existing != nil {
			return domain.NewConflictError("college", code, "college code already exists")
		}
		return uow.Colleges().Create(ctx, college)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("College created: %s (%s)", college.Code, college.CollegeID)
	return college, nil
}

func (s *RegistryService) CreateDepartment(ctx context.Context, req *domain.CreateDepartmentRequest) (*domain.Department, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	code := strings.TrimSpace(req.Code)

	department := &domain.Department{
		DepartmentID: uuid.New(),
		CollegeID:    req.CollegeID,
		Code:         code,
		Name:         strings.TrimSpace(req.Name),
	}
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		college, err := uow.Colleges().GetByID(ctx, req.CollegeID)
		if err != nil {
			return fmt.Errorf("failed to get college: %w", err)
		}
		if college == nil {
			return domain.NewNotFoundError("college", req.CollegeID)
		}
		existing, err := uow.Departments().GetByCollegeAndCode(ctx, req.CollegeID, code)
		if err != nil {
			return fmt.Errorf("failed to get department: %w", err)
		}
		if existing != nil {
			return domain.NewConflictError("department", college.Code+"/"+code, "department code already exists in college")
		}
		return uow.Departments().Create(ctx, department)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Department created: %s (%s)", department.Code, department.DepartmentID)
	return department, nil
}

// CreateSection rejects a name that normalizes to an existing section's name
func (s *RegistryService) CreateSection(ctx context.Context, req *domain.CreateSectionRequest) (*domain.Section, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	section := &domain.Section{SectionID: uuid.New(), DepartmentID: req.DepartmentID, Name: strings.TrimSpace(req.Name)}
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		department, err := uow.Departments().GetByID(ctx, req.DepartmentID)
		if err != nil {
			return fmt.Errorf("failed to get department: %w", err)
		}
		if department == nil {
			return domain.NewNotFoundError("department", req.DepartmentID)
		}
		sections, err := uow.Sections().ListByDepartment(ctx, req.DepartmentID)
		if err != nil {
			return fmt.Errorf("failed to list sections: %w", err)
		}
		name := domain.NormalizeName(section.Name)
		for _, existing := range sections {
			if domain.NormalizeName(existing.Name) == name {
				return domain.NewConflictError("section", department.Code+"/"+name, "section already exists in department")
			}
		}
		return uow.Sections().Create(ctx, section)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Section created: %s (%s)", section.Name, section.SectionID)
	return section, nil
}

func (s *RegistryService) CreateCourse(ctx context.Context, req *domain.CreateCourseRequest) (*domain.Course, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	hasTheory := true
	if req.HasTheoryComponent != nil {
		hasTheory = *req.HasTheoryComponent
	}
	if !hasTheory && !req.HasLabComponent {
		return nil, domain.NewValidationError("hasTheoryComponent", "a course needs a theory or a lab component")
	}
	code := strings.TrimSpace(req.Code)

	course := &domain.Course{
		CourseID:           uuid.New(),
		DepartmentID:       req.DepartmentID,
		Code:               code,
		Name:               strings.TrimSpace(req.Name),
		Credits:            req.Credits,
		HasTheoryComponent: hasTheory,
		HasLabComponent:    req.HasLabComponent,
	}
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		department, err := uow.Departments().GetByID(ctx, req.DepartmentID)
		if err != nil {
			return fmt.Errorf("failed to get department: %w", err)
		}
		if department == nil {
			return domain.NewNotFoundError("department", req.DepartmentID)
		}
		existing, err := uow.Courses().GetByDepartmentAndCode(ctx, req.DepartmentID, code)
		if err != nil {
			return fmt.Errorf("failed to get course: %w", err)
		}
		if existing != nil {
			return domain.NewConflictError("course", department.Code+"/"+code, "course code already exists in department")
		}
		return uow.Courses().Create(ctx, course)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Course created: %s (%s)", course.Code, course.CourseID)
	return course, nil
}

func (s *RegistryService) CreateTerm(ctx context.Context, req *domain.CreateTermRequest) (*domain.AcademicTerm, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, domain.NewValidationError("startDate", "startDate and endDate are required")
	}
	if req.EndDate.Before(req.StartDate.Time) {
		return nil, domain.NewValidationError("endDate", "endDate is before startDate")
	}
	code := strings.TrimSpace(req.Code)

	term := &domain.AcademicTerm{
		AcademicTermID: uuid.New(),
		Code:           code,
		Name:           strings.TrimSpace(req.Name),
		StartDate:      domain.DateOnly(req.StartDate.Time),
		EndDate:        domain.DateOnly(req.EndDate.Time),
	}
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		existing, err := uow.Terms().GetByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("failed to get academic term: %w", err)
		}
		if existing != nil {
			return domain.NewConflictError("academic_term", code, "term code already exists")
		}
		return uow.Terms().Create(ctx, term)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Academic term created: %s (%s)", term.Code, term.AcademicTermID)
	return term, nil
}

// CreateTeacher binds a user account to a department; the college follows
// from the department.
func (s *RegistryService) CreateTeacher(ctx context.Context, req *domain.CreateTeacherRequest) (*domain.Teacher, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	teacher := &domain.Teacher{TeacherID: uuid.New(), UserID: req.UserID, DepartmentID: req.DepartmentID, Name: strings.TrimSpace(req.Name)}
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		department, err := uow.Departments().GetByID(ctx, req.DepartmentID)
		if err != nil {
			return fmt.Errorf("failed to get department: %w", err)
		}
		if department == nil {
			return domain.NewNotFoundError("department", req.DepartmentID)
		}
		account, err := uow.Users().GetByID(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to get user: %w", err)
		}
		if account == nil {
			return domain.NewNotFoundError("user", req.UserID)
		}
		existing, err := uow.Teachers().GetByUserID(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to get teacher: %w", err)
		}
		if existing != nil {
			return domain.NewConflictError("teacher", req.UserID.String(), "user is already bound to a teacher")
		}
		teacher.CollegeID = department.CollegeID
		return uow.Teachers().Create(ctx, teacher)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Teacher created: %s (%s)", teacher.Name, teacher.TeacherID)
	return teacher, nil
}

// CreateStudent derives department and college from the section so the
// stored placement is consistent by construction.
func (s *RegistryService) CreateStudent(ctx context.Context, req *domain.CreateStudentRequest) (*domain.Student, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	usn := strings.ToUpper(strings.TrimSpace(req.USN))

	student := &domain.Student{
		StudentID: uuid.New(),
		UserID:    req.UserID,
		SectionID: req.SectionID,
		USN:       usn,
		Name:      strings.TrimSpace(req.Name),
		Semester:  req.Semester,
	}
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		section, err := uow.Sections().GetByID(ctx, req.SectionID)
		if err != nil {
			return fmt.Errorf("failed to get section: %w", err)
		}
		if section == nil {
			return domain.NewNotFoundError("section", req.SectionID)
		}
		department, err := uow.Departments().GetByID(ctx, section.DepartmentID)
		if err != nil {
			return fmt.Errorf("failed to get department: %w", err)
		}
		if department == nil {
			return domain.NewNotFoundError("department", section.DepartmentID)
		}
		existing, err := uow.Students().GetByUSN(ctx, usn)
		if err != nil {
			return fmt.Errorf("failed to get student: %w", err)
		}
		if existing != nil {
			return domain.NewConflictError("student", usn, "usn already exists")
		}
		student.DepartmentID = department.DepartmentID
		student.CollegeID = department.CollegeID
		return uow.Students().Create(ctx, student)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Student created: %s (%s)", student.USN, student.StudentID)
	return student, nil
}

// CreateOffering enforces (courseId, sectionId, semester, academicTermId)
// uniqueness and requires the section to belong to the course's department.
func (s *RegistryService) CreateOffering(ctx context.Context, req *domain.CreateOfferingRequest) (*domain.CourseOffering, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	offering := &domain.CourseOffering{
		OfferingID:     uuid.New(),
		CourseID:       req.CourseID,
		SectionID:      req.SectionID,
		AcademicTermID: req.AcademicTermID,
		Semester:       req.Semester,
		TeacherID:      req.TeacherID,
	}
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		course, err := uow.Courses().GetByID(ctx, req.CourseID)
		if err != nil {
			return fmt.Errorf("failed to get course: %w", err)
		}
		if course == nil {
			return domain.NewNotFoundError("course", req.CourseID)
		}
		section, err := uow.Sections().GetByID(ctx, req.SectionID)
		if err != nil {
			return fmt.Errorf("failed to get section: %w", err)
		}
		if section == nil {
			return domain.NewNotFoundError("section", req.SectionID)
		}
		if section.DepartmentID != course.DepartmentID {
			return domain.NewValidationError("sectionId", "section %s is not in the course's department", section.Name)
		}
		term, err := uow.Terms().GetByID(ctx, req.AcademicTermID)
		if err != nil {
			return fmt.Errorf("failed to get academic term: %w", err)
		}
		if term == nil {
			return domain.NewNotFoundError("academic_term", req.AcademicTermID)
		}
		if req.TeacherID != nil {
			department, err := uow.Departments().GetByID(ctx, course.DepartmentID)
			if err != nil {
				return fmt.Errorf("failed to get department: %w", err)
			}
			if department == nil {
				return domain.NewNotFoundError("department", course.DepartmentID)
			}
			if _, err := teacherFor(ctx, uow, *req.TeacherID, department.CollegeID); err != nil {
				return err
			}
		}

		existing, err := uow.Offerings().List(ctx, interfaces.OfferingFilter{
			CourseIDs:  []uuid.UUID{req.CourseID},
			SectionIDs: []uuid.UUID{req.SectionID},
			TermID:     &req.AcademicTermID,
		})
		if err != nil {
			return fmt.Errorf("failed to list offerings: %w", err)
		}
		for _, o := range existing {
			if domain.SameOfferingSlot(o, offering) {
				return domain.NewConflictError("offering",
					fmt.Sprintf("%s/%s/%s/sem%d", course.Code, section.Name, term.Code, req.Semester),
					"offering already exists as %s", o.OfferingID)
			}
		}
		return uow.Offerings().Create(ctx, offering)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Offering created: %s", offering.OfferingID)
	return offering, nil
}

// CreateComponent checks the type against the course flags and that any
// condition inputs are other components of the same offering.
func (s *RegistryService) CreateComponent(ctx context.Context, req *domain.CreateComponentRequest) (*domain.TestComponent, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	componentType, err := domain.ParseComponentType(req.Type)
	if err != nil {
		return nil, err
	}
	conditional := req.ConditionFirstID != nil || req.ConditionSecondID != nil || req.ConditionThreshold != nil
	if conditional && (req.ConditionFirstID == nil || req.ConditionSecondID == nil || req.ConditionThreshold == nil) {
		return nil, domain.NewValidationError("conditionThreshold", "a condition needs both input components and a threshold")
	}
	if conditional && *req.ConditionFirstID == *req.ConditionSecondID {
		return nil, domain.NewValidationError("conditionSecondId", "condition inputs must be two different components")
	}

	component := &domain.TestComponent{
		ComponentID:        uuid.New(),
		OfferingID:         req.OfferingID,
		Name:               strings.TrimSpace(req.Name),
		Type:               componentType,
		MaxMarks:           req.MaxMarks,
		Weightage:          req.Weightage,
		ConditionFirstID:   req.ConditionFirstID,
		ConditionSecondID:  req.ConditionSecondID,
		ConditionThreshold: req.ConditionThreshold,
	}
	err = s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		offering, err := getOffering(ctx, uow, req.OfferingID)
		if err != nil {
			return err
		}
		course, err := uow.Courses().GetByID(ctx, offering.CourseID)
		if err != nil {
			return fmt.Errorf("failed to get course: %w", err)
		}
		if course == nil {
			return domain.NewNotFoundError("course", offering.CourseID)
		}
		if !course.AllowsComponent(componentType) {
			return domain.NewValidationError("type", "course %s has no %s component", course.Code, componentType)
		}

		siblings, err := uow.Components().ListByOffering(ctx, offering.OfferingID)
		if err != nil {
			return fmt.Errorf("failed to list components: %w", err)
		}
		ids := make(map[uuid.UUID]bool, len(siblings))
		name := domain.NormalizeName(component.Name)
		for _, c := range siblings {
			if domain.NormalizeName(c.Name) == name && c.Type == componentType {
				return domain.NewConflictError("test_component", c.Name, "%s component already exists in offering", componentType)
			}
			ids[c.ComponentID] = true
		}
		if conditional {
			if !ids[*req.ConditionFirstID] {
				return domain.NewValidationError("conditionFirstId", "condition input must be a component of the same offering")
			}
			if !ids[*req.ConditionSecondID] {
				return domain.NewValidationError("conditionSecondId", "condition input must be a component of the same offering")
			}
		}
		return uow.Components().Create(ctx, component)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Test component created: %s (%s)", component.Name, component.ComponentID)
	return component, nil
}

// deleteEnrollment removes an enrollment with its marks and its attendance
// records in the offering's sessions
func deleteEnrollment(ctx context.Context, uow interfaces.UnitOfWork, enrollment *domain.Enrollment, sessions []*domain.AttendanceSession) error {
	marks, err := uow.Marks().ListByEnrollment(ctx, enrollment.EnrollmentID)
	if err != nil {
		return fmt.Errorf("failed to list marks: %w", err)
	}
	for _, m := range marks {
		if err := uow.Marks().Delete(ctx, m.MarkID); err != nil {
			return fmt.Errorf("failed to delete mark: %w", err)
		}
	}
	for _, session := range sessions {
		record, err := uow.Records().Get(ctx, session.SessionID, enrollment.StudentID)
		if err != nil {
			return fmt.Errorf("failed to get record: %w", err)
		}
		if record == nil {
			continue
		}
		if err := uow.Records().Delete(ctx, record.RecordID); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
	}
	if err := uow.Enrollments().Delete(ctx, enrollment.EnrollmentID); err != nil {
		return fmt.Errorf("failed to delete enrollment: %w", err)
	}
	return nil
}

func (s *RegistryService) DeleteStudent(ctx context.Context, id uuid.UUID, cascade bool) error {
	var removed int
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		student, err := getStudent(ctx, uow, id)
		if err != nil {
			return err
		}
		enrollments, err := uow.Enrollments().ListByStudent(ctx, student.StudentID)
		if err != nil {
			return fmt.Errorf("failed to list enrollments: %w", err)
		}
		if len(enrollments) > 0 && !cascade {
			return &domain.DependencyError{Entity: "student", ID: id.String(), Dependents: "enrollments", Count: int64(len(enrollments))}
		}
		for _, e := range enrollments {
			sessions, err := uow.Sessions().ListByOffering(ctx, e.OfferingID)
			if err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if err := deleteEnrollment(ctx, uow, e, sessions); err != nil {
				return err
			}
		}
		removed = len(enrollments)
		return uow.Students().Delete(ctx, student.StudentID)
	})
	if err != nil {
		return err
	}

	logger.Info("Student deleted: %s (%d enrollments removed)", id, removed)
	return nil
}

// DeleteOffering removes the offering; with cascade it first removes its
// sessions, records, components, marks and enrollments.
func (s *RegistryService) DeleteOffering(ctx context.Context, id uuid.UUID, cascade bool) error {
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		offering, err := getOffering(ctx, uow, id)
		if err != nil {
			return err
		}
		enrollments, err := uow.Enrollments().ListByOffering(ctx, offering.OfferingID)
		if err != nil {
			return fmt.Errorf("failed to list enrollments: %w", err)
		}
		sessions, err := uow.Sessions().ListByOffering(ctx, offering.OfferingID)
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		components, err := uow.Components().ListByOffering(ctx, offering.OfferingID)
		if err != nil {
			return fmt.Errorf("failed to list components: %w", err)
		}

		if !cascade {
			switch {
			case len(enrollments) > 0:
				return &domain.DependencyError{Entity: "offering", ID: id.String(), Dependents: "enrollments", Count: int64(len(enrollments))}
			case len(sessions) > 0:
				return &domain.DependencyError{Entity: "offering", ID: id.String(), Dependents: "sessions", Count: int64(len(sessions))}
			case len(components) > 0:
				return &domain.DependencyError{Entity: "offering", ID: id.String(), Dependents: "components", Count: int64(len(components))}
			}
		}

		for _, e := range enrollments {
			if err := deleteEnrollment(ctx, uow, e, sessions); err != nil {
				return err
			}
		}
		for _, session := range sessions {
			records, err := uow.Records().ListBySession(ctx, session.SessionID)
			if err != nil {
				return fmt.Errorf("failed to list records: %w", err)
			}
			for _, r := range records {
				if err := uow.Records().Delete(ctx, r.RecordID); err != nil {
					return fmt.Errorf("failed to delete record: %w", err)
				}
			}
			if err := uow.Sessions().Delete(ctx, session.SessionID); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		}
		if err := deleteComponents(ctx, uow, components); err != nil {
			return err
		}
		return uow.Offerings().Delete(ctx, offering.OfferingID)
	})
	if err != nil {
		return err
	}

	logger.Info("Offering deleted: %s (cascade=%t)", id, cascade)
	return nil
}

// DeleteSection only removes empty sections; occupied ones are merged away
// by section reconciliation instead.
func (s *RegistryService) DeleteSection(ctx context.Context, id uuid.UUID) error {
	err := s.store.Transaction(ctx, func(uow interfaces.UnitOfWork) error {
		section, err := uow.Sections().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get section: %w", err)
		}
		if section == nil {
			return domain.NewNotFoundError("section", id)
		}
		students, err := uow.Students().ListBySection(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list students: %w", err)
		}
		if len(students) > 0 {
			return &domain.DependencyError{Entity: "section", ID: id.String(), Dependents: "students", Count: int64(len(students))}
		}
		offerings, err := uow.Offerings().List(ctx, interfaces.OfferingFilter{SectionIDs: []uuid.UUID{id}})
		if err != nil {
			return fmt.Errorf("failed to list offerings: %w", err)
		}
		if len(offerings) > 0 {
			return &domain.DependencyError{Entity: "section", ID: id.String(), Dependents: "offerings", Count: int64(len(offerings))}
		}
		return uow.Sections().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	logger.Info("Section deleted: %s", id)
	return nil
}
