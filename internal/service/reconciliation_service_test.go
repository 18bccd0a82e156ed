package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	domain "college-records/internal/domain/academic"
	interfaces "college-records/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcileOfferings_TeacherBeatsEnrollmentCount(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "C", termStart)
	course := c.newCourse(c.department, "CS301", false)
	teacher, _ := c.newTeacher(c.department, "ravi")

	x := c.newOffering(course, section, nil, termStart)
	y := c.newOffering(course, section, teacher, termStart.Add(time.Hour))
	for i := 0; i < 25; i++ {
		c.enroll(c.newStudent(section, fmt.Sprintf("1RV23CS%03d", i)), y)
	}

	svc := NewReconciliationService(c.store)
	req := &domain.ReconcileOfferingsRequest{CourseID: &course.CourseID, TermID: &c.term.AcademicTermID}

	result, err := svc.ReconcileOfferings(c.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Deleted)
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, y.OfferingID, result.Decisions[0].SurvivorID)
	assert.Equal(t, x.OfferingID, result.Decisions[0].DonorID)

	offerings := c.offeringsOf(course)
	require.Len(t, offerings, 1)
	assert.Equal(t, y.OfferingID, offerings[0].OfferingID)

	count, err := c.store.Enrollments().CountByOffering(c.ctx, y.OfferingID)
	require.NoError(t, err)
	assert.EqualValues(t, 25, count)

	logs, err := c.store.ReconciliationLogs().ListByRun(c.ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.ActionMergeOffering, logs[0].Action)

	again, err := svc.ReconcileOfferings(c.ctx, req)
	require.NoError(t, err)
	assert.Zero(t, again.Merged)
	assert.Zero(t, again.Deleted)
	assert.Empty(t, again.Decisions)
}

func TestReconcileOfferings_MoreEnrollmentsWinWithoutTeachers(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	course := c.newCourse(c.department, "CS302", false)

	older := c.newOffering(course, section, nil, termStart)
	busier := c.newOffering(course, section, nil, termStart.Add(time.Hour))
	c.enroll(c.newStudent(section, "1RV23CS001"), busier)

	result, err := NewReconciliationService(c.store).ReconcileOfferings(c.ctx, &domain.ReconcileOfferingsRequest{})
	require.NoError(t, err)
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, busier.OfferingID, result.Decisions[0].SurvivorID)
	assert.Equal(t, older.OfferingID, result.Decisions[0].DonorID)
}

func TestReconcileOfferings_MergesDependents(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "B", termStart)
	course := c.newCourse(c.department, "CS303", true)
	teacher, _ := c.newTeacher(c.department, "asha")

	survivor := c.newOffering(course, section, teacher, termStart)
	donor := c.newOffering(course, section, nil, termStart.Add(time.Hour))

	both := c.newStudent(section, "1RV23CS010")
	onlyDonor := c.newStudent(section, "1RV23CS011")
	survivorEnrollment := c.enroll(both, survivor)
	duplicate := c.enroll(both, donor)
	moved := c.enroll(onlyDonor, donor)

	survivorCIE := c.newComponent(survivor, "CIE1", domain.ComponentTheory, 50, 0.5)
	donorCIE := c.newComponent(donor, "cie1", domain.ComponentTheory, 50, 0.5)
	donorLab := c.newComponent(donor, "LAB1", domain.ComponentLab, 25, 0.25)

	c.setMark(survivorEnrollment, survivorCIE, 40)
	c.setMark(duplicate, donorCIE, 10)
	c.setMark(duplicate, donorLab, 20)
	c.setMark(moved, donorCIE, 30)

	attendance := NewAttendanceService(c.store)
	slot := domain.NewDate(2026, time.September, 1)
	survivorSession, err := attendance.FindOrCreateSession(c.ctx, c.admin, &domain.CreateSessionRequest{OfferingID: survivor.OfferingID, ClassDate: slot, PeriodNumber: 1})
	require.NoError(t, err)
	donorSession, err := attendance.FindOrCreateSession(c.ctx, c.admin, &domain.CreateSessionRequest{OfferingID: donor.OfferingID, ClassDate: slot, PeriodNumber: 1})
	require.NoError(t, err)
	_, err = attendance.FindOrCreateSession(c.ctx, c.admin, &domain.CreateSessionRequest{OfferingID: donor.OfferingID, ClassDate: slot, PeriodNumber: 2})
	require.NoError(t, err)

	result, err := NewReconciliationService(c.store).ReconcileOfferings(c.ctx, &domain.ReconcileOfferingsRequest{CourseID: &course.CourseID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	gone, err := c.store.Offerings().GetByID(c.ctx, donor.OfferingID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// the duplicate enrollment folds into the survivor's and keeps its mark
	dup, err := c.store.Enrollments().GetByID(c.ctx, duplicate.EnrollmentID)
	require.NoError(t, err)
	assert.Nil(t, dup)
	assert.Equal(t, 40.0, *c.markOf(survivorEnrollment.EnrollmentID, survivorCIE.ComponentID).MarksObtained)
	assert.Equal(t, 20.0, *c.markOf(survivorEnrollment.EnrollmentID, donorLab.ComponentID).MarksObtained)

	// the other enrollment is re-pointed and its mark follows the matched component
	repointed, err := c.store.Enrollments().GetByID(c.ctx, moved.EnrollmentID)
	require.NoError(t, err)
	require.NotNil(t, repointed)
	assert.Equal(t, survivor.OfferingID, repointed.OfferingID)
	assert.Equal(t, 30.0, *c.markOf(moved.EnrollmentID, survivorCIE.ComponentID).MarksObtained)

	components, err := c.store.Components().ListByOffering(c.ctx, survivor.OfferingID)
	require.NoError(t, err)
	assert.Len(t, components, 2)

	sessions, err := c.store.Sessions().ListByOffering(c.ctx, survivor.OfferingID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	merged, err := c.store.Sessions().GetByID(c.ctx, donorSession.SessionID)
	require.NoError(t, err)
	assert.Nil(t, merged)

	records, err := c.store.Records().ListBySession(c.ctx, survivorSession.SessionID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReconcileOfferings_CourseScopeWidensToSameCode(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	first := c.newCourse(c.department, "CS304", false)
	other := c.newCourse(c.department, "CS305", false)

	c.newOffering(first, section, nil, termStart)
	c.newOffering(first, section, nil, termStart.Add(time.Hour))
	c.newOffering(other, section, nil, termStart)
	c.newOffering(other, section, nil, termStart.Add(time.Hour))

	result, err := NewReconciliationService(c.store).ReconcileOfferings(c.ctx, &domain.ReconcileOfferingsRequest{CourseID: &first.CourseID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)
	assert.Len(t, c.offeringsOf(first), 1)
	assert.Len(t, c.offeringsOf(other), 2)
}

func TestReconcileOfferings_UnknownCourse(t *testing.T) {
	c := newCampus(t)
	_, err := NewReconciliationService(c.store).ReconcileOfferings(c.ctx, &domain.ReconcileOfferingsRequest{CourseID: ptr(uuid.New())})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestReconcileSections_FoldsDuplicateNames(t *testing.T) {
	c := newCampus(t)
	course := c.newCourse(c.department, "CS401", false)

	busy := c.newSection(c.department, "A", termStart.Add(time.Hour))
	thin := c.newSection(c.department, " a ", termStart)
	c.newSection(c.department, "B", termStart)

	c.newOffering(course, busy, nil, termStart)
	c.newStudent(busy, "1RV23CS020")
	stray := c.newStudent(thin, "1RV23CS021")

	svc := NewReconciliationService(c.store)
	result, err := svc.ReconcileSections(c.ctx, &domain.ReconcileSectionsRequest{DepartmentID: c.department.DepartmentID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Deleted)
	require.Len(t, result.Decisions, 1)
	assert.Equal(t, busy.SectionID, result.Decisions[0].SurvivorID)

	deleted, err := c.store.Sections().GetByID(c.ctx, thin.SectionID)
	require.NoError(t, err)
	assert.Nil(t, deleted)

	moved, err := c.store.Students().GetByID(c.ctx, stray.StudentID)
	require.NoError(t, err)
	assert.Equal(t, busy.SectionID, moved.SectionID)

	again, err := svc.ReconcileSections(c.ctx, &domain.ReconcileSectionsRequest{DepartmentID: c.department.DepartmentID})
	require.NoError(t, err)
	assert.Zero(t, again.Merged)
}

func TestAssignTeacher(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "A", termStart)
	course := c.newCourse(c.department, "CS402", false)
	offering := c.newOffering(course, section, nil, termStart)
	teacher, _ := c.newTeacher(c.department, "meera")

	svc := NewReconciliationService(c.store)
	updated, err := svc.AssignTeacher(c.ctx, offering.OfferingID, &domain.AssignTeacherRequest{TeacherID: &teacher.TeacherID})
	require.NoError(t, err)
	require.NotNil(t, updated.TeacherID)
	assert.Equal(t, teacher.TeacherID, *updated.TeacherID)

	elsewhere := c.newDepartment(c.newCollege("BMSCE"), "ECE")
	outsider, _ := c.newTeacher(elsewhere, "kiran")
	_, err = svc.AssignTeacher(c.ctx, offering.OfferingID, &domain.AssignTeacherRequest{TeacherID: &outsider.TeacherID})
	var validation *domain.ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, "teacherId", validation.Field)

	cleared, err := svc.AssignTeacher(c.ctx, offering.OfferingID, &domain.AssignTeacherRequest{})
	require.NoError(t, err)
	assert.Nil(t, cleared.TeacherID)
}

func TestReconcileOfferings_MergesConditionalComponents(t *testing.T) {
	c := newCampus(t)
	section := c.newSection(c.department, "D", termStart)
	course := c.newCourse(c.department, "CS306", false)
	teacher, _ := c.newTeacher(c.department, "meera")

	survivor := c.newOffering(course, section, teacher, termStart)
	donor := c.newOffering(course, section, nil, termStart.Add(time.Hour))

	mse1 := c.newComponent(survivor, "MSE1", domain.ComponentTheory, 20, 20)
	mse2 := c.newComponent(survivor, "MSE2", domain.ComponentTheory, 20, 20)
	mse3 := c.newComponent(survivor, "MSE3", domain.ComponentTheory, 20, 20)
	c.conditional(mse3, mse1, mse2, 20)

	donorMSE1 := c.newComponent(donor, "MSE1", domain.ComponentTheory, 20, 20)
	donorMSE2 := c.newComponent(donor, "MSE2", domain.ComponentTheory, 20, 20)
	donorMSE3 := c.newComponent(donor, "MSE3", domain.ComponentTheory, 20, 20)
	c.conditional(donorMSE3, donorMSE1, donorMSE2, 20)
	makeup := c.newComponent(donor, "MAKEUP", domain.ComponentTheory, 20, 10)
	c.conditional(makeup, donorMSE1, donorMSE2, 20)

	// imported before the rule ran: 12+10 >= 20 yet MSE3 and MAKEUP carry values
	enrollment := c.enroll(c.newStudent(section, "1RV23CS030"), donor)
	c.setMark(enrollment, donorMSE1, 12)
	c.setMark(enrollment, donorMSE2, 10)
	c.setMark(enrollment, donorMSE3, 15)
	c.setMark(enrollment, makeup, 8)

	result, err := NewReconciliationService(c.store).ReconcileOfferings(c.ctx, &domain.ReconcileOfferingsRequest{CourseID: &course.CourseID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Empty(t, result.PlacementErrors)

	components, err := c.store.Components().ListByOffering(c.ctx, survivor.OfferingID)
	require.NoError(t, err)
	assert.Len(t, components, 4)

	for _, id := range []uuid.UUID{donorMSE1.ComponentID, donorMSE2.ComponentID, donorMSE3.ComponentID} {
		gone, err := c.store.Components().GetByID(c.ctx, id)
		require.NoError(t, err)
		assert.Nil(t, gone)
	}

	// the moved conditional now reads the survivor's inputs
	moved, err := c.store.Components().GetByID(c.ctx, makeup.ComponentID)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, survivor.OfferingID, moved.OfferingID)
	cond, ok := moved.Condition()
	require.True(t, ok)
	assert.Equal(t, mse1.ComponentID, cond.FirstID)
	assert.Equal(t, mse2.ComponentID, cond.SecondID)

	assert.Equal(t, 12.0, *c.markOf(enrollment.EnrollmentID, mse1.ComponentID).MarksObtained)
	assert.Nil(t, c.markOf(enrollment.EnrollmentID, mse3.ComponentID).MarksObtained)
	assert.Nil(t, c.markOf(enrollment.EnrollmentID, makeup.ComponentID).MarksObtained)
}

func TestReconcileSections_FoldsCollidingOfferings(t *testing.T) {
	c := newCampus(t)
	course := c.newCourse(c.department, "CS301", false)
	primary := c.newSection(c.department, "A", termStart)
	stray := c.newSection(c.department, "a ", termStart.Add(time.Hour))

	kept := c.newOffering(course, primary, nil, termStart)
	c.enroll(c.newStudent(primary, "1RV23CS040"), kept)
	duplicate := c.newOffering(course, stray, nil, termStart.Add(time.Hour))
	c.enroll(c.newStudent(stray, "1RV23CS041"), duplicate)

	result, err := NewReconciliationService(c.store).ReconcileSections(c.ctx, &domain.ReconcileSectionsRequest{DepartmentID: c.department.DepartmentID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Deleted)
	require.Len(t, result.Decisions, 2)
	assert.Equal(t, domain.ActionMergeSection, result.Decisions[0].Action)
	assert.Equal(t, domain.ActionMergeOffering, result.Decisions[1].Action)
	assert.Equal(t, kept.OfferingID, result.Decisions[1].SurvivorID)
	assert.Equal(t, duplicate.OfferingID, result.Decisions[1].DonorID)

	offerings := c.offeringsOf(course)
	require.Len(t, offerings, 1)
	assert.Equal(t, kept.OfferingID, offerings[0].OfferingID)
	assert.Equal(t, primary.SectionID, offerings[0].SectionID)

	count, err := c.store.Enrollments().CountByOffering(c.ctx, kept.OfferingID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	logs, err := c.store.ReconciliationLogs().ListByRun(c.ctx, result.RunID)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestMergeOffering_RefusesDepartmentCrossing(t *testing.T) {
	c := newCampus(t)
	ece := c.newDepartment(c.college, "ECE")

	section := c.newSection(c.department, "A", termStart)
	donor := c.newOffering(c.newCourse(c.department, "CS307", false), section, nil, termStart)
	enrollment := c.enroll(c.newStudent(section, "1RV23CS050"), donor)

	foreign := c.newOffering(c.newCourse(ece, "EC307", false), c.newSection(ece, "A", termStart), nil, termStart)

	donorDetail, err := loadOfferingDetail(c.ctx, c.store, donor)
	require.NoError(t, err)
	foreignDetail, err := loadOfferingDetail(c.ctx, c.store, foreign)
	require.NoError(t, err)

	err = c.store.Transaction(c.ctx, func(uow interfaces.UnitOfWork) error {
		_, err := mergeOffering(c.ctx, uow, foreignDetail, donorDetail)
		return err
	})
	var placement *domain.PlacementError
	require.True(t, errors.As(err, &placement))
	assert.Contains(t, placement.Reasons, domain.ReasonDepartmentMismatch)

	// nothing moved
	still, err := c.store.Enrollments().GetByID(c.ctx, enrollment.EnrollmentID)
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.Equal(t, donor.OfferingID, still.OfferingID)
	kept, err := c.store.Offerings().GetByID(c.ctx, donor.OfferingID)
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
