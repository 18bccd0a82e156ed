package service

import (
	"errors"
	"testing"
	"time"

	domain "college-records/internal/domain/academic"
	"college-records/internal/infrastructure/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMaintenanceService(c *campus, locker *cache.LocalLocker) *MaintenanceService {
	return NewMaintenanceService(c.store, locker, NewReconciliationService(c.store), newEnrollmentService(c), time.Minute)
}

func TestMaintenance_RejectsConcurrentJob(t *testing.T) {
	c := newCampus(t)
	locker := cache.NewLocalLocker()
	svc := newMaintenanceService(c, locker)

	token, ok, err := locker.TryLock(c.ctx, maintenanceLockKey, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.ReconcileSections(c.ctx, &domain.ReconcileSectionsRequest{DepartmentID: c.department.DepartmentID})
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))

	_, err = svc.AuditPlacement(c.ctx, &domain.AuditPlacementRequest{Semester: 5})
	assert.True(t, errors.Is(err, domain.ErrConflict))

	require.NoError(t, locker.Unlock(c.ctx, maintenanceLockKey, token))
	_, err = svc.ReconcileSections(c.ctx, &domain.ReconcileSectionsRequest{DepartmentID: c.department.DepartmentID})
	require.NoError(t, err)

	// the job released the lock on its way out
	_, ok, err = locker.TryLock(c.ctx, maintenanceLockKey, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMaintenance_ReconcilesSectionsBeforeOfferings(t *testing.T) {
	c := newCampus(t)
	course := c.newCourse(c.department, "CS801", false)
	primary := c.newSection(c.department, "A", termStart)
	stray := c.newSection(c.department, "a ", termStart.Add(time.Hour))

	kept := c.newOffering(course, primary, nil, termStart)
	c.enroll(c.newStudent(primary, "1RV23CS500"), kept)
	duplicate := c.newOffering(course, stray, nil, termStart.Add(time.Hour))
	c.enroll(c.newStudent(stray, "1RV23CS501"), duplicate)

	result, err := newMaintenanceService(c, cache.NewLocalLocker()).ReconcileOfferings(c.ctx, &domain.ReconcileOfferingsRequest{CourseID: &course.CourseID})
	require.NoError(t, err)

	// folding the sections already merges the colliding offerings
	require.Len(t, result.Sections, 1)
	assert.Equal(t, 1, result.Sections[0].Merged)
	require.Len(t, result.Sections[0].Decisions, 2)
	assert.Equal(t, domain.ActionMergeOffering, result.Sections[0].Decisions[1].Action)
	assert.Zero(t, result.Merged)

	offerings := c.offeringsOf(course)
	require.Len(t, offerings, 1)
	assert.Equal(t, primary.SectionID, offerings[0].SectionID)

	count, err := c.store.Enrollments().CountByOffering(c.ctx, offerings[0].OfferingID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}
