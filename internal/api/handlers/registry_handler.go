package handlers

import (
	"context"
	"net/http"
	"strconv"

	domain "college-records/internal/domain/academic"
	serviceInterfaces "college-records/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

// RegistryHandler handles the admin create and delete routes for the
// organizational entities
type RegistryHandler struct {
	registry   serviceInterfaces.RegistryService
	reconciler serviceInterfaces.ReconciliationService
}

func NewRegistryHandler(registry serviceInterfaces.RegistryService, reconciler serviceInterfaces.ReconciliationService) *RegistryHandler {
	return &RegistryHandler{registry: registry, reconciler: reconciler}
}

// create binds Req, runs fn and answers 201 with the created entity
func create[Req any, Res any](c *gin.Context, fn func(context.Context, *Req) (Res, error), message string) {
	var req Req
	if !bindJSON(c, &req) {
		return
	}

	created, err := fn(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, message, created)
}

func (h *RegistryHandler) CreateCollege(c *gin.Context) {
	create(c, h.registry.CreateCollege, "College created")
}

func (h *RegistryHandler) CreateDepartment(c *gin.Context) {
	create(c, h.registry.CreateDepartment, "Department created")
}

func (h *RegistryHandler) CreateSection(c *gin.Context) {
	create(c, h.registry.CreateSection, "Section created")
}

func (h *RegistryHandler) CreateCourse(c *gin.Context) {
	create(c, h.registry.CreateCourse, "Course created")
}

func (h *RegistryHandler) CreateTerm(c *gin.Context) {
	create(c, h.registry.CreateTerm, "Academic term created")
}

func (h *RegistryHandler) CreateTeacher(c *gin.Context) {
	create(c, h.registry.CreateTeacher, "Teacher created")
}

func (h *RegistryHandler) CreateStudent(c *gin.Context) {
	create(c, h.registry.CreateStudent, "Student created")
}

func (h *RegistryHandler) CreateOffering(c *gin.Context) {
	create(c, h.registry.CreateOffering, "Offering created")
}

func (h *RegistryHandler) CreateComponent(c *gin.Context) {
	create(c, h.registry.CreateComponent, "Test component created")
}

// AssignTeacher handles PUT /admin/offerings/:id/teacher
func (h *RegistryHandler) AssignTeacher(c *gin.Context) {
	offeringID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req domain.AssignTeacherRequest
	if !bindJSON(c, &req) {
		return
	}

	offering, err := h.reconciler.AssignTeacher(c.Request.Context(), offeringID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Teacher assigned", offering)
}

func cascade(c *gin.Context) (bool, bool) {
	raw := c.DefaultQuery("cascade", "false")
	value, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, domain.NewValidationError("cascade", "must be true or false, got %q", raw))
		return false, false
	}
	return value, true
}

// DeleteStudent handles DELETE /admin/students/:id?cascade=
func (h *RegistryHandler) DeleteStudent(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	withDependents, ok := cascade(c)
	if !ok {
		return
	}

	if err := h.registry.DeleteStudent(c.Request.Context(), id, withDependents); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Student deleted", nil)
}

// DeleteOffering handles DELETE /admin/offerings/:id?cascade=
func (h *RegistryHandler) DeleteOffering(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	withDependents, ok := cascade(c)
	if !ok {
		return
	}

	if err := h.registry.DeleteOffering(c.Request.Context(), id, withDependents); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Offering deleted", nil)
}

// DeleteSection handles DELETE /admin/sections/:id
func (h *RegistryHandler) DeleteSection(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.registry.DeleteSection(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Section deleted", nil)
}
