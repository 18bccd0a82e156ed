package handlers

import (
	"net/http"

	domain "college-records/internal/domain/academic"
	serviceInterfaces "college-records/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

// MaintenanceHandler exposes the reconciliation and audit jobs plus
// enrollment repair to administrators
type MaintenanceHandler struct {
	maintenance serviceInterfaces.MaintenanceService
	enrollments serviceInterfaces.EnrollmentService
}

func NewMaintenanceHandler(maintenance serviceInterfaces.MaintenanceService, enrollments serviceInterfaces.EnrollmentService) *MaintenanceHandler {
	return &MaintenanceHandler{maintenance: maintenance, enrollments: enrollments}
}

// ReconcileOfferings handles POST /admin/reconcile-offerings. An empty body
// reconciles every offering.
func (h *MaintenanceHandler) ReconcileOfferings(c *gin.Context) {
	var req domain.ReconcileOfferingsRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	result, err := h.maintenance.ReconcileOfferings(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Offerings reconciled", result)
}

// ReconcileSections handles POST /admin/reconcile-sections
func (h *MaintenanceHandler) ReconcileSections(c *gin.Context) {
	var req domain.ReconcileSectionsRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.maintenance.ReconcileSections(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Sections reconciled", result)
}

// AuditPlacement handles POST /admin/audit-placement
func (h *MaintenanceHandler) AuditPlacement(c *gin.Context) {
	var req domain.AuditPlacementRequest
	if !bindJSON(c, &req) {
		return
	}

	report, err := h.maintenance.AuditPlacement(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Placement audited", report)
}

// EnsureEnrollment handles POST /enrollments/ensure
func (h *MaintenanceHandler) EnsureEnrollment(c *gin.Context) {
	var req domain.EnsureEnrollmentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.enrollments.EnsureEnrollment(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if result.Action == domain.EnrollmentCreated {
		status = http.StatusCreated
	}
	respond(c, status, "Enrollment "+string(result.Action), result)
}
