package handlers

import (
	"net/http"

	domain "college-records/internal/domain/academic"
	serviceInterfaces "college-records/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

// AttendanceHandler handles attendance session and record requests
type AttendanceHandler struct {
	attendance serviceInterfaces.AttendanceService
}

func NewAttendanceHandler(attendance serviceInterfaces.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// CreateSession handles POST /attendance/session
func (h *AttendanceHandler) CreateSession(c *gin.Context) {
	var req domain.CreateSessionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.attendance.FindOrCreateSession(c.Request.Context(), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.Created {
		respond(c, http.StatusCreated, "Session created", result)
		return
	}
	respond(c, http.StatusOK, "Session already exists", result)
}

// GetSession handles GET /attendance/session/:session_id
func (h *AttendanceHandler) GetSession(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}

	view, err := h.attendance.GetSession(c.Request.Context(), principal(c), sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", view)
}

// UpdateSessionStatus handles PATCH /attendance/session/:session_id/status
func (h *AttendanceHandler) UpdateSessionStatus(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}
	var req domain.UpdateSessionStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	session, err := h.attendance.UpdateSessionStatus(c.Request.Context(), principal(c), sessionID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Session status updated", session)
}

// SeedRoster handles POST /attendance/session/:session_id/roster.
// The read goes first so the caller's ownership is checked before seeding.
func (h *AttendanceHandler) SeedRoster(c *gin.Context) {
	sessionID, ok := uuidParam(c, "session_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.attendance.GetSession(ctx, principal(c), sessionID); err != nil {
		respondError(c, err)
		return
	}
	created, err := h.attendance.SeedRoster(ctx, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Roster seeded", gin.H{"created": created})
}

// SetRecord handles PUT /attendance/record
func (h *AttendanceHandler) SetRecord(c *gin.Context) {
	var req domain.SetRecordStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.attendance.SetRecordStatus(c.Request.Context(), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Attendance recorded", result)
}

// ToggleRecord handles POST /attendance/record/toggle
func (h *AttendanceHandler) ToggleRecord(c *gin.Context) {
	var req domain.ToggleRecordRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.attendance.ToggleRecord(c.Request.Context(), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Attendance toggled", result)
}
