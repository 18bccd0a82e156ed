package handlers

import (
	"net/http"

	domain "college-records/internal/domain/academic"
	serviceInterfaces "college-records/internal/interfaces/service"

	"github.com/gin-gonic/gin"
)

// MarksHandler handles mark writes and summaries
type MarksHandler struct {
	marks serviceInterfaces.MarksService
}

func NewMarksHandler(marks serviceInterfaces.MarksService) *MarksHandler {
	return &MarksHandler{marks: marks}
}

// SetMark handles PUT /marks/:enrollment_id
func (h *MarksHandler) SetMark(c *gin.Context) {
	enrollmentID, ok := uuidParam(c, "enrollment_id")
	if !ok {
		return
	}
	var req domain.SetMarkRequest
	if !bindJSON(c, &req) {
		return
	}
	req.EnrollmentID = enrollmentID

	result, err := h.marks.SetMark(c.Request.Context(), principal(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Mark saved", result)
}

// Summary handles GET /marks/:enrollment_id/summary
func (h *MarksHandler) Summary(c *gin.Context) {
	enrollmentID, ok := uuidParam(c, "enrollment_id")
	if !ok {
		return
	}

	summary, err := h.marks.Summary(c.Request.Context(), principal(c), enrollmentID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", summary)
}
