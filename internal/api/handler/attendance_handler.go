package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Dribsphire/BMADOJT-sub000/internal/dto"
	"github.com/Dribsphire/BMADOJT-sub000/internal/service"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/response"
)

// AttendanceHandler eligibility, session guard and time-in/out endpoints
type AttendanceHandler struct {
	eligibilitySvc service.EligibilityService
	attendanceSvc  service.AttendanceService
}

// NewAttendanceHandler creates an AttendanceHandler
func NewAttendanceHandler(eligibilitySvc service.EligibilityService, attendanceSvc service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{eligibilitySvc: eligibilitySvc, attendanceSvc: attendanceSvc}
}

// CheckEligibility reports whether a student may record attendance. A
// denial is a normal 200 outcome carrying the reason.
// GET /api/v1/attendance/eligibility
func (h *AttendanceHandler) CheckEligibility(c *gin.Context) {
	studentID, ok := resolveStudentID(c, c.Query("student_id"), h.attendanceSvc)
	if !ok {
		return
	}

	result := h.eligibilitySvc.CheckEligibility(c.Request.Context(), studentID)
	response.OK(c, result)
}

// CheckSession runs the concurrency guard.
// GET /api/v1/attendance/sessions/check
func (h *AttendanceHandler) CheckSession(c *gin.Context) {
	var req dto.SessionCheckRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "block_type is required")
		return
	}

	studentID, ok := resolveStudentID(c, req.StudentID, h.attendanceSvc)
	if !ok {
		return
	}

	date, err := h.attendanceSvc.ParseDate(req.Date)
	if err != nil {
		response.FromError(c, err)
		return
	}

	result, err := h.attendanceSvc.CheckConcurrentSession(c.Request.Context(), studentID, req.BlockType, date)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// ComputeBlockHours previews the hours a session would earn.
// GET /api/v1/attendance/block-hours
func (h *AttendanceHandler) ComputeBlockHours(c *gin.Context) {
	var req dto.BlockHoursRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "time_in and block_type are required")
		return
	}

	result, err := h.attendanceSvc.ComputeBlockHours(&req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// TimeIn
// POST /api/v1/attendance/time-in
func (h *AttendanceHandler) TimeIn(c *gin.Context) {
	var req dto.TimeInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid time-in payload")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.TimeIn(c.Request.Context(), studentID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, record)
}

// TimeOut
// POST /api/v1/attendance/time-out
func (h *AttendanceHandler) TimeOut(c *gin.Context) {
	var req dto.TimeOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "block_type is required")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	record, err := h.attendanceSvc.TimeOut(c.Request.Context(), studentID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, record)
}
