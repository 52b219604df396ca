package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Dribsphire/BMADOJT-sub000/internal/dto"
	"github.com/Dribsphire/BMADOJT-sub000/internal/service"
	"github.com/Dribsphire/BMADOJT-sub000/pkg/response"
)

// ForgotTimeoutHandler reconciliation endpoints for students and instructors
type ForgotTimeoutHandler struct {
	reconciliationSvc service.ReconciliationService
}

// NewForgotTimeoutHandler creates a ForgotTimeoutHandler
func NewForgotTimeoutHandler(reconciliationSvc service.ReconciliationService) *ForgotTimeoutHandler {
	return &ForgotTimeoutHandler{reconciliationSvc: reconciliationSvc}
}

// Create files a forgot time-out request.
// POST /api/v1/forgot-timeout-requests
func (h *ForgotTimeoutHandler) Create(c *gin.Context) {
	var req dto.CreateForgotTimeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "attendance_record_id is required")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	result, err := h.reconciliationSvc.CreateRequest(c.Request.Context(), studentID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Created(c, result)
}

// ListMine lists the caller's own requests.
// GET /api/v1/forgot-timeout-requests/mine
func (h *ForgotTimeoutHandler) ListMine(c *gin.Context) {
	var req dto.PaginationRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid paging parameters")
		return
	}

	studentID, ok := MustGetStudentID(c)
	if !ok {
		return
	}

	list, total, err := h.reconciliationSvc.ListStudentRequests(c.Request.Context(), studentID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// List lists requests of the caller's supervised students.
// GET /api/v1/instructor/forgot-timeout-requests
func (h *ForgotTimeoutHandler) List(c *gin.Context) {
	var req dto.ListForgotTimeoutRequests
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "invalid query parameters")
		return
	}

	instructorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.reconciliationSvc.ListRequests(c.Request.Context(), instructorID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// Decide approves or rejects one request.
// POST /api/v1/instructor/forgot-timeout-requests/:id/decision
func (h *ForgotTimeoutHandler) Decide(c *gin.Context) {
	requestID := c.Param("id")
	if requestID == "" {
		response.BadRequest(c, response.CodeValidation, "request id is required")
		return
	}

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "decision must be approve or reject")
		return
	}

	instructorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.reconciliationSvc.DecideRequest(c.Request.Context(), requestID, instructorID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}

// DecideBulk applies one decision to many requests. Per-item failures are
// reported in the body; the call itself succeeds.
// POST /api/v1/instructor/forgot-timeout-requests/bulk-decision
func (h *ForgotTimeoutHandler) DecideBulk(c *gin.Context) {
	var req dto.BulkDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, response.CodeValidation, "request_ids and decision are required")
		return
	}

	instructorID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.reconciliationSvc.DecideRequestsBulk(c.Request.Context(), instructorID, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.OK(c, result)
}
