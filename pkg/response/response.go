package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/Dribsphire/BMADOJT-sub000/pkg/errors"
)

// Response is the unified response envelope.
type Response struct {
	Code          int         `json:"code"`
	Message       string      `json:"message"`
	Reason        string      `json:"reason,omitempty"`
	Data          interface{} `json:"data,omitempty"`
	Details       string      `json:"details,omitempty"`
	Hint          string      `json:"hint,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// Pagination page metadata
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// PageData paginated payload
type PageData struct {
	List       interface{} `json:"list"`
	Pagination Pagination  `json:"pagination"`
}

// ── success ──

// OK 200
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 201
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// OKPage 200 with pagination
func OKPage(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	c.JSON(http.StatusOK, Response{
		Code:    0,
		Message: "success",
		Data: PageData{
			List: list,
			Pagination: Pagination{
				Page:       page,
				PageSize:   pageSize,
				Total:      total,
				TotalPages: totalPages,
			},
		},
	})
}

// ── errors ──

// Error generic error response
func Error(c *gin.Context, httpStatus int, code int, message string) {
	c.JSON(httpStatus, Response{
		Code:    code,
		Message: message,
	})
}

// Numeric codes per error kind.
const (
	CodeValidation   = 10001
	CodeUnauthorized = 10002
	CodeForbidden    = 10003
	CodeRateLimited  = 10004
	CodeBodyTooLarge = 10005
	CodeNotFound     = 20001
	CodeConflict     = 20002
	CodeAccessDenied = 20003
	CodeInternal     = 50000
)

// FromError writes err using its kind to pick the status. System errors
// expose only a generic message plus the correlation id.
func FromError(c *gin.Context, err error) {
	e, ok := pkgerrors.As(err)
	if !ok {
		InternalError(c)
		return
	}

	resp := Response{Message: e.Message, Reason: e.Code, Details: e.Detail, Hint: e.Hint}
	status := http.StatusInternalServerError
	switch e.Kind {
	case pkgerrors.KindValidation:
		status, resp.Code = http.StatusBadRequest, CodeValidation
	case pkgerrors.KindNotFound:
		status, resp.Code = http.StatusNotFound, CodeNotFound
	case pkgerrors.KindConflict:
		status, resp.Code = http.StatusConflict, CodeConflict
	case pkgerrors.KindAccessDenied:
		status, resp.Code = http.StatusForbidden, CodeAccessDenied
	default:
		resp = Response{
			Code:          CodeInternal,
			Message:       e.Message,
			Reason:        string(pkgerrors.KindSystem),
			Hint:          e.Hint,
			CorrelationID: e.CorrelationID,
		}
	}
	c.JSON(status, resp)
}

// ── shortcuts ──

// BadRequest 400
func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Unauthorized 401
func Unauthorized(c *gin.Context, code int, message string) {
	Error(c, http.StatusUnauthorized, code, message)
}

// Forbidden 403
func Forbidden(c *gin.Context, code int, message string) {
	Error(c, http.StatusForbidden, code, message)
}

// InternalError 500
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, CodeInternal, "internal server error")
}
