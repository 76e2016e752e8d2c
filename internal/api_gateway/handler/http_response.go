package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vtu-wallet-ledger/internal/api_gateway/middleware"
)

// Response is the envelope of every API response. Exactly one of Data and Error is set.
type Response struct {
	Data          any        `json:"data,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// ErrorInfo carries a stable machine code. Details holds field errors or the balance
// context of a rejected debit.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// MetaInfo describes a page of a per-user history listing.
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func newMeta(page, perPage int, totalItems int64) *MetaInfo {
	meta := &MetaInfo{Page: page, PerPage: perPage, TotalItems: int(totalItems)}
	if perPage > 0 {
		meta.TotalPages = int((totalItems + int64(perPage) - 1) / int64(perPage))
	}
	return meta
}

// write stamps the request's correlation ID on resp and sends it.
func write(c *gin.Context, statusCode int, resp *Response) {
	resp.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, resp)
}

func RespondWithData(c *gin.Context, statusCode int, data any) {
	write(c, statusCode, &Response{Data: data})
}

func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	RespondWithErrorDetails(c, statusCode, code, message, nil)
}

func RespondWithErrorDetails(c *gin.Context, statusCode int, code, message string, details any) {
	write(c, statusCode, &Response{Error: &ErrorInfo{Code: code, Message: message, Details: details}})
}

func RespondWithPage(c *gin.Context, data any, page, perPage int, totalItems int64) {
	write(c, http.StatusOK, &Response{Data: data, Meta: newMeta(page, perPage, totalItems)})
}

func RespondOK(c *gin.Context, data any) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data any) {
	RespondWithData(c, http.StatusCreated, data)
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

func RespondConflict(c *gin.Context, message string) {
	RespondWithError(c, http.StatusConflict, "CONFLICT", message)
}

// RespondBadGateway reports a failed upstream provider. The body still describes the
// outcome so the caller knows whether money moved.
func RespondBadGateway(c *gin.Context, data any) {
	RespondWithData(c, http.StatusBadGateway, data)
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}
