package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/blues/launchpad/internal/issuer"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/logger"
	"github.com/blues/launchpad/internal/registry"
	"github.com/gin-gonic/gin"
)

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// ErrorStatus 业务错误到 HTTP 状态码的映射
func ErrorStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrAlreadyRegistered),
		errors.Is(err, issuer.ErrAlreadyDelivered):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidCollection),
		errors.Is(err, registry.ErrInvalidCreator):
		return http.StatusBadRequest
	case errors.Is(err, issuer.ErrNotFound):
		return http.StatusNotFound
	}

	var le *ledger.Error
	if !errors.As(err, &le) {
		return http.StatusInternalServerError
	}
	switch le.Kind {
	case ledger.KindInvalidTimeWindow, ledger.KindInvalidSupply,
		ledger.KindInvalidIdentifier, ledger.KindInvalidCiphertext, ledger.KindOverflow:
		return http.StatusBadRequest
	case ledger.KindUnauthorized, ledger.KindAccessDenied:
		return http.StatusForbidden
	case ledger.KindLaunchNotFound, ledger.KindParticipationNotFound:
		return http.StatusNotFound
	case ledger.KindLaunchNotActive, ledger.KindLaunchAlreadyFinalized,
		ledger.KindAlreadyClaimed, ledger.KindNothingToClaim:
		return http.StatusConflict
	case ledger.KindLaunchNotStarted, ledger.KindLaunchNotEnded, ledger.KindLaunchNotFinalized:
		return http.StatusTooEarly
	case ledger.KindIssuance:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleError 写出错误响应，内部错误不暴露细节
func handleError(c *gin.Context, err error) {
	status := ErrorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		ErrorResponse(c, status, "internal error")
		return
	}
	ErrorResponse(c, status, err.Error())
}

func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		ErrorResponse(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func parsePage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

func newPagination(page, pageSize int, total int64) Pagination {
	return Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: (total + int64(pageSize) - 1) / int64(pageSize),
	}
}
