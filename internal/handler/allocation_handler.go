package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/blues/launchpad/internal/access"
	"github.com/blues/launchpad/internal/auth"
	"github.com/blues/launchpad/internal/issuer"
	"github.com/gin-gonic/gin"
)

// AllocationRetrier 单条发放重试，issuer.Ledgered 满足该接口
type AllocationRetrier interface {
	Retry(ctx context.Context, id int64) (*issuer.Record, error)
}

// AllocationHandler 发放记录处理器
type AllocationHandler struct {
	issuer AllocationRetrier
	policy *access.Policy
}

// NewAllocationHandler 创建发放记录处理器
func NewAllocationHandler(r AllocationRetrier, p *access.Policy) *AllocationHandler {
	return &AllocationHandler{issuer: r, policy: p}
}

// Retry 平台管理员重试发放
func (h *AllocationHandler) Retry(c *gin.Context) {
	caller, _ := auth.Caller(c)
	if !h.policy.CanManageAllocations(caller) {
		ErrorResponse(c, http.StatusForbidden, "only the platform owner may retry allocations")
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "invalid id")
		return
	}

	rec, err := h.issuer.Retry(c.Request.Context(), id)
	switch {
	case err == nil:
		SuccessResponse(c, http.StatusOK, "allocation delivered", toAllocationResponse(rec))
	case errors.Is(err, issuer.ErrNotFound), errors.Is(err, issuer.ErrAlreadyDelivered):
		handleError(c, err)
	case rec != nil:
		c.JSON(http.StatusBadGateway, Response{
			Success: false,
			Message: "delivery failed: " + err.Error(),
			Data:    toAllocationResponse(rec),
		})
	default:
		handleError(c, err)
	}
}
