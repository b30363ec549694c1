package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/blues/launchpad/internal/auth"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// EventLister 事件查询，repository.EventStore 满足该接口
type EventLister interface {
	ListByLaunch(ctx context.Context, launchID uint64, page, pageSize int) ([]ledger.Event, int64, error)
}

// LaunchHandler 发售处理器
type LaunchHandler struct {
	ledger *ledger.Ledger
	events EventLister
}

// NewLaunchHandler 创建发售处理器，events 可以为 nil
func NewLaunchHandler(l *ledger.Ledger, events EventLister) *LaunchHandler {
	return &LaunchHandler{ledger: l, events: events}
}

// CreateLaunch 创建发售
func (h *LaunchHandler) CreateLaunch(c *gin.Context) {
	caller, _ := auth.Caller(c)

	var req CreateLaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	price, err := req.Price.decode()
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid price: "+err.Error())
		return
	}
	if req.PaymentAsset == "" {
		req.PaymentAsset = ledger.NativeAsset
	}

	ctx := c.Request.Context()
	id, err := h.ledger.CreateLaunch(ctx, caller, ledger.CreateLaunchRequest{
		Collection:   req.Collection,
		TotalSupply:  req.TotalSupply,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		Price:        price,
		PaymentAsset: req.PaymentAsset,
	})
	if err != nil {
		handleError(c, err)
		return
	}

	launch, err := h.ledger.GetLaunch(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "launch created", toLaunchResponse(launch))
}

// GetLaunch 获取发售详情
func (h *LaunchHandler) GetLaunch(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	launch, err := h.ledger.GetLaunch(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", toLaunchResponse(launch))
}

// Purchase 购买
func (h *LaunchHandler) Purchase(c *gin.Context) {
	caller, _ := auth.Caller(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	units, err := req.Units.decode()
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid units: "+err.Error())
		return
	}

	if err := h.ledger.Purchase(c.Request.Context(), caller, id, units); err != nil {
		handleError(c, err)
		return
	}
	p, err := h.ledger.GetParticipation(c.Request.Context(), id, caller)
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "purchase recorded", toParticipationResponse(p))
}

// Finalize 结束发售
func (h *LaunchHandler) Finalize(c *gin.Context) {
	caller, _ := auth.Caller(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.ledger.Finalize(c.Request.Context(), caller, id); err != nil {
		handleError(c, err)
		return
	}
	launch, err := h.ledger.GetLaunch(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "launch finalized", toLaunchResponse(launch))
}

// Claim 领取分配。发放失败时领取仍然有效，返回 502 并附带领取数量。
func (h *LaunchHandler) Claim(c *gin.Context) {
	caller, _ := auth.Caller(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	granted, err := h.ledger.Claim(c.Request.Context(), caller, id)
	if err != nil {
		if errors.Is(err, ledger.ErrIssuance) {
			c.JSON(http.StatusBadGateway, Response{
				Success: false,
				Message: "claim recorded, issuance pending retry: " + err.Error(),
				Data:    ClaimResponse{LaunchID: id, Granted: granted},
			})
			return
		}
		handleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "claimed", ClaimResponse{LaunchID: id, Granted: granted})
}

// GetParticipants 分页获取参与记录
func (h *LaunchHandler) GetParticipants(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, pageSize := parsePage(c)

	list, total, err := h.ledger.ListParticipants(c.Request.Context(), id, page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]ParticipationResponse, 0, len(list))
	for i := range list {
		out = append(out, toParticipationResponse(&list[i]))
	}
	SuccessResponse(c, http.StatusOK, "", gin.H{
		"participants": out,
		"pagination":   newPagination(page, pageSize, total),
	})
}

// GetParticipant 获取单个参与记录
func (h *LaunchHandler) GetParticipant(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	address := c.Param("address")
	if !common.IsHexAddress(address) {
		ErrorResponse(c, http.StatusBadRequest, "invalid address")
		return
	}
	p, err := h.ledger.GetParticipation(c.Request.Context(), id, common.HexToAddress(address))
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", toParticipationResponse(p))
}

// GetPosition 调用者本人的解密仓位
func (h *LaunchHandler) GetPosition(c *gin.Context) {
	caller, _ := auth.Caller(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	pos, err := h.ledger.Position(c.Request.Context(), caller, id)
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", PositionResponse{
		LaunchID:    pos.LaunchID,
		Participant: pos.Participant.Hex(),
		AmountPaid:  pos.AmountPaid,
		UnitsBought: pos.UnitsBought,
		Claimed:     pos.Claimed,
	})
}

// GetTotals 平台管理员查看解密汇总
func (h *LaunchHandler) GetTotals(c *gin.Context) {
	caller, _ := auth.Caller(c)
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	totals, err := h.ledger.Totals(c.Request.Context(), caller, id)
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "", TotalsResponse{
		LaunchID:       totals.LaunchID,
		TotalRaised:    totals.TotalRaised,
		TotalUnitsSold: totals.TotalUnitsSold,
	})
}

// GetEvents 分页获取发售事件
func (h *LaunchHandler) GetEvents(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if h.events == nil {
		ErrorResponse(c, http.StatusNotImplemented, "event log not configured")
		return
	}
	if _, err := h.ledger.GetLaunch(c.Request.Context(), id); err != nil {
		handleError(c, err)
		return
	}
	page, pageSize := parsePage(c)

	events, total, err := h.events.ListByLaunch(c.Request.Context(), id, page, pageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	SuccessResponse(c, http.StatusOK, "", gin.H{
		"events":     out,
		"pagination": newPagination(page, pageSize, total),
	})
}
