package handler

import (
	"net/http"

	"github.com/blues/launchpad/internal/access"
	"github.com/blues/launchpad/internal/auth"
	"github.com/blues/launchpad/internal/registry"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// RegistryHandler 集合登记处理器
type RegistryHandler struct {
	registry *registry.Registry
	policy   *access.Policy
}

// NewRegistryHandler 创建集合登记处理器
func NewRegistryHandler(r *registry.Registry, p *access.Policy) *RegistryHandler {
	return &RegistryHandler{registry: r, policy: p}
}

// Register 登记集合创建者
func (h *RegistryHandler) Register(c *gin.Context) {
	caller, _ := auth.Caller(c)

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if !common.IsHexAddress(req.Creator) {
		ErrorResponse(c, http.StatusBadRequest, "invalid creator address")
		return
	}
	creator := common.HexToAddress(req.Creator)
	if !h.policy.CanRegister(caller, creator) {
		ErrorResponse(c, http.StatusForbidden, "caller may not register for this creator")
		return
	}

	entry, err := h.registry.Register(c.Request.Context(), req.Collection, creator)
	if err != nil {
		handleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "collection registered", toCollectionResponse(entry))
}

// Get 查询集合登记
func (h *RegistryHandler) Get(c *gin.Context) {
	entry, ok, err := h.registry.Lookup(c.Request.Context(), c.Param("collection"))
	if err != nil {
		handleError(c, err)
		return
	}
	if !ok {
		ErrorResponse(c, http.StatusNotFound, "collection not registered")
		return
	}
	SuccessResponse(c, http.StatusOK, "", toCollectionResponse(entry))
}
