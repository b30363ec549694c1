package handler

import (
	"net/http"

	"github.com/blues/launchpad/internal/confidential"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
)

// KeyHandler 协处理器公钥
type KeyHandler struct {
	engine *confidential.Engine
}

func NewKeyHandler(e *confidential.Engine) *KeyHandler {
	return &KeyHandler{engine: e}
}

// GetKey 客户端加密输入使用的公钥
func (h *KeyHandler) GetKey(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, "", KeyResponse{
		PublicKey: hexutil.Encode(crypto.FromECDSAPub(h.engine.PublicKey())),
		Address:   h.engine.Address().Hex(),
	})
}
