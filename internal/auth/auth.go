package auth

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
)

const (
	HeaderCaller    = "X-Caller"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"

	callerKey = "caller"
)

// MaxSkew 请求时间戳允许的最大偏差
const MaxSkew = 5 * time.Minute

// MaxBodyBytes 参与签名的请求体上限
const MaxBodyBytes int64 = 1 << 20

var (
	ErrMissingCredentials = errors.New("missing caller credentials")
	ErrBadSignature       = errors.New("signature does not match caller")
	ErrStaleRequest       = errors.New("request timestamp outside allowed window")
)

// Digest 请求摘要 keccak256(method ‖ "\n" ‖ uri ‖ "\n" ‖ timestamp ‖ "\n" ‖ body)
func Digest(method, uri string, timestamp int64, body []byte) []byte {
	return crypto.Keccak256(
		[]byte(method), []byte("\n"),
		[]byte(uri), []byte("\n"),
		[]byte(strconv.FormatInt(timestamp, 10)), []byte("\n"),
		body,
	)
}

// Sign 以 EIP-191 personal_sign 方式签名请求，v 为 27/28
func Sign(key *ecdsa.PrivateKey, method, uri string, timestamp int64, body []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(Digest(method, uri, timestamp, body)), key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// Recover 恢复请求签名者地址
func Recover(sig []byte, method, uri string, timestamp int64, body []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes", crypto.SignatureLength)
	}
	s := make([]byte, len(sig))
	copy(s, sig)
	if s[crypto.RecoveryIDOffset] >= 27 {
		s[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(accounts.TextHash(Digest(method, uri, timestamp, body)), s)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignRequest 客户端辅助函数，为 http 请求补齐认证头
func SignRequest(req *http.Request, key *ecdsa.PrivateKey, body []byte, now time.Time) error {
	ts := now.Unix()
	sig, err := Sign(key, req.Method, req.URL.RequestURI(), ts, body)
	if err != nil {
		return err
	}
	req.Header.Set(HeaderCaller, crypto.PubkeyToAddress(key.PublicKey).Hex())
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, hexutil.Encode(sig))
	return nil
}

// Verify 校验请求认证头并返回调用者
func Verify(req *http.Request, body []byte, now time.Time) (common.Address, error) {
	callerHex := req.Header.Get(HeaderCaller)
	sigHex := req.Header.Get(HeaderSignature)
	tsStr := req.Header.Get(HeaderTimestamp)
	if callerHex == "" || sigHex == "" || tsStr == "" {
		return common.Address{}, ErrMissingCredentials
	}
	if !common.IsHexAddress(callerHex) {
		return common.Address{}, fmt.Errorf("invalid %s header", HeaderCaller)
	}
	ts, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid %s header", HeaderTimestamp)
	}
	if d := now.Sub(time.Unix(ts, 0)); d > MaxSkew || d < -MaxSkew {
		return common.Address{}, ErrStaleRequest
	}
	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid %s header", HeaderSignature)
	}

	signer, err := Recover(sig, req.Method, req.URL.RequestURI(), ts, body)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if signer != common.HexToAddress(callerHex) {
		return common.Address{}, ErrBadSignature
	}
	return signer, nil
}

// Middleware 校验调用者签名，失败时返回 401
func Middleware(now func() time.Time) gin.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			b, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "message": "request body too large"})
					return
				}
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "failed to read body"})
				return
			}
			body = b
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		caller, err := Verify(c.Request, body, now())
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": err.Error(), "data": nil})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// Caller 取出中间件校验过的调用者
func Caller(c *gin.Context) (common.Address, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return common.Address{}, false
	}
	addr, ok := v.(common.Address)
	return addr, ok
}
