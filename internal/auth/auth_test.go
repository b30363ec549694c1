package auth

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignRecover(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	body := []byte(`{"collection":"c1"}`)

	sig, err := Sign(key, "POST", "/api/v1/registry", 100, body)
	require.NoError(t, err)
	assert.True(t, sig[64] == 27 || sig[64] == 28)

	addr, err := Recover(sig, "POST", "/api/v1/registry", 100, body)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), addr)

	other, err := Recover(sig, "POST", "/api/v1/registry", 100, []byte(`{"collection":"c2"}`))
	require.NoError(t, err)
	assert.NotEqual(t, addr, other)

	_, err = Recover(sig[:10], "POST", "/", 0, nil)
	assert.Error(t, err)
}

func newTestRouter(now time.Time) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(func() time.Time { return now }))
	r.POST("/echo", func(c *gin.Context) {
		caller, ok := Caller(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, caller.Hex())
	})
	return r
}

func TestMiddleware(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	r := newTestRouter(now)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	intruder, err := crypto.GenerateKey()
	require.NoError(t, err)
	body := []byte(`{"x":1}`)

	tests := []struct {
		name   string
		prep   func(req *http.Request)
		status int
	}{
		{"valid", func(req *http.Request) {
			require.NoError(t, SignRequest(req, key, body, now))
		}, http.StatusOK},
		{"missing headers", func(req *http.Request) {}, http.StatusUnauthorized},
		{"stale", func(req *http.Request) {
			require.NoError(t, SignRequest(req, key, body, now.Add(-10*time.Minute)))
		}, http.StatusUnauthorized},
		{"caller mismatch", func(req *http.Request) {
			require.NoError(t, SignRequest(req, intruder, body, now))
			req.Header.Set(HeaderCaller, crypto.PubkeyToAddress(key.PublicKey).Hex())
		}, http.StatusUnauthorized},
		{"tampered body", func(req *http.Request) {
			require.NoError(t, SignRequest(req, key, []byte(`{"x":2}`), now))
		}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(body))
			tt.prep(req)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Hex(), w.Body.String())
			}
		})
	}
}

func TestMiddlewareBodyLimit(t *testing.T) {
	now := time.Unix(1_800_000_000, 0)
	r := newTestRouter(now)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	body := bytes.Repeat([]byte("a"), int(MaxBodyBytes)+1)
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(body))
	require.NoError(t, SignRequest(req, key, body, now))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	body = bytes.Repeat([]byte("a"), int(MaxBodyBytes))
	req = httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(body))
	require.NoError(t, SignRequest(req, key, body, now))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
