package router

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/blues/launchpad/internal/access"
	"github.com/blues/launchpad/internal/auth"
	"github.com/blues/launchpad/internal/confidential"
	"github.com/blues/launchpad/internal/handler"
	"github.com/blues/launchpad/internal/issuer"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/blues/launchpad/internal/registry"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type eventLog struct {
	mu     sync.Mutex
	events []ledger.Event
}

func (l *eventLog) Emit(_ context.Context, e ledger.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) ListByLaunch(_ context.Context, launchID uint64, page, pageSize int) ([]ledger.Event, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []ledger.Event
	for _, e := range l.events {
		if e.LaunchID == launchID {
			out = append(out, e)
		}
	}
	total := int64(len(out))
	start := (page - 1) * pageSize
	if start >= len(out) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(out) {
		end = len(out)
	}
	return out[start:end], total, nil
}

type apiEnv struct {
	t       *testing.T
	router  *gin.Engine
	engine  *confidential.Engine
	clock   *manualClock
	owner   *ecdsa.PrivateKey
	creator *ecdsa.PrivateKey
	buyer   *ecdsa.PrivateKey
	t0      time.Time
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	keys := make([]*ecdsa.PrivateKey, 3)
	for i := range keys {
		k, err := crypto.GenerateKey()
		require.NoError(t, err)
		keys[i] = k
	}
	env := &apiEnv{
		t:       t,
		owner:   keys[0],
		creator: keys[1],
		buyer:   keys[2],
		t0:      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	env.clock = &manualClock{now: env.t0}

	engine, err := confidential.NewEngine(nil, confidential.NewMemoryVault())
	require.NoError(t, err)
	env.engine = engine

	reg := registry.New(registry.NewMemoryStore(), registry.PolicyIdempotent)
	policy := access.New(crypto.PubkeyToAddress(env.owner.PublicKey), reg)
	allocations := issuer.NewLedgered(issuer.NewMemoryStore(), issuer.LogDeliverer{})
	events := &eventLog{}

	l, err := ledger.New(ledger.Config{
		Store:        ledger.NewMemoryStore(),
		Confidential: engine,
		Policy:       policy,
		Issuer:       allocations,
		Emitter:      events,
		Clock:        env.clock,
		Self:         engine.Address(),
	})
	require.NoError(t, err)

	env.router = Setup(Deps{
		Ledger:   l,
		Registry: reg,
		Policy:   policy,
		Engine:   engine,
		Issuer:   allocations,
		Events:   events,
	})
	return env
}

func (e *apiEnv) do(method, path string, body interface{}, key *ecdsa.PrivateKey) (int, handler.Response) {
	e.t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(e.t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if key != nil {
		require.NoError(e.t, auth.SignRequest(req, key, raw, time.Now()))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp handler.Response
	require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (e *apiEnv) sealHex(key *ecdsa.PrivateKey, v uint64) handler.EncryptedInput {
	e.t.Helper()
	in, err := confidential.Seal(e.engine.PublicKey(), v, key)
	require.NoError(e.t, err)
	return handler.EncryptedInput{Ciphertext: hexutil.Encode(in.Ciphertext), Proof: hexutil.Encode(in.Proof)}
}

func dataMap(t *testing.T, resp handler.Response) map[string]interface{} {
	t.Helper()
	m, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return m
}

func TestHealth(t *testing.T) {
	env := newAPIEnv(t)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLaunchLifecycleOverHTTP(t *testing.T) {
	env := newAPIEnv(t)
	creatorAddr := crypto.PubkeyToAddress(env.creator.PublicKey).Hex()
	buyerAddr := crypto.PubkeyToAddress(env.buyer.PublicKey).Hex()

	code, resp := env.do(http.MethodGet, "/api/v1/confidential/key", nil, nil)
	require.Equal(t, http.StatusOK, code)
	pub, err := hexutil.Decode(dataMap(t, resp)["publicKey"].(string))
	require.NoError(t, err)
	parsed, err := confidential.ParsePublicKey(pub)
	require.NoError(t, err)
	assert.Equal(t, env.engine.PublicKey().X, parsed.X)

	// 买家不能替创建者登记
	code, _ = env.do(http.MethodPost, "/api/v1/registry", handler.RegisterRequest{Collection: "genesis", Creator: creatorAddr}, env.buyer)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = env.do(http.MethodPost, "/api/v1/registry", handler.RegisterRequest{Collection: "genesis", Creator: creatorAddr}, nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = env.do(http.MethodPost, "/api/v1/registry", handler.RegisterRequest{Collection: "genesis", Creator: creatorAddr}, env.creator)
	require.Equal(t, http.StatusCreated, code)

	code, resp = env.do(http.MethodGet, "/api/v1/registry/genesis", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, creatorAddr, dataMap(t, resp)["creator"])

	code, _ = env.do(http.MethodGet, "/api/v1/registry/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	create := handler.CreateLaunchRequest{
		Collection:  "genesis",
		TotalSupply: 100,
		StartTime:   env.t0,
		EndTime:     env.t0.Add(time.Hour),
		Price:       env.sealHex(env.creator, 2),
	}
	code, _ = env.do(http.MethodPost, "/api/v1/launches", create, env.buyer)
	assert.Equal(t, http.StatusForbidden, code)

	code, resp = env.do(http.MethodPost, "/api/v1/launches", create, env.creator)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	launch := dataMap(t, resp)
	assert.Equal(t, float64(1), launch["id"])
	assert.Equal(t, "active", launch["state"])
	assert.Equal(t, ledger.NativeAsset, launch["paymentAsset"])

	env.clock.Set(env.t0.Add(-time.Minute))
	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/purchase", handler.PurchaseRequest{Units: env.sealHex(env.buyer, 3)}, env.buyer)
	assert.Equal(t, http.StatusTooEarly, code)

	env.clock.Set(env.t0.Add(10 * time.Second))
	code, resp = env.do(http.MethodPost, "/api/v1/launches/1/purchase", handler.PurchaseRequest{Units: env.sealHex(env.buyer, 3)}, env.buyer)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, buyerAddr, dataMap(t, resp)["participant"])

	// 证明必须来自调用者本人
	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/purchase", handler.PurchaseRequest{Units: env.sealHex(env.creator, 3)}, env.buyer)
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = env.do(http.MethodGet, "/api/v1/launches/1/position", nil, env.buyer)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), dataMap(t, resp)["unitsBought"])
	assert.Equal(t, float64(6), dataMap(t, resp)["amountPaid"])

	code, _ = env.do(http.MethodGet, "/api/v1/launches/1/totals", nil, env.buyer)
	assert.Equal(t, http.StatusForbidden, code)
	code, resp = env.do(http.MethodGet, "/api/v1/launches/1/totals", nil, env.owner)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(3), dataMap(t, resp)["totalUnitsSold"])

	code, resp = env.do(http.MethodGet, "/api/v1/launches/1/participants", nil, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, dataMap(t, resp)["participants"], 1)

	code, _ = env.do(http.MethodGet, "/api/v1/launches/1/participants/"+buyerAddr, nil, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = env.do(http.MethodGet, "/api/v1/launches/1/participants/"+creatorAddr, nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	env.clock.Set(env.t0.Add(100 * time.Second))
	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/finalize", nil, env.owner)
	assert.Equal(t, http.StatusTooEarly, code)

	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/claim", nil, env.buyer)
	assert.Equal(t, http.StatusTooEarly, code)

	env.clock.Set(env.t0.Add(3700 * time.Second))
	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/finalize", nil, env.creator)
	assert.Equal(t, http.StatusForbidden, code)
	code, resp = env.do(http.MethodPost, "/api/v1/launches/1/finalize", nil, env.owner)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "finalized", dataMap(t, resp)["state"])

	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/purchase", handler.PurchaseRequest{Units: env.sealHex(env.buyer, 1)}, env.buyer)
	assert.Equal(t, http.StatusConflict, code)

	code, resp = env.do(http.MethodPost, "/api/v1/launches/1/claim", nil, env.buyer)
	require.Equal(t, http.StatusOK, code, resp.Message)
	assert.Equal(t, float64(3), dataMap(t, resp)["granted"])

	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/claim", nil, env.buyer)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/claim", nil, env.creator)
	assert.Equal(t, http.StatusConflict, code)

	code, resp = env.do(http.MethodGet, "/api/v1/launches/1/events", nil, nil)
	require.Equal(t, http.StatusOK, code)
	events := dataMap(t, resp)["events"].([]interface{})
	require.Len(t, events, 4)
	assert.Equal(t, "LaunchCreated", events[0].(map[string]interface{})["type"])
	assert.Equal(t, "Claimed", events[3].(map[string]interface{})["type"])

	code, _ = env.do(http.MethodPost, "/api/v1/allocations/1/retry", nil, env.buyer)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = env.do(http.MethodPost, "/api/v1/allocations/1/retry", nil, env.owner)
	assert.Equal(t, http.StatusConflict, code)
	code, _ = env.do(http.MethodPost, "/api/v1/allocations/9/retry", nil, env.owner)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBadRequests(t *testing.T) {
	env := newAPIEnv(t)

	code, _ := env.do(http.MethodGet, "/api/v1/launches/abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(http.MethodGet, "/api/v1/launches/7", nil, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/purchase", map[string]string{"units": "nope"}, env.buyer)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(http.MethodPost, "/api/v1/launches/1/purchase",
		handler.PurchaseRequest{Units: handler.EncryptedInput{Ciphertext: "zz", Proof: "0x00"}}, env.buyer)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = env.do(http.MethodPost, "/api/v1/launches", handler.CreateLaunchRequest{
		Collection: "free",
		StartTime:  env.t0,
		EndTime:    env.t0.Add(-time.Hour),
		Price:      env.sealHex(env.owner, 1),
	}, env.owner)
	assert.Equal(t, http.StatusBadRequest, code)
}
