package confidential

import (
	"context"
	"crypto/ecdsa"
	"math"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(nil, NewMemoryVault())
	require.NoError(t, err)
	return e
}

func newSigner(t *testing.T) (*ecdsa.PrivateKey, common.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return key, crypto.PubkeyToAddress(key.PublicKey)
}

func TestFromExternalRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	key, addr := newSigner(t)

	in, err := Seal(e.PublicKey(), 42, key)
	require.NoError(t, err)

	h, err := e.FromExternal(ctx, addr, in)
	require.NoError(t, err)

	// no implicit grant
	_, err = e.Decrypt(ctx, h, addr)
	require.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, e.Grant(ctx, h, addr))
	require.NoError(t, e.Grant(ctx, h, addr))
	v, err := e.Decrypt(ctx, h, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), v)
}

func TestFromExternalRejectsForeignProof(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	key, _ := newSigner(t)
	_, other := newSigner(t)

	in, err := Seal(e.PublicKey(), 7, key)
	require.NoError(t, err)

	_, err = e.FromExternal(ctx, other, in)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestFromExternalRejectsTamperedCiphertext(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	key, addr := newSigner(t)

	in, err := Seal(e.PublicKey(), 7, key)
	require.NoError(t, err)

	in.Ciphertext[len(in.Ciphertext)-1] ^= 0xff
	_, err = e.FromExternal(ctx, addr, in)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = e.FromExternal(ctx, addr, ExternalInput{})
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestFromExternalRejectsOtherEngineKey(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	other := newTestEngine(t)
	key, addr := newSigner(t)

	in, err := Seal(other.PublicKey(), 7, key)
	require.NoError(t, err)

	_, err = e.FromExternal(ctx, addr, in)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)
}

func TestArithmetic(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	key, addr := newSigner(t)

	seal := func(v uint64) Handle {
		in, err := Seal(e.PublicKey(), v, key)
		require.NoError(t, err)
		h, err := e.FromExternal(ctx, addr, in)
		require.NoError(t, err)
		return h
	}
	reveal := func(h Handle) uint64 {
		require.NoError(t, e.Grant(ctx, h, addr))
		v, err := e.Decrypt(ctx, h, addr)
		require.NoError(t, err)
		return v
	}

	zero, err := e.Zero(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), reveal(zero))

	sum, err := e.Add(ctx, seal(3), seal(4))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), reveal(sum))

	product, err := e.Mul(ctx, seal(6), seal(7))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), reveal(product))

	_, err = e.Add(ctx, seal(math.MaxUint64), seal(1))
	assert.ErrorIs(t, err, ErrOverflow)
	_, err = e.Mul(ctx, seal(math.MaxUint64), seal(2))
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = e.Add(ctx, Handle("missing"), zero)
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestPublicKeyRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	pub, err := ParsePublicKey(crypto.FromECDSAPub(e.PublicKey()))
	require.NoError(t, err)
	assert.Equal(t, e.Address(), crypto.PubkeyToAddress(*pub))
}

func TestNormalizeSigLegacyV(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t)
	key, addr := newSigner(t)

	in, err := Seal(e.PublicKey(), 9, key)
	require.NoError(t, err)
	in.Proof[64] += 27

	_, err = e.FromExternal(ctx, addr, in)
	assert.NoError(t, err)
}
