package access

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupFunc func(ctx context.Context, collection string) (common.Address, bool, error)

func (f lookupFunc) CreatorOf(ctx context.Context, collection string) (common.Address, bool, error) {
	return f(ctx, collection)
}

var (
	owner   = common.HexToAddress("0x01")
	creator = common.HexToAddress("0x02")
	other   = common.HexToAddress("0x03")
)

func staticRegistry(entries map[string]common.Address) lookupFunc {
	return func(_ context.Context, collection string) (common.Address, bool, error) {
		c, ok := entries[collection]
		return c, ok, nil
	}
}

func TestCanCreateLaunch(t *testing.T) {
	ctx := context.Background()
	p := New(owner, staticRegistry(map[string]common.Address{"apes": creator}))

	tests := []struct {
		name       string
		caller     common.Address
		collection string
		want       bool
	}{
		{"owner registered", owner, "apes", true},
		{"owner unregistered", owner, "cats", true},
		{"creator", creator, "apes", true},
		{"creator other collection", creator, "cats", false},
		{"stranger", other, "apes", false},
		{"stranger unregistered", other, "cats", false},
		{"zero address", common.Address{}, "apes", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := p.CanCreateLaunch(ctx, tt.caller, tt.collection)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestCanCreateLaunchLookupError(t *testing.T) {
	boom := errors.New("db down")
	p := New(owner, lookupFunc(func(context.Context, string) (common.Address, bool, error) {
		return common.Address{}, false, boom
	}))

	_, err := p.CanCreateLaunch(context.Background(), creator, "apes")
	assert.ErrorIs(t, err, boom)

	// owner never needs the registry
	ok, err := p.CanCreateLaunch(context.Background(), owner, "apes")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOwnerOnlyDecisions(t *testing.T) {
	p := New(owner, staticRegistry(nil))

	assert.True(t, p.CanFinalize(owner))
	assert.False(t, p.CanFinalize(creator))
	assert.True(t, p.CanManageAllocations(owner))
	assert.False(t, p.CanManageAllocations(other))

	zero := New(common.Address{}, staticRegistry(nil))
	assert.False(t, zero.CanFinalize(common.Address{}))
}

func TestCanClaimAndRegister(t *testing.T) {
	p := New(owner, staticRegistry(nil))

	assert.True(t, p.CanClaim(creator, creator))
	assert.False(t, p.CanClaim(other, creator))
	assert.False(t, p.CanClaim(common.Address{}, common.Address{}))

	assert.True(t, p.CanRegister(creator, creator))
	assert.True(t, p.CanRegister(owner, creator))
	assert.False(t, p.CanRegister(other, creator))
}
