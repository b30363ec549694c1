package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0xa1")
	bob   = common.HexToAddress("0xb0")
)

func TestRegisterPolicies(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		policy      Policy
		sameErr     bool
		differErr   bool
		wantCreator common.Address
	}{
		{PolicyIdempotent, false, true, alice},
		{PolicyReject, true, true, alice},
		{PolicyIgnore, false, false, alice},
	}
	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			r := New(NewMemoryStore(), tt.policy)

			_, err := r.Register(ctx, "genesis-apes", alice)
			require.NoError(t, err)

			_, err = r.Register(ctx, "genesis-apes", alice)
			if tt.sameErr {
				assert.ErrorIs(t, err, ErrAlreadyRegistered)
			} else {
				assert.NoError(t, err)
			}

			_, err = r.Register(ctx, "genesis-apes", bob)
			if tt.differErr {
				assert.ErrorIs(t, err, ErrAlreadyRegistered)
			} else {
				assert.NoError(t, err)
			}

			creator, ok, err := r.CreatorOf(ctx, "genesis-apes")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.wantCreator, creator)
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryStore(), PolicyIdempotent)

	_, err := r.Register(ctx, "", alice)
	assert.ErrorIs(t, err, ErrInvalidCollection)
	_, err = r.Register(ctx, "has space", alice)
	assert.ErrorIs(t, err, ErrInvalidCollection)
	_, err = r.Register(ctx, "ok", common.Address{})
	assert.ErrorIs(t, err, ErrInvalidCreator)
}

func TestCreatorOfUnregistered(t *testing.T) {
	r := New(NewMemoryStore(), PolicyIdempotent)
	_, ok, err := r.CreatorOf(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFirstRegistrationWinsUnderContention(t *testing.T) {
	ctx := context.Background()
	r := New(NewMemoryStore(), PolicyIdempotent)

	var wg sync.WaitGroup
	creators := []common.Address{alice, bob, common.HexToAddress("0xc0"), common.HexToAddress("0xd0")}
	errs := make([]error, len(creators))
	for i, c := range creators {
		wg.Add(1)
		go func(i int, c common.Address) {
			defer wg.Done()
			_, errs[i] = r.Register(ctx, "race", c)
		}(i, c)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyIdempotent, p)

	p, err = ParsePolicy("REJECT")
	require.NoError(t, err)
	assert.Equal(t, PolicyReject, p)

	_, err = ParsePolicy("overwrite")
	assert.Error(t, err)
}
