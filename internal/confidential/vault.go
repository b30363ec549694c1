package confidential

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sasha-s/go-deadlock"
)

// MemoryVault 内存密文存储
type MemoryVault struct {
	mu     deadlock.RWMutex
	sealed map[Handle][]byte
	acl    map[Handle]map[common.Address]struct{}
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		sealed: make(map[Handle][]byte),
		acl:    make(map[Handle]map[common.Address]struct{}),
	}
}

func (v *MemoryVault) Put(_ context.Context, h Handle, sealed []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.sealed[h] = append([]byte(nil), sealed...)
	return nil
}

func (v *MemoryVault) Get(_ context.Context, h Handle) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	sealed, ok := v.sealed[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return sealed, nil
}

func (v *MemoryVault) Grant(_ context.Context, h Handle, principal common.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.sealed[h]; !ok {
		return ErrUnknownHandle
	}
	grantees, ok := v.acl[h]
	if !ok {
		grantees = make(map[common.Address]struct{})
		v.acl[h] = grantees
	}
	grantees[principal] = struct{}{}
	return nil
}

func (v *MemoryVault) Allowed(_ context.Context, h Handle, principal common.Address) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if _, ok := v.sealed[h]; !ok {
		return false, ErrUnknownHandle
	}
	_, ok := v.acl[h][principal]
	return ok, nil
}
