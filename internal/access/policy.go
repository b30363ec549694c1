package access

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// CreatorLookup 查询资产集合的登记创建者
type CreatorLookup interface {
	CreatorOf(ctx context.Context, collection string) (common.Address, bool, error)
}

// Policy 集中所有权限判断，业务逻辑不直接比较地址
type Policy struct {
	owner    common.Address
	registry CreatorLookup
}

func New(owner common.Address, registry CreatorLookup) *Policy {
	return &Policy{owner: owner, registry: registry}
}

// Owner 平台管理员
func (p *Policy) Owner() common.Address {
	return p.owner
}

// IsOwner 是否为平台管理员，零地址永远不是
func (p *Policy) IsOwner(caller common.Address) bool {
	return caller != (common.Address{}) && caller == p.owner
}

// CanCreateLaunch 平台管理员或集合的登记创建者可以发起发售。
// 未登记的集合只有平台管理员可以发起。
func (p *Policy) CanCreateLaunch(ctx context.Context, caller common.Address, collection string) (bool, error) {
	if caller == (common.Address{}) {
		return false, nil
	}
	if p.IsOwner(caller) {
		return true, nil
	}
	creator, ok, err := p.registry.CreatorOf(ctx, collection)
	if err != nil {
		return false, err
	}
	return ok && creator == caller, nil
}

// CanFinalize 只有平台管理员可以结束发售
func (p *Policy) CanFinalize(caller common.Address) bool {
	return p.IsOwner(caller)
}

// CanClaim 只有参与记录的所有者可以领取
func (p *Policy) CanClaim(caller, participant common.Address) bool {
	return caller != (common.Address{}) && caller == participant
}

// CanRegister 创建者本人或平台管理员可以登记集合
func (p *Policy) CanRegister(caller, creator common.Address) bool {
	return p.IsOwner(caller) || (caller != (common.Address{}) && caller == creator)
}

// CanManageAllocations 只有平台管理员可以重试发放
func (p *Policy) CanManageAllocations(caller common.Address) bool {
	return p.IsOwner(caller)
}
