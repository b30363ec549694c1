package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// GetLaunch 查询发售快照
func (l *Ledger) GetLaunch(ctx context.Context, launchID uint64) (*Launch, error) {
	launch, err := l.store.Launch(ctx, launchID)
	if err != nil {
		return nil, l.notFound(launchID, common.Address{}, err)
	}
	return launch, nil
}

// GetParticipation 查询参与记录快照
func (l *Ledger) GetParticipation(ctx context.Context, launchID uint64, participant common.Address) (*Participation, error) {
	if _, err := l.GetLaunch(ctx, launchID); err != nil {
		return nil, err
	}
	p, err := l.store.Participation(ctx, launchID, participant)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return nil, newError(KindParticipationNotFound, launchID, participant, nil)
		}
		return nil, newError(KindInternal, launchID, participant, err)
	}
	return p, nil
}

// ListParticipants 分页列出参与记录，按首次购买顺序
func (l *Ledger) ListParticipants(ctx context.Context, launchID uint64, page, pageSize int) ([]Participation, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	list, total, err := l.store.Participants(ctx, launchID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, l.notFound(launchID, common.Address{}, err)
	}
	return list, total, nil
}

// Position 为参与者本人解密其仓位
func (l *Ledger) Position(ctx context.Context, caller common.Address, launchID uint64) (*Position, error) {
	p, err := l.GetParticipation(ctx, launchID, caller)
	if err != nil {
		return nil, err
	}
	if !l.policy.CanClaim(caller, p.Participant) {
		return nil, newError(KindUnauthorized, launchID, caller, nil)
	}
	paid, err := l.fhe.Decrypt(ctx, p.AmountPaid, caller)
	if err != nil {
		return nil, l.confidentialError(launchID, caller, err)
	}
	units, err := l.fhe.Decrypt(ctx, p.UnitsBought, caller)
	if err != nil {
		return nil, l.confidentialError(launchID, caller, err)
	}
	return &Position{
		LaunchID:    launchID,
		Participant: caller,
		AmountPaid:  paid,
		UnitsBought: units,
		Claimed:     p.Claimed,
	}, nil
}

// Totals 为平台管理员解密发售汇总
func (l *Ledger) Totals(ctx context.Context, caller common.Address, launchID uint64) (*Totals, error) {
	if !l.policy.IsOwner(caller) {
		return nil, newError(KindUnauthorized, launchID, caller, nil)
	}
	launch, err := l.GetLaunch(ctx, launchID)
	if err != nil {
		return nil, err
	}
	raised, err := l.fhe.Decrypt(ctx, launch.TotalRaised, caller)
	if err != nil {
		return nil, l.confidentialError(launchID, caller, err)
	}
	sold, err := l.fhe.Decrypt(ctx, launch.TotalUnitsSold, caller)
	if err != nil {
		return nil, l.confidentialError(launchID, caller, err)
	}
	return &Totals{LaunchID: launchID, TotalRaised: raised, TotalUnitsSold: sold}, nil
}

// DueForFinalize 列出已过 endTime 仍未结束的发售
func (l *Ledger) DueForFinalize(ctx context.Context, limit int) ([]uint64, error) {
	return l.store.DueForFinalize(ctx, l.clock.Now(), limit)
}

// Now 账本时钟的当前时间
func (l *Ledger) Now() time.Time {
	return l.clock.Now()
}

func (l *Ledger) notFound(launchID uint64, addr common.Address, err error) error {
	if errors.Is(err, ErrNoRecord) {
		return newError(KindLaunchNotFound, launchID, addr, nil)
	}
	return newError(KindInternal, launchID, addr, err)
}
