package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/blues/launchpad/internal/access"
	"github.com/blues/launchpad/internal/confidential"
	"github.com/blues/launchpad/internal/logger"
	"github.com/blues/launchpad/internal/registry"
	"github.com/ethereum/go-ethereum/common"
)

// Config 账本依赖
type Config struct {
	Store        Store
	Confidential Confidential
	Policy       *access.Policy
	Issuer       Issuer
	Emitter      Emitter // 可选
	Clock        Clock   // 可选，默认系统时钟

	// Self 账本自身的解密身份，所有累计值都会授权给它
	Self common.Address
	// FeeBasisPoints 平台手续费，仅记录在发售上
	FeeBasisPoints uint32
}

// Ledger 发售生命周期、购买记账与领取协议
type Ledger struct {
	store   Store
	fhe     Confidential
	policy  *access.Policy
	issuer  Issuer
	emitter Emitter
	clock   Clock
	self    common.Address
	feeBps  uint32
}

// New 创建账本
func New(cfg Config) (*Ledger, error) {
	if cfg.Store == nil || cfg.Confidential == nil || cfg.Policy == nil || cfg.Issuer == nil {
		return nil, errors.New("ledger: store, confidential, policy and issuer are required")
	}
	if cfg.FeeBasisPoints > 10000 {
		return nil, fmt.Errorf("ledger: fee basis points %d exceeds 10000", cfg.FeeBasisPoints)
	}
	l := &Ledger{
		store:   cfg.Store,
		fhe:     cfg.Confidential,
		policy:  cfg.Policy,
		issuer:  cfg.Issuer,
		emitter: cfg.Emitter,
		clock:   cfg.Clock,
		self:    cfg.Self,
		feeBps:  cfg.FeeBasisPoints,
	}
	if l.emitter == nil {
		l.emitter = discardEmitter{}
	}
	if l.clock == nil {
		l.clock = SystemClock
	}
	return l, nil
}

// Policy 账本使用的权限策略
func (l *Ledger) Policy() *access.Policy {
	return l.policy
}

// ValidPaymentAsset 支付资产必须是原生币标识或合约地址
func ValidPaymentAsset(asset string) bool {
	return asset == NativeAsset || common.IsHexAddress(asset)
}

// CreateLaunch 创建发售，新发售处于 Active 状态
func (l *Ledger) CreateLaunch(ctx context.Context, caller common.Address, req CreateLaunchRequest) (uint64, error) {
	ok, err := l.policy.CanCreateLaunch(ctx, caller, req.Collection)
	if err != nil {
		return 0, newError(KindInternal, 0, caller, err)
	}
	if !ok {
		logger.Warn("Rejected launch creation for %s by %s", req.Collection, caller.Hex())
		return 0, newError(KindUnauthorized, 0, caller, fmt.Errorf("cannot launch collection %q", req.Collection))
	}

	if !req.StartTime.Before(req.EndTime) {
		return 0, newError(KindInvalidTimeWindow, 0, caller, nil)
	}
	if req.TotalSupply == 0 {
		return 0, newError(KindInvalidSupply, 0, caller, nil)
	}
	if !registry.ValidCollection(req.Collection) {
		return 0, newError(KindInvalidIdentifier, 0, caller, fmt.Errorf("collection %q", req.Collection))
	}
	if !ValidPaymentAsset(req.PaymentAsset) {
		return 0, newError(KindInvalidIdentifier, 0, caller, fmt.Errorf("payment asset %q", req.PaymentAsset))
	}

	price, err := l.fhe.FromExternal(ctx, caller, req.Price)
	if err != nil {
		return 0, l.confidentialError(0, caller, err)
	}
	raised, err := l.fhe.Zero(ctx)
	if err != nil {
		return 0, l.confidentialError(0, caller, err)
	}
	sold, err := l.fhe.Zero(ctx)
	if err != nil {
		return 0, l.confidentialError(0, caller, err)
	}
	if err := l.grant(ctx, price, caller, l.self); err != nil {
		return 0, l.confidentialError(0, caller, err)
	}
	if err := l.grant(ctx, raised, l.self, l.policy.Owner()); err != nil {
		return 0, l.confidentialError(0, caller, err)
	}
	if err := l.grant(ctx, sold, l.self, l.policy.Owner()); err != nil {
		return 0, l.confidentialError(0, caller, err)
	}

	launch := &Launch{
		Collection:     req.Collection,
		Creator:        caller,
		TotalSupply:    req.TotalSupply,
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		ReservePrice:   price,
		TotalRaised:    raised,
		TotalUnitsSold: sold,
		PaymentAsset:   req.PaymentAsset,
		FeeBasisPoints: l.feeBps,
		State:          StateActive,
		CreatedAt:      l.clock.Now().UTC(),
	}
	if err := l.store.InsertLaunch(ctx, launch); err != nil {
		return 0, newError(KindInternal, 0, caller, err)
	}

	logger.Info("Created launch %d for collection %s by %s", launch.ID, launch.Collection, caller.Hex())
	start, end := launch.StartTime, launch.EndTime
	l.emitter.Emit(ctx, Event{
		Type:        EventLaunchCreated,
		LaunchID:    launch.ID,
		Address:     caller,
		Collection:  launch.Collection,
		TotalSupply: launch.TotalSupply,
		StartTime:   &start,
		EndTime:     &end,
		OccurredAt:  launch.CreatedAt,
	})
	return launch.ID, nil
}

// Purchase 在发售窗口内追加购买，每次调用都会累加，不是幂等操作。
// 购买时不检查总供应量。
func (l *Ledger) Purchase(ctx context.Context, caller common.Address, launchID uint64, units confidential.ExternalInput) error {
	if caller == (common.Address{}) {
		return newError(KindUnauthorized, launchID, caller, nil)
	}

	now := l.clock.Now()
	err := l.update(ctx, launchID, func(ctx context.Context, tx Tx) error {
		launch := tx.Launch()
		switch {
		case launch.State == StateFinalized:
			return newError(KindLaunchAlreadyFinalized, launchID, caller, nil)
		case now.Before(launch.StartTime):
			return newError(KindLaunchNotStarted, launchID, caller, fmt.Errorf("opens at %s", launch.StartTime.Format(timeLayout)))
		case now.After(launch.EndTime):
			return newError(KindLaunchNotActive, launchID, caller, fmt.Errorf("closed at %s", launch.EndTime.Format(timeLayout)))
		}

		p, err := tx.Participation(caller)
		if err != nil {
			return err
		}
		if p != nil && p.Claimed {
			return newError(KindAlreadyClaimed, launchID, caller, nil)
		}

		count, err := l.fhe.FromExternal(ctx, caller, units)
		if err != nil {
			return l.confidentialError(launchID, caller, err)
		}
		cost, err := l.fhe.Mul(ctx, launch.ReservePrice, count)
		if err != nil {
			return l.confidentialError(launchID, caller, err)
		}

		if p == nil {
			p = &Participation{LaunchID: launchID, Participant: caller}
			if p.AmountPaid, err = l.fhe.Zero(ctx); err != nil {
				return l.confidentialError(launchID, caller, err)
			}
			if p.UnitsBought, err = l.fhe.Zero(ctx); err != nil {
				return l.confidentialError(launchID, caller, err)
			}
		}

		if p.AmountPaid, err = l.fhe.Add(ctx, p.AmountPaid, cost); err != nil {
			return l.confidentialError(launchID, caller, err)
		}
		if p.UnitsBought, err = l.fhe.Add(ctx, p.UnitsBought, count); err != nil {
			return l.confidentialError(launchID, caller, err)
		}
		if launch.TotalRaised, err = l.fhe.Add(ctx, launch.TotalRaised, cost); err != nil {
			return l.confidentialError(launchID, caller, err)
		}
		if launch.TotalUnitsSold, err = l.fhe.Add(ctx, launch.TotalUnitsSold, count); err != nil {
			return l.confidentialError(launchID, caller, err)
		}

		owner := l.policy.Owner()
		for _, h := range []confidential.Handle{p.AmountPaid, p.UnitsBought} {
			if err := l.grant(ctx, h, caller, l.self); err != nil {
				return l.confidentialError(launchID, caller, err)
			}
		}
		for _, h := range []confidential.Handle{launch.TotalRaised, launch.TotalUnitsSold} {
			if err := l.grant(ctx, h, l.self, owner); err != nil {
				return l.confidentialError(launchID, caller, err)
			}
		}

		p.Purchases++
		launch.Purchases++
		if err := tx.PutParticipation(p); err != nil {
			return err
		}
		return tx.PutLaunch(launch)
	})
	if err != nil {
		logger.Warn("Rejected purchase on launch %d by %s: %v", launchID, caller.Hex(), err)
		return err
	}

	logger.Info("Recorded purchase on launch %d by %s", launchID, caller.Hex())
	l.emitter.Emit(ctx, Event{
		Type:       EventPurchaseRecorded,
		LaunchID:   launchID,
		Address:    caller,
		OccurredAt: now.UTC(),
	})
	return nil
}

// Finalize 结束发售，只能在 endTime 之后由平台管理员调用，不可逆
func (l *Ledger) Finalize(ctx context.Context, caller common.Address, launchID uint64) error {
	if !l.policy.CanFinalize(caller) {
		logger.Warn("Rejected finalize of launch %d by %s", launchID, caller.Hex())
		return newError(KindUnauthorized, launchID, caller, nil)
	}

	now := l.clock.Now()
	err := l.update(ctx, launchID, func(ctx context.Context, tx Tx) error {
		launch := tx.Launch()
		if launch.State != StateActive {
			return newError(KindLaunchAlreadyFinalized, launchID, caller, nil)
		}
		if !now.After(launch.EndTime) {
			return newError(KindLaunchNotEnded, launchID, caller, fmt.Errorf("ends at %s", launch.EndTime.Format(timeLayout)))
		}
		at := now.UTC()
		launch.State = StateFinalized
		launch.FinalizedAt = &at
		return tx.PutLaunch(launch)
	})
	if err != nil {
		return err
	}

	logger.Info("Finalized launch %d", launchID)
	l.emitter.Emit(ctx, Event{
		Type:       EventLaunchFinalized,
		LaunchID:   launchID,
		Address:    caller,
		OccurredAt: now.UTC(),
	})
	return nil
}

// Claim 领取分配，每个 (launch, participant) 至多成功一次。
// 分配记录与 claimed 标记在同一事务中提交，发放在提交之后进行；
// 发放失败时标记保留，返回 IssuanceError，由发放方的重试流程补发。
func (l *Ledger) Claim(ctx context.Context, caller common.Address, launchID uint64) (uint64, error) {
	if caller == (common.Address{}) {
		return 0, newError(KindUnauthorized, launchID, caller, nil)
	}

	var alloc Allocation
	now := l.clock.Now()
	err := l.update(ctx, launchID, func(ctx context.Context, tx Tx) error {
		launch := tx.Launch()
		if launch.State != StateFinalized {
			return newError(KindLaunchNotFinalized, launchID, caller, nil)
		}
		p, err := tx.Participation(caller)
		if err != nil {
			return err
		}
		if p == nil {
			return newError(KindNothingToClaim, launchID, caller, nil)
		}
		if !l.policy.CanClaim(caller, p.Participant) {
			return newError(KindUnauthorized, launchID, caller, nil)
		}
		if p.Claimed {
			return newError(KindAlreadyClaimed, launchID, caller, nil)
		}

		units, err := l.fhe.Decrypt(ctx, p.UnitsBought, caller)
		if err != nil {
			return l.confidentialError(launchID, caller, err)
		}
		if units == 0 {
			return newError(KindNothingToClaim, launchID, caller, nil)
		}

		alloc = Allocation{
			LaunchID:   launchID,
			Collection: launch.Collection,
			Recipient:  caller,
			Count:      units,
		}
		if err := l.issuer.Record(ctx, alloc); err != nil {
			return newError(KindInternal, launchID, caller, err)
		}

		at := now.UTC()
		p.Claimed = true
		p.ClaimedAt = &at
		return tx.PutParticipation(p)
	})
	if err != nil {
		logger.Warn("Rejected claim on launch %d by %s: %v", launchID, caller.Hex(), err)
		return 0, err
	}

	granted := alloc.Count
	l.emitter.Emit(ctx, Event{
		Type:       EventClaimed,
		LaunchID:   launchID,
		Address:    caller,
		Count:      granted,
		OccurredAt: now.UTC(),
	})

	// 领取已提交，发放不随调用方取消
	if err := l.issuer.Deliver(context.WithoutCancel(ctx), alloc); err != nil {
		logger.Error("Issuance of %d units on launch %d to %s failed: %v", granted, launchID, caller.Hex(), err)
		return granted, newError(KindIssuance, launchID, caller, err)
	}

	logger.Info("Claimed %d units on launch %d by %s", granted, launchID, caller.Hex())
	return granted, nil
}

const timeLayout = "2006-01-02 15:04:05Z07:00"

// update 在发售锁内执行 fn，并把存储层的未找到错误转换为 LaunchNotFound
func (l *Ledger) update(ctx context.Context, launchID uint64, fn func(ctx context.Context, tx Tx) error) error {
	err := l.store.Update(ctx, launchID, fn)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNoRecord) {
		return newError(KindLaunchNotFound, launchID, common.Address{}, nil)
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	return newError(KindInternal, launchID, common.Address{}, err)
}

func (l *Ledger) grant(ctx context.Context, h confidential.Handle, principals ...common.Address) error {
	for _, p := range principals {
		if p == (common.Address{}) {
			continue
		}
		if err := l.fhe.Grant(ctx, h, p); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) confidentialError(launchID uint64, addr common.Address, err error) error {
	switch {
	case errors.Is(err, confidential.ErrInvalidCiphertext):
		return newError(KindInvalidCiphertext, launchID, addr, err)
	case errors.Is(err, confidential.ErrAccessDenied):
		return newError(KindAccessDenied, launchID, addr, err)
	case errors.Is(err, confidential.ErrOverflow):
		return newError(KindOverflow, launchID, addr, err)
	default:
		return newError(KindInternal, launchID, addr, err)
	}
}
