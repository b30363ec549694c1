package ledger

import (
	"context"
	"time"

	"github.com/blues/launchpad/internal/confidential"
	"github.com/ethereum/go-ethereum/common"
)

// NativeAsset 原生币支付标识
const NativeAsset = "native"

// State 发售状态
type State string

const (
	StateActive    State = "active"    // 进行中
	StateFinalized State = "finalized" // 已结束
)

// Launch 一次定价、限时的机密发售
type Launch struct {
	ID             uint64              `json:"id"`
	Collection     string              `json:"collection"`
	Creator        common.Address      `json:"creator"`
	TotalSupply    uint64              `json:"total_supply"`
	StartTime      time.Time           `json:"start_time"`
	EndTime        time.Time           `json:"end_time"`
	ReservePrice   confidential.Handle `json:"reserve_price"`
	TotalRaised    confidential.Handle `json:"total_raised"`
	TotalUnitsSold confidential.Handle `json:"total_units_sold"`
	PaymentAsset   string              `json:"payment_asset"`
	FeeBasisPoints uint32              `json:"fee_basis_points"`
	State          State               `json:"state"`
	Purchases      uint64              `json:"purchases"`
	Version        uint64              `json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
	FinalizedAt    *time.Time          `json:"finalized_at,omitempty"`
}

// Participation 参与者在单个发售中的累计机密仓位
type Participation struct {
	LaunchID    uint64              `json:"launch_id"`
	Participant common.Address      `json:"participant"`
	AmountPaid  confidential.Handle `json:"amount_paid"`
	UnitsBought confidential.Handle `json:"units_bought"`
	Purchases   uint32              `json:"purchases"`
	Claimed     bool                `json:"claimed"`
	ClaimedAt   *time.Time          `json:"claimed_at,omitempty"`
	Version     uint64              `json:"version"`
}

// Position 参与者解密后的仓位，只返回给本人
type Position struct {
	LaunchID    uint64         `json:"launch_id"`
	Participant common.Address `json:"participant"`
	AmountPaid  uint64         `json:"amount_paid"`
	UnitsBought uint64         `json:"units_bought"`
	Claimed     bool           `json:"claimed"`
}

// Totals 发售解密后的汇总，只返回给平台
type Totals struct {
	LaunchID       uint64 `json:"launch_id"`
	TotalRaised    uint64 `json:"total_raised"`
	TotalUnitsSold uint64 `json:"total_units_sold"`
}

// CreateLaunchRequest 发起发售参数
type CreateLaunchRequest struct {
	Collection   string
	TotalSupply  uint64
	StartTime    time.Time
	EndTime      time.Time
	Price        confidential.ExternalInput
	PaymentAsset string
}

// Allocation 交给外部发放方的分配指令
type Allocation struct {
	LaunchID   uint64         `json:"launch_id"`
	Collection string         `json:"collection"`
	Recipient  common.Address `json:"recipient"`
	Count      uint64         `json:"count"`
}

// EventType 生命周期事件类型
type EventType string

const (
	EventLaunchCreated    EventType = "LaunchCreated"
	EventPurchaseRecorded EventType = "PurchaseRecorded"
	EventLaunchFinalized  EventType = "LaunchFinalized"
	EventClaimed          EventType = "Claimed"
)

// Event 生命周期事件，不包含任何机密金额
type Event struct {
	Type        EventType      `json:"type"`
	LaunchID    uint64         `json:"launch_id"`
	Address     common.Address `json:"address,omitempty"`
	Collection  string         `json:"collection,omitempty"`
	TotalSupply uint64         `json:"total_supply,omitempty"`
	StartTime   *time.Time     `json:"start_time,omitempty"`
	EndTime     *time.Time     `json:"end_time,omitempty"`
	Count       uint64         `json:"count,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Confidential 账本使用的机密运算能力
type Confidential interface {
	FromExternal(ctx context.Context, submitter common.Address, in confidential.ExternalInput) (confidential.Handle, error)
	Zero(ctx context.Context) (confidential.Handle, error)
	Add(ctx context.Context, a, b confidential.Handle) (confidential.Handle, error)
	Mul(ctx context.Context, a, b confidential.Handle) (confidential.Handle, error)
	Grant(ctx context.Context, h confidential.Handle, principal common.Address) error
	Decrypt(ctx context.Context, h confidential.Handle, principal common.Address) (uint64, error)
}

// Issuer 外部发放能力。Record 在领取事务内调用，ctx 绑定该事务；
// Deliver 在领取提交之后调用，失败的发放由 Issuer 自己负责重试。
type Issuer interface {
	Record(ctx context.Context, a Allocation) error
	Deliver(ctx context.Context, a Allocation) error
}

// Emitter 事件输出
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Clock 可信时钟
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 系统时钟
var SystemClock Clock = systemClock{}

type discardEmitter struct{}

func (discardEmitter) Emit(context.Context, Event) {}
