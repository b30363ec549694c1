package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNoRecord 存储层未找到记录
var ErrNoRecord = errors.New("record not found")

// Store 账本持久化。Update 对单个发售提供独占访问，fn 返回错误时所有写入都不生效。
// fn 收到的 ctx 绑定了该事务，协作方应使用它而不是外层 ctx。
type Store interface {
	InsertLaunch(ctx context.Context, l *Launch) error
	Update(ctx context.Context, launchID uint64, fn func(ctx context.Context, tx Tx) error) error
	Launch(ctx context.Context, launchID uint64) (*Launch, error)
	Participation(ctx context.Context, launchID uint64, participant common.Address) (*Participation, error)
	Participants(ctx context.Context, launchID uint64, offset, limit int) ([]Participation, int64, error)
	DueForFinalize(ctx context.Context, now time.Time, limit int) ([]uint64, error)
}

// Tx 单个发售上的事务视图
type Tx interface {
	Launch() *Launch
	Participation(participant common.Address) (*Participation, error) // 不存在时返回 nil, nil
	PutLaunch(l *Launch) error
	PutParticipation(p *Participation) error
}
