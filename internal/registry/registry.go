package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blues/launchpad/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrAlreadyRegistered = errors.New("collection already registered")
	ErrInvalidCollection = errors.New("invalid collection identifier")
	ErrInvalidCreator    = errors.New("invalid creator address")
)

// MaxCollectionLength 资产集合标识的最大长度
const MaxCollectionLength = 128

// Policy 重复登记策略
type Policy string

const (
	PolicyIdempotent Policy = "idempotent" // 相同创建者视为无操作，不同创建者拒绝
	PolicyReject     Policy = "reject"     // 任何重复登记均拒绝
	PolicyIgnore     Policy = "ignore"     // 静默保留首次登记
)

// ParsePolicy 解析策略字符串
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(s)); p {
	case PolicyIdempotent, PolicyReject, PolicyIgnore:
		return p, nil
	case "":
		return PolicyIdempotent, nil
	default:
		return "", fmt.Errorf("unknown reregistration policy %q", s)
	}
}

// Entry 登记记录
type Entry struct {
	Collection   string         `json:"collection"`
	Creator      common.Address `json:"creator"`
	RegisteredAt time.Time      `json:"registered_at"`
}

// Store 登记存储。Insert 仅在 collection 不存在时写入，否则返回已有记录。
type Store interface {
	Insert(ctx context.Context, e Entry) (existing Entry, inserted bool, err error)
	Get(ctx context.Context, collection string) (Entry, bool, error)
}

// Registry 资产集合到创建者的映射
type Registry struct {
	store  Store
	policy Policy
}

func New(store Store, policy Policy) *Registry {
	return &Registry{store: store, policy: policy}
}

// ValidCollection 判断集合标识是否合法
func ValidCollection(collection string) bool {
	if collection == "" || len(collection) > MaxCollectionLength {
		return false
	}
	return strings.TrimSpace(collection) == collection && !strings.ContainsAny(collection, " \t\r\n")
}

// Register 登记 collection 的创建者，首次登记生效
func (r *Registry) Register(ctx context.Context, collection string, creator common.Address) (Entry, error) {
	if !ValidCollection(collection) {
		return Entry{}, ErrInvalidCollection
	}
	if creator == (common.Address{}) {
		return Entry{}, ErrInvalidCreator
	}

	existing, inserted, err := r.store.Insert(ctx, Entry{
		Collection:   collection,
		Creator:      creator,
		RegisteredAt: time.Now().UTC(),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("register %s: %w", collection, err)
	}
	if inserted {
		logger.Info("Registered collection %s to creator %s", collection, creator.Hex())
		return existing, nil
	}

	switch r.policy {
	case PolicyIgnore:
		logger.Warn("Ignoring re-registration of %s by %s", collection, creator.Hex())
		return existing, nil
	case PolicyIdempotent:
		if existing.Creator == creator {
			return existing, nil
		}
	}
	return existing, fmt.Errorf("%w: %s belongs to %s", ErrAlreadyRegistered, collection, existing.Creator.Hex())
}

// CreatorOf 查询 collection 的创建者
func (r *Registry) CreatorOf(ctx context.Context, collection string) (common.Address, bool, error) {
	e, ok, err := r.store.Get(ctx, collection)
	if err != nil || !ok {
		return common.Address{}, false, err
	}
	return e.Creator, true, nil
}

// Lookup 查询完整登记记录
func (r *Registry) Lookup(ctx context.Context, collection string) (Entry, bool, error) {
	return r.store.Get(ctx, collection)
}
