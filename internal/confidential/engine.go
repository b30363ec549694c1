package confidential

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
	"github.com/google/uuid"
)

// InputDomain 外部输入签名域，防止跨用途重放签名
var InputDomain = []byte("launchpad/confidential-input/v1")

var (
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrAccessDenied      = errors.New("access denied")
	ErrUnknownHandle     = errors.New("unknown handle")
	ErrOverflow          = errors.New("confidential arithmetic overflow")
)

// Handle 密文句柄，不携带任何明文信息
type Handle string

// ExternalInput 客户端提交的加密输入
type ExternalInput struct {
	Ciphertext []byte `json:"ciphertext"`
	Proof      []byte `json:"proof"`
}

// Vault 密文及其访问控制列表的存储
type Vault interface {
	Put(ctx context.Context, h Handle, sealed []byte) error
	Get(ctx context.Context, h Handle) ([]byte, error)
	Grant(ctx context.Context, h Handle, principal common.Address) error
	Allowed(ctx context.Context, h Handle, principal common.Address) (bool, error)
}

// Engine 机密计算协处理器。
// 所有值以 ECIES 密文形式保存在 Vault 中，明文只在单次运算内部短暂存在。
type Engine struct {
	key    *ecdsa.PrivateKey
	sealer *ecies.PrivateKey
	vault  Vault
}

// NewEngine 使用给定私钥创建协处理器，key 为 nil 时随机生成
func NewEngine(key *ecdsa.PrivateKey, vault Vault) (*Engine, error) {
	if vault == nil {
		return nil, errors.New("vault is required")
	}
	if key == nil {
		var err error
		key, err = crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("generate engine key: %w", err)
		}
	}
	return &Engine{
		key:    key,
		sealer: ecies.ImportECDSA(key),
		vault:  vault,
	}, nil
}

// PublicKey 客户端用于加密输入的公钥
func (e *Engine) PublicKey() *ecdsa.PublicKey {
	return &e.key.PublicKey
}

// Address 协处理器自身的身份地址
func (e *Engine) Address() common.Address {
	return crypto.PubkeyToAddress(e.key.PublicKey)
}

// FromExternal 校验外部输入并转换为内部句柄。
// proof 必须是 submitter 对 keccak256(InputDomain ‖ ciphertext) 的签名。
func (e *Engine) FromExternal(ctx context.Context, submitter common.Address, in ExternalInput) (Handle, error) {
	if len(in.Ciphertext) == 0 || len(in.Proof) != crypto.SignatureLength {
		return "", ErrInvalidCiphertext
	}
	pub, err := crypto.SigToPub(InputDigest(in.Ciphertext), normalizeSig(in.Proof))
	if err != nil || crypto.PubkeyToAddress(*pub) != submitter {
		return "", ErrInvalidCiphertext
	}

	v, err := e.open(in.Ciphertext)
	if err != nil {
		return "", ErrInvalidCiphertext
	}
	return e.store(ctx, v)
}

// Zero 返回新的加密零值
func (e *Engine) Zero(ctx context.Context) (Handle, error) {
	return e.store(ctx, 0)
}

// Add 密文加法
func (e *Engine) Add(ctx context.Context, a, b Handle) (Handle, error) {
	x, y, err := e.load2(ctx, a, b)
	if err != nil {
		return "", err
	}
	sum, carry := bits.Add64(x, y, 0)
	if carry != 0 {
		return "", ErrOverflow
	}
	return e.store(ctx, sum)
}

// Mul 密文乘法
func (e *Engine) Mul(ctx context.Context, a, b Handle) (Handle, error) {
	x, y, err := e.load2(ctx, a, b)
	if err != nil {
		return "", err
	}
	hi, lo := bits.Mul64(x, y)
	if hi != 0 {
		return "", ErrOverflow
	}
	return e.store(ctx, lo)
}

// Grant 授予 principal 解密权限，重复授权无副作用
func (e *Engine) Grant(ctx context.Context, h Handle, principal common.Address) error {
	if _, err := e.vault.Get(ctx, h); err != nil {
		return err
	}
	return e.vault.Grant(ctx, h, principal)
}

// IsAllowed 查询 principal 是否有解密权限
func (e *Engine) IsAllowed(ctx context.Context, h Handle, principal common.Address) (bool, error) {
	return e.vault.Allowed(ctx, h, principal)
}

// Decrypt 为已授权的 principal 解密
func (e *Engine) Decrypt(ctx context.Context, h Handle, principal common.Address) (uint64, error) {
	ok, err := e.vault.Allowed(ctx, h, principal)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s cannot decrypt %s", ErrAccessDenied, principal.Hex(), h)
	}
	return e.load(ctx, h)
}

func (e *Engine) store(ctx context.Context, v uint64) (Handle, error) {
	sealed, err := e.seal(v)
	if err != nil {
		return "", err
	}
	h := Handle(uuid.NewString())
	if err := e.vault.Put(ctx, h, sealed); err != nil {
		return "", fmt.Errorf("store ciphertext: %w", err)
	}
	return h, nil
}

func (e *Engine) load(ctx context.Context, h Handle) (uint64, error) {
	sealed, err := e.vault.Get(ctx, h)
	if err != nil {
		return 0, err
	}
	return e.open(sealed)
}

func (e *Engine) load2(ctx context.Context, a, b Handle) (uint64, uint64, error) {
	x, err := e.load(ctx, a)
	if err != nil {
		return 0, 0, err
	}
	y, err := e.load(ctx, b)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func (e *Engine) seal(v uint64) ([]byte, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	ct, err := ecies.Encrypt(rand.Reader, &e.sealer.PublicKey, buf[:], nil, nil)
	if err != nil {
		return nil, fmt.Errorf("seal value: %w", err)
	}
	return ct, nil
}

func (e *Engine) open(ct []byte) (uint64, error) {
	pt, err := e.sealer.Decrypt(ct, nil, nil)
	if err != nil {
		return 0, err
	}
	if len(pt) != 8 {
		return 0, fmt.Errorf("unexpected plaintext length %d", len(pt))
	}
	return binary.BigEndian.Uint64(pt), nil
}
