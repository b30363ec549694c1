package issuer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/blues/launchpad/internal/config"
	"github.com/blues/launchpad/internal/ledger"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// 发放合约ABI定义
const mintABI = `[
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "mint",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// Backend 发送交易并等待回执所需的链接口，*ethclient.Client 满足该接口
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// ChainDeliverer 调用合约 mint(address,uint256) 发放资产
type ChainDeliverer struct {
	backend        Backend
	contract       *bind.BoundContract
	address        common.Address
	privateKey     *ecdsa.PrivateKey
	chainID        *big.Int
	confirmTimeout time.Duration
}

// Dial 按配置连接节点并创建链上发放方
func Dial(ctx context.Context, cfg config.IssuerConfig) (*ChainDeliverer, error) {
	client, err := ethclient.DialContext(ctx, cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum client: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	chainID := big.NewInt(cfg.ChainId)
	if cfg.ChainId == 0 {
		if chainID, err = client.ChainID(ctx); err != nil {
			return nil, fmt.Errorf("failed to get chain id: %w", err)
		}
	}

	d, err := NewChainDeliverer(client, common.HexToAddress(cfg.Contract), privateKey, chainID,
		time.Duration(cfg.ConfirmTimeout)*time.Second)
	if err != nil {
		return nil, err
	}
	if cfg.AbiPath != "" {
		parsed, err := LoadABI(cfg.AbiPath)
		if err != nil {
			return nil, err
		}
		d.UseABI(parsed)
	}
	return d, nil
}

// NewChainDeliverer 创建链上发放方
func NewChainDeliverer(backend Backend, contract common.Address, key *ecdsa.PrivateKey, chainID *big.Int, confirmTimeout time.Duration) (*ChainDeliverer, error) {
	if key == nil {
		return nil, errors.New("issuer private key is required")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("issuer chain id must be positive")
	}
	parsedABI, err := ParseABI([]byte(mintABI))
	if err != nil {
		return nil, err
	}
	if confirmTimeout <= 0 {
		confirmTimeout = 2 * time.Minute
	}
	return &ChainDeliverer{
		backend:        backend,
		contract:       bind.NewBoundContract(contract, parsedABI, backend, backend, backend),
		address:        contract,
		privateKey:     key,
		chainID:        chainID,
		confirmTimeout: confirmTimeout,
	}, nil
}

// UseABI 替换绑定的合约ABI，须先经 ParseABI 校验
func (c *ChainDeliverer) UseABI(parsed abi.ABI) {
	c.contract = bind.NewBoundContract(c.address, parsed, c.backend, c.backend, c.backend)
}

// Sender 发放交易的签名账户
func (c *ChainDeliverer) Sender() common.Address {
	return crypto.PubkeyToAddress(c.privateKey.PublicKey)
}

// Deliver 发送 mint 交易并等待上链
func (c *ChainDeliverer) Deliver(ctx context.Context, a ledger.Allocation) (string, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return "", fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx

	tx, err := c.contract.Transact(auth, "mint", a.Recipient, new(big.Int).SetUint64(a.Count))
	if err != nil {
		return "", fmt.Errorf("failed to send mint transaction: %w", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		return tx.Hash().Hex(), fmt.Errorf("failed waiting for %s: %w", tx.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return tx.Hash().Hex(), fmt.Errorf("mint transaction %s reverted", tx.Hash().Hex())
	}
	return tx.Hash().Hex(), nil
}
