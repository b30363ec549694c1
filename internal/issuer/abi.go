package issuer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// LoadABI 从文件加载发放合约ABI
func LoadABI(path string) (abi.ABI, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to load ABI from %s: %w", path, err)
	}
	return ParseABI(data)
}

// ParseABI 解析完整编译输出（含 abi 字段）或纯ABI数组，并校验 mint 方法
func ParseABI(data []byte) (abi.ABI, error) {
	var compiled struct {
		ABI json.RawMessage `json:"abi"`
	}
	raw := data
	if err := json.Unmarshal(data, &compiled); err == nil && compiled.ABI != nil {
		raw = compiled.ABI
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ABI: %w", err)
	}

	mint, ok := parsed.Methods["mint"]
	if !ok {
		return abi.ABI{}, fmt.Errorf("ABI has no mint method")
	}
	if len(mint.Inputs) != 2 || mint.Inputs[0].Type.T != abi.AddressTy || mint.Inputs[1].Type.T != abi.UintTy {
		return abi.ABI{}, fmt.Errorf("mint must be mint(address,uint256), got %s", mint.Sig)
	}
	return parsed, nil
}
