package confidential

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
)

// InputDigest 外部输入证明所签名的摘要
func InputDigest(ciphertext []byte) []byte {
	return crypto.Keccak256(InputDomain, ciphertext)
}

// Seal 客户端辅助函数：用协处理器公钥加密 value，并以 signer 签名生成证明
func Seal(enginePub *ecdsa.PublicKey, value uint64, signer *ecdsa.PrivateKey) (ExternalInput, error) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)

	ct, err := ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(enginePub), buf[:], nil, nil)
	if err != nil {
		return ExternalInput{}, fmt.Errorf("encrypt input: %w", err)
	}
	sig, err := crypto.Sign(InputDigest(ct), signer)
	if err != nil {
		return ExternalInput{}, fmt.Errorf("sign input: %w", err)
	}
	return ExternalInput{Ciphertext: ct, Proof: sig}, nil
}

// ParsePublicKey 解析未压缩格式的协处理器公钥
func ParsePublicKey(b []byte) (*ecdsa.PublicKey, error) {
	return crypto.UnmarshalPubkey(b)
}

// normalizeSig 兼容 v 为 27/28 的签名
func normalizeSig(sig []byte) []byte {
	if len(sig) == crypto.SignatureLength && sig[64] >= 27 {
		out := make([]byte, len(sig))
		copy(out, sig)
		out[64] -= 27
		return out
	}
	return sig
}
