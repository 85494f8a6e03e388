package payment

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// Wallet 一次性收款钱包
type Wallet struct {
	Address string // base58 公钥，即 Solana 地址
	Secret  string // base58 私钥，留作人工退款用
}

// GenerateWallet 为单个订单生成一次性收款地址
// 私钥只落库，不会出现在任何接口响应里
func GenerateWallet() (*Wallet, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}

	return &Wallet{
		Address: base58.Encode(pub),
		Secret:  base58.Encode(priv),
	}, nil
}
