package logic

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/inkstone/scs/internal/chain"
)

// AnchorClient 编排层需要的链客户端能力
type AnchorClient interface {
	Anchor(ctx context.Context, subjectId string, contentHash common.Hash) chain.AnchorResult
	Mint(ctx context.Context, ownerWallet, contentRef, subjectId string) chain.MintResult
	GetReceiptState(ctx context.Context, txHash string) (chain.ReceiptState, error)
	GetAccountAddress() common.Address
}

// ChainProvider 延迟初始化的链客户端提供者
// 初始化失败本身是一种可观测结果（登记流程转入 skipped）
type ChainProvider func() (AnchorClient, error)

// ContentStore 内容寻址存储能力
type ContentStore interface {
	Store(ctx context.Context, data []byte) (string, error)
	Fetch(ctx context.Context, ref string) ([]byte, error)
}
