package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/inkstone/scs/internal/config"
)

// Client 链锚定客户端
// 每个操作都是一次有超时上限的网络调用，不在内部重试，
// 失败通过结果结构体返回而不是异常控制流
type Client struct {
	client        *ethclient.Client
	privateKey    *ecdsa.PrivateKey
	chainId       *big.Int
	registryAddr  common.Address
	tokenAddr     common.Address
	registryABI   abi.ABI
	tokenABI      abi.ABI
	confirmations int
	callTimeout   time.Duration
}

// AnchorResult 登记操作结果
type AnchorResult struct {
	Success bool
	TxHash  string
	Err     error
}

// MintResult 铸造操作结果
type MintResult struct {
	Success bool
	TokenId string
	TxHash  string
	Err     error
}

// ReceiptState 交易回执状态
type ReceiptState int

const (
	ReceiptUnknown   ReceiptState = iota // 尚无回执或确认数不足
	ReceiptConfirmed                     // 已确认
	ReceiptReverted                      // 已回滚
)

// 内容登记合约ABI定义（简化版）
const registryABI = `[
	{
		"inputs": [
			{"name": "subjectId", "type": "string"},
			{"name": "contentHash", "type": "bytes32"}
		],
		"name": "registerContent",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// 剧本通证合约ABI定义（简化版）
// 合约按 keccak256(contentRef, submissionId) 派生通证ID
const tokenABI = `[
	{
		"inputs": [
			{"name": "owner", "type": "address"},
			{"name": "contentRef", "type": "string"},
			{"name": "submissionId", "type": "string"}
		],
		"name": "mintScript",
		"outputs": [{"name": "tokenId", "type": "bytes32"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// Init 初始化链客户端并验证连接
func Init(cfg config.ChainConfig) (*Client, error) {
	if cfg.RpcUrl == "" {
		return nil, fmt.Errorf("no RPC URL configured")
	}

	// 连接链节点
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to chain client: %w", err)
	}

	// 解析私钥
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	// 解析ABI
	parsedRegistryABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}
	parsedTokenABI, err := abi.JSON(strings.NewReader(tokenABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	callTimeout := time.Duration(cfg.CallTimeout) * time.Second
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}

	c := &Client{
		client:        client,
		privateKey:    privateKey,
		chainId:       big.NewInt(cfg.ChainId),
		registryAddr:  common.HexToAddress(cfg.RegistryContract),
		tokenAddr:     common.HexToAddress(cfg.TokenContract),
		registryABI:   parsedRegistryABI,
		tokenABI:      parsedTokenABI,
		confirmations: cfg.Confirmations,
		callTimeout:   callTimeout,
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()
	if _, err := client.BlockNumber(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("chain connection test failed: %w", err)
	}

	return c, nil
}

// Anchor 将内容哈希登记上链
func (c *Client) Anchor(ctx context.Context, subjectId string, contentHash common.Hash) AnchorResult {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	data, err := c.registryABI.Pack("registerContent", subjectId, contentHash)
	if err != nil {
		return AnchorResult{Err: fmt.Errorf("failed to pack register call: %w", err)}
	}

	txHash, err := c.sendTx(ctx, c.registryAddr, data)
	if err != nil {
		// 同一哈希已被登记：锚定目标已经达成，按成功处理
		if isDuplicateError(err) {
			return AnchorResult{Success: true, TxHash: txHash.Hex()}
		}
		return AnchorResult{Err: err}
	}

	return AnchorResult{Success: true, TxHash: txHash.Hex()}
}

// Mint 为投稿内容铸造所有权通证
func (c *Client) Mint(ctx context.Context, ownerWallet, contentRef, subjectId string) MintResult {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	owner := common.HexToAddress(ownerWallet)
	data, err := c.tokenABI.Pack("mintScript", owner, contentRef, subjectId)
	if err != nil {
		return MintResult{Err: fmt.Errorf("failed to pack mint call: %w", err)}
	}

	// 与合约一致的确定性通证ID
	tokenId := crypto.Keccak256Hash([]byte(contentRef), []byte(subjectId)).Hex()

	txHash, err := c.sendTx(ctx, c.tokenAddr, data)
	if err != nil {
		if isDuplicateError(err) {
			return MintResult{Success: true, TokenId: tokenId, TxHash: txHash.Hex()}
		}
		return MintResult{Err: err}
	}

	return MintResult{Success: true, TokenId: tokenId, TxHash: txHash.Hex()}
}

// GetReceiptState 查询交易回执状态
func (c *Client) GetReceiptState(ctx context.Context, txHash string) (ReceiptState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return ReceiptUnknown, nil
		}
		return ReceiptUnknown, err
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return ReceiptReverted, nil
	}

	latestBlock, err := c.client.BlockNumber(ctx)
	if err != nil {
		return ReceiptUnknown, err
	}
	if latestBlock >= receipt.BlockNumber.Uint64()+uint64(c.confirmations) {
		return ReceiptConfirmed, nil
	}

	return ReceiptUnknown, nil
}

// GetAccountAddress 获取账户地址
func (c *Client) GetAccountAddress() common.Address {
	return crypto.PubkeyToAddress(c.privateKey.PublicKey)
}

// Close 关闭客户端连接
func (c *Client) Close() {
	c.client.Close()
}

// sendTx 构造、签名并发送交易
// 发送失败时同样返回已签名交易的哈希，供重复提交判定使用
func (c *Client) sendTx(ctx context.Context, to common.Address, data []byte) (common.Hash, error) {
	from := crypto.PubkeyToAddress(c.privateKey.PublicKey)

	nonce, err := c.client.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit, err := c.client.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainId), c.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return signedTx.Hash(), fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash(), nil
}

// isDuplicateError 判定节点返回的重复提交错误
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") ||
		strings.Contains(msg, "known transaction") ||
		strings.Contains(msg, "duplicate")
}
