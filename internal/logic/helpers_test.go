package logic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/inkstone/scs/internal/chain"
	"github.com/inkstone/scs/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testDB 每个测试独立的内存数据库
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// 串行化连接，唯一索引冲突路径在并发测试下保持确定
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.ProjectModel{},
		&model.SubmissionModel{},
		&model.TransactionModel{},
	))

	return db
}

// fakeChain 可编程的链客户端替身
type fakeChain struct {
	mu         sync.Mutex
	anchorErr  error
	mintErr    error
	anchorN    int
	mintN      int
	receipts   map[string]chain.ReceiptState
	receiptErr error
}

func (f *fakeChain) Anchor(ctx context.Context, subjectId string, contentHash common.Hash) chain.AnchorResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.anchorN++
	if f.anchorErr != nil {
		return chain.AnchorResult{Err: f.anchorErr}
	}
	return chain.AnchorResult{
		Success: true,
		TxHash:  fmt.Sprintf("0xanchor%s", subjectId),
	}
}

func (f *fakeChain) Mint(ctx context.Context, ownerWallet, contentRef, subjectId string) chain.MintResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mintN++
	if f.mintErr != nil {
		return chain.MintResult{Err: f.mintErr}
	}
	return chain.MintResult{
		Success: true,
		TokenId: fmt.Sprintf("0xtoken%s", subjectId),
		TxHash:  fmt.Sprintf("0xmint%s", subjectId),
	}
}

func (f *fakeChain) GetReceiptState(ctx context.Context, txHash string) (chain.ReceiptState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptErr != nil {
		return chain.ReceiptUnknown, f.receiptErr
	}
	return f.receipts[txHash], nil
}

func (f *fakeChain) GetAccountAddress() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000aa")
}

// available 始终可用的链客户端提供者
func available(f *fakeChain) ChainProvider {
	return func() (AnchorClient, error) { return f, nil }
}

// unavailable 初始化失败的链客户端提供者
func unavailable() ChainProvider {
	return func() (AnchorClient, error) {
		return nil, errors.New("dial tcp 127.0.0.1:8545: connection refused")
	}
}

// fakeStore 内容存储替身
type fakeStore struct {
	mu     sync.Mutex
	stored map[string][]byte
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{stored: make(map[string][]byte)}
}

func (f *fakeStore) Store(ctx context.Context, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	ref := fmt.Sprintf("bafkrei%04d", len(f.stored))
	f.stored[ref] = data
	return ref, nil
}

func (f *fakeStore) Fetch(ctx context.Context, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	data, ok := f.stored[ref]
	if !ok {
		return nil, fmt.Errorf("content not found: %s", ref)
	}
	return data, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.stored)
}

func (f *fakeStore) has(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.stored[ref]
	return ok
}

// fakeOracle 评分服务替身
type fakeOracle struct {
	score float64
	err   error
}

func (f *fakeOracle) Score(ctx context.Context, title string, content []byte) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.score, nil
}

// mustCreateProject 建一个开放投稿的项目
func mustCreateProject(t *testing.T, db *gorm.DB, ownerId string) *model.ProjectModel {
	t.Helper()
	project := &model.ProjectModel{
		Id:          generateId("prj"),
		Title:       "测试项目",
		Description: "项目描述",
		OwnerId:     ownerId,
		Status:      model.ProjectStatusOpen,
		ChainStatus: model.ChainStatusNotAttempted,
	}
	require.NoError(t, db.Create(project).Error)
	return project
}

// subjectTransactions 查询主体的全部流水
func subjectTransactions(t *testing.T, db *gorm.DB, subjectId string) []model.TransactionModel {
	t.Helper()
	var records []model.TransactionModel
	require.NoError(t, db.Where("subject_id = ?", subjectId).Order("id ASC").Find(&records).Error)
	return records
}
