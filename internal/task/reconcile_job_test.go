package task

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/inkstone/scs/internal/chain"
	"github.com/inkstone/scs/internal/config"
	"github.com/inkstone/scs/internal/logic"
	"github.com/inkstone/scs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

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

// fakeClient 可编程回执状态的链客户端替身
type fakeClient struct {
	receipts   map[string]chain.ReceiptState
	receiptErr error
}

func (f *fakeClient) Anchor(ctx context.Context, subjectId string, contentHash common.Hash) chain.AnchorResult {
	return chain.AnchorResult{Err: errors.New("not used")}
}

func (f *fakeClient) Mint(ctx context.Context, ownerWallet, contentRef, subjectId string) chain.MintResult {
	return chain.MintResult{Err: errors.New("not used")}
}

func (f *fakeClient) GetReceiptState(ctx context.Context, txHash string) (chain.ReceiptState, error) {
	if f.receiptErr != nil {
		return chain.ReceiptUnknown, f.receiptErr
	}
	return f.receipts[txHash], nil
}

func (f *fakeClient) GetAccountAddress() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000000aa")
}

func provider(f *fakeClient) logic.ChainProvider {
	return func() (logic.AnchorClient, error) { return f, nil }
}

func seedPendingRegistration(t *testing.T, db *gorm.DB, projectId, txHash string) *model.TransactionModel {
	t.Helper()
	project := &model.ProjectModel{
		Id:          projectId,
		Title:       "项目",
		Description: "描述",
		OwnerId:     "producer-1",
		Status:      model.ProjectStatusOpen,
		ChainStatus: model.ChainStatusPending,
		ChainTxHash: txHash,
	}
	require.NoError(t, db.Create(project).Error)

	record := &model.TransactionModel{
		Kind:      model.TransactionKindProjectRegistration,
		SubjectId: projectId,
		TxHash:    txHash,
		Status:    model.TransactionStatusPending,
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

func TestReconcileJobConfirmsTransactions(t *testing.T) {
	db := testDB(t)
	seedPendingRegistration(t, db, "prj_1", "0xaaa")
	seedPendingRegistration(t, db, "prj_2", "0xbbb")

	fc := &fakeClient{receipts: map[string]chain.ReceiptState{
		"0xaaa": chain.ReceiptConfirmed,
		"0xbbb": chain.ReceiptReverted,
	}}
	job := NewReconcileJob(db, provider(fc), &config.Config{Task: config.TaskConfig{Interval: 60}})
	job.Execute()

	var confirmed, failed model.TransactionModel
	require.NoError(t, db.First(&confirmed, "subject_id = ?", "prj_1").Error)
	require.NoError(t, db.First(&failed, "subject_id = ?", "prj_2").Error)
	assert.Equal(t, model.TransactionStatusConfirmed, confirmed.Status)
	assert.Equal(t, model.TransactionStatusFailed, failed.Status)

	// 终态传播到项目锚定状态
	var p1, p2 model.ProjectModel
	require.NoError(t, db.First(&p1, "id = ?", "prj_1").Error)
	require.NoError(t, db.First(&p2, "id = ?", "prj_2").Error)
	assert.Equal(t, model.ChainStatusConfirmed, p1.ChainStatus)
	assert.Equal(t, model.ChainStatusFailed, p2.ChainStatus)
}

func TestReconcileJobKeepsPendingWhenFinalityUnknown(t *testing.T) {
	db := testDB(t)
	record := seedPendingRegistration(t, db, "prj_1", "0xaaa")

	// 无回执：保持 pending，下一轮再试
	fc := &fakeClient{receipts: map[string]chain.ReceiptState{}}
	job := NewReconcileJob(db, provider(fc), &config.Config{Task: config.TaskConfig{Interval: 60}})
	job.Execute()

	var stored model.TransactionModel
	require.NoError(t, db.First(&stored, record.Id).Error)
	assert.Equal(t, model.TransactionStatusPending, stored.Status)
}

func TestReconcileJobKeepsPendingOnReceiptFailure(t *testing.T) {
	db := testDB(t)
	record := seedPendingRegistration(t, db, "prj_1", "0xaaa")

	// 整轮回执查询失败：流水不变，共享客户端被重置以便下一轮重连
	fc := &fakeClient{receiptErr: errors.New("connection reset by peer")}
	job := NewReconcileJob(db, provider(fc), &config.Config{Task: config.TaskConfig{Interval: 60}})
	job.Execute()

	var stored model.TransactionModel
	require.NoError(t, db.First(&stored, record.Id).Error)
	assert.Equal(t, model.TransactionStatusPending, stored.Status)
}
