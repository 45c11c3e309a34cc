package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/inkstone/scs/internal/chain"
	"github.com/inkstone/scs/internal/config"
	"github.com/inkstone/scs/internal/logger"
	"github.com/inkstone/scs/internal/logic"
	"github.com/inkstone/scs/internal/model"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// 单轮对账的最大并发回执查询数
const reconcileConcurrency = 8

// ReconcileJob 流水对账任务
// 轮询 pending 流水，查询链上回执，将终局结果写回流水并传播到主体记录
type ReconcileJob struct {
	db      *gorm.DB
	txLogic *logic.TransactionLogic
	chain   logic.ChainProvider
	config  *config.Config
}

// NewReconcileJob 创建对账任务
func NewReconcileJob(db *gorm.DB, chainProvider logic.ChainProvider, cfg *config.Config) *ReconcileJob {
	return &ReconcileJob{
		db:      db,
		txLogic: logic.NewTransactionLogic(db),
		chain:   chainProvider,
		config:  cfg,
	}
}

// GetName 获取任务名称
func (j *ReconcileJob) GetName() string {
	return "transaction_reconciler"
}

// GetSchedule 获取调度配置
func (j *ReconcileJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.Interval) * time.Second)
}

// Execute 执行一轮对账
func (j *ReconcileJob) Execute() {
	ctx := context.Background()

	pending, err := j.txLogic.GetPending(ctx)
	if err != nil {
		logger.Error("Failed to fetch pending transactions: %v", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	client, err := j.chain()
	if err != nil {
		// 链不可用：pending 保持原状，下一轮再试
		logger.Warn("Chain client unavailable, skipping reconcile round: %v", err)
		return
	}

	logger.Info("Reconciling %d pending transactions", len(pending))

	poolSize := reconcileConcurrency
	if len(pending) < poolSize {
		poolSize = len(pending)
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		logger.Error("Failed to create reconcile pool: %v", err)
		return
	}
	defer pool.Release()

	var wg sync.WaitGroup
	var receiptFailures atomic.Int64
	for i := range pending {
		record := pending[i]
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			j.reconcileOne(ctx, client, &record, &receiptFailures)
		}); err != nil {
			wg.Done()
			logger.Error("Failed to submit reconcile task for transaction %d: %v", record.Id, err)
		}
	}
	wg.Wait()

	// 整轮回执查询全部失败：客户端可能已失效，重置后下一轮重新初始化
	if int(receiptFailures.Load()) == len(pending) {
		logger.Warn("All %d receipt checks failed this round, resetting chain client", len(pending))
		chain.Reset()
	}
}

// reconcileOne 对账单条流水
// 无回执不是失败：终局性未知时保持 pending，绝不凭空判死
func (j *ReconcileJob) reconcileOne(ctx context.Context, client logic.AnchorClient, record *model.TransactionModel, receiptFailures *atomic.Int64) {
	state, err := client.GetReceiptState(ctx, record.TxHash)
	if err != nil {
		receiptFailures.Add(1)
		logger.Warn("Failed to check receipt for transaction %d (%s): %v", record.Id, record.TxHash, err)
		return
	}

	var finalStatus model.TransactionStatus
	switch state {
	case chain.ReceiptConfirmed:
		finalStatus = model.TransactionStatusConfirmed
	case chain.ReceiptReverted:
		finalStatus = model.TransactionStatusFailed
	default:
		return
	}

	if err := j.txLogic.Reconcile(ctx, record.Id, finalStatus); err != nil {
		logger.Error("Failed to reconcile transaction %d to %s: %v", record.Id, finalStatus, err)
		return
	}

	logger.Info("Reconciled transaction %d (%s) to %s", record.Id, record.TxHash, finalStatus)
}
