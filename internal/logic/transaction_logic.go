package logic

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkstone/scs/internal/logger"
	"github.com/inkstone/scs/internal/model"
	"gorm.io/gorm"
)

// TransactionLogic 链上操作流水
type TransactionLogic struct {
	db *gorm.DB
}

// NewTransactionLogic 创建流水业务逻辑
func NewTransactionLogic(db *gorm.DB) *TransactionLogic {
	return &TransactionLogic{db: db}
}

// RecordAttempt 追加一条流水记录
// 只追加：重试产生新记录，旧记录的哈希不会被覆盖
func (t *TransactionLogic) RecordAttempt(ctx context.Context, kind model.TransactionKind,
	subjectId, txHash string, status model.TransactionStatus, metadata model.JSONMap) (*model.TransactionModel, error) {

	record := &model.TransactionModel{
		Kind:      kind,
		SubjectId: subjectId,
		TxHash:    txHash,
		Status:    status,
		Metadata:  metadata,
	}

	if err := t.db.WithContext(ctx).Create(record).Error; err != nil {
		// 审计记录写入失败不可静默，向调用方传播
		return nil, fmt.Errorf("%w: 流水写入失败: %v", ErrStoreUnavailable, err)
	}

	return record, nil
}

// Reconcile 将 pending 流水更新为终态，并传播到主体记录
// 幂等：重复对账同一终态是空操作；与已有终态冲突则报错，绝不静默覆盖
func (t *TransactionLogic) Reconcile(ctx context.Context, transactionId int64, finalStatus model.TransactionStatus) error {
	if !finalStatus.Terminal() {
		return NewValidationError("对账状态必须是终态: %s", finalStatus)
	}

	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.TransactionModel
		if err := tx.First(&record, transactionId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTransactionNotFound
			}
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		if record.Status == finalStatus {
			return nil
		}
		if record.Status.Terminal() {
			return fmt.Errorf("%w: 流水 %d 已记录为 %s, 收到 %s",
				ErrInconsistentReconciliation, record.Id, record.Status, finalStatus)
		}

		if err := tx.Model(&record).Update("status", finalStatus).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		return t.propagate(tx, &record, finalStatus)
	})
}

// propagate 将终态同步到流水主体
func (t *TransactionLogic) propagate(tx *gorm.DB, record *model.TransactionModel, finalStatus model.TransactionStatus) error {
	switch record.Kind {
	case model.TransactionKindProjectRegistration:
		chainStatus := model.ChainStatusConfirmed
		if finalStatus == model.TransactionStatusFailed {
			chainStatus = model.ChainStatusFailed
		}
		err := tx.Model(&model.ProjectModel{}).
			Where("id = ? AND chain_status = ?", record.SubjectId, model.ChainStatusPending).
			Update("chain_status", chainStatus).Error
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

	case model.TransactionKindSubmissionMint:
		if finalStatus == model.TransactionStatusFailed {
			// 铸造交易回滚：清除通证引用，投稿回到已存储未铸造状态，可重试
			err := tx.Model(&model.SubmissionModel{}).
				Where("id = ? AND token_tx_hash = ?", record.SubjectId, record.TxHash).
				Updates(map[string]interface{}{"token_id": "", "token_tx_hash": ""}).Error
			if err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		} else {
			// 铸造已确认：补写通证引用（铸造时本地更新失败的修复路径）
			// 通证ID取自流水的元数据快照；已有引用的投稿不被改写
			tokenId, _ := record.Metadata["token_id"].(string)
			if tokenId == "" {
				logger.Warn("Confirmed mint transaction %d has no token_id snapshot, skipping propagation", record.Id)
				return nil
			}
			err := tx.Model(&model.SubmissionModel{}).
				Where("id = ? AND token_id = ''", record.SubjectId).
				Updates(map[string]interface{}{"token_id": tokenId, "token_tx_hash": record.TxHash}).Error
			if err != nil {
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
			}
		}

	default:
		logger.Warn("Unknown transaction kind %s for record %d, skipping propagation", record.Kind, record.Id)
	}

	return nil
}

// GetBySubject 按主体ID查询流水（内部审计接口）
func (t *TransactionLogic) GetBySubject(ctx context.Context, subjectId string) ([]model.TransactionModel, error) {
	var records []model.TransactionModel
	err := t.db.WithContext(ctx).
		Where("subject_id = ?", subjectId).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}

// GetPending 查询所有待确认流水（供对账任务使用）
func (t *TransactionLogic) GetPending(ctx context.Context) ([]model.TransactionModel, error) {
	var records []model.TransactionModel
	err := t.db.WithContext(ctx).
		Where("status = ? AND tx_hash <> ''", model.TransactionStatusPending).
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return records, nil
}
