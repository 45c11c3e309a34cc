package model

import (
	"time"
)

// TransactionModel 链上操作流水记录
// 只追加：每次尝试新建一条记录，重试不会覆盖旧记录的哈希
type TransactionModel struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Kind      TransactionKind   `json:"kind" gorm:"not null"`
	SubjectId string            `json:"subject_id" gorm:"not null;index"`
	TxHash    string            `json:"tx_hash"`
	Status    TransactionStatus `json:"status" gorm:"default:'pending'"`
	Metadata  JSONMap           `json:"metadata" gorm:"type:text"` // 提交链上的字段快照/错误信息
}

// TransactionKind 流水类型
type TransactionKind string

const (
	TransactionKindProjectRegistration TransactionKind = "project_registration" // 项目登记
	TransactionKindSubmissionMint      TransactionKind = "submission_mint"      // 投稿铸造
)

// TransactionStatus 流水状态
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"   // 已提交待确认
	TransactionStatusConfirmed TransactionStatus = "confirmed" // 已确认
	TransactionStatusFailed    TransactionStatus = "failed"    // 失败
)

// Terminal 是否处于终态
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusConfirmed || s == TransactionStatusFailed
}

// TableName 自定义表名
func (TransactionModel) TableName() string {
	return "transaction"
}
