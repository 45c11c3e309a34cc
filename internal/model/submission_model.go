package model

import (
	"time"
)

// SubmissionModel 投稿模型（编剧提交的剧本）
type SubmissionModel struct {
	Id        string    `json:"id" gorm:"primaryKey;size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 每个编剧对同一项目只能投稿一次，唯一索引是并发下的幂等保障
	ProjectId string `json:"project_id" gorm:"not null;uniqueIndex:idx_submission_project_writer"`
	WriterId  string `json:"writer_id" gorm:"not null;uniqueIndex:idx_submission_project_writer"`

	// 内容信息
	Title      string  `json:"title" gorm:"not null"`
	ContentRef string  `json:"content_ref" gorm:"not null"` // 内容存储CID
	Metadata   JSONMap `json:"metadata" gorm:"type:text"`

	// 评分（评分服务返回，可选）
	Score *float64 `json:"score"`

	// 业务状态
	Status SubmissionStatus `json:"status" gorm:"default:'pending'"`

	// 通证信息（内容存储与铸造均成功后才写入）
	TokenId     string `json:"token_id"`
	TokenTxHash string `json:"token_tx_hash"`
}

// SubmissionStatus 投稿状态
type SubmissionStatus string

const (
	SubmissionStatusPending  SubmissionStatus = "pending"  // 待审阅
	SubmissionStatusAccepted SubmissionStatus = "accepted" // 已采纳
	SubmissionStatusRejected SubmissionStatus = "rejected" // 已拒绝
)

// TableName 自定义表名
func (SubmissionModel) TableName() string {
	return "submission"
}

// Minted 是否已铸造通证
func (s *SubmissionModel) Minted() bool {
	return s.TokenId != ""
}
