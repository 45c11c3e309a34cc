package model

import (
	"time"
)

// ProjectModel 项目模型（制片方发布的剧本需求）
type ProjectModel struct {
	Id        string    `json:"id" gorm:"primaryKey;size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title        string     `json:"title" gorm:"not null" binding:"required"`
	Description  string     `json:"description" gorm:"type:text;not null"`
	Budget       int64      `json:"budget" gorm:"default:0"`
	Deadline     *time.Time `json:"deadline"`
	Requirements string     `json:"requirements" gorm:"type:text"`
	Metadata     JSONMap    `json:"metadata" gorm:"type:text"`

	// 创建者信息
	OwnerId string `json:"owner_id" gorm:"not null;index"`

	// 业务状态
	Status ProjectStatus `json:"status" gorm:"default:'open'"`

	// 上链状态（独立于业务状态）
	ChainStatus ChainStatus `json:"chain_status" gorm:"default:'not_attempted'"`
	ChainHash   string      `json:"chain_hash"`
	ChainTxHash string      `json:"chain_tx_hash"`
}

// ProjectStatus 项目业务状态
type ProjectStatus string

const (
	ProjectStatusDraft     ProjectStatus = "draft"     // 草稿
	ProjectStatusOpen      ProjectStatus = "open"      // 开放投稿
	ProjectStatusFunded    ProjectStatus = "funded"    // 已注资
	ProjectStatusCompleted ProjectStatus = "completed" // 已完成
	ProjectStatusCancelled ProjectStatus = "cancelled" // 已取消
)

// ChainStatus 锚定状态机: not_attempted -> pending -> confirmed|failed
// 客户端不可用时从 not_attempted 直接进入 skipped
type ChainStatus string

const (
	ChainStatusNotAttempted ChainStatus = "not_attempted" // 未尝试
	ChainStatusPending      ChainStatus = "pending"       // 已提交待确认
	ChainStatusConfirmed    ChainStatus = "confirmed"     // 已确认
	ChainStatusFailed       ChainStatus = "failed"        // 失败
	ChainStatusSkipped      ChainStatus = "skipped"       // 客户端不可用,已跳过
)

// TableName 自定义表名
func (ProjectModel) TableName() string {
	return "project"
}

// Editable 是否允许业主修改业务字段
func (p *ProjectModel) Editable() bool {
	return p.Status == ProjectStatusDraft || p.Status == ProjectStatusOpen
}

// AcceptsSubmissions 是否接受投稿
func (p *ProjectModel) AcceptsSubmissions() bool {
	return p.Status == ProjectStatusOpen
}
