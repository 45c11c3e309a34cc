package handler

import (
	"time"

	"github.com/inkstone/scs/internal/logic"
	"github.com/inkstone/scs/internal/model"
)

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Title        string                 `json:"title" binding:"required"`
	Description  string                 `json:"description" binding:"required"`
	Budget       int64                  `json:"budget"`
	Deadline     *time.Time             `json:"deadline"`
	Requirements string                 `json:"requirements"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// UpdateProjectRequest 更新项目请求
type UpdateProjectRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	Budget       *int64  `json:"budget"`
	Requirements *string `json:"requirements"`
}

// CreateProjectResponse 创建项目响应
// 本地创建成功即返回201，链上结果在 blockchain 字段中单独体现
type CreateProjectResponse struct {
	Project    *model.ProjectModel  `json:"project"`
	Blockchain *logic.AnchorOutcome `json:"blockchain"`
}

// CreateSubmissionRequest 创建投稿请求
type CreateSubmissionRequest struct {
	ProjectId string                 `json:"project_id" binding:"required"`
	Title     string                 `json:"title" binding:"required"`
	Content   string                 `json:"content" binding:"required"` // 剧本文本
	Metadata  map[string]interface{} `json:"metadata"`
}

// CreateSubmissionResponse 创建投稿响应
type CreateSubmissionResponse struct {
	SubmissionId string             `json:"submission_id"`
	ContentRef   string             `json:"content_ref"`
	TokenId      string             `json:"token_id,omitempty"`
	TxHash       string             `json:"transaction_hash,omitempty"`
	Mint         *logic.MintOutcome `json:"mint"`
}
