package logic

import (
	"errors"
	"fmt"
)

// 错误分类：
// Validation/Conflict 在编排层恢复为4xx；
// 外部不可用/外部失败不使请求失败，以状态字段体现；
// ErrStoreUnavailable 是唯一允许使整个请求失败的类别
var (
	ErrProjectNotFound            = errors.New("项目不存在")
	ErrSubmissionNotFound         = errors.New("投稿不存在")
	ErrTransactionNotFound        = errors.New("流水记录不存在")
	ErrProjectNotOpen             = errors.New("项目未开放投稿")
	ErrNotOwner                   = errors.New("无权操作该资源")
	ErrIdGenerationExhausted      = errors.New("ID生成重试次数耗尽")
	ErrStoreUnavailable           = errors.New("存储不可用")
	ErrContentStoreFailure        = errors.New("内容存储写入失败")
	ErrInconsistentReconciliation = errors.New("对账状态与已记录的终态冲突")
)

// ValidationError 输入校验错误
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError 创建校验错误
func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// DuplicateSubmissionError 重复投稿错误，携带已存在的投稿ID供调用方恢复
type DuplicateSubmissionError struct {
	ExistingId string
}

func (e *DuplicateSubmissionError) Error() string {
	return fmt.Sprintf("该项目已存在此编剧的投稿: %s", e.ExistingId)
}
