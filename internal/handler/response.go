package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkstone/scs/internal/logic"
)

// Response 通用响应结构
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// SuccessResponse 成功响应
func SuccessResponse(c *gin.Context, statusCode int, message string, data interface{}) {
	c.JSON(statusCode, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse 错误响应
func ErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, Response{
		Success: false,
		Message: message,
		Data:    nil,
	})
}

// HandleLogicError 将logic层错误映射为HTTP状态码
func HandleLogicError(c *gin.Context, err error) {
	var validationErr *logic.ValidationError
	var duplicateErr *logic.DuplicateSubmissionError

	switch {
	case errors.As(err, &duplicateErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":                  duplicateErr.Error(),
			"code":                   "DuplicateSubmission",
			"existing_submission_id": duplicateErr.ExistingId,
		})
	case errors.As(err, &validationErr):
		ErrorResponse(c, http.StatusBadRequest, validationErr.Message)
	case errors.Is(err, logic.ErrProjectNotFound),
		errors.Is(err, logic.ErrSubmissionNotFound),
		errors.Is(err, logic.ErrTransactionNotFound),
		errors.Is(err, logic.ErrNotOwner):
		// 无权访问的资源表现为不存在
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, logic.ErrProjectNotOpen):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, logic.ErrIdGenerationExhausted),
		errors.Is(err, logic.ErrInconsistentReconciliation):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, logic.ErrContentStoreFailure):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
			"code":  "ContentStoreFailure",
		})
	default:
		ErrorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
