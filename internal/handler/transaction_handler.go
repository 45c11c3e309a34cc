package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/inkstone/scs/internal/logic"
	"gorm.io/gorm"
)

// TransactionHandler 流水查询（内部审计接口，不对外公开）
type TransactionHandler struct {
	txLogic *logic.TransactionLogic
}

func NewTransactionHandler(db *gorm.DB) *TransactionHandler {
	return &TransactionHandler{
		txLogic: logic.NewTransactionLogic(db),
	}
}

// GetBySubject 按主体ID查询流水
func (h *TransactionHandler) GetBySubject(c *gin.Context) {
	subjectId := c.Query("subject_id")
	if subjectId == "" {
		ErrorResponse(c, http.StatusBadRequest, "subject_id 不能为空")
		return
	}

	records, err := h.txLogic.GetBySubject(c.Request.Context(), subjectId)
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": records,
		"total":        len(records),
	})
}
