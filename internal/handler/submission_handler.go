package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inkstone/scs/internal/identity"
	"github.com/inkstone/scs/internal/logic"
	"github.com/inkstone/scs/internal/model"
	"github.com/inkstone/scs/internal/oracle"
	"gorm.io/gorm"
)

type SubmissionHandler struct {
	submissionLogic *logic.SubmissionLogic
}

func NewSubmissionHandler(db *gorm.DB, chain logic.ChainProvider, store logic.ContentStore, scorer oracle.Client) *SubmissionHandler {
	return &SubmissionHandler{
		submissionLogic: logic.NewSubmissionLogic(db, chain, store, scorer),
	}
}

// CreateSubmission 创建投稿：内容存储、落库、评分、铸造
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	user := identity.CurrentUser(c)
	if user == nil {
		ErrorResponse(c, http.StatusUnauthorized, "未解析到调用方身份")
		return
	}

	var req CreateSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	input := &logic.CreateSubmissionInput{
		ProjectId: req.ProjectId,
		Title:     req.Title,
		Content:   []byte(req.Content),
		Metadata:  model.JSONMap(req.Metadata),
	}

	submission, outcome, err := h.submissionLogic.CreateSubmission(c.Request.Context(), user, input)
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateSubmissionResponse{
		SubmissionId: submission.Id,
		ContentRef:   submission.ContentRef,
		TokenId:      submission.TokenId,
		TxHash:       submission.TokenTxHash,
		Mint:         outcome,
	})
}

// GetSubmission 获取投稿详情
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	submission, err := h.submissionLogic.GetSubmission(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"submission": submission})
}

// GetSubmissionContent 读取投稿的剧本内容
func (h *SubmissionHandler) GetSubmissionContent(c *gin.Context) {
	user := identity.CurrentUser(c)
	if user == nil {
		ErrorResponse(c, http.StatusUnauthorized, "未解析到调用方身份")
		return
	}

	content, err := h.submissionLogic.GetSubmissionContent(c.Request.Context(), user.Id, c.Param("id"))
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.Data(http.StatusOK, "text/plain; charset=utf-8", content)
}

// GetProjectSubmissions 获取项目下的投稿列表
func (h *SubmissionHandler) GetProjectSubmissions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	submissions, total, err := h.submissionLogic.GetProjectSubmissions(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submissions": submissions,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
	})
}

// MintSubmission 为已存储未铸造的投稿重试铸造
func (h *SubmissionHandler) MintSubmission(c *gin.Context) {
	user := identity.CurrentUser(c)
	if user == nil {
		ErrorResponse(c, http.StatusUnauthorized, "未解析到调用方身份")
		return
	}

	outcome, err := h.submissionLogic.MintSubmission(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mint": outcome})
}

// AcceptSubmission 采纳投稿
func (h *SubmissionHandler) AcceptSubmission(c *gin.Context) {
	h.review(c, true)
}

// RejectSubmission 拒绝投稿
func (h *SubmissionHandler) RejectSubmission(c *gin.Context) {
	h.review(c, false)
}

func (h *SubmissionHandler) review(c *gin.Context, accepted bool) {
	user := identity.CurrentUser(c)
	if user == nil {
		ErrorResponse(c, http.StatusUnauthorized, "未解析到调用方身份")
		return
	}

	if err := h.submissionLogic.ReviewSubmission(c.Request.Context(), user.Id, c.Param("id"), accepted); err != nil {
		HandleLogicError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "投稿审阅完成", nil)
}
