package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/inkstone/scs/internal/identity"
	"github.com/inkstone/scs/internal/logic"
	"github.com/inkstone/scs/internal/model"
	"gorm.io/gorm"
)

type ProjectHandler struct {
	projectLogic *logic.ProjectLogic
}

func NewProjectHandler(db *gorm.DB, chain logic.ChainProvider) *ProjectHandler {
	return &ProjectHandler{
		projectLogic: logic.NewProjectLogic(db, chain),
	}
}

// CreateProject 创建项目并登记上链
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	user := identity.CurrentUser(c)
	if user == nil {
		ErrorResponse(c, http.StatusUnauthorized, "未解析到调用方身份")
		return
	}

	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	input := &logic.CreateProjectInput{
		Title:        req.Title,
		Description:  req.Description,
		Budget:       req.Budget,
		Deadline:     req.Deadline,
		Requirements: req.Requirements,
		Metadata:     model.JSONMap(req.Metadata),
	}

	// 调用logic层创建项目
	project, outcome, err := h.projectLogic.CreateProject(c.Request.Context(), user.Id, input)
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateProjectResponse{
		Project:    project,
		Blockchain: outcome,
	})
}

// GetProjects 获取项目列表
func (h *ProjectHandler) GetProjects(c *gin.Context) {
	status := c.Query("status")
	owner := c.Query("owner")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	projects, total, err := h.projectLogic.GetProjects(c.Request.Context(), status, owner, page, pageSize)
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"projects":  projects,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

// GetProject 获取单个项目详情
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, err := h.projectLogic.GetProject(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"project": project})
}

// UpdateProject 更新项目
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	user := identity.CurrentUser(c)
	if user == nil {
		ErrorResponse(c, http.StatusUnauthorized, "未解析到调用方身份")
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	// 只允许更新特定字段
	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Budget != nil {
		updates["budget"] = *req.Budget
	}
	if req.Requirements != nil {
		updates["requirements"] = *req.Requirements
	}

	if len(updates) == 0 {
		ErrorResponse(c, http.StatusBadRequest, "没有要更新的字段")
		return
	}

	if err := h.projectLogic.UpdateProject(c.Request.Context(), user.Id, c.Param("id"), updates); err != nil {
		HandleLogicError(c, err)
		return
	}

	SuccessResponse(c, http.StatusOK, "项目更新成功", nil)
}

// AnchorProject 为已有项目重试上链登记
func (h *ProjectHandler) AnchorProject(c *gin.Context) {
	user := identity.CurrentUser(c)
	if user == nil {
		ErrorResponse(c, http.StatusUnauthorized, "未解析到调用方身份")
		return
	}

	outcome, err := h.projectLogic.AnchorProject(c.Request.Context(), user.Id, c.Param("id"))
	if err != nil {
		HandleLogicError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"blockchain": outcome})
}
