package logic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/inkstone/scs/internal/logger"
	"github.com/inkstone/scs/internal/model"
	"gorm.io/gorm"
)

// ProjectLogic 项目登记编排
type ProjectLogic struct {
	db      *gorm.DB
	txLogic *TransactionLogic
	chain   ChainProvider
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(db *gorm.DB, chain ChainProvider) *ProjectLogic {
	return &ProjectLogic{
		db:      db,
		txLogic: NewTransactionLogic(db),
		chain:   chain,
	}
}

// CreateProjectInput 创建项目输入
type CreateProjectInput struct {
	Title        string
	Description  string
	Budget       int64
	Deadline     *time.Time
	Requirements string
	Metadata     model.JSONMap
}

// AnchorOutcome 返回给调用方的锚定结果
// 锚定失败不等于请求失败：本地记录是权威记录，链只是补充性完整性锚
type AnchorOutcome struct {
	Success bool              `json:"success"`
	TxHash  string            `json:"transaction_hash,omitempty"`
	Status  model.ChainStatus `json:"status"`
	Error   string            `json:"error,omitempty"`
}

// CreateProject 创建项目并尝试上链登记
// 本地持久化先于任何外部调用；锚定失败绝不回滚本地记录
func (p *ProjectLogic) CreateProject(ctx context.Context, ownerId string, input *CreateProjectInput) (*model.ProjectModel, *AnchorOutcome, error) {
	if err := validateProjectInput(input); err != nil {
		return nil, nil, err
	}

	project := &model.ProjectModel{
		Title:        input.Title,
		Description:  input.Description,
		Budget:       input.Budget,
		Deadline:     input.Deadline,
		Requirements: input.Requirements,
		Metadata:     input.Metadata,
		OwnerId:      ownerId,
		Status:       model.ProjectStatusOpen,
		ChainStatus:  model.ChainStatusNotAttempted,
	}

	if err := p.createWithRetry(ctx, project); err != nil {
		return nil, nil, err
	}

	outcome, err := p.anchor(ctx, project)
	if err != nil {
		return nil, nil, err
	}

	return project, outcome, nil
}

// createWithRetry 有界的ID生成重试：主键冲突时重新生成，耗尽后失败
func (p *ProjectLogic) createWithRetry(ctx context.Context, project *model.ProjectModel) error {
	for attempt := 0; attempt < maxIdAttempts; attempt++ {
		project.Id = generateId("prj")
		err := p.db.WithContext(ctx).Create(project).Error
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.Warn("Project id collision on %s, regenerating (attempt %d)", project.Id, attempt+1)
			continue
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ErrIdGenerationExhausted
}

// AnchorProject 为已有项目重试上链登记
// 仅允许从 not_attempted/failed/skipped 发起，不会产生重复的权威记录
func (p *ProjectLogic) AnchorProject(ctx context.Context, callerId, projectId string) (*AnchorOutcome, error) {
	project, err := p.GetProject(ctx, projectId)
	if err != nil {
		return nil, err
	}
	if project.OwnerId != callerId {
		return nil, ErrNotOwner
	}

	switch project.ChainStatus {
	case model.ChainStatusNotAttempted, model.ChainStatusFailed, model.ChainStatusSkipped:
		// 可以重试
	default:
		return nil, NewValidationError("项目锚定状态为 %s, 无需重试", project.ChainStatus)
	}

	return p.anchor(ctx, project)
}

// anchor 执行锚定流程并记录流水
// 状态机: not_attempted -> pending -> confirmed|failed; 客户端不可用 -> skipped
func (p *ProjectLogic) anchor(ctx context.Context, project *model.ProjectModel) (*AnchorOutcome, error) {
	client, err := p.chain()
	if err != nil {
		// 客户端初始化失败：本地成功不被外部不可用挟持
		logger.Warn("Chain client unavailable, skipping anchor for project %s: %v", project.Id, err)
		if _, recErr := p.txLogic.RecordAttempt(ctx, model.TransactionKindProjectRegistration,
			project.Id, "", model.TransactionStatusFailed,
			model.JSONMap{"error": "anchor unavailable", "detail": err.Error()}); recErr != nil {
			return nil, recErr
		}
		p.setChainState(ctx, project, model.ChainStatusSkipped, "", "")
		return &AnchorOutcome{Success: false, Status: model.ChainStatusSkipped, Error: "anchor unavailable"}, nil
	}

	payloadHash := crypto.Keccak256Hash(
		[]byte(project.Id),
		[]byte(project.Title),
		[]byte(project.Description),
	)
	metadata := model.JSONMap{
		"title":        project.Title,
		"owner_id":     project.OwnerId,
		"payload_hash": payloadHash.Hex(),
	}

	result := client.Anchor(ctx, project.Id, payloadHash)
	if !result.Success {
		metadata["error"] = result.Err.Error()
		if _, recErr := p.txLogic.RecordAttempt(ctx, model.TransactionKindProjectRegistration,
			project.Id, "", model.TransactionStatusFailed, metadata); recErr != nil {
			return nil, recErr
		}
		p.setChainState(ctx, project, model.ChainStatusFailed, payloadHash.Hex(), "")
		logger.Error("Failed to anchor project %s: %v", project.Id, result.Err)
		return &AnchorOutcome{Success: false, Status: model.ChainStatusFailed, Error: result.Err.Error()}, nil
	}

	if _, recErr := p.txLogic.RecordAttempt(ctx, model.TransactionKindProjectRegistration,
		project.Id, result.TxHash, model.TransactionStatusPending, metadata); recErr != nil {
		return nil, recErr
	}
	p.setChainState(ctx, project, model.ChainStatusPending, payloadHash.Hex(), result.TxHash)
	logger.Info("Anchored project %s, tx: %s", project.Id, result.TxHash)

	return &AnchorOutcome{Success: true, TxHash: result.TxHash, Status: model.ChainStatusPending}, nil
}

// setChainState 更新项目锚定状态
// 流水已先行落库，这里失败只记日志，不回滚已发生的链上操作
func (p *ProjectLogic) setChainState(ctx context.Context, project *model.ProjectModel,
	status model.ChainStatus, hash, txHash string) {

	updates := map[string]interface{}{"chain_status": status}
	if hash != "" {
		updates["chain_hash"] = hash
	}
	if txHash != "" {
		updates["chain_tx_hash"] = txHash
	}

	if err := p.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
		logger.Error("Failed to update chain state for project %s: %v", project.Id, err)
		return
	}
	project.ChainStatus = status
	if hash != "" {
		project.ChainHash = hash
	}
	if txHash != "" {
		project.ChainTxHash = txHash
	}
}

// GetProject 获取项目详情
func (p *ProjectLogic) GetProject(ctx context.Context, id string) (*model.ProjectModel, error) {
	var project model.ProjectModel
	if err := p.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &project, nil
}

// GetProjects 获取项目列表
func (p *ProjectLogic) GetProjects(ctx context.Context, status, ownerId string, page, pageSize int) ([]model.ProjectModel, int64, error) {
	query := p.db.WithContext(ctx).Model(&model.ProjectModel{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if ownerId != "" {
		query = query.Where("owner_id = ?", ownerId)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	var projects []model.ProjectModel
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&projects).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return projects, total, nil
}

// UpdateProject 更新项目业务字段（仅业主，仅 draft/open 状态）
func (p *ProjectLogic) UpdateProject(ctx context.Context, callerId, id string, updates map[string]interface{}) error {
	project, err := p.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if project.OwnerId != callerId {
		return ErrNotOwner
	}
	if !project.Editable() {
		return NewValidationError("项目状态为 %s, 不允许修改", project.Status)
	}

	if err := p.db.WithContext(ctx).Model(project).Updates(updates).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// validateProjectInput 验证项目数据
func validateProjectInput(input *CreateProjectInput) error {
	if input.Title == "" {
		return NewValidationError("项目标题不能为空")
	}
	if input.Description == "" {
		return NewValidationError("项目描述不能为空")
	}
	if input.Budget < 0 {
		return NewValidationError("预算不能为负数")
	}
	if input.Deadline != nil && input.Deadline.Before(time.Now()) {
		return NewValidationError("截止时间不能早于当前时间")
	}
	return nil
}
