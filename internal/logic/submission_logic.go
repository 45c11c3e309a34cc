package logic

import (
	"context"
	"errors"
	"fmt"

	"github.com/inkstone/scs/internal/identity"
	"github.com/inkstone/scs/internal/logger"
	"github.com/inkstone/scs/internal/model"
	"github.com/inkstone/scs/internal/oracle"
	"gorm.io/gorm"
)

// SubmissionLogic 投稿编排：内容存储 -> 本地记录 -> 评分 -> 铸造
type SubmissionLogic struct {
	db      *gorm.DB
	txLogic *TransactionLogic
	chain   ChainProvider
	store   ContentStore
	oracle  oracle.Client // 可为nil（评分服务未启用）
}

// NewSubmissionLogic 创建投稿业务逻辑
func NewSubmissionLogic(db *gorm.DB, chain ChainProvider, store ContentStore, scorer oracle.Client) *SubmissionLogic {
	return &SubmissionLogic{
		db:      db,
		txLogic: NewTransactionLogic(db),
		chain:   chain,
		store:   store,
		oracle:  scorer,
	}
}

// CreateSubmissionInput 创建投稿输入
type CreateSubmissionInput struct {
	ProjectId string
	Title     string
	Content   []byte
	Metadata  model.JSONMap
}

// MintOutcome 返回给调用方的铸造结果
type MintOutcome struct {
	Success bool   `json:"success"`
	TokenId string `json:"token_id,omitempty"`
	TxHash  string `json:"transaction_hash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CreateSubmission 创建投稿
// 前置检查全部通过后才发起外部调用，避免在注定失败的写入上浪费链和存储操作；
// (project_id, writer_id) 唯一索引是并发双重提交下的幂等保障
func (s *SubmissionLogic) CreateSubmission(ctx context.Context, writer *identity.User, input *CreateSubmissionInput) (*model.SubmissionModel, *MintOutcome, error) {
	if err := validateSubmissionInput(input); err != nil {
		return nil, nil, err
	}

	// 前置检查1：项目存在
	var project model.ProjectModel
	if err := s.db.WithContext(ctx).First(&project, "id = ?", input.ProjectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// 前置检查2：项目开放投稿
	if !project.AcceptsSubmissions() {
		return nil, nil, ErrProjectNotOpen
	}

	// 前置检查3：该编剧尚未投稿（快速本地读；真正的并发保障是唯一索引）
	if existingId, err := s.findExisting(ctx, input.ProjectId, writer.Id); err != nil {
		return nil, nil, err
	} else if existingId != "" {
		return nil, nil, &DuplicateSubmissionError{ExistingId: existingId}
	}

	// 内容先于记录写入：此时失败无需回滚任何东西
	contentRef, err := s.store.Store(ctx, input.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrContentStoreFailure, err)
	}

	submission := &model.SubmissionModel{
		ProjectId:  input.ProjectId,
		WriterId:   writer.Id,
		Title:      input.Title,
		ContentRef: contentRef,
		Metadata:   input.Metadata,
		Status:     model.SubmissionStatusPending,
	}

	if err := s.createWithRetry(ctx, submission); err != nil {
		return nil, nil, err
	}

	// 评分一次，尽力而为，失败不影响投稿
	s.scoreSubmission(ctx, submission, input.Content)

	outcome, err := s.mint(ctx, submission, writer)
	if err != nil {
		return nil, nil, err
	}

	return submission, outcome, nil
}

// createWithRetry 有界的ID生成重试
// 唯一键冲突有两种来源：主键碰撞（重新生成）或 (project, writer) 索引
// （并发竞争落败，读取胜者ID返回重复投稿）
func (s *SubmissionLogic) createWithRetry(ctx context.Context, submission *model.SubmissionModel) error {
	for attempt := 0; attempt < maxIdAttempts; attempt++ {
		submission.Id = generateId("sub")
		err := s.db.WithContext(ctx).Create(submission).Error
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existingId, findErr := s.findExisting(ctx, submission.ProjectId, submission.WriterId)
			if findErr != nil {
				return findErr
			}
			if existingId != "" && existingId != submission.Id {
				return &DuplicateSubmissionError{ExistingId: existingId}
			}
			logger.Warn("Submission id collision on %s, regenerating (attempt %d)", submission.Id, attempt+1)
			continue
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ErrIdGenerationExhausted
}

// findExisting 查找该编剧在项目下已有的投稿ID
func (s *SubmissionLogic) findExisting(ctx context.Context, projectId, writerId string) (string, error) {
	var existing model.SubmissionModel
	err := s.db.WithContext(ctx).
		Select("id").
		Where("project_id = ? AND writer_id = ?", projectId, writerId).
		First(&existing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return existing.Id, nil
}

// scoreSubmission 调用评分服务并落库，失败只记日志
func (s *SubmissionLogic) scoreSubmission(ctx context.Context, submission *model.SubmissionModel, content []byte) {
	if s.oracle == nil {
		return
	}

	score, err := s.oracle.Score(ctx, submission.Title, content)
	if err != nil {
		logger.Warn("Failed to score submission %s: %v", submission.Id, err)
		return
	}

	if err := s.db.WithContext(ctx).Model(submission).Update("score", score).Error; err != nil {
		logger.Error("Failed to persist score for submission %s: %v", submission.Id, err)
		return
	}
	submission.Score = &score
}

// MintSubmission 为已存储未铸造的投稿重试铸造
// 无需重新上传内容或重建投稿记录
func (s *SubmissionLogic) MintSubmission(ctx context.Context, writer *identity.User, submissionId string) (*MintOutcome, error) {
	submission, err := s.GetSubmission(ctx, submissionId)
	if err != nil {
		return nil, err
	}
	if submission.WriterId != writer.Id {
		return nil, ErrNotOwner
	}
	if submission.Minted() {
		return nil, NewValidationError("投稿 %s 已铸造通证", submissionId)
	}

	return s.mint(ctx, submission, writer)
}

// mint 执行铸造流程并记录流水
// 通证引用只在内容存储与铸造提交都成功后写入
func (s *SubmissionLogic) mint(ctx context.Context, submission *model.SubmissionModel, writer *identity.User) (*MintOutcome, error) {
	client, err := s.chain()
	if err != nil {
		logger.Warn("Chain client unavailable, submission %s stays unminted: %v", submission.Id, err)
		if _, recErr := s.txLogic.RecordAttempt(ctx, model.TransactionKindSubmissionMint,
			submission.Id, "", model.TransactionStatusFailed,
			model.JSONMap{"error": "anchor unavailable", "detail": err.Error()}); recErr != nil {
			return nil, recErr
		}
		return &MintOutcome{Success: false, Error: "anchor unavailable"}, nil
	}

	// 未绑定钱包的编剧由平台账户托管通证
	wallet := writer.WalletAddress
	if wallet == "" {
		wallet = client.GetAccountAddress().Hex()
	}

	metadata := model.JSONMap{
		"content_ref":  submission.ContentRef,
		"owner_wallet": wallet,
		"writer_id":    submission.WriterId,
	}

	result := client.Mint(ctx, wallet, submission.ContentRef, submission.Id)
	if !result.Success {
		metadata["error"] = result.Err.Error()
		if _, recErr := s.txLogic.RecordAttempt(ctx, model.TransactionKindSubmissionMint,
			submission.Id, "", model.TransactionStatusFailed, metadata); recErr != nil {
			return nil, recErr
		}
		logger.Error("Failed to mint submission %s: %v", submission.Id, result.Err)
		return &MintOutcome{Success: false, Error: result.Err.Error()}, nil
	}

	metadata["token_id"] = result.TokenId
	if _, recErr := s.txLogic.RecordAttempt(ctx, model.TransactionKindSubmissionMint,
		submission.Id, result.TxHash, model.TransactionStatusPending, metadata); recErr != nil {
		return nil, recErr
	}

	updates := map[string]interface{}{
		"token_id":      result.TokenId,
		"token_tx_hash": result.TxHash,
	}
	if err := s.db.WithContext(ctx).Model(submission).Updates(updates).Error; err != nil {
		// 流水已落库，链上操作不会丢失记录；对账任务最终会纠正状态
		logger.Error("Failed to update token ref for submission %s: %v", submission.Id, err)
	} else {
		submission.TokenId = result.TokenId
		submission.TokenTxHash = result.TxHash
	}

	logger.Info("Minted token %s for submission %s, tx: %s", result.TokenId, submission.Id, result.TxHash)
	return &MintOutcome{Success: true, TokenId: result.TokenId, TxHash: result.TxHash}, nil
}

// GetSubmission 获取投稿详情
func (s *SubmissionLogic) GetSubmission(ctx context.Context, id string) (*model.SubmissionModel, error) {
	var submission model.SubmissionModel
	if err := s.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &submission, nil
}

// GetSubmissionContent 读取投稿的剧本内容
// 仅投稿人和项目业主可读
func (s *SubmissionLogic) GetSubmissionContent(ctx context.Context, callerId, submissionId string) ([]byte, error) {
	submission, err := s.GetSubmission(ctx, submissionId)
	if err != nil {
		return nil, err
	}

	if submission.WriterId != callerId {
		var project model.ProjectModel
		if err := s.db.WithContext(ctx).First(&project, "id = ?", submission.ProjectId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrProjectNotFound
			}
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if project.OwnerId != callerId {
			return nil, ErrNotOwner
		}
	}

	content, err := s.store.Fetch(ctx, submission.ContentRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentStoreFailure, err)
	}
	return content, nil
}

// GetProjectSubmissions 获取项目下的投稿列表
func (s *SubmissionLogic) GetProjectSubmissions(ctx context.Context, projectId string, page, pageSize int) ([]model.SubmissionModel, int64, error) {
	query := s.db.WithContext(ctx).Model(&model.SubmissionModel{}).Where("project_id = ?", projectId)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var submissions []model.SubmissionModel
	err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&submissions).Error
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return submissions, total, nil
}

// ReviewSubmission 业主审阅投稿（采纳/拒绝）
func (s *SubmissionLogic) ReviewSubmission(ctx context.Context, callerId, submissionId string, accepted bool) error {
	submission, err := s.GetSubmission(ctx, submissionId)
	if err != nil {
		return err
	}

	var project model.ProjectModel
	if err := s.db.WithContext(ctx).First(&project, "id = ?", submission.ProjectId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if project.OwnerId != callerId {
		return ErrNotOwner
	}
	if submission.Status != model.SubmissionStatusPending {
		return NewValidationError("投稿状态为 %s, 不允许审阅", submission.Status)
	}

	status := model.SubmissionStatusRejected
	if accepted {
		status = model.SubmissionStatusAccepted
	}
	if err := s.db.WithContext(ctx).Model(submission).Update("status", status).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// validateSubmissionInput 验证投稿数据
func validateSubmissionInput(input *CreateSubmissionInput) error {
	if input.ProjectId == "" {
		return NewValidationError("项目ID不能为空")
	}
	if input.Title == "" {
		return NewValidationError("投稿标题不能为空")
	}
	if len(input.Content) == 0 {
		return NewValidationError("投稿内容不能为空")
	}
	return nil
}
