package logic

import (
	"context"
	"errors"
	"testing"

	"github.com/inkstone/scs/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProjectAnchorsOnChain(t *testing.T) {
	db := testDB(t)
	fc := &fakeChain{}
	p := NewProjectLogic(db, available(fc))

	project, outcome, err := p.CreateProject(context.Background(), "producer-1", &CreateProjectInput{
		Title:       "Neon City",
		Description: "赛博朋克题材剧本征集",
		Budget:      50000,
	})
	require.NoError(t, err)
	require.NotNil(t, project)
	assert.NotEmpty(t, project.Id)
	assert.Equal(t, "producer-1", project.OwnerId)

	// 锚定成功：pending 状态 + 流水记录
	assert.True(t, outcome.Success)
	assert.Equal(t, model.ChainStatusPending, outcome.Status)
	assert.NotEmpty(t, outcome.TxHash)

	var stored model.ProjectModel
	require.NoError(t, db.First(&stored, "id = ?", project.Id).Error)
	assert.Equal(t, model.ChainStatusPending, stored.ChainStatus)
	assert.Equal(t, outcome.TxHash, stored.ChainTxHash)
	assert.NotEmpty(t, stored.ChainHash)

	records := subjectTransactions(t, db, project.Id)
	require.Len(t, records, 1)
	assert.Equal(t, model.TransactionKindProjectRegistration, records[0].Kind)
	assert.Equal(t, model.TransactionStatusPending, records[0].Status)
	assert.Equal(t, outcome.TxHash, records[0].TxHash)
}

func TestCreateProjectAnchorFailure(t *testing.T) {
	db := testDB(t)
	fc := &fakeChain{anchorErr: errors.New("execution reverted")}
	p := NewProjectLogic(db, available(fc))

	// 锚定失败不影响本地创建
	project, outcome, err := p.CreateProject(context.Background(), "producer-1", &CreateProjectInput{
		Title:       "Neon City",
		Description: "赛博朋克题材剧本征集",
	})
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, model.ChainStatusFailed, outcome.Status)
	assert.Contains(t, outcome.Error, "execution reverted")

	var stored model.ProjectModel
	require.NoError(t, db.First(&stored, "id = ?", project.Id).Error)
	assert.Equal(t, model.ChainStatusFailed, stored.ChainStatus)

	records := subjectTransactions(t, db, project.Id)
	require.Len(t, records, 1)
	assert.Equal(t, model.TransactionStatusFailed, records[0].Status)
	assert.Equal(t, "execution reverted", records[0].Metadata["error"])
}

func TestCreateProjectChainUnavailable(t *testing.T) {
	db := testDB(t)
	p := NewProjectLogic(db, unavailable())

	// 客户端初始化失败：本地成功，状态 skipped
	project, outcome, err := p.CreateProject(context.Background(), "producer-1", &CreateProjectInput{
		Title:       "Neon City",
		Description: "赛博朋克题材剧本征集",
	})
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, model.ChainStatusSkipped, outcome.Status)
	assert.Equal(t, "anchor unavailable", outcome.Error)

	var stored model.ProjectModel
	require.NoError(t, db.First(&stored, "id = ?", project.Id).Error)
	assert.Equal(t, model.ChainStatusSkipped, stored.ChainStatus)

	records := subjectTransactions(t, db, project.Id)
	require.Len(t, records, 1)
	assert.Equal(t, model.TransactionStatusFailed, records[0].Status)
	assert.Equal(t, "anchor unavailable", records[0].Metadata["error"])
}

func TestCreateProjectValidation(t *testing.T) {
	db := testDB(t)
	p := NewProjectLogic(db, available(&fakeChain{}))

	cases := []struct {
		name  string
		input *CreateProjectInput
	}{
		{"标题为空", &CreateProjectInput{Description: "描述"}},
		{"描述为空", &CreateProjectInput{Title: "标题"}},
		{"预算为负", &CreateProjectInput{Title: "标题", Description: "描述", Budget: -1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := p.CreateProject(context.Background(), "producer-1", tc.input)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)
		})
	}

	// 校验失败不产生任何记录
	var count int64
	require.NoError(t, db.Model(&model.ProjectModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAnchorProjectRetry(t *testing.T) {
	db := testDB(t)
	p := NewProjectLogic(db, unavailable())

	project, outcome, err := p.CreateProject(context.Background(), "producer-1", &CreateProjectInput{
		Title:       "重试项目",
		Description: "描述",
	})
	require.NoError(t, err)
	require.Equal(t, model.ChainStatusSkipped, outcome.Status)

	// 链恢复后对同一ID重试，不会产生新的项目记录
	fc := &fakeChain{}
	p.chain = available(fc)

	retry, err := p.AnchorProject(context.Background(), "producer-1", project.Id)
	require.NoError(t, err)
	assert.True(t, retry.Success)
	assert.Equal(t, model.ChainStatusPending, retry.Status)

	var count int64
	require.NoError(t, db.Model(&model.ProjectModel{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// 两次尝试两条流水，旧记录不被改写
	records := subjectTransactions(t, db, project.Id)
	require.Len(t, records, 2)
	assert.Equal(t, model.TransactionStatusFailed, records[0].Status)
	assert.Equal(t, model.TransactionStatusPending, records[1].Status)
}

func TestAnchorProjectAlreadyPending(t *testing.T) {
	db := testDB(t)
	fc := &fakeChain{}
	p := NewProjectLogic(db, available(fc))

	project, _, err := p.CreateProject(context.Background(), "producer-1", &CreateProjectInput{
		Title:       "已锚定项目",
		Description: "描述",
	})
	require.NoError(t, err)

	_, err = p.AnchorProject(context.Background(), "producer-1", project.Id)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 1, fc.anchorN)
}

func TestAnchorProjectOwnership(t *testing.T) {
	db := testDB(t)
	p := NewProjectLogic(db, unavailable())

	project, _, err := p.CreateProject(context.Background(), "producer-1", &CreateProjectInput{
		Title:       "项目",
		Description: "描述",
	})
	require.NoError(t, err)

	_, err = p.AnchorProject(context.Background(), "producer-2", project.Id)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestUpdateProject(t *testing.T) {
	db := testDB(t)
	p := NewProjectLogic(db, unavailable())

	project, _, err := p.CreateProject(context.Background(), "producer-1", &CreateProjectInput{
		Title:       "原标题",
		Description: "描述",
	})
	require.NoError(t, err)

	err = p.UpdateProject(context.Background(), "producer-1", project.Id,
		map[string]interface{}{"title": "新标题"})
	require.NoError(t, err)

	updated, err := p.GetProject(context.Background(), project.Id)
	require.NoError(t, err)
	assert.Equal(t, "新标题", updated.Title)

	// 非业主不可修改
	err = p.UpdateProject(context.Background(), "producer-2", project.Id,
		map[string]interface{}{"title": "别人的标题"})
	assert.ErrorIs(t, err, ErrNotOwner)

	// 非 draft/open 状态不可修改
	require.NoError(t, db.Model(&model.ProjectModel{}).Where("id = ?", project.Id).
		Update("status", model.ProjectStatusCompleted).Error)
	err = p.UpdateProject(context.Background(), "producer-1", project.Id,
		map[string]interface{}{"title": "又一个标题"})
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestGetProjects(t *testing.T) {
	db := testDB(t)
	p := NewProjectLogic(db, unavailable())

	for i := 0; i < 3; i++ {
		mustCreateProject(t, db, "producer-1")
	}
	mustCreateProject(t, db, "producer-2")

	all, total, err := p.GetProjects(context.Background(), "", "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	assert.Len(t, all, 4)

	mine, total, err := p.GetProjects(context.Background(), "", "producer-1", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, mine, 3)

	_, err = p.GetProject(context.Background(), "prj_missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}
