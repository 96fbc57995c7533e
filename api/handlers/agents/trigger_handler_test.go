package agents_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	agentHandlers "backend/api/handlers/agents"
	"backend/internal/agent"
	"backend/internal/ai"
	"backend/internal/board"
	"backend/internal/pipeline"
	"backend/internal/trigger"
)

// fakeModel 固定输出的模型客户端
type fakeModel struct {
	content string
}

func (m *fakeModel) ChatCompletion(ctx context.Context, req *ai.ChatCompletionRequest) (*ai.ChatCompletionResponse, error) {
	return &ai.ChatCompletionResponse{Model: "fake", Content: m.content}, nil
}

type fakeProvider struct {
	client ai.ModelClient
}

func (p fakeProvider) GetClient(ctx context.Context, modelID string) (ai.ModelClient, error) {
	return p.client, nil
}

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	boards *board.Service
	agents *agent.Service
}

func setupEnv(t *testing.T, modelOutput string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&board.Board{}, &board.Task{},
		&agent.Agent{}, &agent.TriggerExecution{}, &agent.AgentExecution{}, &agent.UIEvent{},
	))

	boards := board.NewService(db)
	agents := agent.NewService(db)
	resolver := trigger.NewResolver(boards, 0)
	matcher := trigger.NewMatcher(resolver)
	claimer := trigger.NewClaimer(nil, 0)
	dispatcher := pipeline.NewDispatcher(boards, agents)
	executor := pipeline.NewExecutor(agents, fakeProvider{client: &fakeModel{content: modelOutput}}, dispatcher, time.Minute)
	scanner := trigger.NewScanner(agents, matcher, resolver, claimer, executor, time.Minute)

	router := gin.New()
	triggerHandler := agentHandlers.NewTriggerHandler(scanner, boards)
	executeHandler := agentHandlers.NewExecuteHandler(agents, resolver, executor)
	router.POST("/api/v1/agents/trigger-check", triggerHandler.TriggerCheck)
	router.POST("/api/v1/agents/execute", executeHandler.Execute)

	return &testEnv{router: router, db: db, boards: boards, agents: agents}
}

func (e *testEnv) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

// summarizer 标题变更时总结任务内容并写回 pitch 列的智能体
func seedSummarizer(t *testing.T, env *testEnv) *agent.Agent {
	t.Helper()
	a := &agent.Agent{
		Name:  "标题总结",
		Model: "gpt-4o-mini",
		Modules: []agent.Module{
			{ID: "m-trigger", Type: agent.ModuleTypeTrigger, Config: mustRaw(t, agent.TriggerConfig{
				Enabled:  true,
				Strategy: agent.StrategyAllMatch,
				InputTriggers: []agent.InputTrigger{{
					InputID: "task_title",
					Conditions: []agent.TriggerCondition{
						{Type: agent.ConditionTypeTrigger, TriggerType: agent.TriggerOnUpdate},
						{Type: agent.ConditionTypeFilter, Operator: agent.OperatorChanged},
					},
					ConditionLogic: "0 AND 1",
				}},
			})},
			{ID: "m-prompt", Type: agent.ModuleTypePrompt, Config: mustRaw(t, agent.PromptModuleConfig{
				Template: "为任务 {{task_title}} 生成一句话摘要",
			})},
			{ID: "m-model", Type: agent.ModuleTypeModel, Config: mustRaw(t, agent.ModelModuleConfig{})},
			{ID: "m-extract", Type: agent.ModuleTypeJSONExtractor, Config: mustRaw(t, agent.JSONExtractorModuleConfig{
				Variables: []agent.ExtractVariable{{Name: "summary", Path: "$.summary"}},
			})},
			{ID: "m-router", Type: agent.ModuleTypeRouter, Config: mustRaw(t, agent.RouterModuleConfig{
				Strategy: agent.RouterBasedOnInput,
				Rules:    []agent.RouterRule{{SourceVariableID: agent.StringList{"summary"}, DestinationID: "d-pitch"}},
			})},
			{ID: "m-dest", Type: agent.ModuleTypeDestinations, Config: mustRaw(t, agent.DestinationsModuleConfig{
				Destinations: []agent.Destination{
					{ID: "d-pitch", Type: agent.DestinationDatabase, TargetTable: "tasks", TargetColumn: "pitch"},
				},
			})},
		},
		Enabled: true,
	}
	require.NoError(t, env.agents.Create(context.Background(), a))
	return a
}

func TestTriggerCheckMalformedBody(t *testing.T) {
	env := setupEnv(t, "{}")

	w := env.post(t, "/api/v1/agents/trigger-check", `{"triggerType": `)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestTriggerCheckMissingTriggerType(t *testing.T) {
	env := setupEnv(t, "{}")

	w := env.post(t, "/api/v1/agents/trigger-check", map[string]any{
		"sourceEntity": map[string]any{"type": "tasks"},
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestTriggerCheckTitleChangeScenario(t *testing.T) {
	env := setupEnv(t, `{"summary": "一句话摘要"}`)
	ctx := context.Background()

	seedSummarizer(t, env)
	task := &board.Task{Title: "新标题"}
	require.NoError(t, env.boards.CreateTask(ctx, task))

	w := env.post(t, "/api/v1/agents/trigger-check", map[string]any{
		"triggerType":   agent.TriggerOnUpdate,
		"sourceEntity":  map[string]any{"type": "tasks", "id": task.ID},
		"changedFields": []string{"title"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success        bool                  `json:"success"`
		CheckedAgents  int                   `json:"checkedAgents"`
		ExecutedAgents int                   `json:"executedAgents"`
		Results        []trigger.AgentResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.CheckedAgents)
	assert.Equal(t, 1, resp.ExecutedAgents)
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].Matched)
	assert.True(t, resp.Results[0].Executed)

	// 流水线落地：pitch 列已写入摘要
	updated, err := env.boards.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "一句话摘要", updated.Pitch)
}

func TestTriggerCheckUnmatchedStillOK(t *testing.T) {
	env := setupEnv(t, `{}`)
	ctx := context.Background()

	seedSummarizer(t, env)
	task := &board.Task{Title: "标题"}
	require.NoError(t, env.boards.CreateTask(ctx, task))

	// 状态变更不满足"标题变更"条件，仍返回 200
	w := env.post(t, "/api/v1/agents/trigger-check", map[string]any{
		"triggerType":   agent.TriggerOnUpdate,
		"sourceEntity":  map[string]any{"type": "tasks", "id": task.ID},
		"changedFields": []string{"status"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ExecutedAgents int `json:"executedAgents"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.ExecutedAgents)
}

func TestTriggerCheckScopedToAgent(t *testing.T) {
	env := setupEnv(t, `{"summary": "定向结果"}`)
	ctx := context.Background()

	target := seedSummarizer(t, env)
	other := seedSummarizer(t, env)
	task := &board.Task{Title: "标题"}
	require.NoError(t, env.boards.CreateTask(ctx, task))

	// 指定 agentId 时只检查该智能体
	w := env.post(t, "/api/v1/agents/trigger-check", map[string]any{
		"triggerType":   agent.TriggerOnUpdate,
		"sourceEntity":  map[string]any{"type": "tasks", "id": task.ID},
		"changedFields": []string{"title"},
		"agentId":       target.ID,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		CheckedAgents int                   `json:"checkedAgents"`
		Results       []trigger.AgentResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.CheckedAgents)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, target.ID, resp.Results[0].AgentID)
	assert.NotEqual(t, other.ID, resp.Results[0].AgentID)
}

func TestExecuteOnDemand(t *testing.T) {
	env := setupEnv(t, `{"summary": "手动结果"}`)
	ctx := context.Background()

	a := seedSummarizer(t, env)
	// 手动执行绕过启用开关
	a.Enabled = false
	require.NoError(t, env.agents.Update(ctx, a))

	w := env.post(t, "/api/v1/agents/execute", map[string]any{
		"agentId": a.ID,
		"input":   map[string]any{"task_title": "临时任务"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success            bool                            `json:"success"`
		Output             string                          `json:"output"`
		ExtractedVariables map[string]any                  `json:"extracted_variables"`
		ModulesChain       []agent.ModuleExecutionLogEntry `json:"modules_chain"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "手动结果", resp.ExtractedVariables["summary"])
	assert.NotEmpty(t, resp.ModulesChain)
}

func TestExecuteAdHocBundle(t *testing.T) {
	env := setupEnv(t, `{"summary": "临时结果"}`)

	// 不指定 agentId，直接给出模型与提示词
	w := env.post(t, "/api/v1/agents/execute", map[string]any{
		"model":  "gpt-4o-mini",
		"prompt": "总结：{{topic}}",
		"input":  map[string]any{"topic": "看板"},
		"modules": []map[string]any{
			{"id": "m-extract", "type": "json_extractor", "config": map[string]any{
				"variables": []map[string]any{{"name": "summary", "path": "$.summary"}},
			}},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success            bool           `json:"success"`
		Output             string         `json:"output"`
		ExtractedVariables map[string]any `json:"extracted_variables"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "临时结果", resp.ExtractedVariables["summary"])
}

func TestExecuteMissingParams(t *testing.T) {
	env := setupEnv(t, `{}`)

	// 既没有 agentId 也没有临时执行参数
	w := env.post(t, "/api/v1/agents/execute", map[string]any{
		"input": map[string]any{"k": "v"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExecuteUnknownAgent(t *testing.T) {
	env := setupEnv(t, `{}`)

	w := env.post(t, "/api/v1/agents/execute", map[string]any{"agentId": "missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}
