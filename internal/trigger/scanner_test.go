package trigger_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/agent"
	"backend/internal/board"
	"backend/internal/trigger"
)

// fakeRunner 可注入行为的流水线替身
type fakeRunner struct {
	calls   []string
	outputs map[string]string
	errs    map[string]error
	panics  map[string]bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: map[string]string{},
		errs:    map[string]error{},
		panics:  map[string]bool{},
	}
}

func (r *fakeRunner) Run(ctx context.Context, a *agent.Agent, inputs map[string]any, ev *trigger.Event) (string, error) {
	r.calls = append(r.calls, a.ID)
	if r.panics[a.ID] {
		panic("runner exploded")
	}
	if err := r.errs[a.ID]; err != nil {
		return "", err
	}
	return r.outputs[a.ID], nil
}

func onCreateTriggerModules(t *testing.T, correctRef, notCorrectRef string) []agent.Module {
	t.Helper()
	cfg := agent.TriggerConfig{
		Enabled:  true,
		Strategy: agent.StrategyAllMatch,
		InputTriggers: []agent.InputTrigger{{
			InputID: "task_title",
			Conditions: []agent.TriggerCondition{
				{Type: agent.ConditionTypeTrigger, TriggerType: agent.TriggerOnCreate},
			},
		}},
		CorrectModuleID:    correctRef,
		NotCorrectModuleID: notCorrectRef,
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	return []agent.Module{{ID: "m-trigger", Type: agent.ModuleTypeTrigger, Config: raw}}
}

func seedAgent(t *testing.T, svc *agent.Service, name string, modules []agent.Module) *agent.Agent {
	t.Helper()
	a := &agent.Agent{Name: name, Model: "gpt-4o-mini", Modules: modules, Enabled: true}
	require.NoError(t, svc.Create(context.Background(), a))
	return a
}

func newScanner(db *gorm.DB, runner trigger.Runner, rdb redis.UniversalClient) (*trigger.Scanner, *agent.Service) {
	boards := board.NewService(db)
	agents := agent.NewService(db)
	resolver := trigger.NewResolver(boards, 0)
	matcher := trigger.NewMatcher(resolver)
	claimer := trigger.NewClaimer(rdb, time.Minute)
	scanner := trigger.NewScanner(agents, matcher, resolver, claimer, runner, time.Minute)
	return scanner, agents
}

func TestScannerIsolatesFailures(t *testing.T) {
	db := setupTestDB(t)
	runner := newFakeRunner()
	scanner, agents := newScanner(db, runner, nil)
	ctx := context.Background()

	good := seedAgent(t, agents, "正常", onCreateTriggerModules(t, "", ""))
	bad := seedAgent(t, agents, "报错", onCreateTriggerModules(t, "", ""))
	crash := seedAgent(t, agents, "崩溃", onCreateTriggerModules(t, "", ""))

	runner.outputs[good.ID] = "done"
	runner.errs[bad.ID] = fmt.Errorf("模型超时")
	runner.panics[crash.ID] = true

	result, err := scanner.Scan(ctx, taskEvent(agent.TriggerOnCreate, map[string]any{"title": "t"}))
	require.NoError(t, err)

	assert.Equal(t, 3, result.CheckedAgents)
	assert.Equal(t, 1, result.ExecutedAgents)
	assert.Len(t, result.Results, 3)

	byID := map[string]trigger.AgentResult{}
	for _, r := range result.Results {
		byID[r.AgentID] = r
	}
	assert.True(t, byID[good.ID].Executed)
	assert.Equal(t, "done", byID[good.ID].Output)
	assert.False(t, byID[bad.ID].Executed)
	assert.Contains(t, byID[bad.ID].Error, "模型超时")
	assert.Contains(t, byID[crash.ID].Error, "内部错误")
}

func TestScannerBranchRefs(t *testing.T) {
	db := setupTestDB(t)
	runner := newFakeRunner()
	scanner, agents := newScanner(db, runner, nil)
	ctx := context.Background()

	t.Run("命中且满足分支为 stop 时不执行", func(t *testing.T) {
		a := seedAgent(t, agents, "stop分支", onCreateTriggerModules(t, agent.StopModuleRef, ""))
		result, err := scanner.Scan(ctx, taskEvent(agent.TriggerOnCreate, map[string]any{"title": "t"}))
		require.NoError(t, err)
		for _, r := range result.Results {
			if r.AgentID == a.ID {
				assert.True(t, r.Matched)
				assert.False(t, r.Executed)
			}
		}
		require.NoError(t, agents.Delete(ctx, a.ID))
	})

	t.Run("未命中但不满足分支指向模块时仍执行", func(t *testing.T) {
		modules := onCreateTriggerModules(t, "", "m-prompt")
		a := seedAgent(t, agents, "否定分支", modules)
		runner.outputs[a.ID] = "fallback"

		// on_update 事件不满足 on_create 条件
		result, err := scanner.Scan(ctx, taskEvent(agent.TriggerOnUpdate, map[string]any{"title": "t"}, "title"))
		require.NoError(t, err)

		found := false
		for _, r := range result.Results {
			if r.AgentID == a.ID {
				found = true
				assert.False(t, r.Matched)
				assert.True(t, r.Executed)
			}
		}
		assert.True(t, found)
	})
}

func TestScannerSkipsDisabled(t *testing.T) {
	db := setupTestDB(t)
	runner := newFakeRunner()
	scanner, agents := newScanner(db, runner, nil)
	ctx := context.Background()

	a := seedAgent(t, agents, "停用", onCreateTriggerModules(t, "", ""))
	a.Enabled = false
	require.NoError(t, agents.Update(ctx, a))

	result, err := scanner.Scan(ctx, taskEvent(agent.TriggerOnCreate, map[string]any{"title": "t"}))
	require.NoError(t, err)
	assert.Equal(t, 0, result.CheckedAgents)
	assert.Empty(t, result.Results)
	assert.Empty(t, runner.calls)
}

func TestScanAgentOnDemandBypassesDisabled(t *testing.T) {
	db := setupTestDB(t)
	runner := newFakeRunner()
	scanner, agents := newScanner(db, runner, nil)
	ctx := context.Background()

	cfg := agent.TriggerConfig{
		Enabled: true,
		InputTriggers: []agent.InputTrigger{{
			InputID: "none",
			Conditions: []agent.TriggerCondition{
				{Type: agent.ConditionTypeTrigger, TriggerType: agent.TriggerOnDemand},
			},
		}},
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	a := seedAgent(t, agents, "手动", []agent.Module{{ID: "m-trigger", Type: agent.ModuleTypeTrigger, Config: raw}})
	a.Enabled = false
	require.NoError(t, agents.Update(ctx, a))
	runner.outputs[a.ID] = "manual"

	// 指定智能体的手动运行不受启用开关限制
	result, err := scanner.ScanAgent(ctx, trigger.NewEntityEvent(agent.TriggerOnDemand, "", "", nil), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CheckedAgents)
	assert.Equal(t, 1, result.ExecutedAgents)
	assert.Len(t, runner.calls, 1)

	// 其他事件类型仍然跳过停用智能体
	other, err := scanner.ScanAgent(ctx, taskEvent(agent.TriggerOnCreate, map[string]any{"title": "t"}), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, other.CheckedAgents)
	assert.Empty(t, other.Results)
}

func TestScannerClaimAtMostOnce(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	db := setupTestDB(t)
	runner := newFakeRunner()
	scanner, agents := newScanner(db, runner, rdb)
	ctx := context.Background()

	a := seedAgent(t, agents, "去重", onCreateTriggerModules(t, "", ""))
	runner.outputs[a.ID] = "ok"

	ev := taskEvent(agent.TriggerOnCreate, map[string]any{"title": "t"})

	first, err := scanner.Scan(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ExecutedAgents)

	// 同一事件重复投递：扫描键一致，声明失败，不再执行
	second, err := scanner.Scan(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ExecutedAgents)
	assert.Len(t, runner.calls, 1)
}

func TestScannerScheduledBackpressure(t *testing.T) {
	db := setupTestDB(t)
	runner := newFakeRunner()
	scanner, agents := newScanner(db, runner, nil)
	ctx := context.Background()

	cfg := agent.TriggerConfig{
		Enabled: true,
		InputTriggers: []agent.InputTrigger{{
			InputID: "none",
			Conditions: []agent.TriggerCondition{
				{Type: agent.ConditionTypeTrigger, TriggerType: agent.TriggerScheduled},
			},
		}},
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)

	a := seedAgent(t, agents, "定时", []agent.Module{{ID: "m-trigger", Type: agent.ModuleTypeTrigger, Config: raw}})
	a.IntervalMinutes = 30
	require.NoError(t, agents.Update(ctx, a))

	// 刚触发过：静默跳过，连结果行都没有
	require.NoError(t, agents.TouchLastTriggerExecution(ctx, a.ID, time.Now().UTC().Add(-5*time.Minute)))
	result, err := scanner.Scan(ctx, trigger.NewScheduledEvent(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, result.CheckedAgents)
	assert.Empty(t, result.Results)
	assert.Empty(t, runner.calls)

	// 间隔已过：正常触发
	require.NoError(t, agents.TouchLastTriggerExecution(ctx, a.ID, time.Now().UTC().Add(-2*time.Hour)))
	result, err = scanner.Scan(ctx, trigger.NewScheduledEvent(time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExecutedAgents)
	assert.Len(t, runner.calls, 1)
}

func TestScannerRecordsTriggerExecutions(t *testing.T) {
	db := setupTestDB(t)
	runner := newFakeRunner()
	scanner, agents := newScanner(db, runner, nil)
	ctx := context.Background()

	a := seedAgent(t, agents, "审计", onCreateTriggerModules(t, "", ""))
	runner.outputs[a.ID] = "ok"

	_, err := scanner.Scan(ctx, taskEvent(agent.TriggerOnCreate, map[string]any{"title": "t"}))
	require.NoError(t, err)

	var rows []agent.TriggerExecution
	require.NoError(t, db.Where("agent_id = ?", a.ID).Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Matched)
	assert.True(t, rows[0].Executed)
	assert.Equal(t, agent.TriggerOnCreate, rows[0].TriggerType)
}
