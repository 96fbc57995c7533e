package agent_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"backend/internal/agent"
)

func TestValidateModules(t *testing.T) {
	t.Run("合法模块链", func(t *testing.T) {
		modules := []agent.Module{
			{ID: "m1", Type: agent.ModuleTypeTrigger, Config: json.RawMessage(`{"enabled":true,"strategy":"all_match"}`)},
			{ID: "m2", Type: agent.ModuleTypePrompt, Config: json.RawMessage(`{"template":"总结: {{task_title}}"}`)},
			{ID: "m3", Type: agent.ModuleTypeModel, Config: json.RawMessage(`{"model":"gpt-4o-mini","temperature":0.3}`)},
			{ID: "m4", Type: agent.ModuleTypeJSONExtractor, Config: json.RawMessage(`{"variables":[{"name":"summary","path":"$.summary"}]}`)},
			{ID: "m5", Type: agent.ModuleTypeRouter, Config: json.RawMessage(`{"strategy":"based_on_input","rules":[{"sourceVariableId":"summary","destinationId":"d1"}]}`)},
			{ID: "m6", Type: agent.ModuleTypeDestinations, Config: json.RawMessage(`{"destinations":[{"id":"d1","type":"database","targetTable":"tasks","targetColumn":"pitch"}]}`)},
		}
		assert.NoError(t, agent.ValidateModules(modules))
	})

	t.Run("未知模块类型", func(t *testing.T) {
		err := agent.ValidateModules([]agent.Module{{ID: "m1", Type: "webhook"}})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "未知的模块类型")
	})

	t.Run("模块类型重复", func(t *testing.T) {
		err := agent.ValidateModules([]agent.Module{
			{ID: "m1", Type: agent.ModuleTypePrompt},
			{ID: "m2", Type: agent.ModuleTypePrompt},
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "重复")
	})

	t.Run("未知操作符被拒绝", func(t *testing.T) {
		modules := []agent.Module{
			{ID: "m1", Type: agent.ModuleTypeTrigger, Config: json.RawMessage(
				`{"inputTriggers":[{"inputId":"task_title","conditions":[{"type":"filter","operator":"regex_match","value":"x"}]}]}`)},
		}
		err := agent.ValidateModules(modules)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "操作符")
	})

	t.Run("based_on_llm 需要说明", func(t *testing.T) {
		modules := []agent.Module{
			{ID: "m1", Type: agent.ModuleTypeRouter, Config: json.RawMessage(`{"strategy":"based_on_llm"}`)},
		}
		err := agent.ValidateModules(modules)
		assert.Error(t, err)

		modules[0].Config = json.RawMessage(`{"strategy":"based_on_llm","description":"按内容选择目的地"}`)
		assert.NoError(t, agent.ValidateModules(modules))
	})

	t.Run("database 目的地需要表和列", func(t *testing.T) {
		modules := []agent.Module{
			{ID: "m1", Type: agent.ModuleTypeDestinations, Config: json.RawMessage(
				`{"destinations":[{"id":"d1","type":"database","targetTable":"tasks"}]}`)},
		}
		assert.Error(t, agent.ValidateModules(modules))
	})

	t.Run("temperature 超出范围", func(t *testing.T) {
		modules := []agent.Module{
			{ID: "m1", Type: agent.ModuleTypeModel, Config: json.RawMessage(`{"temperature":3.5}`)},
		}
		assert.Error(t, agent.ValidateModules(modules))
	})
}

func TestDecodeConfig(t *testing.T) {
	t.Run("空配置取零值", func(t *testing.T) {
		m := &agent.Module{ID: "m1", Type: agent.ModuleTypePrompt}
		cfg, err := agent.DecodeConfig(m)
		assert.NoError(t, err)
		assert.Equal(t, "", cfg.(*agent.PromptModuleConfig).Template)
	})

	t.Run("非法 JSON 报错", func(t *testing.T) {
		m := &agent.Module{ID: "m1", Type: agent.ModuleTypePrompt, Config: json.RawMessage(`{broken`)}
		_, err := agent.DecodeConfig(m)
		assert.Error(t, err)
	})
}

func TestStringListUnmarshal(t *testing.T) {
	t.Run("接受单个字符串", func(t *testing.T) {
		var rule agent.RouterRule
		err := json.Unmarshal([]byte(`{"sourceVariableId":"summary","destinationId":"d1"}`), &rule)
		assert.NoError(t, err)
		assert.Equal(t, agent.StringList{"summary"}, rule.SourceVariableID)
	})

	t.Run("接受字符串数组", func(t *testing.T) {
		var rule agent.RouterRule
		err := json.Unmarshal([]byte(`{"sourceVariableId":["a","b"],"destinationId":"d1"}`), &rule)
		assert.NoError(t, err)
		assert.Equal(t, agent.StringList{"a", "b"}, rule.SourceVariableID)
	})
}

func TestAgentTriggerConfig(t *testing.T) {
	t.Run("无触发模块返回 nil", func(t *testing.T) {
		a := &agent.Agent{Modules: []agent.Module{{ID: "m1", Type: agent.ModuleTypePrompt}}}
		cfg, err := a.TriggerConfig()
		assert.NoError(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("解出触发配置", func(t *testing.T) {
		a := &agent.Agent{Modules: []agent.Module{
			{ID: "m1", Type: agent.ModuleTypeTrigger, Config: json.RawMessage(
				`{"enabled":true,"strategy":"any_match","inputTriggers":[{"inputId":"task_title","conditions":[{"type":"trigger","triggerType":"on_create"}]}]}`)},
		}}
		cfg, err := a.TriggerConfig()
		assert.NoError(t, err)
		assert.True(t, cfg.Enabled)
		assert.Equal(t, agent.StrategyAnyMatch, cfg.Strategy)
		assert.Len(t, cfg.InputTriggers, 1)
	})
}
