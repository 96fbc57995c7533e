package agents

import (
	"encoding/json"

	"backend/internal/agent"
)

// createAgentRequest 创建智能体请求体
type createAgentRequest struct {
	Name            string               `json:"name" binding:"required"`
	Model           string               `json:"model"`
	Prompt          string               `json:"prompt"`
	Inputs          []string             `json:"inputs"`
	Outputs         []agent.OutputField  `json:"outputs"`
	Modules         []agent.Module       `json:"modules"`
	Enabled         *bool                `json:"enabled"`
	IntervalMinutes int                  `json:"intervalMinutes"`
}

// updateAgentRequest 更新智能体请求体
type updateAgentRequest struct {
	Name            string              `json:"name"`
	Model           string              `json:"model"`
	Prompt          string              `json:"prompt"`
	Inputs          []string            `json:"inputs"`
	Outputs         []agent.OutputField `json:"outputs"`
	Modules         []agent.Module      `json:"modules"`
	Enabled         *bool               `json:"enabled"`
	IntervalMinutes *int                `json:"intervalMinutes"`
}

// sourceEntityRef 触发事件的来源实体引用
type sourceEntityRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// triggerCheckRequest 触发检查请求体
type triggerCheckRequest struct {
	TriggerType   string           `json:"triggerType" binding:"required"`
	SourceEntity  *sourceEntityRef `json:"sourceEntity"`
	ChangedFields []string         `json:"changedFields"`
	AgentID       string           `json:"agentId"`
}

// executeRequest 手动执行请求体。
// 既可以指定已保存的智能体，也可以直接给出一次性的模型/提示词/模块组合。
type executeRequest struct {
	AgentID      string              `json:"agentId"`
	Model        string              `json:"model"`
	Prompt       string              `json:"prompt"`
	Input        map[string]any      `json:"input"`
	Context      map[string]any      `json:"context"`
	Modules      []agent.Module      `json:"modules"`
	Outputs      []agent.OutputField `json:"outputs"`
	RouterConfig json.RawMessage     `json:"router_config"`
}
