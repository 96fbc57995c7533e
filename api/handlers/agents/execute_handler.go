package agents

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	"backend/internal/agent"
	"backend/internal/pipeline"
	"backend/internal/trigger"
)

// ExecuteHandler 手动执行 Handler
type ExecuteHandler struct {
	agents   *agent.Service
	resolver *trigger.Resolver
	executor *pipeline.Executor
}

// NewExecuteHandler 创建 ExecuteHandler 实例
func NewExecuteHandler(agents *agent.Service, resolver *trigger.Resolver, executor *pipeline.Executor) *ExecuteHandler {
	return &ExecuteHandler{agents: agents, resolver: resolver, executor: executor}
}

// Execute 手动执行流水线。指定 agentId 时运行已保存的智能体（绕过启用
// 开关与触发匹配）；否则用请求体里的模型/提示词/模块组装一次性智能体。
// @Summary 手动执行智能体
// @Tags Agents
// @Accept json
// @Produce json
// @Param request body executeRequest true "执行请求"
// @Success 200 {object} pipeline.Result
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/agents/execute [post]
func (h *ExecuteHandler) Execute(c *gin.Context) {
	var body executeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorResponse("请求参数错误: "+err.Error()))
		return
	}

	ctx := c.Request.Context()
	var a *agent.Agent
	if body.AgentID != "" {
		stored, err := h.agents.Get(ctx, body.AgentID)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, agent.ErrAgentNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, response.NewErrorResponse(err.Error()))
			return
		}
		a = stored
	} else {
		adhoc, err := adHocAgent(&body)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.NewErrorResponse(err.Error()))
			return
		}
		a = adhoc
	}

	ev := trigger.NewEntityEvent(agent.TriggerOnDemand, "", "", nil)

	// 先解析配置声明的输入，再用请求体覆盖
	inputs, err := h.resolver.ResolveAll(ctx, a.Inputs, ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "modules_chain": []agent.ModuleExecutionLogEntry{}})
		return
	}
	for k, v := range body.Context {
		inputs[k] = v
	}
	for k, v := range body.Input {
		inputs[k] = v
	}

	result, err := h.executor.Execute(ctx, a, inputs, ev)
	if err != nil {
		chain := []agent.ModuleExecutionLogEntry{}
		if result != nil {
			chain = result.ModulesChain
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "modules_chain": chain})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"output":              result.Output,
		"extracted_variables": result.ExtractedVariables,
		"modules_chain":       result.ModulesChain,
	})
}

// adHocAgent 由请求体组装一次性智能体，至少要给出模型、提示词或模块之一
func adHocAgent(body *executeRequest) (*agent.Agent, error) {
	if body.Model == "" && body.Prompt == "" && len(body.Modules) == 0 {
		return nil, fmt.Errorf("缺少 agentId 或临时执行参数")
	}
	modules := body.Modules
	if len(body.RouterConfig) > 0 && !hasModule(modules, agent.ModuleTypeRouter) {
		modules = append(modules, agent.Module{
			ID:     "adhoc-router",
			Type:   agent.ModuleTypeRouter,
			Config: body.RouterConfig,
		})
	}
	if len(modules) > 0 {
		if err := agent.ValidateModules(modules); err != nil {
			return nil, err
		}
	}
	return &agent.Agent{
		Name:    "临时执行",
		Model:   body.Model,
		Prompt:  body.Prompt,
		Modules: modules,
		Outputs: body.Outputs,
	}, nil
}

func hasModule(modules []agent.Module, t agent.ModuleType) bool {
	for _, m := range modules {
		if m.Type == t {
			return true
		}
	}
	return false
}
