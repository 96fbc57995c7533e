package agents

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	"backend/internal/agent"
)

// AgentHandler 智能体配置管理 Handler
type AgentHandler struct {
	service *agent.Service
}

// NewAgentHandler 创建 AgentHandler 实例
func NewAgentHandler(service *agent.Service) *AgentHandler {
	return &AgentHandler{service: service}
}

// ListAgents 查询智能体列表
// @Summary 查询智能体列表
// @Tags Agents
// @Produce json
// @Success 200 {array} agent.Agent
// @Router /api/v1/agents [get]
func (h *AgentHandler) ListAgents(c *gin.Context) {
	agents, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": agents})
}

// GetAgent 查询单个智能体
// @Summary 查询智能体详情
// @Tags Agents
// @Produce json
// @Param id path string true "智能体 ID"
// @Success 200 {object} agent.Agent
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/agents/{id} [get]
func (h *AgentHandler) GetAgent(c *gin.Context) {
	a, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrAgentNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": a})
}

// CreateAgent 创建智能体
// @Summary 创建智能体
// @Tags Agents
// @Accept json
// @Produce json
// @Param request body createAgentRequest true "智能体配置"
// @Success 200 {object} agent.Agent
// @Failure 400 {object} response.ErrorResponse
// @Router /api/v1/agents [post]
func (h *AgentHandler) CreateAgent(c *gin.Context) {
	var body createAgentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorResponse("请求参数错误: "+err.Error()))
		return
	}

	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}
	a := &agent.Agent{
		Name:            body.Name,
		Model:           body.Model,
		Prompt:          body.Prompt,
		Inputs:          body.Inputs,
		Outputs:         body.Outputs,
		Modules:         body.Modules,
		Enabled:         enabled,
		IntervalMinutes: body.IntervalMinutes,
	}
	if err := h.service.Create(c.Request.Context(), a); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": a})
}

// UpdateAgent 更新智能体
// @Summary 更新智能体
// @Tags Agents
// @Accept json
// @Produce json
// @Param id path string true "智能体 ID"
// @Param request body updateAgentRequest true "智能体配置"
// @Success 200 {object} agent.Agent
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/agents/{id} [put]
func (h *AgentHandler) UpdateAgent(c *gin.Context) {
	var body updateAgentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorResponse("请求参数错误: "+err.Error()))
		return
	}

	ctx := c.Request.Context()
	a, err := h.service.Get(ctx, c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrAgentNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.NewErrorResponse(err.Error()))
		return
	}

	if body.Name != "" {
		a.Name = body.Name
	}
	if body.Model != "" {
		a.Model = body.Model
	}
	if body.Prompt != "" {
		a.Prompt = body.Prompt
	}
	if body.Inputs != nil {
		a.Inputs = body.Inputs
	}
	if body.Outputs != nil {
		a.Outputs = body.Outputs
	}
	if body.Modules != nil {
		a.Modules = body.Modules
	}
	if body.Enabled != nil {
		a.Enabled = *body.Enabled
	}
	if body.IntervalMinutes != nil {
		a.IntervalMinutes = *body.IntervalMinutes
	}

	if err := h.service.Update(ctx, a); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": a})
}

// DeleteAgent 删除智能体
// @Summary 删除智能体
// @Tags Agents
// @Param id path string true "智能体 ID"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/agents/{id} [delete]
func (h *AgentHandler) DeleteAgent(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrAgentNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListExecutions 查询智能体执行历史
// @Summary 查询执行历史
// @Tags Agents
// @Produce json
// @Param id path string true "智能体 ID"
// @Param limit query int false "返回条数"
// @Success 200 {array} agent.AgentExecution
// @Router /api/v1/agents/{id}/executions [get]
func (h *AgentHandler) ListExecutions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	execs, err := h.service.ListExecutions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": execs})
}

// ListTriggerExecutions 查询智能体触发审计记录
// @Summary 查询触发记录
// @Tags Agents
// @Produce json
// @Param id path string true "智能体 ID"
// @Param limit query int false "返回条数"
// @Success 200 {array} agent.TriggerExecution
// @Router /api/v1/agents/{id}/trigger-executions [get]
func (h *AgentHandler) ListTriggerExecutions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	execs, err := h.service.ListTriggerExecutions(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": execs})
}
