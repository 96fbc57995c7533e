package agents

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"backend/internal/board"
	"backend/internal/trigger"
)

// TriggerHandler 触发检查 Handler
type TriggerHandler struct {
	scanner *trigger.Scanner
	boards  *board.Service
}

// NewTriggerHandler 创建 TriggerHandler 实例
func NewTriggerHandler(scanner *trigger.Scanner, boards *board.Service) *TriggerHandler {
	return &TriggerHandler{scanner: scanner, boards: boards}
}

// TriggerCheck 对事件执行一轮触发扫描
// 请求体无法解析时返回 500 与 error 字段；扫描本身的单体失败不影响
// 响应状态码，结果逐个体现在 results 里。
// @Summary 触发检查
// @Tags Agents
// @Accept json
// @Produce json
// @Param request body triggerCheckRequest true "触发事件"
// @Success 200 {object} trigger.ScanResult
// @Failure 500 {object} map[string]string
// @Router /api/v1/agents/trigger-check [post]
func (h *TriggerHandler) TriggerCheck(c *gin.Context) {
	var body triggerCheckRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "请求体解析失败: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	entityType, entityID := "", ""
	if body.SourceEntity != nil {
		// 外部调用方用表名（tasks）指代实体，内部统一用单数形式
		entityType = strings.TrimSuffix(body.SourceEntity.Type, "s")
		entityID = body.SourceEntity.ID
	}
	ev := trigger.NewEntityEvent(body.TriggerType, entityType, entityID, nil)
	ev.ChangedFields = body.ChangedFields

	// 带实体的事件补上当前字段值
	if ev.EntityID != "" && ev.EntityType != "" {
		record, err := h.boards.GetRecord(ctx, ev.EntityType+"s", ev.EntityID)
		if err == nil {
			ev.Record = record
		}
	}

	var (
		result *trigger.ScanResult
		err    error
	)
	if body.AgentID != "" {
		result, err = h.scanner.ScanAgent(ctx, ev, body.AgentID)
	} else {
		result, err = h.scanner.Scan(ctx, ev)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"checkedAgents":  result.CheckedAgents,
		"executedAgents": result.ExecutedAgents,
		"results":        result.Results,
	})
}
