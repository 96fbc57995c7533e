package boards

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	agentSvc "backend/internal/agent"
	"backend/internal/board"
	"backend/internal/logger"
	"backend/internal/trigger"
)

// TaskHandler 任务管理 Handler。
// 任务的创建与更新在请求内同步触发一轮智能体扫描。
type TaskHandler struct {
	service *board.Service
	agents  *agentSvc.Service
	scanner *trigger.Scanner
}

// NewTaskHandler 创建 TaskHandler 实例
func NewTaskHandler(service *board.Service, agents *agentSvc.Service, scanner *trigger.Scanner) *TaskHandler {
	return &TaskHandler{service: service, agents: agents, scanner: scanner}
}

// ListTasks 查询任务列表
// @Summary 查询任务列表
// @Tags Tasks
// @Produce json
// @Param board_id query string false "看板 ID"
// @Success 200 {array} board.Task
// @Router /api/v1/tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	tasks, err := h.service.ListTasks(c.Request.Context(), c.Query("board_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tasks})
}

// GetTask 查询单个任务
// @Summary 查询任务详情
// @Tags Tasks
// @Produce json
// @Param id path string true "任务 ID"
// @Success 200 {object} board.Task
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	t, err := h.service.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": t})
}

// CreateTask 创建任务并触发 on_create 扫描
// @Summary 创建任务
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body createTaskRequest true "任务"
// @Success 200 {object} board.Task
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var body createTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorResponse("请求参数错误: "+err.Error()))
		return
	}

	ctx := c.Request.Context()
	t := &board.Task{
		BoardID:  body.BoardID,
		Title:    body.Title,
		Content:  body.Content,
		Pitch:    body.Pitch,
		Priority: body.Priority,
		Assignee: body.Assignee,
		Status:   body.Status,
		DueDate:  body.DueDate,
		Position: body.Position,
	}
	if err := h.service.CreateTask(ctx, t); err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}

	ev := trigger.NewEntityEvent(agentSvc.TriggerOnCreate, "task", t.ID, taskRecord(t))
	automation := h.scan(c, ev)

	c.JSON(http.StatusOK, gin.H{"success": true, "data": t, "automation": automation})
}

// UpdateTask 更新任务，对实际变更的列触发 on_update 扫描
// @Summary 更新任务
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "任务 ID"
// @Param request body updateTaskRequest true "任务"
// @Success 200 {object} board.Task
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var body updateTaskRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorResponse("请求参数错误: "+err.Error()))
		return
	}

	ctx := c.Request.Context()
	t, err := h.service.GetTask(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.NewErrorResponse(err.Error()))
		return
	}
	previous := taskRecord(t)

	applyString := func(col string, dst *string, src *string, changed *[]string) {
		if src != nil && *src != *dst {
			*dst = *src
			*changed = append(*changed, col)
		}
	}

	var changed []string
	applyString("title", &t.Title, body.Title, &changed)
	applyString("content", &t.Content, body.Content, &changed)
	applyString("pitch", &t.Pitch, body.Pitch, &changed)
	applyString("priority", &t.Priority, body.Priority, &changed)
	applyString("assignee", &t.Assignee, body.Assignee, &changed)
	applyString("status", &t.Status, body.Status, &changed)
	if body.BoardID != nil && *body.BoardID != t.BoardID {
		t.BoardID = *body.BoardID
		changed = append(changed, "board_id")
	}
	if body.DueDate != nil {
		t.DueDate = body.DueDate
		changed = append(changed, "due_date")
	}
	if body.Position != nil && *body.Position != t.Position {
		t.Position = *body.Position
		changed = append(changed, "position")
	}

	if err := h.service.UpdateTask(ctx, t); err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}

	var automation any
	if len(changed) > 0 {
		ev := trigger.NewEntityEvent(agentSvc.TriggerOnUpdate, "task", t.ID, taskRecord(t))
		ev.Previous = previous
		ev.ChangedFields = changed
		automation = h.scan(c, ev)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": t, "automation": automation})
}

// DeleteTask 删除任务
// @Summary 删除任务
// @Tags Tasks
// @Param id path string true "任务 ID"
// @Success 200 {object} response.APIResponse
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.service.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListUIEvents 查询任务的界面组件事件
// @Summary 查询任务界面事件
// @Tags Tasks
// @Produce json
// @Param id path string true "任务 ID"
// @Param limit query int false "返回条数"
// @Success 200 {array} agent.UIEvent
// @Router /api/v1/tasks/{id}/ui-events [get]
func (h *TaskHandler) ListUIEvents(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	events, err := h.agents.ListUIEvents(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": events})
}

// scan 同步执行一轮扫描；扫描失败不影响任务请求本身
func (h *TaskHandler) scan(c *gin.Context, ev *trigger.Event) any {
	result, err := h.scanner.Scan(c.Request.Context(), ev)
	if err != nil {
		logger.Warn(fmt.Sprintf("任务事件扫描失败: %v", err))
		return gin.H{"error": err.Error()}
	}
	return gin.H{
		"checkedAgents":  result.CheckedAgents,
		"executedAgents": result.ExecutedAgents,
		"results":        result.Results,
	}
}

// taskRecord 任务字段快照，键与表列一致
func taskRecord(t *board.Task) map[string]any {
	record := map[string]any{
		"id":         t.ID,
		"board_id":   t.BoardID,
		"title":      t.Title,
		"content":    t.Content,
		"pitch":      t.Pitch,
		"priority":   t.Priority,
		"assignee":   t.Assignee,
		"status":     t.Status,
		"created_at": t.CreatedAt,
	}
	if t.DueDate != nil {
		record["due_date"] = *t.DueDate
	}
	return record
}
