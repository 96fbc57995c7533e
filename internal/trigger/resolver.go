package trigger

import (
	"context"
	"fmt"
	"strings"

	"backend/internal/board"
	"backend/internal/logger"
)

// 聚合输入的上限与摘要长度
const (
	allTasksLimit      = 20
	allTasksSnippetLen = 200
)

// taskFieldColumns 输入引用到任务表列的映射
var taskFieldColumns = map[string]string{
	"task_title":      "title",
	"task_content":    "content",
	"task_pitch":      "pitch",
	"task_priority":   "priority",
	"task_assignee":   "assignee",
	"task_status":     "status",
	"task_due_date":   "due_date",
	"task_created_at": "created_at",
}

// FieldColumn 返回输入引用对应的表列名；非字段引用返回空串
func FieldColumn(inputID string) string {
	return taskFieldColumns[inputID]
}

// Resolver 把输入引用解析为具体值
type Resolver struct {
	boards    *board.Service
	taskLimit int
}

// NewResolver 创建输入解析器
func NewResolver(boards *board.Service, taskLimit int) *Resolver {
	if taskLimit <= 0 {
		taskLimit = allTasksLimit
	}
	return &Resolver{boards: boards, taskLimit: taskLimit}
}

// Resolve 解析单个输入引用。
// 未知引用返回 (nil, nil)：配置可能指向未来的输入源，解析层不视为错误。
func (r *Resolver) Resolve(ctx context.Context, inputID string, ev *Event) (any, error) {
	switch {
	case inputID == "" || inputID == "none":
		return nil, nil
	case inputID == "all_tasks":
		return r.resolveAllTasks(ctx, ev)
	default:
		if col, ok := taskFieldColumns[inputID]; ok {
			if ev == nil || ev.Record == nil {
				return nil, nil
			}
			return ev.Record[col], nil
		}
		logger.Warn(fmt.Sprintf("未知的输入引用: %s", inputID))
		return nil, nil
	}
}

// ResolveAll 解析一组输入引用，键为引用名
func (r *Resolver) ResolveAll(ctx context.Context, inputIDs []string, ev *Event) (map[string]any, error) {
	values := make(map[string]any, len(inputIDs))
	for _, id := range inputIDs {
		if id == "" || id == "none" {
			continue
		}
		if _, ok := values[id]; ok {
			continue
		}
		v, err := r.Resolve(ctx, id, ev)
		if err != nil {
			return nil, fmt.Errorf("解析输入 %s 失败: %w", id, err)
		}
		values[id] = v
	}
	return values, nil
}

// resolveAllTasks 聚合全部任务的摘要，最新在前，触发实体自身除外
func (r *Resolver) resolveAllTasks(ctx context.Context, ev *Event) (any, error) {
	excludeID := ""
	if ev != nil && ev.EntityType == "task" {
		excludeID = ev.EntityID
	}
	tasks, err := r.boards.ListRecentTasks(ctx, excludeID, r.taskLimit)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return "", nil
	}

	var b strings.Builder
	for i, t := range tasks {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- ")
		b.WriteString(t.Title)
		if t.Content != "" {
			b.WriteString(": ")
			b.WriteString(truncate(t.Content, allTasksSnippetLen))
		}
	}
	return b.String(), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "…"
}
