package trigger_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backend/internal/agent"
	"backend/internal/board"
	"backend/internal/trigger"
)

func TestResolverFieldRefs(t *testing.T) {
	db := setupTestDB(t)
	resolver := trigger.NewResolver(board.NewService(db), 0)
	ctx := context.Background()

	ev := taskEvent(agent.TriggerOnCreate, map[string]any{
		"title":    "写周报",
		"priority": "high",
	})

	t.Run("字段引用读取事件快照", func(t *testing.T) {
		v, err := resolver.Resolve(ctx, "task_title", ev)
		require.NoError(t, err)
		assert.Equal(t, "写周报", v)
	})

	t.Run("none 引用返回 nil", func(t *testing.T) {
		v, err := resolver.Resolve(ctx, "none", ev)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("未知引用返回 nil 而非报错", func(t *testing.T) {
		v, err := resolver.Resolve(ctx, "task_nonexistent_field", ev)
		require.NoError(t, err)
		assert.Nil(t, v)
	})

	t.Run("ResolveAll 去重并跳过 none", func(t *testing.T) {
		values, err := resolver.ResolveAll(ctx, []string{"task_title", "task_title", "none", "task_priority"}, ev)
		require.NoError(t, err)
		assert.Len(t, values, 2)
		assert.Equal(t, "high", values["task_priority"])
	})
}

func TestResolverAllTasks(t *testing.T) {
	db := setupTestDB(t)
	boards := board.NewService(db)
	resolver := trigger.NewResolver(boards, 5)
	ctx := context.Background()

	b := &board.Board{Name: "看板"}
	require.NoError(t, boards.CreateBoard(ctx, b))

	var triggering *board.Task
	for i := 0; i < 8; i++ {
		task := &board.Task{
			BoardID: b.ID,
			Title:   fmt.Sprintf("任务-%d", i),
			Content: strings.Repeat("内容", 150),
		}
		require.NoError(t, boards.CreateTask(ctx, task))
		triggering = task
		// created_at 单调递增
		require.NoError(t, db.Model(task).Update("created_at", time.Now().UTC().Add(time.Duration(i)*time.Second)).Error)
	}

	ev := trigger.NewEntityEvent(agent.TriggerOnCreate, "task", triggering.ID, nil)
	v, err := resolver.Resolve(ctx, "all_tasks", ev)
	require.NoError(t, err)
	text, ok := v.(string)
	require.True(t, ok)

	lines := strings.Split(text, "\n")
	// 上限 5 条，且不包含触发实体自身
	assert.Len(t, lines, 5)
	assert.NotContains(t, text, "任务-7")
	// 最新在前
	assert.Contains(t, lines[0], "任务-6")
	// 长内容被截断
	assert.Contains(t, text, "…")
}
