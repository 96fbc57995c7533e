package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"backend/internal/trigger"
	"backend/internal/worker/tasks"
)

type mockScanner struct {
	result  *trigger.ScanResult
	err     error
	lastEv  *trigger.Event
	scanned int
}

func (m *mockScanner) Scan(ctx context.Context, ev *trigger.Event) (*trigger.ScanResult, error) {
	m.scanned++
	m.lastEv = ev
	return m.result, m.err
}

func TestHandleScheduledScan(t *testing.T) {
	t.Run("扫描成功", func(t *testing.T) {
		scanner := &mockScanner{result: &trigger.ScanResult{CheckedAgents: 3, ExecutedAgents: 1}}
		h := NewScanHandler(scanner, zap.NewNop())

		err := h.HandleScheduledScan(context.Background(), asynq.NewTask(tasks.TypeScheduledScan, nil))
		assert.NoError(t, err)
		assert.Equal(t, 1, scanner.scanned)
		assert.Equal(t, "scheduled", scanner.lastEv.Type)
	})

	t.Run("扫描失败向上返回错误触发重试", func(t *testing.T) {
		scanner := &mockScanner{err: fmt.Errorf("数据库不可用")}
		h := NewScanHandler(scanner, zap.NewNop())

		err := h.HandleScheduledScan(context.Background(), asynq.NewTask(tasks.TypeScheduledScan, nil))
		assert.Error(t, err)
	})
}
