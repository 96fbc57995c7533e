package handlers

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"backend/internal/trigger"
)

// TriggerScanner 触发扫描器抽象，便于注入 mock
type TriggerScanner interface {
	Scan(ctx context.Context, ev *trigger.Event) (*trigger.ScanResult, error)
}

type ScanHandler struct {
	scanner TriggerScanner
	logger  *zap.Logger
}

func NewScanHandler(scanner TriggerScanner, logger *zap.Logger) *ScanHandler {
	return &ScanHandler{
		scanner: scanner,
		logger:  logger,
	}
}

// HandleScheduledScan 执行一轮定时触发扫描
func (h *ScanHandler) HandleScheduledScan(ctx context.Context, t *asynq.Task) error {
	ev := trigger.NewScheduledEvent(time.Now())

	result, err := h.scanner.Scan(ctx, ev)
	if err != nil {
		h.logger.Error("定时扫描失败", zap.Error(err))
		return err
	}

	h.logger.Info("定时扫描完成",
		zap.Int("checked", result.CheckedAgents),
		zap.Int("executed", result.ExecutedAgents),
	)
	return nil
}
