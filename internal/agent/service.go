package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"backend/internal/logger"
)

// ErrAgentNotFound 智能体不存在
var ErrAgentNotFound = errors.New("智能体不存在")

// Service 智能体配置与审计记录的存取服务
type Service struct {
	db *gorm.DB
}

// NewService 创建智能体服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Create 创建智能体，模块链先过注册表校验
func (s *Service) Create(ctx context.Context, a *Agent) error {
	if a.Name == "" {
		return fmt.Errorf("名称不能为空")
	}
	if err := ValidateModules(a.Modules); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("创建智能体失败: %w", err)
	}
	logger.Info(fmt.Sprintf("创建智能体: %s (%s)", a.Name, a.ID))
	return nil
}

// Get 按 ID 查询智能体
func (s *Service) Get(ctx context.Context, id string) (*Agent, error) {
	var a Agent
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAgentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询智能体失败: %w", err)
	}
	return &a, nil
}

// List 列出全部智能体
func (s *Service) List(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("查询智能体列表失败: %w", err)
	}
	return agents, nil
}

// ListEnabled 列出启用的智能体（触发扫描的候选集）
func (s *Service) ListEnabled(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := s.db.WithContext(ctx).Where("enabled = ?", true).Find(&agents).Error; err != nil {
		return nil, fmt.Errorf("查询启用智能体失败: %w", err)
	}
	return agents, nil
}

// Update 更新智能体
func (s *Service) Update(ctx context.Context, a *Agent) error {
	if err := ValidateModules(a.Modules); err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&Agent{}).Where("id = ?", a.ID).
		Select("name", "model", "modules", "prompt", "inputs", "outputs", "enabled", "interval_minutes").
		Updates(a)
	if result.Error != nil {
		return fmt.Errorf("更新智能体失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAgentNotFound
	}
	return nil
}

// Delete 删除智能体
func (s *Service) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Agent{})
	if result.Error != nil {
		return fmt.Errorf("删除智能体失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAgentNotFound
	}
	return nil
}

// TouchLastTriggerExecution 更新最近触发时间（定时背压依据）
func (s *Service) TouchLastTriggerExecution(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&Agent{}).Where("id = ?", id).
		Update("last_trigger_execution", at).Error
}

// RecordTriggerExecution 落一条触发检查审计记录
func (s *Service) RecordTriggerExecution(ctx context.Context, te *TriggerExecution) error {
	if te.ID == "" {
		te.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(te).Error; err != nil {
		// 审计失败不阻断主流程
		logger.Warn(fmt.Sprintf("触发审计写入失败: %v", err))
		return err
	}
	return nil
}

// RecordAgentExecution 落一条流水线执行审计记录
func (s *Service) RecordAgentExecution(ctx context.Context, ae *AgentExecution) error {
	if ae.ID == "" {
		ae.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(ae).Error; err != nil {
		logger.Warn(fmt.Sprintf("执行审计写入失败: %v", err))
		return err
	}
	return nil
}

// ListExecutions 查询某智能体的执行历史（按时间倒序）
func (s *Service) ListExecutions(ctx context.Context, agentID string, limit int) ([]AgentExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	var execs []AgentExecution
	err := s.db.WithContext(ctx).Where("agent_id = ?", agentID).
		Order("created_at DESC").Limit(limit).Find(&execs).Error
	if err != nil {
		return nil, fmt.Errorf("查询执行历史失败: %w", err)
	}
	return execs, nil
}

// ListTriggerExecutions 查询某智能体的触发审计记录（按时间倒序）
func (s *Service) ListTriggerExecutions(ctx context.Context, agentID string, limit int) ([]TriggerExecution, error) {
	if limit <= 0 {
		limit = 50
	}
	var execs []TriggerExecution
	err := s.db.WithContext(ctx).Where("agent_id = ?", agentID).
		Order("created_at DESC").Limit(limit).Find(&execs).Error
	if err != nil {
		return nil, fmt.Errorf("查询触发记录失败: %w", err)
	}
	return execs, nil
}

// CreateUIEvent 写入一条界面组件事件
func (s *Service) CreateUIEvent(ctx context.Context, ev *UIEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if err := s.db.WithContext(ctx).Create(ev).Error; err != nil {
		return fmt.Errorf("写入界面事件失败: %w", err)
	}
	return nil
}

// ListUIEvents 查询某任务的界面事件（按时间倒序）
func (s *Service) ListUIEvents(ctx context.Context, taskID string, limit int) ([]UIEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []UIEvent
	err := s.db.WithContext(ctx).Where("task_id = ?", taskID).
		Order("created_at DESC").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("查询界面事件失败: %w", err)
	}
	return events, nil
}
