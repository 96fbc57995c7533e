package board

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 实体表与可写列的白名单
// database destination 只允许更新这里列出的表/列，防止配置污染任意表
var writableColumns = map[string]map[string]bool{
	"tasks": {
		"title":    true,
		"content":  true,
		"pitch":    true,
		"priority": true,
		"assignee": true,
		"status":   true,
	},
	"boards": {
		"name":        true,
		"description": true,
	},
}

// Service 看板/任务服务
// 同时充当 Agent 子系统的实体存取层：按表名读取记录、按列更新字段
type Service struct {
	db *gorm.DB
}

// NewService 创建看板服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// DB 返回底层数据库句柄
func (s *Service) DB() *gorm.DB {
	return s.db
}

// CreateBoard 创建看板
func (s *Service) CreateBoard(ctx context.Context, b *Board) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(b).Error
}

// GetBoard 获取看板
func (s *Service) GetBoard(ctx context.Context, id string) (*Board, error) {
	var b Board
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, fmt.Errorf("查询看板失败: %w", err)
	}
	return &b, nil
}

// ListBoards 列出全部看板
func (s *Service) ListBoards(ctx context.Context) ([]Board, error) {
	var boards []Board
	if err := s.db.WithContext(ctx).Order("position ASC, created_at ASC").Find(&boards).Error; err != nil {
		return nil, err
	}
	return boards, nil
}

// UpdateBoard 更新看板
func (s *Service) UpdateBoard(ctx context.Context, b *Board) error {
	return s.db.WithContext(ctx).Save(b).Error
}

// DeleteBoard 删除看板
func (s *Service) DeleteBoard(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&Board{}).Error
}

// CreateTask 创建任务
func (s *Service) CreateTask(ctx context.Context, t *Task) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(t).Error
}

// GetTask 获取任务
func (s *Service) GetTask(ctx context.Context, id string) (*Task, error) {
	var t Task
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, fmt.Errorf("查询任务失败: %w", err)
	}
	return &t, nil
}

// ListTasks 列出看板下的任务
func (s *Service) ListTasks(ctx context.Context, boardID string) ([]Task, error) {
	query := s.db.WithContext(ctx).Model(&Task{})
	if boardID != "" {
		query = query.Where("board_id = ?", boardID)
	}
	var tasks []Task
	if err := query.Order("position ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListRecentTasks 按创建时间倒序列出任务，排除指定任务
// Agent 的 "全部任务" 聚合输入使用，条数上限由调用方指定
func (s *Service) ListRecentTasks(ctx context.Context, excludeID string, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 20
	}
	query := s.db.WithContext(ctx).Model(&Task{}).Order("created_at DESC").Limit(limit)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var tasks []Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateTask 更新任务
func (s *Service) UpdateTask(ctx context.Context, t *Task) error {
	return s.db.WithContext(ctx).Save(t).Error
}

// DeleteTask 删除任务
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&Task{}).Error
}

// GetRecord 按表名读取一条记录（map 形式），供字段解析器使用
func (s *Service) GetRecord(ctx context.Context, table, id string) (map[string]any, error) {
	if _, ok := writableColumns[table]; !ok {
		return nil, fmt.Errorf("不支持的实体表: %s", table)
	}

	record := map[string]any{}
	err := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Take(&record).Error
	if err != nil {
		return nil, fmt.Errorf("查询记录失败 %s/%s: %w", table, id, err)
	}
	return record, nil
}

// UpdateColumn 更新指定表/列（database destination 的落地操作）
// 只更新白名单内的列，且一次只更新一列
func (s *Service) UpdateColumn(ctx context.Context, table, column, id string, value any) error {
	cols, ok := writableColumns[table]
	if !ok {
		return fmt.Errorf("不支持的实体表: %s", table)
	}
	if !cols[column] {
		return fmt.Errorf("表 %s 不允许写入列 %s", table, column)
	}

	result := s.db.WithContext(ctx).Table(table).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("更新 %s.%s 失败: %w", table, column, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("记录不存在: %s/%s", table, id)
	}
	return nil
}
