package board

import (
	"time"
)

// Board 看板
type Board struct {
	ID          string  `json:"id" gorm:"primaryKey;size:36"`
	Name        string  `json:"name" gorm:"size:255;not null"`
	Description string  `json:"description" gorm:"type:text"`
	Position    float64 `json:"position" gorm:"default:0"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (Board) TableName() string {
	return "boards"
}

// Task 任务卡片
// pitch 列是 Agent 流水线的常用写入目标（database destination）
type Task struct {
	ID      string `json:"id" gorm:"primaryKey;size:36"`
	BoardID string `json:"boardId" gorm:"size:36;index"`

	Title    string     `json:"title" gorm:"size:500;not null"`
	Content  string     `json:"content" gorm:"type:text"`
	Pitch    string     `json:"pitch" gorm:"type:text"`
	Priority string     `json:"priority" gorm:"size:20"` // low, medium, high, urgent
	Assignee string     `json:"assignee" gorm:"size:255"`
	Status   string     `json:"status" gorm:"size:50;default:todo"` // todo, in_progress, done
	DueDate  *time.Time `json:"dueDate"`
	Position float64    `json:"position" gorm:"default:0"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (Task) TableName() string {
	return "tasks"
}
