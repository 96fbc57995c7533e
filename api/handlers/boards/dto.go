package boards

import "time"

// createBoardRequest 创建看板请求体
type createBoardRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	Position    float64 `json:"position"`
}

// updateBoardRequest 更新看板请求体
type updateBoardRequest struct {
	Name        string   `json:"name"`
	Description *string  `json:"description"`
	Position    *float64 `json:"position"`
}

// createTaskRequest 创建任务请求体
type createTaskRequest struct {
	BoardID  string     `json:"boardId" binding:"required"`
	Title    string     `json:"title" binding:"required"`
	Content  string     `json:"content"`
	Pitch    string     `json:"pitch"`
	Priority string     `json:"priority"`
	Assignee string     `json:"assignee"`
	Status   string     `json:"status"`
	DueDate  *time.Time `json:"dueDate"`
	Position float64    `json:"position"`
}

// updateTaskRequest 更新任务请求体，指针字段区分"未提供"与"清空"
type updateTaskRequest struct {
	BoardID  *string    `json:"boardId"`
	Title    *string    `json:"title"`
	Content  *string    `json:"content"`
	Pitch    *string    `json:"pitch"`
	Priority *string    `json:"priority"`
	Assignee *string    `json:"assignee"`
	Status   *string    `json:"status"`
	DueDate  *time.Time `json:"dueDate"`
	Position *float64   `json:"position"`
}
