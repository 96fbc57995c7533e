package boards

import (
	"net/http"

	"github.com/gin-gonic/gin"

	response "backend/api/handlers/common"
	"backend/internal/board"
)

// BoardHandler 看板管理 Handler
type BoardHandler struct {
	service *board.Service
}

// NewBoardHandler 创建 BoardHandler 实例
func NewBoardHandler(service *board.Service) *BoardHandler {
	return &BoardHandler{service: service}
}

// ListBoards 查询看板列表
// @Summary 查询看板列表
// @Tags Boards
// @Produce json
// @Success 200 {array} board.Board
// @Router /api/v1/boards [get]
func (h *BoardHandler) ListBoards(c *gin.Context) {
	boardsList, err := h.service.ListBoards(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": boardsList})
}

// GetBoard 查询单个看板
// @Summary 查询看板详情
// @Tags Boards
// @Produce json
// @Param id path string true "看板 ID"
// @Success 200 {object} board.Board
// @Router /api/v1/boards/{id} [get]
func (h *BoardHandler) GetBoard(c *gin.Context) {
	b, err := h.service.GetBoard(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": b})
}

// CreateBoard 创建看板
// @Summary 创建看板
// @Tags Boards
// @Accept json
// @Produce json
// @Param request body createBoardRequest true "看板"
// @Success 200 {object} board.Board
// @Router /api/v1/boards [post]
func (h *BoardHandler) CreateBoard(c *gin.Context) {
	var body createBoardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorResponse("请求参数错误: "+err.Error()))
		return
	}
	b := &board.Board{
		Name:        body.Name,
		Description: body.Description,
		Position:    body.Position,
	}
	if err := h.service.CreateBoard(c.Request.Context(), b); err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": b})
}

// UpdateBoard 更新看板
// @Summary 更新看板
// @Tags Boards
// @Accept json
// @Produce json
// @Param id path string true "看板 ID"
// @Param request body updateBoardRequest true "看板"
// @Success 200 {object} board.Board
// @Router /api/v1/boards/{id} [put]
func (h *BoardHandler) UpdateBoard(c *gin.Context) {
	var body updateBoardRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, response.NewErrorResponse("请求参数错误: "+err.Error()))
		return
	}

	ctx := c.Request.Context()
	b, err := h.service.GetBoard(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, response.NewErrorResponse(err.Error()))
		return
	}
	if body.Name != "" {
		b.Name = body.Name
	}
	if body.Description != nil {
		b.Description = *body.Description
	}
	if body.Position != nil {
		b.Position = *body.Position
	}
	if err := h.service.UpdateBoard(ctx, b); err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": b})
}

// DeleteBoard 删除看板
// @Summary 删除看板
// @Tags Boards
// @Param id path string true "看板 ID"
// @Success 200 {object} response.APIResponse
// @Router /api/v1/boards/{id} [delete]
func (h *BoardHandler) DeleteBoard(c *gin.Context) {
	if err := h.service.DeleteBoard(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, response.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
