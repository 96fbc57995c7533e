package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	agentHandlers "backend/api/handlers/agents"
	boardHandlers "backend/api/handlers/boards"
	agentSvc "backend/internal/agent"
	"backend/internal/ai"
	boardSvc "backend/internal/board"
	"backend/internal/config"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/pipeline"
	"backend/internal/trigger"
	"backend/internal/worker"
)

// SetupRouter 组装依赖并返回 Gin 路由和 Worker 服务器
func SetupRouter(db *gorm.DB, rdb redis.UniversalClient, cfg *config.Config) (*gin.Engine, *worker.Server) {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(), CORS(), metrics.PrometheusMiddleware())

	// 服务层
	boards := boardSvc.NewService(db)
	agents := agentSvc.NewService(db)
	factory := ai.NewClientFactory(cfg.AI.OpenAI)

	// 触发与流水线
	resolver := trigger.NewResolver(boards, cfg.Agents.TaskListLimit)
	matcher := trigger.NewMatcher(resolver)
	claimer := trigger.NewClaimer(rdb, cfg.Agents.ClaimTTL())
	dispatcher := pipeline.NewDispatcher(boards, agents)
	executor := pipeline.NewExecutor(agents, factory, dispatcher, cfg.Agents.ModelTimeout())
	scanner := trigger.NewScanner(agents, matcher, resolver, claimer, executor, cfg.Agents.ScanInterval())

	// Worker（定时扫描）
	workerServer := worker.NewServer(cfg.Redis, scanner, cfg.Agents.ScanInterval(), logger.Get())

	// Handler
	agentHandler := agentHandlers.NewAgentHandler(agents)
	triggerHandler := agentHandlers.NewTriggerHandler(scanner, boards)
	executeHandler := agentHandlers.NewExecuteHandler(agents, resolver, executor)
	boardHandler := boardHandlers.NewBoardHandler(boards)
	taskHandler := boardHandlers.NewTaskHandler(boards, agents, scanner)

	// 健康检查与指标
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		agentsGroup := v1.Group("/agents")
		{
			agentsGroup.GET("", agentHandler.ListAgents)
			agentsGroup.POST("", agentHandler.CreateAgent)
			agentsGroup.GET("/:id", agentHandler.GetAgent)
			agentsGroup.PUT("/:id", agentHandler.UpdateAgent)
			agentsGroup.DELETE("/:id", agentHandler.DeleteAgent)
			agentsGroup.GET("/:id/executions", agentHandler.ListExecutions)
			agentsGroup.GET("/:id/trigger-executions", agentHandler.ListTriggerExecutions)
			agentsGroup.POST("/trigger-check", triggerHandler.TriggerCheck)
			agentsGroup.POST("/execute", executeHandler.Execute)
		}

		boardsGroup := v1.Group("/boards")
		{
			boardsGroup.GET("", boardHandler.ListBoards)
			boardsGroup.POST("", boardHandler.CreateBoard)
			boardsGroup.GET("/:id", boardHandler.GetBoard)
			boardsGroup.PUT("/:id", boardHandler.UpdateBoard)
			boardsGroup.DELETE("/:id", boardHandler.DeleteBoard)
		}

		tasksGroup := v1.Group("/tasks")
		{
			tasksGroup.GET("", taskHandler.ListTasks)
			tasksGroup.POST("", taskHandler.CreateTask)
			tasksGroup.GET("/:id", taskHandler.GetTask)
			tasksGroup.PUT("/:id", taskHandler.UpdateTask)
			tasksGroup.DELETE("/:id", taskHandler.DeleteTask)
			tasksGroup.GET("/:id/ui-events", taskHandler.ListUIEvents)
		}
	}

	return router, workerServer
}
