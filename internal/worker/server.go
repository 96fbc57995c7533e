package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"backend/internal/config"
	"backend/internal/worker/handlers"
	"backend/internal/worker/tasks"
)

type Server struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	logger    *zap.Logger
}

func NewServer(
	cfg config.RedisConfig,
	scanner handlers.TriggerScanner,
	scanInterval time.Duration,
	logger *zap.Logger,
) *Server {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"agents":  5,
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("任务执行失败",
					zap.String("type", task.Type()),
					zap.Error(err),
				)
			}),
		},
	)

	mux := asynq.NewServeMux()

	// 注册定时扫描处理器
	scanHandler := handlers.NewScanHandler(scanner, logger)
	mux.HandleFunc(tasks.TypeScheduledScan, scanHandler.HandleScheduledScan)

	// 周期性投递扫描任务
	if scanInterval <= 0 {
		scanInterval = time.Minute
	}
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{Location: time.UTC})
	if _, err := scheduler.Register(
		fmt.Sprintf("@every %s", scanInterval),
		asynq.NewTask(tasks.TypeScheduledScan, nil),
		asynq.Queue("agents"),
	); err != nil {
		logger.Error("注册定时扫描失败", zap.Error(err))
	}

	return &Server{
		server:    srv,
		scheduler: scheduler,
		mux:       mux,
		logger:    logger,
	}
}

// Start 非阻塞启动 Worker 与调度器
func (s *Server) Start() error {
	s.logger.Info("Worker 服务器启动中 (后台)...")
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	return s.scheduler.Start()
}

// Shutdown 停止 Worker 服务器
func (s *Server) Shutdown() {
	s.logger.Info("Worker 服务器停止中...")
	s.scheduler.Shutdown()
	s.server.Shutdown()
}
