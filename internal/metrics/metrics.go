package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API 指标
var (
	// APIRequestsTotal API 请求总数
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_api_requests_total",
			Help: "API 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	// APIRequestDuration API 请求延迟（秒）
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanban_api_request_duration_seconds",
			Help:    "API 请求延迟分布",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

// Agent 自动化指标
var (
	// TriggerScansTotal 触发扫描总数
	TriggerScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_trigger_scans_total",
			Help: "触发扫描总数",
		},
		[]string{"trigger_type"},
	)

	// TriggerFiresTotal 触发命中总数
	TriggerFiresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_trigger_fires_total",
			Help: "触发命中（条件满足）总数",
		},
		[]string{"trigger_type"},
	)

	// AgentExecutionsTotal Agent 流水线执行总数
	AgentExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kanban_agent_executions_total",
			Help: "Agent 流水线执行总数",
		},
		[]string{"status"},
	)

	// AgentExecutionDuration Agent 流水线执行耗时（秒）
	AgentExecutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kanban_agent_execution_duration_seconds",
			Help:    "Agent 流水线执行耗时分布",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// ModelCallDuration 模型调用耗时（秒）
	ModelCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kanban_model_call_duration_seconds",
			Help:    "模型调用耗时分布",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	// RouterRuleErrorsTotal 路由规则错误总数
	RouterRuleErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kanban_router_rule_errors_total",
			Help: "路由规则配置/解析错误总数",
		},
	)
)
