package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"backend/internal/agent"
	"backend/internal/ai"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/trigger"
)

// stageOrder 流水线的固定执行顺序。
// 模块在配置里的排列顺序不影响执行，缺席的模块直接跳过，
// 但 model 阶段失败会中止后续全部阶段。
var stageOrder = [...]agent.ModuleType{
	agent.ModuleTypePrompt,
	agent.ModuleTypeModel,
	agent.ModuleTypeJSONExtractor,
	agent.ModuleTypeRouter,
}

var tracer = otel.Tracer("backend/internal/pipeline")

// Result 一次流水线执行的产物
type Result struct {
	ExecutionID        string                          `json:"executionId"`
	Output             string                          `json:"output"`
	ExtractedVariables map[string]any                  `json:"extractedVariables,omitempty"`
	ModulesChain       []agent.ModuleExecutionLogEntry `json:"modulesChain"`
	RouteErrors        []string                        `json:"routeErrors,omitempty"`
}

// Executor 流水线执行器，按固定阶段顺序驱动智能体的模块链
type Executor struct {
	agents       *agent.Service
	provider     ai.Provider
	dispatcher   *Dispatcher
	modelTimeout time.Duration
}

// NewExecutor 创建流水线执行器
func NewExecutor(agents *agent.Service, provider ai.Provider, dispatcher *Dispatcher, modelTimeout time.Duration) *Executor {
	if modelTimeout <= 0 {
		modelTimeout = 60 * time.Second
	}
	return &Executor{
		agents:       agents,
		provider:     provider,
		dispatcher:   dispatcher,
		modelTimeout: modelTimeout,
	}
}

// Run 实现 trigger.Runner
func (e *Executor) Run(ctx context.Context, a *agent.Agent, inputs map[string]any, ev *trigger.Event) (string, error) {
	result, err := e.Execute(ctx, a, inputs, ev)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

// Execute 执行完整流水线并落审计记录
func (e *Executor) Execute(ctx context.Context, a *agent.Agent, inputs map[string]any, ev *trigger.Event) (*Result, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "pipeline.execute")
	span.SetAttributes(attribute.String("agent.id", a.ID))
	defer span.End()

	run := &pipelineRun{agent: a, inputs: inputs, event: ev}
	var execErr error

	for _, stage := range stageOrder {
		if err := e.runStage(ctx, stage, run); err != nil {
			execErr = err
			break
		}
	}

	result := &Result{
		Output:             run.output,
		ExtractedVariables: run.variables,
		ModulesChain:       run.chain,
		RouteErrors:        run.routeErrors,
	}

	status := agent.ExecStatusSuccess
	errMsg := ""
	if execErr != nil {
		status = agent.ExecStatusError
		errMsg = execErr.Error()
		span.RecordError(execErr)
	}
	metrics.AgentExecutionsTotal.WithLabelValues(status).Inc()
	metrics.AgentExecutionDuration.Observe(time.Since(start).Seconds())

	ae := &agent.AgentExecution{
		AgentID:            a.ID,
		Status:             status,
		Output:             run.output,
		ExtractedVariables: run.variables,
		ModulesChain:       run.chain,
		DurationMs:         time.Since(start).Milliseconds(),
		ErrorMessage:       errMsg,
	}
	_ = e.agents.RecordAgentExecution(ctx, ae)
	result.ExecutionID = ae.ID

	// 失败时同样返回部分结果，调用方可以拿到已执行的模块链
	return result, execErr
}

// pipelineRun 单次执行的阶段间状态
type pipelineRun struct {
	agent  *agent.Agent
	inputs map[string]any
	event  *trigger.Event

	prompt    string
	output    string
	parsed    any
	variables map[string]any

	chain       []agent.ModuleExecutionLogEntry
	routeErrors []string
}

func (e *Executor) runStage(ctx context.Context, stage agent.ModuleType, run *pipelineRun) error {
	start := time.Now()
	entry := agent.ModuleExecutionLogEntry{ModuleType: string(stage), Status: agent.ExecStatusSuccess}

	var err error
	switch stage {
	case agent.ModuleTypePrompt:
		err = e.stagePrompt(run, &entry)
	case agent.ModuleTypeModel:
		err = e.stageModel(ctx, run, &entry)
	case agent.ModuleTypeJSONExtractor:
		err = e.stageExtract(run, &entry)
	case agent.ModuleTypeRouter:
		err = e.stageRoute(ctx, run, &entry)
	}

	entry.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		entry.Status = agent.ExecStatusError
		entry.Error = err.Error()
	}
	run.chain = append(run.chain, entry)
	return err
}

func (e *Executor) stagePrompt(run *pipelineRun, entry *agent.ModuleExecutionLogEntry) error {
	template := run.agent.Prompt
	if m := run.agent.ModuleByType(agent.ModuleTypePrompt); m != nil {
		cfg, err := agent.DecodeConfig(m)
		if err != nil {
			return err
		}
		if t := cfg.(*agent.PromptModuleConfig).Template; t != "" {
			template = t
		}
	}
	if template == "" {
		entry.Status = agent.ExecStatusSkipped
		return nil
	}
	run.prompt = RenderPrompt(template, run.inputs)
	entry.Output = run.prompt
	return nil
}

func (e *Executor) stageModel(ctx context.Context, run *pipelineRun, entry *agent.ModuleExecutionLogEntry) error {
	modelCfg := &agent.ModelModuleConfig{}
	if m := run.agent.ModuleByType(agent.ModuleTypeModel); m != nil {
		cfg, err := agent.DecodeConfig(m)
		if err != nil {
			return err
		}
		modelCfg = cfg.(*agent.ModelModuleConfig)
	}
	modelID := modelCfg.Model
	if modelID == "" {
		modelID = run.agent.Model
	}
	if modelID == "" {
		return fmt.Errorf("智能体 %s 未配置模型", run.agent.ID)
	}
	if run.prompt == "" {
		return fmt.Errorf("提示词为空，无法调用模型")
	}

	client, err := e.provider.GetClient(ctx, modelID)
	if err != nil {
		return fmt.Errorf("获取模型客户端失败: %w", err)
	}

	req := &ai.ChatCompletionRequest{
		Messages:    []ai.Message{{Role: "user", Content: run.prompt}},
		Temperature: modelCfg.Temperature,
		MaxTokens:   modelCfg.MaxTokens,
		JSONMode:    e.wantsJSON(run),
	}

	callCtx, cancel := context.WithTimeout(ctx, e.modelTimeout)
	defer cancel()

	ctx, span := tracer.Start(callCtx, "pipeline.model_call")
	span.SetAttributes(attribute.String("model.id", modelID))
	defer span.End()

	start := time.Now()
	resp, err := client.ChatCompletion(ctx, req)
	metrics.ModelCallDuration.WithLabelValues(modelID).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("模型调用失败: %w", err)
	}

	run.output = resp.Content
	entry.Input = run.prompt
	entry.Output = resp.Content
	logger.Info(fmt.Sprintf("智能体 %s 模型调用完成: model=%s latency=%dms tokens=%d",
		run.agent.ID, resp.Model, resp.LatencyMs, resp.Usage.TotalTokens))
	return nil
}

// wantsJSON 存在提取模块、或提示词自称要 JSON 时开启 JSON 模式
func (e *Executor) wantsJSON(run *pipelineRun) bool {
	if run.agent.ModuleByType(agent.ModuleTypeJSONExtractor) != nil {
		return true
	}
	return strings.Contains(strings.ToLower(run.prompt), "json")
}

func (e *Executor) stageExtract(run *pipelineRun, entry *agent.ModuleExecutionLogEntry) error {
	m := run.agent.ModuleByType(agent.ModuleTypeJSONExtractor)
	if m == nil {
		entry.Status = agent.ExecStatusSkipped
		return nil
	}
	cfg, err := agent.DecodeConfig(m)
	if err != nil {
		return err
	}
	extractorCfg := cfg.(*agent.JSONExtractorModuleConfig)

	parsed, parseErr := ParseModelOutput(run.output)
	if parseErr != nil {
		// 解析失败不中止流水线：变量置空，由路由阶段的规则隔离兜底
		logger.Warn(fmt.Sprintf("智能体 %s 输出解析失败: %v", run.agent.ID, parseErr))
		entry.Status = agent.ExecStatusError
		entry.Error = parseErr.Error()
		run.variables = map[string]any{}
		return nil
	}
	run.parsed = parsed
	run.variables = ExtractVariables(extractorCfg.Variables, parsed)
	entry.Output = run.variables
	return nil
}

func (e *Executor) stageRoute(ctx context.Context, run *pipelineRun, entry *agent.ModuleExecutionLogEntry) error {
	routerModule := run.agent.ModuleByType(agent.ModuleTypeRouter)
	destModule := run.agent.ModuleByType(agent.ModuleTypeDestinations)
	if routerModule == nil || destModule == nil {
		entry.Status = agent.ExecStatusSkipped
		return nil
	}

	routerCfgAny, err := agent.DecodeConfig(routerModule)
	if err != nil {
		return err
	}
	destCfgAny, err := agent.DecodeConfig(destModule)
	if err != nil {
		return err
	}

	outcome := e.dispatcher.Route(ctx, run.agent,
		routerCfgAny.(*agent.RouterModuleConfig),
		destCfgAny.(*agent.DestinationsModuleConfig),
		run.variables, run.parsed, run.output, run.event)

	run.routeErrors = outcome.Errors
	entry.Output = map[string]any{"dispatched": outcome.Dispatched, "errors": outcome.Errors}
	return nil
}
