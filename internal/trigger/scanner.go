package trigger

import (
	"context"
	"fmt"
	"time"

	"backend/internal/agent"
	"backend/internal/logger"
	"backend/internal/metrics"
)

// Runner 流水线执行入口，由执行器实现
type Runner interface {
	Run(ctx context.Context, a *agent.Agent, inputs map[string]any, ev *Event) (string, error)
}

// AgentResult 单个智能体在一次扫描中的处置结果
type AgentResult struct {
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Matched   bool   `json:"matched"`
	Executed  bool   `json:"executed"`
	Output    string `json:"output,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ScanResult 一次触发扫描的汇总
type ScanResult struct {
	CheckedAgents  int           `json:"checkedAgents"`
	ExecutedAgents int           `json:"executedAgents"`
	Results        []AgentResult `json:"results"`
}

// Scanner 触发扫描器：选出候选智能体，逐个匹配并执行。
// 单个智能体的失败（含 panic）不影响同批其他智能体。
type Scanner struct {
	agents       *agent.Service
	matcher      *Matcher
	resolver     *Resolver
	claimer      *Claimer
	runner       Runner
	scanInterval time.Duration
}

// NewScanner 创建触发扫描器
func NewScanner(agents *agent.Service, matcher *Matcher, resolver *Resolver, claimer *Claimer, runner Runner, scanInterval time.Duration) *Scanner {
	return &Scanner{
		agents:       agents,
		matcher:      matcher,
		resolver:     resolver,
		claimer:      claimer,
		runner:       runner,
		scanInterval: scanInterval,
	}
}

// Scan 对事件执行一轮触发扫描
func (s *Scanner) Scan(ctx context.Context, ev *Event) (*ScanResult, error) {
	metrics.TriggerScansTotal.WithLabelValues(ev.Type).Inc()

	candidates, err := s.agents.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取候选智能体失败: %w", err)
	}
	return s.scanCandidates(ctx, candidates, ev), nil
}

// ScanAgent 仅针对指定智能体执行触发扫描。
// 除 on_demand 事件外，未启用的智能体不是候选。
func (s *Scanner) ScanAgent(ctx context.Context, ev *Event, agentID string) (*ScanResult, error) {
	metrics.TriggerScansTotal.WithLabelValues(ev.Type).Inc()

	a, err := s.agents.Get(ctx, agentID)
	if err != nil {
		return nil, err
	}
	// 手动试运行（on_demand 且指定了智能体）绕过启用开关
	if !a.Enabled && ev.Type != agent.TriggerOnDemand {
		return &ScanResult{Results: []AgentResult{}}, nil
	}
	return s.scanCandidates(ctx, []agent.Agent{*a}, ev), nil
}

func (s *Scanner) scanCandidates(ctx context.Context, candidates []agent.Agent, ev *Event) *ScanResult {
	result := &ScanResult{Results: make([]AgentResult, 0, len(candidates))}
	scanKey := ev.ScanKey(s.scanInterval)

	for i := range candidates {
		a := &candidates[i]
		result.CheckedAgents++

		ar, include := s.scanOne(ctx, a, ev, scanKey)
		if !include {
			continue
		}
		if ar.Executed {
			result.ExecutedAgents++
		}
		result.Results = append(result.Results, ar)
	}
	return result
}

// scanOne 处理单个智能体；include 为 false 表示该智能体与本次事件无关
func (s *Scanner) scanOne(ctx context.Context, a *agent.Agent, ev *Event, scanKey string) (ar AgentResult, include bool) {
	ar = AgentResult{AgentID: a.ID, AgentName: a.Name}

	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("智能体 %s 扫描 panic: %v", a.ID, r))
			ar.Error = fmt.Sprintf("内部错误: %v", r)
			include = true
		}
	}()

	cfg, err := a.TriggerConfig()
	if err != nil {
		ar.Error = err.Error()
		return ar, true
	}
	if cfg == nil || !cfg.Enabled {
		return ar, false
	}

	// 定时事件的最小间隔背压：静默跳过，不产生审计记录
	if ev.Type == agent.TriggerScheduled && a.IntervalMinutes > 0 && a.LastTriggerExecution != nil {
		minGap := time.Duration(a.IntervalMinutes) * time.Minute
		if ev.Time.Sub(a.LastTriggerExecution.UTC()) < minGap {
			return ar, false
		}
	}

	match, err := s.matcher.Match(ctx, a, cfg, ev)
	if err != nil {
		ar.Error = err.Error()
		s.audit(ctx, a, ev, false, false, nil, err)
		return ar, true
	}
	ar.Matched = match.Matched

	if !shouldExecute(cfg, match.Matched) {
		s.audit(ctx, a, ev, match.Matched, false, match.Trace, nil)
		return ar, match.Matched
	}

	if !s.claimer.TryClaim(ctx, a.ID, scanKey) {
		logger.Info(fmt.Sprintf("智能体 %s 的扫描 %s 已被占用，跳过", a.ID, scanKey))
		s.audit(ctx, a, ev, match.Matched, false, match.Trace, nil)
		return ar, true
	}

	metrics.TriggerFiresTotal.WithLabelValues(ev.Type).Inc()

	inputs, err := s.resolver.ResolveAll(ctx, collectInputIDs(a, cfg), ev)
	if err != nil {
		ar.Error = err.Error()
		s.audit(ctx, a, ev, match.Matched, false, match.Trace, err)
		return ar, true
	}

	output, err := s.runner.Run(ctx, a, inputs, ev)
	now := time.Now().UTC()
	if touchErr := s.agents.TouchLastTriggerExecution(ctx, a.ID, now); touchErr != nil {
		logger.Warn(fmt.Sprintf("更新智能体 %s 触发时间失败: %v", a.ID, touchErr))
	}
	if err != nil {
		ar.Error = err.Error()
		s.audit(ctx, a, ev, match.Matched, true, match.Trace, err)
		return ar, true
	}

	ar.Executed = true
	ar.Output = output
	s.audit(ctx, a, ev, match.Matched, true, match.Trace, nil)
	return ar, true
}

// shouldExecute 按分支引用决定是否进入流水线。
// 条件满足时执行，除非满足分支显式指向终止；条件不满足时通常终止，
// 除非不满足分支指向了后续模块。
func shouldExecute(cfg *agent.TriggerConfig, matched bool) bool {
	if matched {
		return cfg.CorrectModuleID != agent.StopModuleRef
	}
	return cfg.NotCorrectModuleID != "" && cfg.NotCorrectModuleID != agent.StopModuleRef
}

// collectInputIDs 汇总触发配置与旧版输入列表引用到的全部输入
func collectInputIDs(a *agent.Agent, cfg *agent.TriggerConfig) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id == "" || id == "none" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, it := range cfg.InputTriggers {
		add(it.InputID)
		for _, cond := range it.Conditions {
			add(cond.Field)
		}
	}
	for _, id := range a.Inputs {
		add(id)
	}
	return ids
}

func (s *Scanner) audit(ctx context.Context, a *agent.Agent, ev *Event, matched, executed bool, trace []agent.ConditionTrace, execErr error) {
	te := &agent.TriggerExecution{
		AgentID:     a.ID,
		TriggerType: ev.Type,
		EntityType:  ev.EntityType,
		EntityID:    ev.EntityID,
		Matched:     matched,
		Executed:    executed,
		Trace:       trace,
	}
	if execErr != nil {
		te.ErrorMessage = execErr.Error()
	}
	_ = s.agents.RecordTriggerExecution(ctx, te)
}
