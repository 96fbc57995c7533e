package pipeline

import (
	"context"
	"fmt"
	"strings"

	"backend/internal/agent"
	"backend/internal/board"
	"backend/internal/logger"
	"backend/internal/metrics"
	"backend/internal/trigger"
)

// Dispatcher 把提取出的变量派发到配置的目的地
type Dispatcher struct {
	boards *board.Service
	agents *agent.Service
}

// NewDispatcher 创建路由派发器
func NewDispatcher(boards *board.Service, agents *agent.Service) *Dispatcher {
	return &Dispatcher{boards: boards, agents: agents}
}

// RouteOutcome 一次路由的结果
type RouteOutcome struct {
	Dispatched int
	Errors     []string
}

// Route 按路由策略派发。单条规则的失败只计入 Errors，不中断其余规则。
func (d *Dispatcher) Route(ctx context.Context, a *agent.Agent, routerCfg *agent.RouterModuleConfig, destCfg *agent.DestinationsModuleConfig, vars map[string]any, parsed any, output string, ev *trigger.Event) *RouteOutcome {
	outcome := &RouteOutcome{}
	if destCfg == nil || len(destCfg.Destinations) == 0 {
		return outcome
	}

	switch routerCfg.Strategy {
	case agent.RouterAllDestinations, "":
		for i := range destCfg.Destinations {
			d.dispatchOne(ctx, a, &destCfg.Destinations[i], "output", output, ev, outcome)
		}
	case agent.RouterBasedOnLLM:
		// 说明文本仅用于配置侧校验，派发语义与 based_on_input 一致
		logger.Info(fmt.Sprintf("智能体 %s 使用 based_on_llm 路由: %s", a.ID, routerCfg.Description))
		fallthrough
	case agent.RouterBasedOnInput:
		d.routeByRules(ctx, a, routerCfg, destCfg, vars, parsed, ev, outcome)
	default:
		outcome.Errors = append(outcome.Errors, fmt.Sprintf("未知的路由策略: %s", routerCfg.Strategy))
	}
	return outcome
}

func (d *Dispatcher) routeByRules(ctx context.Context, a *agent.Agent, routerCfg *agent.RouterModuleConfig, destCfg *agent.DestinationsModuleConfig, vars map[string]any, parsed any, ev *trigger.Event, outcome *RouteOutcome) {
	parsedMap, _ := parsed.(map[string]any)

	for _, rule := range routerCfg.Rules {
		varName, value, ok := resolveRuleValue(rule.SourceVariableID, vars, parsedMap)
		if !ok {
			// 变量没有解析出值不算错误，跳过该条规则
			logger.Debug(fmt.Sprintf("规则变量 %s 无值，跳过", varName))
			continue
		}
		dest := destCfg.DestinationByID(rule.DestinationID)
		if dest == nil {
			d.ruleError(outcome, fmt.Sprintf("规则引用了不存在的目的地 %s", rule.DestinationID))
			continue
		}
		d.dispatchOne(ctx, a, dest, varName, value, ev, outcome)
	}
}

// resolveRuleValue 解析规则引用的变量。引用多个变量时拼接为数组，
// 单个变量保持原值；一个值都没有时规则视为未解析。
func resolveRuleValue(ids []string, vars map[string]any, parsed map[string]any) (string, any, bool) {
	name := strings.Join(ids, ",")
	if len(ids) == 1 {
		value, ok := lookupVariable(ids[0], vars, parsed)
		return name, value, ok
	}
	values := make([]any, 0, len(ids))
	for _, id := range ids {
		value, ok := lookupVariable(id, vars, parsed)
		if !ok {
			logger.Debug(fmt.Sprintf("变量 %s 无值，忽略", id))
			continue
		}
		values = append(values, value)
	}
	if len(values) == 0 {
		return name, nil, false
	}
	return name, values, true
}

// lookupVariable 先查提取变量，再回退到解析输出的顶层键
func lookupVariable(name string, vars map[string]any, parsed map[string]any) (any, bool) {
	if v, ok := vars[name]; ok {
		return v, true
	}
	if parsed != nil {
		if v, ok := parsed[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (d *Dispatcher) dispatchOne(ctx context.Context, a *agent.Agent, dest *agent.Destination, varName string, value any, ev *trigger.Event, outcome *RouteOutcome) {
	switch dest.Type {
	case agent.DestinationDatabase:
		if err := d.writeDatabase(ctx, dest, value, ev); err != nil {
			d.ruleError(outcome, fmt.Sprintf("写入 %s.%s 失败: %v", dest.TargetTable, dest.TargetColumn, err))
			return
		}
	case agent.DestinationUIComponent:
		if err := d.writeUIEvent(ctx, a, dest, varName, value, ev); err != nil {
			d.ruleError(outcome, fmt.Sprintf("写入组件事件 %s 失败: %v", dest.ComponentName, err))
			return
		}
	default:
		d.ruleError(outcome, fmt.Sprintf("未知的目的地类型: %s", dest.Type))
		return
	}
	outcome.Dispatched++
}

// writeDatabase 派发到数据库单列；记录 ID 缺省取触发实体
func (d *Dispatcher) writeDatabase(ctx context.Context, dest *agent.Destination, value any, ev *trigger.Event) error {
	recordID := dest.RecordID
	if recordID == "" && ev != nil {
		recordID = ev.EntityID
	}
	if recordID == "" {
		return fmt.Errorf("无法确定目标记录")
	}
	return d.boards.UpdateColumn(ctx, dest.TargetTable, dest.TargetColumn, recordID, stringifyInput(value))
}

func (d *Dispatcher) writeUIEvent(ctx context.Context, a *agent.Agent, dest *agent.Destination, varName string, value any, ev *trigger.Event) error {
	taskID := ""
	if ev != nil && ev.EntityType == "task" {
		taskID = ev.EntityID
	}
	if taskID == "" {
		return fmt.Errorf("无法确定目标任务")
	}
	return d.agents.CreateUIEvent(ctx, &agent.UIEvent{
		AgentID:       a.ID,
		TaskID:        taskID,
		ComponentName: dest.ComponentName,
		EventType:     dest.EventType,
		Payload:       map[string]any{varName: value},
	})
}

func (d *Dispatcher) ruleError(outcome *RouteOutcome, msg string) {
	metrics.RouterRuleErrorsTotal.Inc()
	logger.Warn("路由规则失败: " + msg)
	outcome.Errors = append(outcome.Errors, msg)
}
