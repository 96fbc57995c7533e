package trigger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backend/internal/agent"
	"backend/internal/logger"
	"backend/internal/trigger/condlogic"
)

// MatchResult 一次触发决策的结果与逐条件轨迹
type MatchResult struct {
	Matched bool
	Trace   []agent.ConditionTrace
}

// Matcher 依据触发配置对事件做匹配决策
type Matcher struct {
	resolver *Resolver
}

// NewMatcher 创建触发匹配器
func NewMatcher(resolver *Resolver) *Matcher {
	return &Matcher{resolver: resolver}
}

// Match 评估触发配置。
// 每个输入触发组先逐条件求布尔值，再按组内的条件表达式归约为组结果，
// 最后把组合策略在全部组结果上应用一次。
func (m *Matcher) Match(ctx context.Context, a *agent.Agent, cfg *agent.TriggerConfig, ev *Event) (*MatchResult, error) {
	result := &MatchResult{}
	if len(cfg.InputTriggers) == 0 {
		return result, nil
	}

	groupResults := make([]bool, 0, len(cfg.InputTriggers))
	for _, it := range cfg.InputTriggers {
		condResults := make([]bool, len(it.Conditions))
		for i, cond := range it.Conditions {
			satisfied, detail, err := m.evalCondition(ctx, a, &it, &cond, ev)
			if err != nil {
				return nil, err
			}
			condResults[i] = satisfied
			result.Trace = append(result.Trace, agent.ConditionTrace{
				InputID:   it.InputID,
				Index:     i,
				Type:      cond.Type,
				Operator:  cond.Operator,
				Field:     cond.Field,
				Satisfied: satisfied,
				Detail:    detail,
			})
		}

		groupValue, err := condlogic.Eval(it.ConditionLogic, condResults)
		if err != nil {
			// 非法表达式采用回退值，但要留痕
			logger.Warn(fmt.Sprintf("智能体 %s 的条件表达式非法，回退为 OR: %v", a.ID, err))
		}
		groupResults = append(groupResults, groupValue)
	}

	result.Matched = applyStrategy(cfg.Strategy, groupResults)
	return result, nil
}

// applyStrategy 组合策略只在此处应用，且只应用一次
func applyStrategy(strategy string, groups []bool) bool {
	if len(groups) == 0 {
		return false
	}
	switch strategy {
	case agent.StrategyAnyMatch:
		for _, g := range groups {
			if g {
				return true
			}
		}
		return false
	default: // all_match 为缺省
		for _, g := range groups {
			if !g {
				return false
			}
		}
		return true
	}
}

func (m *Matcher) evalCondition(ctx context.Context, a *agent.Agent, it *agent.InputTrigger, cond *agent.TriggerCondition, ev *Event) (bool, string, error) {
	switch cond.Type {
	case agent.ConditionTypeTrigger:
		return m.evalTriggerCondition(a, cond, ev)
	case agent.ConditionTypeFilter:
		return m.evalFilterCondition(ctx, it, cond, ev)
	default:
		// 未知条件类型视为不满足，不让坏配置阻断整次扫描
		return false, fmt.Sprintf("未知的条件类型 %s", cond.Type), nil
	}
}

func (m *Matcher) evalTriggerCondition(a *agent.Agent, cond *agent.TriggerCondition, ev *Event) (bool, string, error) {
	if cond.TriggerType != ev.Type {
		return false, fmt.Sprintf("事件类型 %s 不匹配 %s", ev.Type, cond.TriggerType), nil
	}
	if cond.TriggerType == agent.TriggerScheduled && cond.ScheduleTime != "" {
		return evalScheduleTime(a, cond.ScheduleTime, ev.Time)
	}
	return true, "", nil
}

// evalScheduleTime 定点触发：当天到点后满足一次，同一 UTC 日内已触发则不再满足
func evalScheduleTime(a *agent.Agent, scheduleTime string, now time.Time) (bool, string, error) {
	var hh, mm int
	if _, err := fmt.Sscanf(scheduleTime, "%d:%d", &hh, &mm); err != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return false, fmt.Sprintf("非法的定点时间 %q", scheduleTime), nil
	}
	now = now.UTC()
	target := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, time.UTC)
	if now.Before(target) {
		return false, fmt.Sprintf("未到 %s", scheduleTime), nil
	}
	if last := a.LastTriggerExecution; last != nil && !last.UTC().Before(target) {
		return false, "当日已触发", nil
	}
	return true, "", nil
}

func (m *Matcher) evalFilterCondition(ctx context.Context, it *agent.InputTrigger, cond *agent.TriggerCondition, ev *Event) (bool, string, error) {
	fieldRef := cond.Field
	if fieldRef == "" {
		fieldRef = it.InputID
	}

	if cond.Operator == agent.OperatorChanged {
		col := FieldColumn(fieldRef)
		if col == "" {
			col = fieldRef
		}
		if ev.FieldChanged(col) {
			return true, "", nil
		}
		return false, fmt.Sprintf("字段 %s 未变更", fieldRef), nil
	}

	raw, err := m.resolver.Resolve(ctx, fieldRef, ev)
	if err != nil {
		return false, "", err
	}
	value := stringify(raw)

	satisfied := applyOperator(cond.Operator, value, cond.Value)
	detail := ""
	if !satisfied {
		detail = fmt.Sprintf("%q %s %q 不成立", value, cond.Operator, cond.Value)
	}
	return satisfied, detail, nil
}

func applyOperator(operator, value, expected string) bool {
	switch operator {
	case agent.OperatorEquals:
		return value == expected
	case agent.OperatorNotEquals:
		return value != expected
	case agent.OperatorContains:
		return expected != "" && strings.Contains(value, expected)
	case agent.OperatorNotContains:
		return !strings.Contains(value, expected)
	case agent.OperatorIsEmpty:
		return strings.TrimSpace(value) == ""
	case agent.OperatorIsNotEmpty:
		return strings.TrimSpace(value) != ""
	case agent.OperatorStartsWith:
		return expected != "" && strings.HasPrefix(value, expected)
	case agent.OperatorEndsWith:
		return expected != "" && strings.HasSuffix(value, expected)
	default:
		return false
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}
