package flow

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ErrMsgNoNextStep marks a non-completion node with no resolvable outgoing edge.
const ErrMsgNoNextStep = "no next step defined"

// GetStartNode returns the flow's declared start node.
func GetStartNode(def *Definition) (*Node, error) {
	node := def.NodeByID(def.StartNodeID)
	if node == nil {
		return nil, fmt.Errorf("flow %q start node %q: %w", def.ID, def.StartNodeID, ErrNoStartNode)
	}
	return node, nil
}

// EvaluateCondition tests a single condition. A condition on the node being answered reads
// the submitted value; any other field reads the stored response of that node.
func EvaluateCondition(cond Condition, submitted any, state State, currentNodeID string) bool {
	var actual any
	if cond.Field == currentNodeID {
		actual = submitted
	} else if entry, ok := state[cond.Field]; ok {
		actual = entry.Response
	}

	if actual == nil {
		return cond.Operator == OpNotEquals || cond.Operator == OpNotIn
	}

	switch cond.Operator {
	case OpEquals:
		return looseEqual(actual, cond.Value)
	case OpNotEquals:
		return !looseEqual(actual, cond.Value)
	case OpContains:
		return contains(actual, cond.Value)
	case OpGreaterThan:
		a, okA := toNumber(actual)
		b, okB := toNumber(cond.Value)
		return okA && okB && a > b
	case OpLessThan:
		a, okA := toNumber(actual)
		b, okB := toNumber(cond.Value)
		return okA && okB && a < b
	case OpIn:
		return inList(actual, cond.Value)
	case OpNotIn:
		return !inList(actual, cond.Value)
	default:
		slog.Warn("Unknown condition operator", "operator", cond.Operator, "field", cond.Field)
		return false
	}
}

// EvaluateConditions folds the conditions left to right starting from true. The first
// condition is always AND-ed; each later condition joins the running result with its
// own Logic, so [A(AND)=false, B(OR)=true] yields true. Authored order matters.
func EvaluateConditions(conds []Condition, state State, submitted any, currentNodeID string) bool {
	result := true
	for i, cond := range conds {
		value := EvaluateCondition(cond, submitted, state, currentNodeID)
		if i > 0 && strings.EqualFold(cond.Logic, LogicOr) {
			result = result || value
		} else {
			result = result && value
		}
	}
	return result
}

// DetermineNextNode resolves where the flow goes after submitted is recorded on the current node.
func DetermineNextNode(nav NavigationContext, submitted any) NextResult {
	current := nav.CurrentNode
	if current.Type == NodeCompletion {
		return NextResult{Completed: true}
	}

	for _, cn := range current.ConditionalNext {
		if !EvaluateConditions(cn.Conditions, nav.State, submitted, current.ID) {
			continue
		}
		if next := nav.Flow.NodeByID(cn.NextNodeID); next != nil {
			return NextResult{Next: next}
		}
		slog.Warn("Conditional target not found", "flowId", nav.Flow.ID, "node", current.ID, "target", cn.NextNodeID)
	}

	if next := nav.Flow.NodeByID(current.NextNodeID); next != nil {
		return NextResult{Next: next}
	}

	return NextResult{Completed: true, Error: ErrMsgNoNextStep}
}

// ValidateResponse runs the node's validations in order and reports the first failure.
func ValidateResponse(node *Node, value any) ValidationResult {
	if node.Type == NodeInfo || node.ResponseType == "" {
		return ValidationResult{Valid: true}
	}

	for _, rule := range node.Validations {
		if !passes(rule, value) {
			return ValidationResult{Valid: false, Error: rule.Message}
		}
	}
	return ValidationResult{Valid: true}
}

func passes(rule Validation, value any) bool {
	switch rule.Type {
	case ValidationRequired:
		if value == nil {
			return false
		}
		if s, ok := value.(string); ok && s == "" {
			return false
		}
		return true

	case ValidationMin, ValidationMax:
		limit, ok := toNumber(rule.Value)
		if !ok {
			return true
		}
		size, ok := magnitude(value)
		if !ok {
			return true
		}
		if rule.Type == ValidationMin {
			return size >= limit
		}
		return size <= limit

	case ValidationPattern:
		s, ok := value.(string)
		if !ok {
			return true
		}
		pattern, _ := rule.Value.(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			slog.Warn("Skipping invalid validation pattern", "pattern", pattern, "error", err)
			return true
		}
		return re.MatchString(s)
	}
	return true
}

// magnitude is the numeric value of a number or the length of a string.
func magnitude(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		return float64(utf8.RuneCountInString(s)), true
	}
	return toFloat64(v)
}

// GetProgress counts answered question and decision nodes.
func GetProgress(def *Definition, state State) Progress {
	var p Progress
	for _, n := range def.Nodes {
		if n.Type != NodeQuestion && n.Type != NodeDecision {
			continue
		}
		p.Total++
		if _, ok := state[n.ID]; ok {
			p.Current++
		}
	}
	if p.Total > 0 {
		p.Percentage = int(math.Round(float64(p.Current) / float64(p.Total) * 100))
	}
	return p
}

func looseEqual(a, b any) bool {
	if fa, ok := toFloat64(a); ok {
		if fb, ok := toFloat64(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func contains(actual, value any) bool {
	switch v := actual.(type) {
	case string:
		needle, ok := value.(string)
		if !ok {
			needle = fmt.Sprint(value)
		}
		return strings.Contains(strings.ToLower(v), strings.ToLower(needle))
	case []any:
		for _, item := range v {
			if looseEqual(item, value) {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if looseEqual(item, value) {
				return true
			}
		}
	}
	return false
}

func inList(actual, list any) bool {
	switch l := list.(type) {
	case []any:
		for _, item := range l {
			if looseEqual(actual, item) {
				return true
			}
		}
		return false
	case []string:
		for _, item := range l {
			if looseEqual(actual, item) {
				return true
			}
		}
		return false
	case nil:
		return false
	default:
		return looseEqual(actual, l)
	}
}

// toNumber converts numbers and numeric strings.
func toNumber(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return f, err == nil
	}
	return toFloat64(v)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
