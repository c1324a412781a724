package engine

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/openhire/hire/internal/engine/model"
)

// EvaluateConditions reports whether all guard conditions on a transition
// hold for the given instance. Conditions combine with logical AND; an empty
// list means the transition is always eligible. Evaluation is pure: it never
// mutates the instance and coercion failures fail the condition rather than
// erroring, so guards fail closed.
func EvaluateConditions(conditions []model.WorkflowCondition, instance *model.WorkflowInstance, actorRole string, now time.Time) bool {
	for _, c := range conditions {
		if !evaluateCondition(c, instance, actorRole, now) {
			return false
		}
	}
	return true
}

func evaluateCondition(c model.WorkflowCondition, instance *model.WorkflowInstance, actorRole string, now time.Time) bool {
	switch c.Type {
	case model.ConditionTypeField:
		value, present := instance.MetadataValue(c.Field)
		return evaluateFieldCondition(c, value, present)
	case model.ConditionTypeRole:
		// Role enforcement is delegated to the caller's identity context;
		// the engine has no role data of its own. Known gap, kept as a no-op
		// so callers are not surprised by partial enforcement.
		slog.Debug("role condition evaluated as pass-through, caller must enforce roles",
			"instance_id", instance.ID,
			"actor_role", actorRole,
		)
		return true
	case model.ConditionTypeTime:
		return evaluateTimeCondition(c, instance, now)
	default:
		// Unknown condition types fail closed.
		return false
	}
}

func evaluateFieldCondition(c model.WorkflowCondition, value any, present bool) bool {
	switch c.Operator {
	case model.OperatorExists:
		return present && value != nil
	case model.OperatorEquals:
		return present && looseEquals(value, c.Value)
	case model.OperatorNotEquals:
		return !present || !looseEquals(value, c.Value)
	case model.OperatorGreaterThan:
		a, aok := coerceNumber(value)
		b, bok := coerceNumber(c.Value)
		return aok && bok && a > b
	case model.OperatorLessThan:
		a, aok := coerceNumber(value)
		b, bok := coerceNumber(c.Value)
		return aok && bok && a < b
	case model.OperatorContains:
		s, sok := value.(string)
		sub, subok := c.Value.(string)
		return sok && subok && strings.Contains(s, sub)
	case model.OperatorIn:
		return present && evaluateMembership(value, c.Value)
	default:
		return false
	}
}

func evaluateTimeCondition(c model.WorkflowCondition, instance *model.WorkflowInstance, now time.Time) bool {
	last := instance.LastHistoryEntry()
	if last == nil {
		return false
	}
	elapsedMillis := float64(now.Sub(last.Timestamp).Milliseconds())
	threshold, ok := coerceNumber(c.Value)
	if !ok {
		return false
	}
	switch c.Operator {
	case model.OperatorGreaterThan:
		return elapsedMillis > threshold
	case model.OperatorLessThan:
		return elapsedMillis < threshold
	default:
		return false
	}
}

// evaluateMembership checks value membership in an "in" condition's list.
// The list may arrive as []any (decoded JSON) or []string.
func evaluateMembership(value, list any) bool {
	switch items := list.(type) {
	case []any:
		for _, item := range items {
			if looseEquals(value, item) {
				return true
			}
		}
	case []string:
		s, ok := value.(string)
		if !ok {
			return false
		}
		for _, item := range items {
			if item == s {
				return true
			}
		}
	}
	return false
}

// looseEquals compares two metadata values, treating numbers of different
// concrete types as equal when their numeric values match. JSON decoding
// turns everything numeric into float64, but definitions built in Go code
// carry native ints.
func looseEquals(a, b any) bool {
	if an, aok := coerceNumber(a); aok {
		if bn, bok := coerceNumber(b); bok {
			return an == bn
		}
		return false
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b) && a != nil && b != nil
}

// coerceNumber converts a metadata value to float64 for numeric comparison.
// Strings are parsed; anything non-numeric reports false.
func coerceNumber(v any) (float64, bool) {
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
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
