package filter

import (
	"encoding/json"
	"math"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

// ConditionKind tells which variant a Condition holds.
type ConditionKind int

const (
	// KindValue is a bare scalar, an implicit equals.
	KindValue ConditionKind = iota
	// KindOperators is an operator to operand mapping.
	KindOperators
	// KindNested is a set of filters on a related entity.
	KindNested
)

// Condition is the client filter placed on a single field.
//
// For KindOperators the operand of OpNot is itself a Condition
// of kind KindValue or KindOperators.
type Condition struct {
	Kind   ConditionKind
	Value  any
	Ops    map[Operator]any
	Nested Filters
}

// Filters maps field names to their conditions.
type Filters map[string]Condition

func ValueCondition(v any) Condition {
	return Condition{Kind: KindValue, Value: v}
}

func OperatorCondition(ops map[Operator]any) Condition {
	return Condition{Kind: KindOperators, Ops: ops}
}

func NestedCondition(f Filters) Condition {
	return Condition{Kind: KindNested, Nested: f}
}

// Empty reports whether the condition constrains nothing.
func (c Condition) Empty() bool {
	switch c.Kind {
	case KindOperators:
		return len(c.Ops) == 0
	case KindNested:
		return len(c.Nested) == 0
	default:
		return false
	}
}

var jsoniterForFilter = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

// DecodeFilters decodes the JSON object form of a filter tree.
// Unknown operators are dropped, numbers become int64 or float64.
func DecodeFilters(data []byte) (Filters, error) {
	var raw any
	if err := jsoniterForFilter.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "unmarshal filters")
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, errors.New("filters must be a JSON object")
	}
	return filtersFromMap(m), nil
}

func (f *Filters) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeFilters(data)
	if err != nil {
		return err
	}
	*f = decoded
	return nil
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var raw any
	if err := jsoniterForFilter.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "unmarshal condition")
	}
	cond, ok := conditionFromAny(raw, true)
	if !ok {
		return errors.New("unsupported condition")
	}
	*c = cond
	return nil
}

func (c Condition) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case KindOperators:
		m := make(map[string]any, len(c.Ops))
		for op, v := range c.Ops {
			m[string(op)] = v
		}
		return jsoniterForFilter.Marshal(m)
	case KindNested:
		return jsoniterForFilter.Marshal(map[string]Condition(c.Nested))
	default:
		return jsoniterForFilter.Marshal(c.Value)
	}
}

func filtersFromMap(m map[string]any) Filters {
	out := Filters{}
	for field, v := range m {
		if field == "" {
			continue
		}
		if cond, ok := conditionFromAny(v, true); ok {
			out[field] = cond
		}
	}
	return out
}

// conditionFromAny classifies a decoded JSON value. An object holding any
// "$" key is an operator map, any other object is a relation.
func conditionFromAny(v any, allowNested bool) (Condition, bool) {
	m, ok := v.(map[string]any)
	if !ok {
		return ValueCondition(normalizeJSONValue(v)), true
	}
	if !hasOperatorKey(m) {
		if !allowNested {
			return Condition{}, false
		}
		return NestedCondition(filtersFromMap(m)), true
	}
	ops := make(map[Operator]any, len(m))
	for k, opv := range m {
		op, ok := ParseOperator(k)
		if !ok {
			continue
		}
		if op == OpNot {
			sub, ok := conditionFromAny(opv, false)
			if !ok {
				continue
			}
			ops[op] = sub
			continue
		}
		if op == OpIn || op == OpNin {
			ops[op] = asList(normalizeJSONValue(opv))
			continue
		}
		ops[op] = normalizeJSONValue(opv)
	}
	return OperatorCondition(ops), true
}

func hasOperatorKey(m map[string]any) bool {
	for k := range m {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}

func normalizeJSONValue(v any) any {
	switch vv := v.(type) {
	case json.Number:
		return numberValue(string(vv))
	case jsoniter.Number:
		return numberValue(string(vv))
	case []any:
		out := make([]any, len(vv))
		for i, item := range vv {
			out[i] = normalizeJSONValue(item)
		}
		return out
	default:
		return v
	}
}

func numberValue(s string) any {
	n := json.Number(s)
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}
