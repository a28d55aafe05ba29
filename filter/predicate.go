package filter

import (
	"strings"
)

// Predicate is the store-native condition tree. Values are Comparison for
// scalar fields, Predicate for relations, []Predicate under AND/OR and
// Predicate under NOT.
type Predicate map[string]any

// Comparison holds the native comparisons applied to one scalar field.
// The value of KeyIs is true for IS NULL and false for IS NOT NULL.
type Comparison map[string]any

// Transform rewrites sanitized filters into a Predicate. It only ever maps
// keys that are present in f, so it must be fed the output of Sanitize.
func Transform(f Filters) Predicate {
	if len(f) == 0 {
		return nil
	}
	out := Predicate{}
	for field, cond := range f {
		switch cond.Kind {
		case KindNested:
			if p := Transform(cond.Nested); len(p) > 0 {
				out[field] = p
			}
		case KindValue:
			out[field] = Comparison{KeyEquals: cond.Value}
		case KindOperators:
			if c := transformOperators(cond.Ops); len(c) > 0 {
				out[field] = c
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func transformOperators(ops map[Operator]any) Comparison {
	c := Comparison{}
	var negated Comparison
	for op, v := range ops {
		switch op {
		case OpMode:
			continue
		case OpNot:
			negated = transformNot(v)
			continue
		case OpIn, OpNin:
			v = asList(v)
		case OpIs:
			isNull, ok := nullCheck(v)
			if !ok {
				continue
			}
			v = isNull
		}
		if key, ok := op.NativeKey(); ok {
			c[key] = v
		}
	}

	if mode, ok := modeValue(ops[OpMode]); ok && hasStringMatch(ops) {
		c[KeyMode] = mode
	}

	if len(negated) > 0 {
		if ne, ok := c[KeyNot]; ok {
			delete(c, KeyNot)
			c[LogicalAnd] = []Comparison{{KeyNot: ne}, {KeyNot: negated}}
		} else {
			c[KeyNot] = negated
		}
	}
	return c
}

func transformNot(v any) Comparison {
	sub, ok := v.(Condition)
	if !ok {
		return Comparison{KeyEquals: v}
	}
	switch sub.Kind {
	case KindValue:
		return Comparison{KeyEquals: sub.Value}
	case KindOperators:
		return transformOperators(sub.Ops)
	default:
		return nil
	}
}

func hasStringMatch(ops map[Operator]any) bool {
	for op := range ops {
		if op.IsStringMatch() {
			return true
		}
	}
	return false
}

func modeValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	switch mode := strings.ToLower(s); mode {
	case ModeInsensitive, ModeDefault:
		return mode, true
	}
	return "", false
}

func asList(v any) []any {
	switch vv := v.(type) {
	case []any:
		return vv
	case []string:
		out := make([]any, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func nullCheck(v any) (bool, bool) {
	switch vv := v.(type) {
	case nil:
		return true, true
	case bool:
		return vv, true
	case string:
		switch strings.ToLower(strings.TrimSpace(vv)) {
		case "null", "true":
			return true, true
		case "notnull", "not null", "false":
			return false, true
		}
	}
	return false, false
}

// Search builds a case-insensitive OR-group requiring term to be contained
// in at least one of fields. It returns nil for an empty term or no fields.
func Search(term string, fields []string) Predicate {
	if term == "" || len(fields) == 0 {
		return nil
	}
	group := make([]Predicate, 0, len(fields))
	for _, field := range fields {
		group = append(group, Predicate{
			field: Comparison{KeyContains: term, KeyMode: ModeInsensitive},
		})
	}
	return Predicate{LogicalOr: group}
}

// And combines predicates, skipping empty ones.
func And(preds ...Predicate) Predicate {
	var nonEmpty []Predicate
	for _, p := range preds {
		if len(p) > 0 {
			nonEmpty = append(nonEmpty, p)
		}
	}
	switch len(nonEmpty) {
	case 0:
		return nil
	case 1:
		return nonEmpty[0]
	default:
		return Predicate{LogicalAnd: nonEmpty}
	}
}
