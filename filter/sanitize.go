package filter

// Sanitize keeps only the fields and operators p allows. It never fails:
// anything not explicitly permitted is dropped. The result is nil when
// nothing survives.
func Sanitize(p *Policy, f Filters) Filters {
	if p == nil || len(f) == 0 {
		return nil
	}
	out := Filters{}
	for field, cond := range f {
		rule, ok := p.Filterable[field]
		if !ok {
			continue
		}
		if sanitized, ok := sanitizeCondition(rule, cond); ok {
			out[field] = sanitized
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sanitizeCondition(rule Rule, cond Condition) (Condition, bool) {
	if rule.IsRelation() {
		if cond.Kind != KindNested {
			return Condition{}, false
		}
		nested := NestedCondition(Sanitize(rule.Policy(), cond.Nested))
		if nested.Empty() {
			return Condition{}, false
		}
		return nested, true
	}

	switch cond.Kind {
	case KindValue:
		if !rule.Allows(OpEq) {
			return Condition{}, false
		}
		return OperatorCondition(map[Operator]any{OpEq: cond.Value}), true
	case KindOperators:
		sanitized := OperatorCondition(sanitizeOperators(rule, cond.Ops))
		if sanitized.Empty() {
			return Condition{}, false
		}
		return sanitized, true
	default:
		return Condition{}, false
	}
}

func sanitizeOperators(rule Rule, ops map[Operator]any) map[Operator]any {
	out := make(map[Operator]any, len(ops))
	for op, v := range ops {
		if !rule.Allows(op) {
			continue
		}
		if op == OpNot {
			sub, ok := v.(Condition)
			if !ok {
				sub = ValueCondition(v)
			}
			switch sub.Kind {
			case KindValue:
			case KindOperators:
				sub = OperatorCondition(sanitizeOperators(rule, sub.Ops))
				if sub.Empty() {
					continue
				}
			default:
				continue
			}
			v = sub
		}
		out[op] = v
	}
	return out
}

// SanitizeSort keeps the sortable fields of s in order. A direction forced by
// the policy wins over the client's, otherwise invalid directions are dropped.
func SanitizeSort(p *Policy, s Sort) Sort {
	if p == nil || len(s) == 0 {
		return nil
	}
	var out Sort
	seen := map[string]bool{}
	for _, o := range s {
		if seen[o.Field] {
			continue
		}
		rule := p.Sortable[o.Field]
		if rule == SortDenied {
			continue
		}
		dir, ok := rule.Forced()
		if !ok {
			dir, ok = ParseDirection(string(o.Direction))
			if !ok {
				continue
			}
		}
		seen[o.Field] = true
		out = append(out, Order{Field: o.Field, Direction: dir})
	}
	return out
}
