package gormstore

import (
	"strings"

	"gorm.io/gorm/clause"
)

// ClauseNot negates exprs. Unlike clause.Not it joins negated conditions with
// OR, so NOT (a AND b) renders as (a' OR b').
func ClauseNot(exprs ...clause.Expression) clause.Expression {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		if and, ok := exprs[0].(clause.AndConditions); ok {
			exprs = and.Exprs
		}
	}
	return NotConditions{Exprs: exprs}
}

type NotConditions struct {
	Exprs []clause.Expression
}

func (not NotConditions) Build(builder clause.Builder) {
	negatable := false
	for _, c := range not.Exprs {
		if _, ok := c.(clause.NegationExpressionBuilder); ok {
			negatable = true
			break
		}
	}

	grouped := len(not.Exprs) > 1
	if !negatable {
		_, _ = builder.WriteString("NOT ")
	}
	if grouped {
		_ = builder.WriteByte('(')
	}

	for idx, c := range not.Exprs {
		if idx > 0 {
			_, _ = builder.WriteString(separator(negatable, c))
		}
		if negatable {
			if nb, ok := c.(clause.NegationExpressionBuilder); ok {
				nb.NegationBuild(builder)
				continue
			}
			_, _ = builder.WriteString("NOT ")
		}
		buildWrapped(builder, c)
	}

	if grouped {
		_ = builder.WriteByte(')')
	}
}

func separator(negatable bool, c clause.Expression) string {
	if negatable {
		return clause.OrWithSpace
	}
	if _, ok := c.(clause.OrConditions); ok {
		return clause.OrWithSpace
	}
	return clause.AndWithSpace
}

// buildWrapped parenthesizes raw expressions containing a top-level AND/OR.
func buildWrapped(builder clause.Builder, c clause.Expression) {
	wrap := false
	if e, ok := c.(clause.Expr); ok {
		sql := strings.ToUpper(e.SQL)
		wrap = strings.Contains(sql, clause.AndWithSpace) || strings.Contains(sql, clause.OrWithSpace)
	}
	if wrap {
		_ = builder.WriteByte('(')
	}
	c.Build(builder)
	if wrap {
		_ = builder.WriteByte(')')
	}
}
