package filter

import "strings"

// Operator is a client-facing comparison token such as "$eq" or "$in".
type Operator string

const (
	OpEq         Operator = "$eq"
	OpGt         Operator = "$gt"
	OpGte        Operator = "$gte"
	OpLt         Operator = "$lt"
	OpLte        Operator = "$lte"
	OpNe         Operator = "$ne"
	OpIn         Operator = "$in"
	OpNin        Operator = "$nin"
	OpContains   Operator = "$contains"
	OpStartsWith Operator = "$startsWith"
	OpEndsWith   Operator = "$endsWith"
	OpMode       Operator = "$mode"
	OpNot        Operator = "$not"
	OpIs         Operator = "$is"
)

// Operators lists every recognised operator in a stable order.
var Operators = []Operator{
	OpEq, OpGt, OpGte, OpLt, OpLte, OpNe, OpIn, OpNin,
	OpContains, OpStartsWith, OpEndsWith, OpMode, OpNot, OpIs,
}

var operatorSet = func() map[Operator]struct{} {
	m := make(map[Operator]struct{}, len(Operators))
	for _, op := range Operators {
		m[op] = struct{}{}
	}
	return m
}()

// ParseOperator reports whether s is a known operator token.
func ParseOperator(s string) (Operator, bool) {
	op := Operator(s)
	return op, op.Valid()
}

// ParseOperatorAlias accepts either the token ("$in") or its bare name ("in").
func ParseOperatorAlias(s string) (Operator, bool) {
	if !strings.HasPrefix(s, "$") {
		s = "$" + s
	}
	return ParseOperator(s)
}

// Valid reports whether op is a known operator.
func (op Operator) Valid() bool {
	_, ok := operatorSet[op]
	return ok
}

// IsStringMatch reports whether op is one of the pattern operators that $mode can modify.
func (op Operator) IsStringMatch() bool {
	return op == OpContains || op == OpStartsWith || op == OpEndsWith
}

// Native predicate keys.
const (
	KeyEquals     = "equals"
	KeyGt         = "gt"
	KeyGte        = "gte"
	KeyLt         = "lt"
	KeyLte        = "lte"
	KeyNot        = "not"
	KeyIn         = "in"
	KeyNotIn      = "notIn"
	KeyContains   = "contains"
	KeyStartsWith = "startsWith"
	KeyEndsWith   = "endsWith"
	KeyMode       = "mode"
	KeyIs         = "is"

	LogicalAnd = "AND"
	LogicalOr  = "OR"
	LogicalNot = "NOT"

	ModeInsensitive = "insensitive"
	ModeDefault     = "default"
)

var nativeKeys = map[Operator]string{
	OpEq:         KeyEquals,
	OpGt:         KeyGt,
	OpGte:        KeyGte,
	OpLt:         KeyLt,
	OpLte:        KeyLte,
	OpNe:         KeyNot,
	OpIn:         KeyIn,
	OpNin:        KeyNotIn,
	OpContains:   KeyContains,
	OpStartsWith: KeyStartsWith,
	OpEndsWith:   KeyEndsWith,
	OpIs:         KeyIs,
}

// NativeKey returns the predicate key op translates to.
// $mode and $not have no direct key and report false.
func (op Operator) NativeKey() (string, bool) {
	k, ok := nativeKeys[op]
	return k, ok
}
