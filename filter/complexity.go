package filter

import (
	"github.com/pkg/errors"
)

// ComplexityLimits defines limits for filter complexity.
// A value of 0 means no limit for that metric.
type ComplexityLimits struct {
	MaxDepth       int `mapstructure:"max_depth"`        // Maximum nesting depth of relation filters
	MaxTotalFields int `mapstructure:"max_total_fields"` // Maximum total number of field filters
	MaxOperators   int `mapstructure:"max_operators"`    // Maximum number of operators across all fields
	MaxSetSize     int `mapstructure:"max_set_size"`     // Maximum values in a single $in/$nin list
}

// ComplexityResult contains the calculated complexity metrics of a filter.
type ComplexityResult struct {
	Depth       int // Deepest nesting level reached
	TotalFields int // Total number of field filters
	Operators   int // Total number of operators
	SetSize     int // Largest $in/$nin list found
}

// Predefined complexity limits
var (
	// DefaultLimits provides reasonable defaults for most use cases.
	DefaultLimits = &ComplexityLimits{
		MaxDepth:       3,
		MaxTotalFields: 10,
		MaxOperators:   20,
		MaxSetSize:     100,
	}

	// StrictLimits provides tighter limits for security-sensitive contexts.
	StrictLimits = &ComplexityLimits{
		MaxDepth:       2,
		MaxTotalFields: 5,
		MaxOperators:   10,
		MaxSetSize:     20,
	}

	// RelaxedLimits provides looser limits for trusted/internal use.
	RelaxedLimits = &ComplexityLimits{
		MaxDepth:       5,
		MaxTotalFields: 20,
		MaxOperators:   40,
		MaxSetSize:     500,
	}
)

// CheckComplexity validates that filters don't exceed the specified limits.
// Returns an error describing which limit was exceeded, or nil if within limits.
// If limits is nil, no validation is performed.
func CheckComplexity(f Filters, limits *ComplexityLimits) error {
	if limits == nil {
		return nil
	}

	result := CalculateComplexity(f)

	if limits.MaxDepth > 0 && result.Depth > limits.MaxDepth {
		return errors.Errorf("filter depth %d exceeds limit %d", result.Depth, limits.MaxDepth)
	}
	if limits.MaxTotalFields > 0 && result.TotalFields > limits.MaxTotalFields {
		return errors.Errorf("filter field count %d exceeds limit %d", result.TotalFields, limits.MaxTotalFields)
	}
	if limits.MaxOperators > 0 && result.Operators > limits.MaxOperators {
		return errors.Errorf("filter operator count %d exceeds limit %d", result.Operators, limits.MaxOperators)
	}
	if limits.MaxSetSize > 0 && result.SetSize > limits.MaxSetSize {
		return errors.Errorf("filter set size %d exceeds limit %d", result.SetSize, limits.MaxSetSize)
	}

	return nil
}

// CalculateComplexity analyzes filters and returns their complexity metrics.
func CalculateComplexity(f Filters) *ComplexityResult {
	result := &ComplexityResult{}
	calculateComplexityRecursive(f, 1, result)
	return result
}

func calculateComplexityRecursive(f Filters, depth int, result *ComplexityResult) {
	if depth > result.Depth {
		result.Depth = depth
	}

	for _, cond := range f {
		switch cond.Kind {
		case KindNested:
			// Relation filter - recurse with increased depth
			calculateComplexityRecursive(cond.Nested, depth+1, result)
		case KindValue:
			result.TotalFields++
			result.Operators++
		case KindOperators:
			result.TotalFields++
			countOperators(cond.Ops, result)
		}
	}
}

func countOperators(ops map[Operator]any, result *ComplexityResult) {
	for op, v := range ops {
		result.Operators++
		switch op {
		case OpIn, OpNin:
			if n := len(asList(v)); n > result.SetSize {
				result.SetSize = n
			}
		case OpNot:
			if sub, ok := v.(Condition); ok && sub.Kind == KindOperators {
				countOperators(sub.Ops, result)
			}
		}
	}
}
