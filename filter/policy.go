package filter

import (
	"io"
	"slices"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Policy is the server-authored allow-list for one resource.
type Policy struct {
	Filterable map[string]Rule     `yaml:"filterable"`
	Searchable []string            `yaml:"searchable"`
	Sortable   map[string]SortRule `yaml:"sortable"`
}

// Rule describes what a client may do with one filterable field: either a set
// of operators, or a nested policy when the field is a relation.
type Rule struct {
	ops      []Operator
	relation *Policy
}

// Allow permits the given operators on a scalar field.
func Allow(ops ...Operator) Rule {
	return Rule{ops: lo.Uniq(ops)}
}

// Relation permits filtering through a related entity with its own rules.
func Relation(p *Policy) Rule {
	if p == nil {
		p = &Policy{}
	}
	return Rule{relation: p}
}

func (r Rule) IsRelation() bool {
	return r.relation != nil
}

func (r Rule) Policy() *Policy {
	return r.relation
}

func (r Rule) Operators() []Operator {
	return slices.Clone(r.ops)
}

func (r Rule) Allows(op Operator) bool {
	return r.relation == nil && slices.Contains(r.ops, op)
}

func (r *Rule) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var names []string
		if err := value.Decode(&names); err != nil {
			return errors.Wrap(err, "decode operators")
		}
		ops := make([]Operator, 0, len(names))
		for _, name := range names {
			op, ok := ParseOperatorAlias(name)
			if !ok {
				return errors.Errorf("line %d: unknown operator %q", value.Line, name)
			}
			ops = append(ops, op)
		}
		*r = Allow(ops...)
		return nil
	case yaml.MappingNode:
		var nested map[string]Rule
		if err := value.Decode(&nested); err != nil {
			return err
		}
		*r = Relation(&Policy{Filterable: nested})
		return nil
	default:
		return errors.Errorf("line %d: filterable rule must be an operator list or a nested mapping", value.Line)
	}
}

// SortRule controls whether a field is sortable and may force its direction.
type SortRule int

const (
	SortDenied SortRule = iota
	SortAllowed
	SortAsc
	SortDesc
)

// Forced returns the direction the rule imposes, if any.
func (r SortRule) Forced() (Direction, bool) {
	switch r {
	case SortAsc:
		return Asc, true
	case SortDesc:
		return Desc, true
	}
	return "", false
}

func (r *SortRule) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: sortable rule must be a boolean or a direction", value.Line)
	}
	var b bool
	if value.Tag == "!!bool" && value.Decode(&b) == nil {
		*r = lo.Ternary(b, SortAllowed, SortDenied)
		return nil
	}
	switch strings.ToLower(value.Value) {
	case "asc":
		*r = SortAsc
	case "desc":
		*r = SortDesc
	default:
		return errors.Errorf("line %d: invalid sortable rule %q", value.Line, value.Value)
	}
	return nil
}

// LoadPolicies reads a YAML document mapping resource names to policies.
func LoadPolicies(r io.Reader) (map[string]*Policy, error) {
	policies := map[string]*Policy{}
	if err := yaml.NewDecoder(r).Decode(&policies); err != nil {
		if errors.Is(err, io.EOF) {
			return policies, nil
		}
		return nil, errors.Wrap(err, "decode policies")
	}
	return policies, nil
}
