package model

import (
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/theplant/pagequery/filter"
)

const (
	ResourceUsers = "users"
	ResourcePosts = "posts"
)

// Resources maps each resource name to a value of its model.
var Resources = map[string]any{
	ResourceUsers: &User{},
	ResourcePosts: &Post{},
}

var (
	textOps   = []filter.Operator{filter.OpEq, filter.OpNe, filter.OpIn, filter.OpContains, filter.OpStartsWith, filter.OpEndsWith, filter.OpMode, filter.OpNot}
	numberOps = []filter.Operator{filter.OpEq, filter.OpNe, filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte, filter.OpIn, filter.OpNin, filter.OpNot}
	timeOps   = []filter.Operator{filter.OpGt, filter.OpGte, filter.OpLt, filter.OpLte}
)

func UserPolicy() *filter.Policy {
	return &filter.Policy{
		Filterable: map[string]filter.Rule{
			"name":      filter.Allow(textOps...),
			"email":     filter.Allow(textOps...),
			"age":       filter.Allow(numberOps...),
			"role":      filter.Allow(filter.OpEq, filter.OpIn, filter.OpNin),
			"companyId": filter.Allow(filter.OpEq, filter.OpIn, filter.OpIs),
			"createdAt": filter.Allow(timeOps...),
			"company": filter.Relation(&filter.Policy{
				Filterable: map[string]filter.Rule{
					"name":     filter.Allow(textOps...),
					"industry": filter.Allow(filter.OpEq, filter.OpIn),
				},
			}),
			"posts": filter.Relation(&filter.Policy{
				Filterable: map[string]filter.Rule{
					"title":     filter.Allow(textOps...),
					"published": filter.Allow(filter.OpEq),
				},
			}),
		},
		Searchable: []string{"name", "email"},
		Sortable: map[string]filter.SortRule{
			"name":      filter.SortAllowed,
			"email":     filter.SortAllowed,
			"age":       filter.SortAllowed,
			"createdAt": filter.SortAllowed,
		},
	}
}

func PostPolicy() *filter.Policy {
	return &filter.Policy{
		Filterable: map[string]filter.Rule{
			"title":     filter.Allow(textOps...),
			"published": filter.Allow(filter.OpEq),
			"authorId":  filter.Allow(filter.OpEq, filter.OpIn),
			"createdAt": filter.Allow(timeOps...),
			"author": filter.Relation(&filter.Policy{
				Filterable: map[string]filter.Rule{
					"name":  filter.Allow(textOps...),
					"email": filter.Allow(filter.OpEq),
					"company": filter.Relation(&filter.Policy{
						Filterable: map[string]filter.Rule{
							"name": filter.Allow(filter.OpEq, filter.OpContains, filter.OpMode),
						},
					}),
				},
			}),
		},
		Searchable: []string{"title", "body"},
		Sortable: map[string]filter.SortRule{
			"title":     filter.SortAllowed,
			"createdAt": filter.SortDesc,
		},
	}
}

// Policies maps resource names to their policies.
type Policies map[string]*filter.Policy

func DefaultPolicies() Policies {
	return Policies{
		ResourceUsers: UserPolicy(),
		ResourcePosts: PostPolicy(),
	}
}

// LoadPolicies returns the default policies with any resource named in the
// YAML file at path replaced. An empty path returns the defaults.
func LoadPolicies(path string) (Policies, error) {
	policies := DefaultPolicies()
	if path == "" {
		return policies, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open policy file")
	}
	defer f.Close()

	loaded, err := filter.LoadPolicies(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	for name, p := range loaded {
		if _, ok := Resources[name]; !ok {
			return nil, errors.Errorf("unknown resource %q in %s", name, path)
		}
		policies[name] = p
	}
	return policies, nil
}

// Validate checks every policy against its resource's model.
func (p Policies) Validate() error {
	names := lo.Keys(p)
	sort.Strings(names)
	for _, name := range names {
		m, ok := Resources[name]
		if !ok {
			return errors.Errorf("unknown resource %q", name)
		}
		if err := filter.ValidatePolicy(m, p[name]); err != nil {
			return errors.Wrapf(err, "policy %s", name)
		}
	}
	return nil
}

// PublishedPosts restricts the post listing regardless of client filters.
func PublishedPosts() filter.Predicate {
	return filter.Predicate{"published": filter.Comparison{filter.KeyEquals: true}}
}
