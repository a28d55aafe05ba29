package filter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadPolicies(t *testing.T) {
	doc := `
users:
  filterable:
    name: [$eq, $contains, $mode]
    status: [eq, in]
    company:
      name: [$eq]
  searchable: [name, email]
  sortable:
    name: true
    secret: false
    createdAt: DESC
    age: asc
`
	policies, err := LoadPolicies(strings.NewReader(doc))
	require.NoError(t, err)

	p := policies["users"]
	require.NotNil(t, p)
	require.Equal(t, []Operator{OpEq, OpContains, OpMode}, p.Filterable["name"].Operators())
	require.True(t, p.Filterable["status"].Allows(OpIn))
	require.False(t, p.Filterable["status"].Allows(OpNin))

	company := p.Filterable["company"]
	require.True(t, company.IsRelation())
	require.False(t, company.Allows(OpEq))
	require.True(t, company.Policy().Filterable["name"].Allows(OpEq))

	require.Equal(t, []string{"name", "email"}, p.Searchable)
	require.Equal(t, map[string]SortRule{
		"name":      SortAllowed,
		"secret":    SortDenied,
		"createdAt": SortDesc,
		"age":       SortAsc,
	}, p.Sortable)
}

func TestLoadPoliciesErrors(t *testing.T) {
	for _, tt := range []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown operator",
			doc:  "users:\n  filterable:\n    name: [$regex]\n",
			want: `unknown operator "$regex"`,
		},
		{
			name: "scalar rule",
			doc:  "users:\n  filterable:\n    name: yes\n",
			want: "filterable rule must be an operator list or a nested mapping",
		},
		{
			name: "bad sort rule",
			doc:  "users:\n  sortable:\n    name: sideways\n",
			want: `invalid sortable rule "sideways"`,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPolicies(strings.NewReader(tt.doc))
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadPoliciesEmpty(t *testing.T) {
	policies, err := LoadPolicies(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, policies)
}

func TestSortRuleForced(t *testing.T) {
	d, ok := SortAsc.Forced()
	require.True(t, ok)
	require.Equal(t, Asc, d)
	d, ok = SortDesc.Forced()
	require.True(t, ok)
	require.Equal(t, Desc, d)
	_, ok = SortAllowed.Forced()
	require.False(t, ok)
}
