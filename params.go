package pagequery

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/theplant/pagequery/filter"
)

const (
	DefaultPage         = 1
	DefaultItemsPerPage = 10
)

// QueryParams is the untrusted, encoding-agnostic form of a list request.
// Nil Page and ItemsPerPage fall back to DefaultPage and DefaultItemsPerPage.
type QueryParams struct {
	Page         *int           `json:"page,omitempty"`
	ItemsPerPage *int           `json:"itemsPerPage,omitempty"`
	Filters      filter.Filters `json:"filters,omitempty"`
	Search       string         `json:"search,omitempty"`
	Sort         filter.Sort    `json:"sort,omitempty"`
}

type queryPair struct {
	key   string
	value string
}

// ParseQuery extracts QueryParams from decoded query values. Since url.Values
// is unordered, bracketed sort keys are applied in alphabetical order; use
// ParseRawQuery to keep the client's order.
func ParseQuery(values url.Values) *QueryParams {
	keys := lo.Keys(values)
	sort.Strings(keys)
	var pairs []queryPair
	for _, k := range keys {
		for _, v := range values[k] {
			pairs = append(pairs, queryPair{key: k, value: v})
		}
	}
	return parsePairs(pairs)
}

// ParseRawQuery extracts QueryParams from a raw query string, keeping the
// order of its pairs. Pairs that fail to unescape are skipped.
func ParseRawQuery(rawQuery string) *QueryParams {
	var pairs []queryPair
	for rawQuery != "" {
		var kv string
		kv, rawQuery, _ = strings.Cut(rawQuery, "&")
		if kv == "" || strings.Contains(kv, ";") {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(kv, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			continue
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			continue
		}
		pairs = append(pairs, queryPair{key: key, value: value})
	}
	return parsePairs(pairs)
}

func parsePairs(pairs []queryPair) *QueryParams {
	first := func(key string) string {
		for _, p := range pairs {
			if p.key == key {
				return p.value
			}
		}
		return ""
	}

	params := &QueryParams{
		Page:         parseInt(first("page")),
		ItemsPerPage: parseInt(first("itemsPerPage")),
		Search:       first("search"),
	}

	filters, ok := decodeJSONFilters(first("filters"))
	if !ok {
		filters = parseBracketFilters(pairs)
	}
	if len(filters) > 0 {
		params.Filters = filters
	}

	s, ok := decodeJSONSort(first("sort"))
	if !ok {
		s = parseBracketSort(pairs)
	}
	if len(s) > 0 {
		params.Sort = s
	}
	return params
}

// parseInt leaves clamping to the paginator.
func parseInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func decodeJSONFilters(raw string) (filter.Filters, bool) {
	if raw == "" {
		return nil, false
	}
	f, err := filter.DecodeFilters([]byte(raw))
	if err != nil {
		return nil, false
	}
	return f, true
}

func decodeJSONSort(raw string) (filter.Sort, bool) {
	if raw == "" {
		return nil, false
	}
	s, err := filter.DecodeSort([]byte(raw))
	if err != nil {
		return nil, false
	}
	return s, true
}

func bracketField(key, prefix string) (string, bool) {
	if !strings.HasPrefix(key, prefix+"[") || !strings.HasSuffix(key, "]") {
		return "", false
	}
	field := key[len(prefix)+1 : len(key)-1]
	return field, field != ""
}

func parseBracketFilters(pairs []queryPair) filter.Filters {
	filters := filter.Filters{}
	for _, p := range pairs {
		field, ok := bracketField(p.key, "filters")
		if !ok {
			continue
		}
		path := strings.Split(field, ".")
		if lo.Contains(path, "") {
			continue
		}
		op, operand := splitOperator(p.value)
		setFlatCondition(filters, path, op, coerceOperand(op, operand))
	}
	return filters
}

// splitOperator splits "op:value" on the first colon when op is a known
// operator, either as "$in" or "in". Anything else is an implicit $eq.
func splitOperator(v string) (filter.Operator, string) {
	left, right, found := strings.Cut(v, ":")
	if !found {
		return filter.OpEq, v
	}
	op, ok := filter.ParseOperatorAlias(left)
	if !ok {
		return filter.OpEq, v
	}
	return op, right
}

func coerceOperand(op filter.Operator, s string) any {
	switch op {
	case filter.OpIn, filter.OpNin:
		parts := strings.Split(s, ",")
		values := make([]any, len(parts))
		for i, part := range parts {
			values[i] = coerceScalar(strings.TrimSpace(part))
		}
		return values
	case filter.OpNot:
		return filter.ValueCondition(coerceScalar(s))
	default:
		return coerceScalar(s)
	}
}

func coerceScalar(s string) any {
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	t := strings.TrimSpace(s)
	if t == "" {
		return s
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}

func setFlatCondition(f filter.Filters, path []string, op filter.Operator, v any) {
	cond := f[path[0]]
	if len(path) > 1 {
		if cond.Kind != filter.KindNested || cond.Nested == nil {
			cond = filter.NestedCondition(filter.Filters{})
		}
		setFlatCondition(cond.Nested, path[1:], op, v)
		f[path[0]] = cond
		return
	}
	if cond.Kind != filter.KindOperators || cond.Ops == nil {
		cond = filter.OperatorCondition(map[filter.Operator]any{})
	}
	cond.Ops[op] = v
	f[path[0]] = cond
}

func parseBracketSort(pairs []queryPair) filter.Sort {
	var s filter.Sort
	seen := map[string]bool{}
	for _, p := range pairs {
		field, ok := bracketField(p.key, "sort")
		if !ok || seen[field] {
			continue
		}
		seen[field] = true
		s = append(s, filter.Order{Field: field, Direction: filter.Direction(strings.ToLower(p.value))})
	}
	return s
}
