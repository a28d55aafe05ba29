package pagequery_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/theplant/pagequery"
	"github.com/theplant/pagequery/filter"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type recordingStore struct {
	mu      sync.Mutex
	total   int
	rows    []*user
	counts  []filter.Predicate
	fetches []*pagequery.FetchRequest
	err     error
}

func (s *recordingStore) Count(_ context.Context, where filter.Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = append(s.counts, where)
	if s.err != nil {
		return 0, s.err
	}
	return s.total, nil
}

func (s *recordingStore) Fetch(_ context.Context, req *pagequery.FetchRequest) ([]*user, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, req)
	return s.rows, nil
}

var userPolicy = &filter.Policy{
	Filterable: map[string]filter.Rule{
		"status": filter.Allow(filter.OpEq, filter.OpIn),
		"name":   filter.Allow(filter.OpContains, filter.OpMode),
	},
	Searchable: []string{"name", "email"},
	Sortable: map[string]filter.SortRule{
		"name":      filter.SortAllowed,
		"createdAt": filter.SortDesc,
	},
}

func TestPaginate(t *testing.T) {
	store := &recordingStore{total: 23, rows: []*user{{ID: 1, Name: "ann"}}}
	p := pagequery.New[*user](store, userPolicy)

	base := filter.Predicate{"deletedAt": filter.Comparison{filter.KeyIs: true}}
	page, err := p.Paginate(context.Background(), &pagequery.PaginateRequest{
		Base: pagequery.BaseQuery{Where: base, Include: []string{"Company"}},
		Params: pagequery.ParseRawQuery(
			"page=2&itemsPerPage=10&filters[status]=in:active,pending&filters[secretField]=admin:true" +
				"&sort[createdAt]=asc&sort[password]=asc&search=ann",
		),
	})
	require.NoError(t, err)

	wantWhere := filter.Predicate{filter.LogicalAnd: []filter.Predicate{
		base,
		{"status": filter.Comparison{filter.KeyIn: []any{"active", "pending"}}},
		{filter.LogicalOr: []filter.Predicate{
			{"name": filter.Comparison{filter.KeyContains: "ann", filter.KeyMode: filter.ModeInsensitive}},
			{"email": filter.Comparison{filter.KeyContains: "ann", filter.KeyMode: filter.ModeInsensitive}},
		}},
	}}
	require.Equal(t, []filter.Predicate{wantWhere}, store.counts)
	require.Equal(t, []*pagequery.FetchRequest{{
		Where:   wantWhere,
		OrderBy: filter.Sort{{Field: "createdAt", Direction: filter.Desc}},
		Skip:    10,
		Take:    10,
		Include: []string{"Company"},
	}}, store.fetches)

	require.Equal(t, store.rows, page.Data)
	require.Equal(t, &pagequery.Meta{
		CurrentPage:  2,
		ItemsPerPage: 10,
		TotalPages:   3,
		TotalItems:   23,
		Filters: filter.Filters{
			"status": filter.OperatorCondition(map[filter.Operator]any{filter.OpIn: []any{"active", "pending"}}),
		},
		Sorts:  filter.Sort{{Field: "createdAt", Direction: filter.Desc}},
		Search: "ann",
	}, page.Meta)

	data, err := json.Marshal(page.Meta)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"currentPage": 2, "itemsPerPage": 10, "totalPages": 3, "totalItems": 23,
		"filters": {"status": {"$in": ["active", "pending"]}},
		"sorts": {"createdAt": "desc"},
		"search": "ann"
	}`, string(data))
}

func TestPaginateNumericLaw(t *testing.T) {
	tests := []struct {
		name                 string
		page, itemsPerPage   *int
		total                int
		wantPage, wantItems  int
		wantSkip, wantTotalP int
	}{
		{name: "defaults", total: 0, wantPage: 1, wantItems: 10, wantSkip: 0, wantTotalP: 0},
		{name: "clamped", page: lo.ToPtr(0), itemsPerPage: lo.ToPtr(-5), total: 3, wantPage: 1, wantItems: 1, wantSkip: 0, wantTotalP: 3},
		{name: "exact", page: lo.ToPtr(3), itemsPerPage: lo.ToPtr(5), total: 15, wantPage: 3, wantItems: 5, wantSkip: 10, wantTotalP: 3},
		{name: "ceiling", page: lo.ToPtr(4), itemsPerPage: lo.ToPtr(5), total: 16, wantPage: 4, wantItems: 5, wantSkip: 15, wantTotalP: 4},
		{name: "past the end", page: lo.ToPtr(100), itemsPerPage: lo.ToPtr(7), total: 1, wantPage: 100, wantItems: 7, wantSkip: 693, wantTotalP: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{total: tt.total}
			page, err := pagequery.New[*user](store, userPolicy).Paginate(context.Background(), &pagequery.PaginateRequest{
				Params: &pagequery.QueryParams{Page: tt.page, ItemsPerPage: tt.itemsPerPage},
			})
			require.NoError(t, err)
			require.Equal(t, tt.wantPage, page.Meta.CurrentPage)
			require.Equal(t, tt.wantItems, page.Meta.ItemsPerPage)
			require.Equal(t, tt.wantTotalP, page.Meta.TotalPages)
			require.Equal(t, tt.wantSkip, store.fetches[0].Skip)
			require.Equal(t, tt.wantItems, store.fetches[0].Take)
		})
	}
}

func TestPaginateEmptyInputs(t *testing.T) {
	store := &recordingStore{total: 0}
	page, err := pagequery.New[*user](store, nil).Paginate(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, store.counts[0])
	require.Nil(t, store.fetches[0].OrderBy)

	data, err := json.Marshal(page.Meta)
	require.NoError(t, err)
	require.JSONEq(t, `{"currentPage":1,"itemsPerPage":10,"totalPages":0,"totalItems":0,"filters":{},"sorts":{},"search":""}`, string(data))
}

func TestPaginateNilRowsMarshalAsEmptyArray(t *testing.T) {
	store := &recordingStore{total: 0, rows: nil}
	page, err := pagequery.New[*user](store, userPolicy).Paginate(context.Background(), &pagequery.PaginateRequest{})
	require.NoError(t, err)
	require.NotNil(t, page.Data)

	data, err := json.Marshal(page)
	require.NoError(t, err)
	require.Contains(t, string(data), `"data":[]`)
}

func TestPaginateInvalidFiltersDegrade(t *testing.T) {
	store := &recordingStore{total: 5}
	page, err := pagequery.New[*user](store, userPolicy).Paginate(context.Background(), &pagequery.PaginateRequest{
		Params: pagequery.ParseRawQuery("filters[secretField]=admin:true&filters[status]=gt:3&sort[secret]=asc&search="),
	})
	require.NoError(t, err)
	require.Nil(t, store.counts[0])
	require.Empty(t, page.Meta.Filters)
	require.Empty(t, page.Meta.Sorts)
}

func TestPaginateStoreErrorPropagates(t *testing.T) {
	storeErr := errors.New("connection refused")
	store := &recordingStore{err: storeErr}
	_, err := pagequery.New[*user](store, userPolicy).Paginate(context.Background(), &pagequery.PaginateRequest{})
	require.Same(t, storeErr, err)
	require.Empty(t, store.fetches)
}

func TestNewPanicsWithoutStore(t *testing.T) {
	require.PanicsWithValue(t, "store must be set", func() {
		pagequery.New[*user](nil, userPolicy)
	})
}
