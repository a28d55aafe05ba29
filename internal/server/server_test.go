package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/theplant/pagequery"
	"github.com/theplant/pagequery/filter"
	"github.com/theplant/pagequery/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type fakeStore struct {
	mu    sync.Mutex
	total int
	items []item
	err   error
	panic bool

	counted filter.Predicate
	fetched *pagequery.FetchRequest
}

func (s *fakeStore) Count(_ context.Context, where filter.Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.panic {
		panic("store exploded")
	}
	s.counted = where
	return s.total, s.err
}

func (s *fakeStore) Fetch(_ context.Context, req *pagequery.FetchRequest) ([]item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = req
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

var itemPolicy = &filter.Policy{
	Filterable: map[string]filter.Rule{
		"name": filter.Allow(filter.OpContains, filter.OpIn),
	},
	Searchable: []string{"name"},
	Sortable:   map[string]filter.SortRule{"name": filter.SortAllowed},
}

var pagination = config.PaginationConfig{
	DefaultItemsPerPage: 10,
	MaxItemsPerPage:     20,
	Complexity:          filter.ComplexityLimits{MaxSetSize: 3},
}

func newTestServer(t *testing.T, store *fakeStore, opts Options) *Server {
	t.Helper()
	if opts.Pagination.DefaultItemsPerPage == 0 {
		opts.Pagination = pagination
	}
	s := New(opts)
	Mount(s, "/items", Resource[item]{
		Name:   "items",
		Store:  store,
		Policy: itemPolicy,
	})
	return s
}

func do(t *testing.T, s *Server, method, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[http.CanonicalHeaderKey(k)] = v
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

type pageBody struct {
	Data []item `json:"data"`
	Meta struct {
		CurrentPage  int            `json:"currentPage"`
		ItemsPerPage int            `json:"itemsPerPage"`
		TotalPages   int            `json:"totalPages"`
		TotalItems   int            `json:"totalItems"`
		Filters      map[string]any `json:"filters"`
		Sorts        map[string]any `json:"sorts"`
		Search       string         `json:"search"`
	} `json:"meta"`
}

func TestListEndpoint(t *testing.T) {
	store := &fakeStore{total: 12, items: []item{{ID: 6, Name: "Adam"}}}
	s := newTestServer(t, store, Options{})

	w := do(t, s, http.MethodGet, "/api/items?page=2&itemsPerPage=5&filters[name]=contains:ad&filters[secret]=x&sort[name]=desc&search=a%25", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body pageBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, []item{{ID: 6, Name: "Adam"}}, body.Data)
	assert.Equal(t, 2, body.Meta.CurrentPage)
	assert.Equal(t, 5, body.Meta.ItemsPerPage)
	assert.Equal(t, 3, body.Meta.TotalPages)
	assert.Equal(t, 12, body.Meta.TotalItems)
	assert.Equal(t, map[string]any{"name": map[string]any{"$contains": "ad"}}, body.Meta.Filters)
	assert.Equal(t, map[string]any{"name": "desc"}, body.Meta.Sorts)
	assert.Equal(t, "a%", body.Meta.Search)

	want := filter.Predicate{
		filter.LogicalAnd: []filter.Predicate{
			{"name": filter.Comparison{filter.KeyContains: "ad"}},
			{filter.LogicalOr: []filter.Predicate{
				{"name": filter.Comparison{filter.KeyContains: "a%", filter.KeyMode: filter.ModeInsensitive}},
			}},
		},
	}
	assert.Equal(t, want, store.counted)
	require.NotNil(t, store.fetched)
	assert.Equal(t, want, store.fetched.Where)
	assert.Equal(t, 5, store.fetched.Skip)
	assert.Equal(t, 5, store.fetched.Take)
	assert.Equal(t, filter.Sort{
		{Field: "name", Direction: filter.Desc},
		{Field: "id", Direction: filter.Asc},
	}, store.fetched.OrderBy)
}

func TestListEndpointLimits(t *testing.T) {
	tests := []struct {
		name  string
		query string
		skip  int
		take  int
	}{
		{"defaults", "", 0, 10},
		{"capped", "?itemsPerPage=500", 0, 20},
		{"garbage", "?page=abc&itemsPerPage=-3", 0, 1},
		{"page three", "?page=3&itemsPerPage=4", 8, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			s := newTestServer(t, store, Options{})

			w := do(t, s, http.MethodGet, "/api/items"+tt.query, nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.skip, store.fetched.Skip)
			assert.Equal(t, tt.take, store.fetched.Take)
			assert.JSONEq(t, `[]`, extractData(t, w))
		})
	}
}

func extractData(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	return string(raw["data"])
}

func TestListEndpointComplexityDropsFilters(t *testing.T) {
	store := &fakeStore{}
	s := newTestServer(t, store, Options{})

	w := do(t, s, http.MethodGet, "/api/items?filters[name]=in:a,b,c,d", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, store.counted)

	w = do(t, s, http.MethodGet, "/api/items?filters[name]=in:a,b", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, filter.Predicate{"name": filter.Comparison{filter.KeyIn: []any{"a", "b"}}}, store.counted)
}

func TestListEndpointOverlapCount(t *testing.T) {
	store := &fakeStore{total: 1, items: []item{{ID: 1, Name: "x"}}}
	cfg := pagination
	cfg.OverlapCount = true
	s := newTestServer(t, store, Options{Pagination: cfg})

	w := do(t, s, http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotNil(t, store.fetched)
}

func TestListEndpointStoreError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := &fakeStore{err: errors.New("connection reset")}
	s := newTestServer(t, store, Options{Logger: zap.New(core)})

	w := do(t, s, http.MethodGet, "/api/items", http.Header{RequestIDHeader: {"rid-1"}})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"An internal error occurred","status":500,"error":"Internal Server Error"}`, w.Body.String())
	assert.Equal(t, "rid-1", w.Header().Get(RequestIDHeader))

	unhandled := logs.FilterMessage("unhandled request error").All()
	require.Len(t, unhandled, 1)
	assert.Equal(t, "connection reset", unhandled[0].ContextMap()["error"])
	assert.Equal(t, "rid-1", unhandled[0].ContextMap()["request_id"])
	assert.Equal(t, 1, logs.FilterMessage("paginate failed").Len())
}

func TestPanicRecovery(t *testing.T) {
	s := newTestServer(t, &fakeStore{panic: true}, Options{})

	w := do(t, s, http.MethodGet, "/api/items", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"An internal error occurred","status":500,"error":"Internal Server Error"}`, w.Body.String())
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, Options{})

	w := do(t, s, http.MethodGet, "/api/nope", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"message":"route /api/nope not found","status":404,"error":"Not Found"}`, w.Body.String())
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, &fakeStore{}, Options{})

	w := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	w = do(t, s, http.MethodGet, "/healthz", http.Header{RequestIDHeader: {"abc"}})
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}

func TestHealthz(t *testing.T) {
	healthy := true
	s := newTestServer(t, &fakeStore{}, Options{
		Health: func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("dial tcp: refused")
		},
	})

	w := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	healthy = false
	w = do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"message":"store unavailable","status":503,"error":"Service Unavailable"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := newTestServer(t, &fakeStore{total: 1, items: []item{{ID: 1}}}, Options{Registry: reg})

	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/api/items", nil).Code)

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `pagequery_paginate_requests_total{resource="items",result="ok"} 1`)

	noMetrics := newTestServer(t, &fakeStore{}, Options{})
	assert.Equal(t, http.StatusNotFound, do(t, noMetrics, http.MethodGet, "/metrics", nil).Code)
}

func TestLogLevelEndpoint(t *testing.T) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	s := newTestServer(t, &fakeStore{}, Options{LogLevel: level})

	w := do(t, s, http.MethodGet, "/log/level", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"level":"info"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodPut, "/log/level", strings.NewReader(`{"level":"debug"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, zapcore.DebugLevel, level.Level())
}

func TestMountPanicsWithoutStore(t *testing.T) {
	s := New(Options{Pagination: pagination})
	require.PanicsWithValue(t, "store must be set", func() {
		Mount(s, "/x", Resource[item]{Name: "x"})
	})
}
