package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/theplant/pagequery"
	"github.com/theplant/pagequery/filter"
	"github.com/theplant/pagequery/internal/config"
)

// Resource describes one list endpoint.
type Resource[T any] struct {
	Name   string
	Store  pagequery.Store[T]
	Policy *filter.Policy
	Base   pagequery.BaseQuery
}

func newPaginator[T any](r Resource[T], cfg config.PaginationConfig, logger *zap.Logger, metrics *pagequery.Metrics) pagequery.Paginator[T] {
	hooks := []func(next pagequery.Paginator[T]) pagequery.Paginator[T]{
		pagequery.WithLogger[T](logger, r.Name),
		pagequery.LimitComplexity[T](&cfg.Complexity),
		pagequery.EnsureLimits[T](cfg.DefaultItemsPerPage, cfg.MaxItemsPerPage),
		pagequery.EnsurePrimaryOrder[T](filter.Order{Field: "id", Direction: filter.Asc}),
	}
	if metrics != nil {
		hooks = append([]func(next pagequery.Paginator[T]) pagequery.Paginator[T]{
			pagequery.WithMetrics[T](metrics, r.Name),
		}, hooks...)
	}
	if cfg.OverlapCount {
		hooks = append(hooks, pagequery.OverlapCount[T]())
	}
	return pagequery.New(r.Store, r.Policy, hooks...)
}

// listHandler serves GET requests for r. Query parsing never fails; only
// store errors reach the error handler.
func listHandler[T any](r Resource[T], p pagequery.Paginator[T]) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := p.Paginate(c.Request.Context(), &pagequery.PaginateRequest{
			Base:   r.Base,
			Params: pagequery.ParseRawQuery(c.Request.URL.RawQuery),
		})
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, page)
	}
}

// Mount registers a list endpoint for r at path.
func Mount[T any](s *Server, path string, r Resource[T]) {
	if r.Store == nil {
		panic("store must be set")
	}
	p := newPaginator(r, s.cfg, s.logger, s.metrics)
	s.api.GET(path, listHandler(r, p))
}
