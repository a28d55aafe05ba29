package pagequery

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// WithLogger logs every pagination call for resource. Store failures are
// logged at warn level and returned unchanged.
func WithLogger[T any](logger *zap.Logger, resource string) func(next Paginator[T]) Paginator[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("resource", resource))
	return func(next Paginator[T]) Paginator[T] {
		return PaginatorFunc[T](func(ctx context.Context, req *PaginateRequest) (*Page[T], error) {
			start := time.Now()
			page, err := next.Paginate(ctx, req)
			if err != nil {
				logger.Warn("paginate failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
				return nil, err
			}
			logger.Debug("paginate",
				zap.Int("page", page.Meta.CurrentPage),
				zap.Int("itemsPerPage", page.Meta.ItemsPerPage),
				zap.Int("totalItems", page.Meta.TotalItems),
				zap.Int("returned", len(page.Data)),
				zap.Int("filters", len(page.Meta.Filters)),
				zap.Strings("sorts", page.Meta.Sorts.Fields()),
				zap.Bool("search", page.Meta.Search != ""),
				zap.Duration("duration", time.Since(start)),
			)
			return page, nil
		})
	}
}
