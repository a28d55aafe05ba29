package pagequery

import (
	"context"
	"slices"

	"github.com/samber/lo"

	"github.com/theplant/pagequery/filter"
)

// EnsurePrimaryOrder appends tie-breaker orders to every fetch so that
// offset pages are stable. The extra orders are not reported in Meta.
func EnsurePrimaryOrder[T any](primaryOrders ...filter.Order) func(next Paginator[T]) Paginator[T] {
	return PrependStoreHook(func(next Store[T]) Store[T] {
		return StoreFunc[T]{
			CountFunc: next.Count,
			FetchFunc: func(ctx context.Context, req *FetchRequest) ([]T, error) {
				cloned := *req
				cloned.OrderBy = AppendPrimaryOrder(req.OrderBy, primaryOrders...)
				return next.Fetch(ctx, &cloned)
			},
		}
	})
}

func AppendPrimaryOrder(orderBy filter.Sort, primaryOrders ...filter.Order) filter.Sort {
	if len(primaryOrders) == 0 {
		return orderBy
	}
	orderByFields := lo.SliceToMap(orderBy, func(order filter.Order) (string, bool) {
		return order.Field, true
	})
	result := slices.Clone(orderBy)
	// If there are fields in primaryOrders that are not in orderBy, add them to orderBy
	for _, primaryOrder := range primaryOrders {
		if _, ok := orderByFields[primaryOrder.Field]; !ok {
			result = append(result, primaryOrder)
		}
	}
	return result
}
