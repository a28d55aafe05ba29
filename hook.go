package pagequery

import (
	"context"

	"github.com/theplant/pagequery/filter"
	"github.com/theplant/pagequery/internal/hook"
)

// EnsureLimits fills in defaultItemsPerPage when the client sent none and caps
// itemsPerPage at maxItemsPerPage. Values below one are left for the paginator
// to clamp.
func EnsureLimits[T any](defaultItemsPerPage, maxItemsPerPage int) func(next Paginator[T]) Paginator[T] {
	if defaultItemsPerPage < 1 {
		panic("defaultItemsPerPage must be positive")
	}
	if maxItemsPerPage < defaultItemsPerPage {
		panic("maxItemsPerPage must be greater than or equal to defaultItemsPerPage")
	}
	return func(next Paginator[T]) Paginator[T] {
		return PaginatorFunc[T](func(ctx context.Context, req *PaginateRequest) (*Page[T], error) {
			req, params := cloneRequest(req)
			if params.ItemsPerPage == nil {
				params.ItemsPerPage = &defaultItemsPerPage
			} else if *params.ItemsPerPage > maxItemsPerPage {
				params.ItemsPerPage = &maxItemsPerPage
			}
			return next.Paginate(ctx, req)
		})
	}
}

// LimitComplexity drops the client filters entirely when they exceed limits,
// so an over-complex request degrades to an unfiltered one.
func LimitComplexity[T any](limits *filter.ComplexityLimits) func(next Paginator[T]) Paginator[T] {
	return func(next Paginator[T]) Paginator[T] {
		return PaginatorFunc[T](func(ctx context.Context, req *PaginateRequest) (*Page[T], error) {
			if req != nil && req.Params != nil && filter.CheckComplexity(req.Params.Filters, limits) != nil {
				var params *QueryParams
				req, params = cloneRequest(req)
				params.Filters = nil
			}
			return next.Paginate(ctx, req)
		})
	}
}

type ctxOverlapCount struct{}

// OverlapCount makes the paginator issue count and fetch concurrently.
func OverlapCount[T any]() func(next Paginator[T]) Paginator[T] {
	return func(next Paginator[T]) Paginator[T] {
		return PaginatorFunc[T](func(ctx context.Context, req *PaginateRequest) (*Page[T], error) {
			return next.Paginate(context.WithValue(ctx, ctxOverlapCount{}, true), req)
		})
	}
}

func overlapCountFromContext(ctx context.Context) bool {
	overlap, _ := ctx.Value(ctxOverlapCount{}).(bool)
	return overlap
}

type ctxStoreHook struct{}

func StoreHookFromContext[T any](ctx context.Context) func(next Store[T]) Store[T] {
	hook, _ := ctx.Value(ctxStoreHook{}).(func(next Store[T]) Store[T])
	return hook
}

// PrependStoreHook installs store hooks for the rest of the call chain.
func PrependStoreHook[T any](hooks ...func(next Store[T]) Store[T]) func(next Paginator[T]) Paginator[T] {
	return func(next Paginator[T]) Paginator[T] {
		return PaginatorFunc[T](func(ctx context.Context, req *PaginateRequest) (*Page[T], error) {
			if len(hooks) > 0 {
				storeHook := StoreHookFromContext[T](ctx)
				storeHook = hook.Prepend(storeHook, hooks...)
				ctx = context.WithValue(ctx, ctxStoreHook{}, storeHook)
			}
			return next.Paginate(ctx, req)
		})
	}
}

// cloneRequest copies req and its params so hooks never mutate caller data.
func cloneRequest(req *PaginateRequest) (*PaginateRequest, *QueryParams) {
	cloned := &PaginateRequest{}
	if req != nil {
		*cloned = *req
	}
	params := &QueryParams{}
	if cloned.Params != nil {
		*params = *cloned.Params
	}
	cloned.Params = params
	return cloned, params
}
