package pagequery

import (
	"context"
	"math"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/theplant/pagequery/filter"
	"github.com/theplant/pagequery/internal/hook"
)

// BaseQuery holds constraints the caller applies regardless of client input.
type BaseQuery struct {
	Where   filter.Predicate
	Select  []string
	Include []string
}

type PaginateRequest struct {
	Base   BaseQuery
	Params *QueryParams
}

// Meta describes the page that was served. Filters and Sorts are the values
// left after sanitization, so a client can see what was honored.
type Meta struct {
	CurrentPage  int            `json:"currentPage"`
	ItemsPerPage int            `json:"itemsPerPage"`
	TotalPages   int            `json:"totalPages"`
	TotalItems   int            `json:"totalItems"`
	Filters      filter.Filters `json:"filters"`
	Sorts        filter.Sort    `json:"sorts"`
	Search       string         `json:"search"`
}

type Page[T any] struct {
	Data []T  `json:"data"`
	Meta *Meta `json:"meta"`
}

// FetchRequest is what a Store receives to load one page of records.
type FetchRequest struct {
	Where   filter.Predicate
	OrderBy filter.Sort
	Skip    int
	Take    int
	Select  []string
	Include []string
}

// Store counts and fetches records matching a native predicate.
// Implementations must be safe for concurrent use and must not mutate the
// predicate they are given.
type Store[T any] interface {
	Count(ctx context.Context, where filter.Predicate) (int, error)
	Fetch(ctx context.Context, req *FetchRequest) ([]T, error)
}

// StoreFunc adapts a pair of functions to Store.
type StoreFunc[T any] struct {
	CountFunc func(ctx context.Context, where filter.Predicate) (int, error)
	FetchFunc func(ctx context.Context, req *FetchRequest) ([]T, error)
}

func (f StoreFunc[T]) Count(ctx context.Context, where filter.Predicate) (int, error) {
	return f.CountFunc(ctx, where)
}

func (f StoreFunc[T]) Fetch(ctx context.Context, req *FetchRequest) ([]T, error) {
	return f.FetchFunc(ctx, req)
}

type Paginator[T any] interface {
	Paginate(ctx context.Context, req *PaginateRequest) (*Page[T], error)
}

type PaginatorFunc[T any] func(ctx context.Context, req *PaginateRequest) (*Page[T], error)

func (f PaginatorFunc[T]) Paginate(ctx context.Context, req *PaginateRequest) (*Page[T], error) {
	return f(ctx, req)
}

// New returns a Paginator serving store under policy. Hooks wrap the
// paginator with the first hook outermost.
func New[T any](store Store[T], policy *filter.Policy, hooks ...func(next Paginator[T]) Paginator[T]) Paginator[T] {
	if store == nil {
		panic("store must be set")
	}
	if policy == nil {
		policy = &filter.Policy{}
	}

	var p Paginator[T] = PaginatorFunc[T](func(ctx context.Context, req *PaginateRequest) (*Page[T], error) {
		s := store
		if storeHook := StoreHookFromContext[T](ctx); storeHook != nil {
			s = storeHook(s)
		}
		return paginate(ctx, s, policy, req)
	})

	if h := hook.Chain(hooks...); h != nil {
		p = h(p)
	}
	return p
}

func paginate[T any](ctx context.Context, store Store[T], policy *filter.Policy, req *PaginateRequest) (*Page[T], error) {
	if req == nil {
		req = &PaginateRequest{}
	}
	params := req.Params
	if params == nil {
		params = &QueryParams{}
	}

	currentPage := max(1, lo.FromPtrOr(params.Page, DefaultPage))
	itemsPerPage := max(1, lo.FromPtrOr(params.ItemsPerPage, DefaultItemsPerPage))
	offset := pageOffset(currentPage, itemsPerPage)

	filters := filter.Sanitize(policy, params.Filters)
	where := filter.And(
		req.Base.Where,
		filter.Transform(filters),
		filter.Search(params.Search, policy.Searchable),
	)
	orderBy := filter.SanitizeSort(policy, params.Sort)

	fetchReq := &FetchRequest{
		Where:   where,
		OrderBy: orderBy,
		Skip:    offset,
		Take:    itemsPerPage,
		Select:  req.Base.Select,
		Include: req.Base.Include,
	}

	totalItems, data, err := countAndFetch(ctx, store, fetchReq)
	if err != nil {
		return nil, err
	}

	return &Page[T]{
		Data: lo.Ternary(data == nil, []T{}, data),
		Meta: &Meta{
			CurrentPage:  currentPage,
			ItemsPerPage: itemsPerPage,
			TotalPages:   totalPages(totalItems, itemsPerPage),
			TotalItems:   totalItems,
			Filters:      lo.Ternary(filters == nil, filter.Filters{}, filters),
			Sorts:        lo.Ternary(orderBy == nil, filter.Sort{}, orderBy),
			Search:       params.Search,
		},
	}, nil
}

// countAndFetch counts first and then fetches, or runs both at once when the
// context carries the OverlapCount flag. Errors are returned untouched.
func countAndFetch[T any](ctx context.Context, store Store[T], req *FetchRequest) (int, []T, error) {
	if !overlapCountFromContext(ctx) {
		total, err := store.Count(ctx, req.Where)
		if err != nil {
			return 0, nil, err
		}
		data, err := store.Fetch(ctx, req)
		if err != nil {
			return 0, nil, err
		}
		return total, data, nil
	}

	var (
		total int
		data  []T
	)
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		total, err = store.Count(egCtx, req.Where)
		return err
	})
	eg.Go(func() (err error) {
		data, err = store.Fetch(egCtx, req)
		return err
	})
	if err := eg.Wait(); err != nil {
		return 0, nil, err
	}
	return total, data, nil
}

func pageOffset(currentPage, itemsPerPage int) int {
	if currentPage-1 > math.MaxInt/itemsPerPage {
		return math.MaxInt
	}
	return (currentPage - 1) * itemsPerPage
}

func totalPages(totalItems, itemsPerPage int) int {
	pages := totalItems / itemsPerPage
	if totalItems%itemsPerPage != 0 {
		pages++
	}
	return pages
}
