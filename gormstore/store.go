package gormstore

import (
	"context"
	"reflect"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/theplant/pagequery"
	"github.com/theplant/pagequery/filter"
)

var _ pagequery.Store[any] = (*Store[any])(nil)

// Store serves pagequery requests from a gorm database. T is either the model
// struct (or a pointer to it), or any type Find can scan into when db already
// has a Model set.
type Store[T any] struct {
	open func(ctx context.Context) (*gorm.DB, error)
	opts []Option
}

func New[T any](db *gorm.DB, opts ...Option) *Store[T] {
	if db == nil {
		panic("db must be set")
	}
	return &Store[T]{
		open: func(context.Context) (*gorm.DB, error) { return db, nil },
		opts: opts,
	}
}

// NewLazy defers obtaining the database until the first request. open is
// called on every request and is expected to cache its own result.
func NewLazy[T any](open func(ctx context.Context) (*gorm.DB, error), opts ...Option) *Store[T] {
	if open == nil {
		panic("open must be set")
	}
	return &Store[T]{open: open, opts: opts}
}

func (s *Store[T]) session(ctx context.Context) (*gorm.DB, error) {
	db, err := s.open(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}
	return db.WithContext(ctx), nil
}

func (s *Store[T]) Count(ctx context.Context, where filter.Predicate) (int, error) {
	db, err := s.session(ctx)
	if err != nil {
		return 0, err
	}

	if _, err := shouldBasedOnModel[T](db); err != nil {
		return 0, err
	}
	if db.Statement.Model == nil {
		db = applyModel[T](db)
	}

	var totalCount int64
	if err := db.Scopes(Scope(where, s.opts...)).Count(&totalCount).Error; err != nil {
		return 0, errors.Wrap(err, "count")
	}
	return int(totalCount), nil
}

func (s *Store[T]) Fetch(ctx context.Context, req *pagequery.FetchRequest) ([]T, error) {
	if req == nil || req.Take <= 0 {
		return []T{}, nil
	}

	db, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	basedOnModel, err := shouldBasedOnModel[T](db)
	if err != nil {
		return nil, err
	}
	if !basedOnModel && db.Statement.Model == nil {
		db = applyModel[T](db)
	}

	sch, err := parseSchema(db, db.Statement.Model)
	if err != nil {
		return nil, err
	}

	db = db.Scopes(Scope(req.Where, s.opts...))

	if len(req.Select) > 0 {
		columns := make([]string, 0, len(req.Select))
		for _, name := range req.Select {
			field, err := lookupField(db, sch, name)
			if err != nil {
				return nil, err
			}
			columns = append(columns, field.DBName)
		}
		db = db.Select(columns)
	}

	for _, include := range req.Include {
		path, err := preloadPath(sch, include)
		if err != nil {
			return nil, err
		}
		db = db.Preload(path)
	}

	if len(req.OrderBy) > 0 {
		orderByColumns := make([]clause.OrderByColumn, 0, len(req.OrderBy))
		for _, order := range req.OrderBy {
			field, err := lookupField(db, sch, order.Field)
			if err != nil {
				return nil, err
			}
			orderByColumns = append(orderByColumns, clause.OrderByColumn{
				Column: clause.Column{Table: clause.CurrentTable, Name: field.DBName},
				Desc:   order.Direction == filter.Desc,
			})
		}
		db = db.Order(clause.OrderBy{Columns: orderByColumns})
	}

	if req.Skip > 0 {
		db = db.Offset(req.Skip)
	}
	db = db.Limit(req.Take)

	if basedOnModel {
		modelType := reflect.TypeOf(db.Statement.Model)
		nodesVal := reflect.New(reflect.SliceOf(modelType)).Elem()

		if err := db.Find(nodesVal.Addr().Interface()).Error; err != nil {
			return nil, errors.Wrap(err, "find")
		}

		nodes := make([]T, nodesVal.Len())
		for i := range nodesVal.Len() {
			nodes[i] = nodesVal.Index(i).Interface().(T)
		}
		return nodes, nil
	}

	nodes := []T{}
	if err := db.Find(&nodes).Error; err != nil {
		return nil, errors.Wrap(err, "find")
	}
	return nodes, nil
}
