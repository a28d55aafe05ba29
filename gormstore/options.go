package gormstore

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/theplant/pagequery/internal/hook"
)

type Option func(*Options)

type Options struct {
	DisableRelations bool
	FieldColumnHook  func(next FieldColumnFunc) FieldColumnFunc
}

// WithDisableRelations rejects predicates that reach into related records.
func WithDisableRelations() Option {
	return func(opts *Options) {
		opts.DisableRelations = true
	}
}

// WithFieldColumnHook lets callers map predicate keys to custom column
// expressions, such as a JSON path inside a datatypes.JSON column. Hooks added
// later wrap the earlier ones.
func WithFieldColumnHook(h func(next FieldColumnFunc) FieldColumnFunc) Option {
	return func(opts *Options) {
		if opts.FieldColumnHook == nil {
			opts.FieldColumnHook = h
			return
		}
		opts.FieldColumnHook = hook.Chain(h, opts.FieldColumnHook)
	}
}

type FieldColumnInput struct {
	DB     *gorm.DB
	Schema *schema.Schema
	Key    string
	// Fold asks for a lowercased column, used by case-insensitive matching.
	Fold bool
}

type FieldColumnOutput struct {
	Column any
}

type FieldColumnFunc func(input *FieldColumnInput) (*FieldColumnOutput, error)

func defaultFieldColumn(input *FieldColumnInput) (*FieldColumnOutput, error) {
	field, err := lookupField(input.DB, input.Schema, input.Key)
	if err != nil {
		return nil, err
	}
	var column any = clause.Column{Table: input.Schema.Table, Name: field.DBName}
	if input.Fold {
		column = clause.Expr{SQL: "LOWER(?)", Vars: []any{column}}
	}
	return &FieldColumnOutput{Column: column}, nil
}

func buildOptions(opts []Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
