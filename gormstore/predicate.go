package gormstore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"

	"github.com/theplant/pagequery/filter"
)

// Scope restricts the query to rows matching where. The model must be set
// on db (via Model or Find's destination) so fields can be resolved.
func Scope(where filter.Predicate, opts ...Option) func(db *gorm.DB) *gorm.DB {
	o := buildOptions(opts)
	return func(db *gorm.DB) *gorm.DB {
		if db == nil {
			return nil
		}
		fdb, err := addPredicate(db, where, o)
		if err != nil {
			db.AddError(err)
			return db
		}
		return fdb
	}
}

func addPredicate(db *gorm.DB, where filter.Predicate, opts *Options) (*gorm.DB, error) {
	if len(where) == 0 {
		return db, nil
	}

	model := statementModel(db)
	if model == nil {
		return nil, errors.New("model is nil")
	}
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, errors.Wrap(err, "parse schema with db")
	}

	b := &exprBuilder{db: db, opts: opts, fieldColumn: defaultFieldColumn}
	if opts.FieldColumnHook != nil {
		b.fieldColumn = opts.FieldColumnHook(b.fieldColumn)
	}
	expr, err := b.predicate(stmt.Schema, where)
	if err != nil {
		return nil, err
	}
	if expr != nil {
		db = db.Where(expr)
	}
	return db, nil
}

type exprBuilder struct {
	db          *gorm.DB
	opts        *Options
	fieldColumn FieldColumnFunc
}

func (b *exprBuilder) predicate(s *schema.Schema, p filter.Predicate) (clause.Expression, error) {
	var exprs []clause.Expression

	keys := lo.Keys(p)
	sort.Strings(keys)

	for _, key := range keys {
		value := p[key]
		if value == nil {
			continue
		}

		var (
			expr clause.Expression
			err  error
		)
		switch key {
		case filter.LogicalAnd, filter.LogicalOr:
			list, ok := value.([]filter.Predicate)
			if !ok {
				return nil, errors.Errorf("invalid %s predicate format", key)
			}
			expr, err = b.group(s, key, list)

		case filter.LogicalNot:
			sub, ok := value.(filter.Predicate)
			if !ok {
				return nil, errors.New("invalid NOT predicate format")
			}
			expr, err = b.predicate(s, sub)
			if expr != nil {
				expr = ClauseNot(expr)
			}

		default:
			switch v := value.(type) {
			case filter.Comparison:
				expr, err = b.field(s, key, v)
			case filter.Predicate:
				expr, err = b.relation(s, key, v)
			default:
				return nil, errors.Errorf("invalid predicate format for field %q", key)
			}
		}
		if err != nil {
			return nil, err
		}
		if expr != nil {
			exprs = append(exprs, expr)
		}
	}

	return combineExprs(exprs...), nil
}

func (b *exprBuilder) group(s *schema.Schema, key string, list []filter.Predicate) (clause.Expression, error) {
	var subExprs []clause.Expression
	for _, item := range list {
		expr, err := b.predicate(s, item)
		if err != nil {
			return nil, err
		}
		if expr != nil {
			subExprs = append(subExprs, expr)
		}
	}
	switch {
	case len(subExprs) == 0:
		return nil, nil
	case len(subExprs) == 1:
		return subExprs[0], nil
	case key == filter.LogicalAnd:
		return clause.And(subExprs...), nil
	default:
		return clause.Or(subExprs...), nil
	}
}

func (b *exprBuilder) field(s *schema.Schema, key string, c filter.Comparison) (clause.Expression, error) {
	out, err := b.fieldColumn(&FieldColumnInput{DB: b.db, Schema: s, Key: key})
	if err != nil {
		return nil, err
	}
	column, likeColumn := out.Column, out.Column

	if containsFold(c) {
		out, err := b.fieldColumn(&FieldColumnInput{DB: b.db, Schema: s, Key: key, Fold: true})
		if err != nil {
			return nil, err
		}
		likeColumn = out.Column
	}

	return b.comparison(key, column, likeColumn, c)
}

func containsFold(c filter.Comparison) bool {
	if c[filter.KeyMode] == filter.ModeInsensitive {
		return true
	}
	if sub, ok := c[filter.KeyNot].(filter.Comparison); ok && containsFold(sub) {
		return true
	}
	if list, ok := c[filter.LogicalAnd].([]filter.Comparison); ok {
		for _, sub := range list {
			if containsFold(sub) {
				return true
			}
		}
	}
	return false
}

// comparison builds the conditions of c against column. foldColumn is the
// lowercased column, used when c asks for insensitive matching.
func (b *exprBuilder) comparison(key string, column, foldColumn any, c filter.Comparison) (clause.Expression, error) {
	fold := c[filter.KeyMode] == filter.ModeInsensitive
	likeColumn := column
	if fold {
		likeColumn = foldColumn
	}

	var exprs []clause.Expression

	ops := lo.Keys(c)
	sort.Strings(ops)

	for _, op := range ops {
		value := c[op]

		var expr clause.Expression

		switch op {
		case filter.KeyMode:
			continue

		case filter.KeyEquals:
			expr = clause.Eq{Column: column, Value: value}

		case filter.KeyNot:
			if sub, ok := value.(filter.Comparison); ok {
				negated, err := b.comparison(key, column, foldColumn, sub)
				if err != nil {
					return nil, err
				}
				if negated != nil {
					expr = ClauseNot(negated)
				}
			} else {
				expr = clause.Neq{Column: column, Value: value}
			}

		case filter.KeyGt:
			expr = clause.Gt{Column: column, Value: value}
		case filter.KeyGte:
			expr = clause.Gte{Column: column, Value: value}
		case filter.KeyLt:
			expr = clause.Lt{Column: column, Value: value}
		case filter.KeyLte:
			expr = clause.Lte{Column: column, Value: value}

		case filter.KeyIn, filter.KeyNotIn:
			arr, ok := value.([]any)
			if !ok {
				return nil, errors.Errorf("invalid %s values for field %q", op, key)
			}
			if op == filter.KeyNotIn {
				// NOT IN over an empty set excludes nothing.
				if len(arr) == 0 {
					continue
				}
				expr = ClauseNot(clause.IN{Column: column, Values: arr})
			} else {
				expr = clause.IN{Column: column, Values: arr}
			}

		case filter.KeyContains, filter.KeyStartsWith, filter.KeyEndsWith:
			str := escapeLike(likeOperand(value))
			if fold {
				str = strings.ToLower(str)
			}
			pattern := str
			switch op {
			case filter.KeyContains:
				pattern = "%" + str + "%"
			case filter.KeyStartsWith:
				pattern = str + "%"
			case filter.KeyEndsWith:
				pattern = "%" + str
			}
			expr = clause.Like{Column: likeColumn, Value: pattern}

		case filter.KeyIs:
			isNull, ok := value.(bool)
			if !ok {
				return nil, errors.Errorf("invalid IS NULL value for field %q", key)
			}
			if isNull {
				expr = clause.Eq{Column: column, Value: nil}
			} else {
				expr = clause.Neq{Column: column, Value: nil}
			}

		case filter.LogicalAnd:
			list, ok := value.([]filter.Comparison)
			if !ok {
				return nil, errors.Errorf("invalid AND comparison for field %q", key)
			}
			var subExprs []clause.Expression
			for _, sub := range list {
				e, err := b.comparison(key, column, foldColumn, sub)
				if err != nil {
					return nil, err
				}
				if e != nil {
					subExprs = append(subExprs, e)
				}
			}
			expr = combineExprs(subExprs...)

		default:
			return nil, errors.Errorf("unknown operator %s for field %q", op, key)
		}

		if expr != nil {
			exprs = append(exprs, expr)
		}
	}

	return combineExprs(exprs...), nil
}

// relation matches rows whose related records satisfy p, as an uncorrelated
// IN subquery on the join keys.
func (b *exprBuilder) relation(s *schema.Schema, key string, p filter.Predicate) (clause.Expression, error) {
	rel, err := lookupRelation(s, key)
	if err != nil {
		return nil, err
	}
	if b.opts.DisableRelations {
		return nil, errors.Errorf("relation filter is disabled for field %q", key)
	}
	if rel.Type == schema.Many2Many {
		return nil, errors.Errorf("many2many relation %q is not supported", rel.Name)
	}

	related := rel.FieldSchema
	sub := b.db.Session(&gorm.Session{NewDB: true}).Model(reflect.New(related.ModelType).Interface())

	var (
		ownColumns     []any
		relatedColumns []clause.Column
	)
	for _, ref := range rel.References {
		if ref.PrimaryKey == nil {
			// polymorphic type discriminator
			sub = sub.Where(clause.Eq{
				Column: clause.Column{Table: related.Table, Name: ref.ForeignKey.DBName},
				Value:  ref.PrimaryValue,
			})
			continue
		}
		if ref.OwnPrimaryKey {
			ownColumns = append(ownColumns, clause.Column{Table: s.Table, Name: ref.PrimaryKey.DBName})
			relatedColumns = append(relatedColumns, clause.Column{Table: related.Table, Name: ref.ForeignKey.DBName})
		} else {
			ownColumns = append(ownColumns, clause.Column{Table: s.Table, Name: ref.ForeignKey.DBName})
			relatedColumns = append(relatedColumns, clause.Column{Table: related.Table, Name: ref.PrimaryKey.DBName})
		}
	}
	if len(ownColumns) == 0 {
		return nil, errors.Errorf("relation %q has no join keys", rel.Name)
	}

	expr, err := b.predicate(related, p)
	if err != nil {
		return nil, err
	}
	if expr == nil {
		return nil, nil
	}
	sub = sub.Clauses(clause.Select{Columns: relatedColumns}).Where(expr)

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ownColumns)), ",")
	if len(ownColumns) > 1 {
		placeholders = "(" + placeholders + ")"
	}
	return clause.Expr{
		SQL:  placeholders + " IN (?)",
		Vars: append(ownColumns, sub),
	}, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func likeOperand(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// combineExprs combines multiple expressions into a single expression
func combineExprs(exprs ...clause.Expression) clause.Expression {
	switch len(exprs) {
	case 0:
		return nil
	case 1:
		return exprs[0]
	default:
		return clause.And(exprs...)
	}
}
