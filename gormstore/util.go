package gormstore

import (
	"cmp"
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/theplant/pagequery/filter"
)

func parseSchema(db *gorm.DB, model any) (*schema.Schema, error) {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil {
		return nil, errors.Wrap(err, "failed to parse schema for model")
	}
	return stmt.Schema, nil
}

// If T is not a struct or struct pointer, we need to use db.Statement.Model to find or count
func shouldBasedOnModel[T any](db *gorm.DB) (bool, error) {
	if db.Statement.Model != nil {
		return true, nil
	}
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() == reflect.Struct || (rt.Kind() == reflect.Ptr && rt.Elem().Kind() == reflect.Struct) {
		return false, nil
	}
	return false, errors.New("invalid model type: db.Statement.Model is nil and T is not a struct or struct pointer")
}

func applyModel[T any](db *gorm.DB) *gorm.DB {
	var t T
	modelType := reflect.TypeOf(t)
	if modelType.Kind() == reflect.Ptr && reflect.ValueOf(t).IsNil() {
		t = reflect.New(modelType.Elem()).Interface().(T)
	}
	return db.Model(t)
}

func statementModel(db *gorm.DB) any {
	return cmp.Or(db.Statement.Model, db.Statement.Dest)
}

// lookupField resolves a client key against s by Go name, by column name,
// or by their camelCase spellings ("companyId", "company_id").
func lookupField(db *gorm.DB, s *schema.Schema, key string) (*schema.Field, error) {
	if f, ok := s.FieldsByName[key]; ok {
		return f, nil
	}
	if f, ok := s.FieldsByName[filter.SmartPascalCase(key)]; ok {
		return f, nil
	}
	if f, ok := s.FieldsByDBName[key]; ok {
		return f, nil
	}
	if f, ok := s.FieldsByDBName[db.NamingStrategy.ColumnName("", key)]; ok {
		return f, nil
	}
	return nil, errors.Errorf("missing field %q in schema %s", key, s.Name)
}

func lookupRelation(s *schema.Schema, key string) (*schema.Relationship, error) {
	if rel, ok := s.Relationships.Relations[key]; ok {
		return rel, nil
	}
	if rel, ok := s.Relationships.Relations[filter.SmartPascalCase(key)]; ok {
		return rel, nil
	}
	return nil, errors.Errorf("missing relation %q in schema %s", key, s.Name)
}

// preloadPath turns "company.country" into "Company.Country".
func preloadPath(s *schema.Schema, include string) (string, error) {
	segments := strings.Split(include, ".")
	rel, err := lookupRelation(s, segments[0])
	if err != nil {
		return "", err
	}
	segments[0] = rel.Name
	for i := 1; i < len(segments); i++ {
		segments[i] = filter.SmartPascalCase(segments[i])
	}
	return strings.Join(segments, "."), nil
}
