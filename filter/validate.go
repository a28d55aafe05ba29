package filter

import (
	"reflect"
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/sunfmin/reflectutils"
)

// ValidatePolicy checks that every field named by p exists on model, that
// relation rules point at struct fields and that searchable fields are strings.
// Field names are matched after SmartPascalCase conversion.
func ValidatePolicy(model any, p *Policy) error {
	if p == nil {
		return nil
	}
	return validatePolicy(model, p, "")
}

func validatePolicy(model any, p *Policy, prefix string) error {
	for _, field := range sortedKeys(p.Filterable) {
		rule := p.Filterable[field]
		rt := reflectutils.GetType(model, SmartPascalCase(field))
		if rt == nil {
			return errors.Errorf("filterable field %q not found on %T", prefix+field, model)
		}
		if !rule.IsRelation() {
			continue
		}
		elem := structType(rt)
		if elem == nil {
			return errors.Errorf("relation %q on %T is not a struct", prefix+field, model)
		}
		if err := validatePolicy(reflect.New(elem).Interface(), rule.Policy(), prefix+field+"."); err != nil {
			return err
		}
	}

	for _, field := range p.Searchable {
		rt := reflectutils.GetType(model, SmartPascalCase(field))
		if rt == nil {
			return errors.Errorf("searchable field %q not found on %T", prefix+field, model)
		}
		for rt.Kind() == reflect.Ptr {
			rt = rt.Elem()
		}
		if rt.Kind() != reflect.String {
			return errors.Errorf("searchable field %q on %T must be a string", prefix+field, model)
		}
	}

	for _, field := range sortedKeys(p.Sortable) {
		if reflectutils.GetType(model, SmartPascalCase(field)) == nil {
			return errors.Errorf("sortable field %q not found on %T", prefix+field, model)
		}
	}
	return nil
}

func structType(rt reflect.Type) reflect.Type {
	for rt.Kind() == reflect.Ptr || rt.Kind() == reflect.Slice {
		rt = rt.Elem()
	}
	if rt.Kind() != reflect.Struct {
		return nil
	}
	return rt
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
