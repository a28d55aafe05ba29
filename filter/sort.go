package filter

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection normalizes s case-insensitively to Asc or Desc.
func ParseDirection(s string) (Direction, bool) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Asc:
		return Asc, true
	case Desc:
		return Desc, true
	}
	return "", false
}

func (d Direction) Desc() bool {
	return d == Desc
}

type Order struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Sort is an ordered list of sort keys. Its JSON form is an object
// whose key order is the sort priority.
type Sort []Order

func (s Sort) Fields() []string {
	fields := make([]string, len(s))
	for i, o := range s {
		fields[i] = o.Field
	}
	return fields
}

// DecodeSort decodes {"field": "direction", ...} keeping key order.
// Directions are lowercased, non-string directions are kept empty.
func DecodeSort(data []byte) (Sort, error) {
	if !jsoniterForFilter.Valid(data) {
		return nil, errors.New("invalid sort json")
	}
	iter := jsoniterForFilter.BorrowIterator(data)
	defer jsoniterForFilter.ReturnIterator(iter)

	if iter.WhatIsNext() != jsoniter.ObjectValue {
		return nil, errors.New("sort must be a JSON object")
	}

	var s Sort
	seen := map[string]bool{}
	iter.ReadMapCB(func(iter *jsoniter.Iterator, field string) bool {
		var dir Direction
		if iter.WhatIsNext() == jsoniter.StringValue {
			dir = Direction(strings.ToLower(iter.ReadString()))
		} else {
			iter.Skip()
		}
		if field == "" || seen[field] {
			return true
		}
		seen[field] = true
		s = append(s, Order{Field: field, Direction: dir})
		return true
	})
	if iter.Error != nil {
		return nil, errors.Wrap(iter.Error, "read sort")
	}
	return s, nil
}

func (s *Sort) UnmarshalJSON(data []byte) error {
	decoded, err := DecodeSort(data)
	if err != nil {
		return err
	}
	*s = decoded
	return nil
}

func (s Sort) MarshalJSON() ([]byte, error) {
	stream := jsoniterForFilter.BorrowStream(nil)
	defer jsoniterForFilter.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, o := range s {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(o.Field)
		stream.WriteString(string(o.Direction))
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, errors.Wrap(stream.Error, "write sort")
	}
	return append([]byte(nil), stream.Buffer()...), nil
}
