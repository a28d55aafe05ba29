package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeFilters(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Filters
		wantErr string
	}{
		{
			name:  "bare values",
			input: `{"name":"ann","age":30,"score":1.5,"active":true}`,
			want: Filters{
				"name":   ValueCondition("ann"),
				"age":    ValueCondition(int64(30)),
				"score":  ValueCondition(1.5),
				"active": ValueCondition(true),
			},
		},
		{
			name:  "operators with unknown ones dropped",
			input: `{"status":{"$in":["active",2],"$regex":".*","plain":1}}`,
			want: Filters{
				"status": OperatorCondition(map[Operator]any{OpIn: []any{"active", int64(2)}}),
			},
		},
		{
			name:  "scalar membership operands become lists",
			input: `{"status":{"$in":"active","$nin":3}}`,
			want: Filters{
				"status": OperatorCondition(map[Operator]any{OpIn: []any{"active"}, OpNin: []any{int64(3)}}),
			},
		},
		{
			name:  "negation holds a sub condition",
			input: `{"role":{"$not":{"$in":["admin"]}},"name":{"$not":"bob"}}`,
			want: Filters{
				"role": OperatorCondition(map[Operator]any{
					OpNot: OperatorCondition(map[Operator]any{OpIn: []any{"admin"}}),
				}),
				"name": OperatorCondition(map[Operator]any{OpNot: ValueCondition("bob")}),
			},
		},
		{
			name:  "negation of a relation is dropped",
			input: `{"name":{"$not":{"first":"x"}}}`,
			want: Filters{
				"name": OperatorCondition(map[Operator]any{}),
			},
		},
		{
			name:  "nested relation",
			input: `{"company":{"name":{"$contains":"acme","$mode":"insensitive"}}}`,
			want: Filters{
				"company": NestedCondition(Filters{
					"name": OperatorCondition(map[Operator]any{OpContains: "acme", OpMode: "insensitive"}),
				}),
			},
		},
		{
			name:    "not an object",
			input:   `["a"]`,
			wantErr: "filters must be a JSON object",
		},
		{
			name:    "malformed",
			input:   `{"a":`,
			wantErr: "unmarshal filters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeFilters([]byte(tt.input))
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestConditionMarshalJSON(t *testing.T) {
	f := Filters{
		"age":  OperatorCondition(map[Operator]any{OpGte: int64(18), OpNot: ValueCondition(int64(30))}),
		"name": ValueCondition("ann"),
		"company": NestedCondition(Filters{
			"name": OperatorCondition(map[Operator]any{OpEq: "acme"}),
		}),
	}
	data, err := jsoniterForFilter.Marshal(f)
	require.NoError(t, err)
	require.JSONEq(t, `{"age":{"$gte":18,"$not":30},"company":{"name":{"$eq":"acme"}},"name":"ann"}`, string(data))

	decoded, err := DecodeFilters(data)
	require.NoError(t, err)
	require.Equal(t, f, decoded)
}

func TestConditionEmpty(t *testing.T) {
	require.False(t, ValueCondition(nil).Empty())
	require.True(t, OperatorCondition(nil).Empty())
	require.True(t, NestedCondition(Filters{}).Empty())
	require.False(t, NestedCondition(Filters{"a": ValueCondition(1)}).Empty())
}
