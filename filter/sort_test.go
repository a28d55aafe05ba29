package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want Direction
		ok   bool
	}{
		{"asc", Asc, true},
		{"DESC", Desc, true},
		{" Asc ", Asc, true},
		{"ascending", "", false},
		{"", "", false},
	} {
		got, ok := ParseDirection(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}

func TestDecodeSort(t *testing.T) {
	s, err := DecodeSort([]byte(`{"name":"DESC","createdAt":"asc","age":1,"name":"asc"}`))
	require.NoError(t, err)
	require.Equal(t, Sort{
		{Field: "name", Direction: Desc},
		{Field: "createdAt", Direction: Asc},
		{Field: "age", Direction: ""},
	}, s)

	_, err = DecodeSort([]byte(`[1,2]`))
	require.ErrorContains(t, err, "sort must be a JSON object")

	_, err = DecodeSort([]byte(`{"name":`))
	require.ErrorContains(t, err, "invalid sort json")

	s, err = DecodeSort([]byte(`{}`))
	require.NoError(t, err)
	require.Empty(t, s)
}

func TestSortJSONKeepsOrder(t *testing.T) {
	s := Sort{{Field: "z", Direction: Desc}, {Field: "a", Direction: Asc}}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.Equal(t, `{"z":"desc","a":"asc"}`, string(data))

	var decoded Sort
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, s, decoded)

	data, err = json.Marshal(Sort(nil))
	require.NoError(t, err)
	require.Equal(t, `{}`, string(data))
}
