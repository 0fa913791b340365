package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveParams(t *testing.T) {
	data := map[string]any{
		"flow": map[string]any{
			"name":  "john",
			"count": 3.0,
			"address": map[string]any{
				"city": "pune",
			},
		},
	}
	params := map[string]any{
		"greeting": "hello {$.flow.name}",
		"count":    "{$.flow.count}",
		"nested":   map[string]any{"city": "{$.flow.address.city}"},
		"list":     []any{"{$.flow.name}", 1},
		"missing":  "{$.flow.unknown}",
		"plain":    true,
	}
	out := ResolveParams(data, params)
	require.Equal(t, "hello john", out["greeting"])
	require.Equal(t, 3.0, out["count"])
	require.Equal(t, map[string]any{"city": "pune"}, out["nested"])
	require.Equal(t, []any{"john", 1}, out["list"])
	require.Equal(t, "{$.flow.unknown}", out["missing"])
	require.Equal(t, true, out["plain"])
}

func TestUidGenerators(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"random ids are unique and parse": func(t *testing.T) {
			g := NewRandomUidGenerator()
			a, b := g.Generate(), g.Generate()
			require.NotEqual(t, a, b)
			parsed, err := g.Parse(a)
			require.NoError(t, err)
			require.Equal(t, a, parsed)
			_, err = g.Parse("not-a-uuid")
			require.ErrorAs(t, err, &InvalidIdError{})
		},
		"sequential ids increase": func(t *testing.T) {
			g := NewSequentialUidGenerator()
			require.Equal(t, "1", g.Generate())
			require.Equal(t, "2", g.Generate())
			_, err := g.Parse("0")
			require.Error(t, err)
			_, err = g.Parse("abc")
			require.Error(t, err)
			id, err := g.Parse("42")
			require.NoError(t, err)
			require.Equal(t, "42", id)
		},
	} {
		t.Run(scenario, fn)
	}
}

func TestCodecs(t *testing.T) {
	type sample struct {
		Name string
		Tags []string
	}
	json := JsonCodec[sample]{}
	data, err := json.Encode(sample{Name: "a", Tags: []string{"x"}})
	require.NoError(t, err)
	decoded, err := json.Decode(data)
	require.NoError(t, err)
	require.Equal(t, "a", decoded.Name)
	_, err = json.Decode([]byte("{"))
	require.ErrorAs(t, err, &DecodeError{})

	gobCodec := GobCodec[any]{}
	data, err = gobCodec.Encode(42)
	require.NoError(t, err)
	value, err := gobCodec.Decode(data)
	require.NoError(t, err)
	require.Equal(t, 42, *value)
	_, err = gobCodec.Decode([]byte("garbage"))
	require.ErrorAs(t, err, &DecodeError{})
}
