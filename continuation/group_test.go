package continuation

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func add(g *Group, n int) []string {
	var ids []string
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("k%d", i)
		g.Add(id, &Continuation{data: []byte(id)})
		ids = append(ids, id)
	}
	return ids
}

func TestGroup(t *testing.T) {
	for scenario, fn := range map[string]func(t *testing.T){
		"oldest are evicted beyond capacity": func(t *testing.T) {
			for _, capacity := range []int{1, 3, 5} {
				for k := 1; k <= 3; k++ {
					g := NewGroup(capacity)
					ids := add(g, capacity+k)
					require.Equal(t, capacity, g.Len())
					for _, evicted := range ids[:k] {
						_, ok := g.Get(evicted)
						require.False(t, ok, evicted)
					}
					for _, kept := range ids[k:] {
						_, ok := g.Get(kept)
						require.True(t, ok, kept)
					}
					require.Equal(t, ids[k:], g.Ids())
				}
			}
		},
		"zero keeps only the newest": func(t *testing.T) {
			g := NewGroup(0)
			add(g, 4)
			require.Equal(t, []string{"k4"}, g.Ids())
		},
		"unbounded never evicts": func(t *testing.T) {
			g := NewGroup(UNBOUNDED)
			add(g, 50)
			require.Equal(t, 50, g.Len())
		},
		"re-adding keeps eviction order": func(t *testing.T) {
			g := NewGroup(2)
			add(g, 2)
			g.Add("k1", &Continuation{data: []byte("new")})
			c, ok := g.Get("k1")
			require.True(t, ok)
			require.Equal(t, []byte("new"), c.data)
			g.Add("k3", &Continuation{data: []byte("k3")})
			require.Equal(t, []string{"k2", "k3"}, g.Ids())
		},
		"gob round trip": func(t *testing.T) {
			g := NewGroup(3)
			add(g, 4)
			var buf bytes.Buffer
			var attr any = g
			require.NoError(t, gob.NewEncoder(&buf).Encode(&attr))
			var decoded any
			require.NoError(t, gob.NewDecoder(&buf).Decode(&decoded))
			dg, ok := decoded.(*Group)
			require.True(t, ok)
			require.Equal(t, g.Ids(), dg.Ids())
			require.Equal(t, 3, dg.MaxContinuations())
			c, ok := dg.Get("k4")
			require.True(t, ok)
			require.Equal(t, []byte("k4"), c.data)
		},
		"mismatched snapshot lists are corrupt": func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, gob.NewEncoder(&buf).Encode(groupWire{
				MaxContinuations: 3,
				Ids:              []string{"k1", "k2"},
				Data:             [][]byte{[]byte("k1")},
				Compressed:       []bool{false, false},
			}))
			var g Group
			err := g.GobDecode(buf.Bytes())
			var unmarshalErr UnmarshalError
			require.ErrorAs(t, err, &unmarshalErr)
			require.Equal(t, CORRUPT, unmarshalErr.Kind)
		},
	} {
		t.Run(scenario, fn)
	}
}

func TestSealer(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	require.ErrorIs(t, err, ErrInvalidSecret)

	sealer, err := NewSealer([]byte("0123456789abcdef0123"))
	require.NoError(t, err)
	sealed, err := sealer.Seal([]byte("state"))
	require.NoError(t, err)
	require.NotContains(t, string(sealed), "state")

	plain, err := sealer.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("state"), plain)

	sealed[len(sealed)-1] ^= 0xff
	_, err = sealer.Open(sealed)
	require.ErrorIs(t, err, ErrTampered)
	_, err = sealer.Open([]byte("x"))
	require.ErrorIs(t, err, ErrTampered)

	other, err := NewSealer([]byte("another-secret-of-enough-length"))
	require.NoError(t, err)
	sealed, err = sealer.Seal([]byte("state"))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	require.ErrorIs(t, err, ErrTampered)
}
