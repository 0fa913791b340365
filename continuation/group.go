package continuation

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// UNBOUNDED disables eviction in a Group.
const UNBOUNDED = -1

// Group holds the continuations of one conversation in insertion order and
// evicts the oldest once more than maxContinuations are held. A bound of 0
// keeps only the newest. It is guarded by the conversation lock, not by
// itself.
type Group struct {
	maxContinuations int
	ids              []string
	continuations    map[string]*Continuation
}

func NewGroup(maxContinuations int) *Group {
	return &Group{
		maxContinuations: maxContinuations,
		continuations:    make(map[string]*Continuation),
	}
}

// Add stores c under id. Re-adding an id replaces the snapshot but keeps its
// place in the eviction order.
func (g *Group) Add(id string, c *Continuation) {
	if _, ok := g.continuations[id]; !ok {
		g.ids = append(g.ids, id)
	}
	g.continuations[id] = c
	bound := g.maxContinuations
	if bound == 0 {
		bound = 1
	}
	for bound > 0 && len(g.ids) > bound {
		oldest := g.ids[0]
		g.ids = g.ids[1:]
		delete(g.continuations, oldest)
	}
}

func (g *Group) Get(id string) (*Continuation, bool) {
	c, ok := g.continuations[id]
	return c, ok
}

func (g *Group) Len() int {
	return len(g.ids)
}

// Ids are oldest first.
func (g *Group) Ids() []string {
	ids := make([]string, len(g.ids))
	copy(ids, g.ids)
	return ids
}

func (g *Group) MaxContinuations() int {
	return g.maxContinuations
}

type groupWire struct {
	MaxContinuations int
	Ids              []string
	Data             [][]byte
	Compressed       []bool
}

func (g *Group) GobEncode() ([]byte, error) {
	w := groupWire{MaxContinuations: g.maxContinuations, Ids: g.ids}
	for _, id := range g.ids {
		c := g.continuations[id]
		w.Data = append(w.Data, c.data)
		w.Compressed = append(w.Compressed, c.compressed)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Group) GobDecode(b []byte) error {
	var w groupWire
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&w); err != nil {
		return err
	}
	if len(w.Data) != len(w.Ids) || len(w.Compressed) != len(w.Ids) {
		return UnmarshalError{Kind: CORRUPT,
			Message: fmt.Sprintf("continuation group lists %d ids but %d snapshots and %d flags", len(w.Ids), len(w.Data), len(w.Compressed))}
	}
	g.maxContinuations = w.MaxContinuations
	g.ids = nil
	g.continuations = make(map[string]*Continuation, len(w.Ids))
	for i, id := range w.Ids {
		g.ids = append(g.ids, id)
		g.continuations[id] = &Continuation{data: w.Data[i], compressed: w.Compressed[i]}
	}
	return nil
}

func init() {
	gob.Register(&Group{})
}
