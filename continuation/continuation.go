package continuation

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/mohitkumar/flowkeeper/execution"
)

// Continuation is an immutable snapshot of a flow execution.
type Continuation struct {
	data       []byte
	compressed bool
}

func (c *Continuation) IsCompressed() bool {
	return c.compressed
}

func (c *Continuation) Size() int {
	return len(c.data)
}

// Factory snapshots executions and reads snapshots back as mementos. A
// memento still has to be rehydrated before it can be resumed.
type Factory struct {
	compress bool
}

func NewFactory(compress bool) *Factory {
	return &Factory{compress: compress}
}

func (f *Factory) Create(e *execution.FlowExecution) (*Continuation, error) {
	data, err := encodeMemento(e.Memento())
	if err != nil {
		return nil, err
	}
	if !f.compress {
		return &Continuation{data: data}, nil
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, CreationError{FlowId: e.GetFlowId(), Message: "compression failed", Cause: err}
	}
	if err := w.Close(); err != nil {
		return nil, CreationError{FlowId: e.GetFlowId(), Message: "compression failed", Cause: err}
	}
	return &Continuation{data: buf.Bytes(), compressed: true}, nil
}

func (f *Factory) Unmarshal(c *Continuation) (*execution.Memento, error) {
	data := c.data
	if c.compressed {
		r, err := gzip.NewReader(bytes.NewReader(c.data))
		if err != nil {
			return nil, UnmarshalError{Kind: CORRUPT, Message: "compressed snapshot is unreadable", Cause: err}
		}
		defer r.Close()
		data, err = io.ReadAll(r)
		if err != nil {
			return nil, UnmarshalError{Kind: CORRUPT, Message: "compressed snapshot is unreadable", Cause: err}
		}
	}
	return decodeMemento(data)
}

// ToBytes returns the wire form of c, compressed or not.
func (f *Factory) ToBytes(c *Continuation) []byte {
	out := make([]byte, len(c.data))
	copy(out, c.data)
	return out
}

// FromBytes reverses ToBytes. Compression is detected from the gzip header,
// so continuations written with either setting can be read back.
func (f *Factory) FromBytes(b []byte) (*Continuation, error) {
	if len(b) == 0 {
		return nil, UnmarshalError{Kind: CORRUPT, Message: "empty continuation"}
	}
	data := make([]byte, len(b))
	copy(data, b)
	return &Continuation{data: data, compressed: isGzip(data)}, nil
}

func isGzip(b []byte) bool {
	return len(b) > 2 && b[0] == 0x1f && b[1] == 0x8b
}
