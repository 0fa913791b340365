package continuation

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mohitkumar/flowkeeper/execution"
	"github.com/mohitkumar/flowkeeper/flow"
	"google.golang.org/protobuf/encoding/protowire"
)

// SNAPSHOT_VERSION is written first in every snapshot. Readers reject
// versions they do not know instead of guessing at the layout.
const SNAPSHOT_VERSION = 1

// snapshot fields
const (
	fieldVersion  protowire.Number = 1
	fieldFlowId   protowire.Number = 2
	fieldStarted  protowire.Number = 3
	fieldFlash    protowire.Number = 4
	fieldSessions protowire.Number = 5
)

// session fields
const (
	fieldSessionFlowId  protowire.Number = 1
	fieldSessionStateId protowire.Number = 2
	fieldSessionStatus  protowire.Number = 3
	fieldSessionScope   protowire.Number = 4
)

func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
	gob.Register(flow.Scope{})
}

func encodeMemento(m *execution.Memento) ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, SNAPSHOT_VERSION)
	b = protowire.AppendTag(b, fieldFlowId, protowire.BytesType)
	b = protowire.AppendString(b, m.FlowId)
	b = protowire.AppendTag(b, fieldStarted, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeBool(m.Started))
	flash, err := encodeScope(m.FlashScope)
	if err != nil {
		return nil, CreationError{FlowId: m.FlowId, Message: scopeHint("flash", m.FlowId, m.FlashScope), Cause: err}
	}
	b = protowire.AppendTag(b, fieldFlash, protowire.BytesType)
	b = protowire.AppendBytes(b, flash)
	for _, s := range m.Sessions {
		scope, err := encodeScope(s.Scope)
		if err != nil {
			return nil, CreationError{FlowId: m.FlowId, Message: scopeHint("flow", s.FlowId, s.Scope), Cause: err}
		}
		var sb []byte
		sb = protowire.AppendTag(sb, fieldSessionFlowId, protowire.BytesType)
		sb = protowire.AppendString(sb, s.FlowId)
		sb = protowire.AppendTag(sb, fieldSessionStateId, protowire.BytesType)
		sb = protowire.AppendString(sb, s.StateId)
		sb = protowire.AppendTag(sb, fieldSessionStatus, protowire.VarintType)
		sb = protowire.AppendVarint(sb, uint64(s.Status))
		sb = protowire.AppendTag(sb, fieldSessionScope, protowire.BytesType)
		sb = protowire.AppendBytes(sb, scope)
		b = protowire.AppendTag(b, fieldSessions, protowire.BytesType)
		b = protowire.AppendBytes(b, sb)
	}
	return b, nil
}

func decodeMemento(b []byte) (*execution.Memento, error) {
	m := &execution.Memento{}
	version := uint64(0)
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch {
		case num == fieldVersion && typ == protowire.VarintType:
			version = varint
		case num == fieldFlowId && typ == protowire.BytesType:
			m.FlowId = string(value)
		case num == fieldStarted && typ == protowire.VarintType:
			m.Started = protowire.DecodeBool(varint)
		case num == fieldFlash && typ == protowire.BytesType:
			scope, err := decodeScope(value)
			if err != nil {
				return err
			}
			m.FlashScope = scope
		case num == fieldSessions && typ == protowire.BytesType:
			session, err := decodeSession(value)
			if err != nil {
				return err
			}
			m.Sessions = append(m.Sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if version == 0 {
		return nil, UnmarshalError{Kind: CORRUPT, Message: "snapshot has no version"}
	}
	if version != SNAPSHOT_VERSION {
		return nil, UnmarshalError{Kind: UNKNOWN_VERSION, Message: fmt.Sprintf("snapshot version %d is not supported, expected %d", version, SNAPSHOT_VERSION)}
	}
	if len(m.FlowId) == 0 {
		return nil, UnmarshalError{Kind: CORRUPT, Message: "snapshot has no flow id"}
	}
	if m.FlashScope == nil {
		m.FlashScope = flow.NewScope()
	}
	return m, nil
}

func decodeSession(b []byte) (execution.SessionMemento, error) {
	s := execution.SessionMemento{Scope: flow.NewScope()}
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error {
		switch {
		case num == fieldSessionFlowId && typ == protowire.BytesType:
			s.FlowId = string(value)
		case num == fieldSessionStateId && typ == protowire.BytesType:
			s.StateId = string(value)
		case num == fieldSessionStatus && typ == protowire.VarintType:
			s.Status = execution.Status(varint)
		case num == fieldSessionScope && typ == protowire.BytesType:
			scope, err := decodeScope(value)
			if err != nil {
				return err
			}
			s.Scope = scope
		}
		return nil
	})
	return s, err
}

// consumeFields walks a tagged record and skips fields it does not know.
func consumeFields(b []byte, fn func(num protowire.Number, typ protowire.Type, value []byte, varint uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return UnmarshalError{Kind: CORRUPT, Message: "malformed field tag", Cause: protowire.ParseError(n)}
		}
		b = b[n:]
		var value []byte
		var varint uint64
		switch typ {
		case protowire.VarintType:
			varint, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			value, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return UnmarshalError{Kind: CORRUPT, Message: fmt.Sprintf("malformed field %d", num), Cause: protowire.ParseError(n)}
		}
		b = b[n:]
		if err := fn(num, typ, value, varint); err != nil {
			return err
		}
	}
	return nil
}

func encodeScope(scope flow.Scope) ([]byte, error) {
	values := map[string]any(scope)
	if values == nil {
		values = make(map[string]any)
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeScope(b []byte) (flow.Scope, error) {
	var values map[string]any
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&values); err != nil {
		if strings.Contains(err.Error(), "name not registered") || strings.Contains(err.Error(), "not registered for interface") {
			return nil, UnmarshalError{Kind: UNRESOLVED_TYPE, Message: "a scope value has a type that is not registered with encoding/gob in this process", Cause: err}
		}
		return nil, UnmarshalError{Kind: CORRUPT, Message: "scope can not be decoded", Cause: err}
	}
	scope := flow.NewScope()
	scope.PutAll(values)
	return scope, nil
}

// scopeHint names the first attribute of scope that does not encode, so the
// error points at the user code that stored it.
func scopeHint(scopeName string, flowId string, scope flow.Scope) string {
	names := make([]string, 0, len(scope))
	for k := range scope {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := encodeScope(flow.Scope{name: scope[name]}); err != nil {
			return fmt.Sprintf("attribute '%s' in %s scope of flow '%s' (%T) can not be serialized; make sure all objects stored in flow, flash and conversation scope are registered with encoding/gob", name, scopeName, flowId, scope[name])
		}
	}
	return fmt.Sprintf("%s scope of flow '%s' can not be serialized; make sure all objects stored in flow, flash and conversation scope are registered with encoding/gob", scopeName, flowId)
}

// IsUnresolvedType reports whether err comes from a snapshot referencing a
// type unknown to this process.
func IsUnresolvedType(err error) bool {
	var unmarshalErr UnmarshalError
	return errors.As(err, &unmarshalErr) && unmarshalErr.Kind == UNRESOLVED_TYPE
}
