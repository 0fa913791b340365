package util

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
)

// Codec turns stored values of one type into bytes and back.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(data []byte) (*T, error)
}

// DecodeError reports bytes that do not hold a value of the expected type.
type DecodeError struct {
	Format string
	Cause  error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("can not decode %s value: %v", e.Format, e.Cause)
}

func (e DecodeError) Unwrap() error {
	return e.Cause
}

var _ Codec[any] = JsonCodec[any]{}

// JsonCodec stores documents meant to be readable outside the engine, such as
// flow definitions.
type JsonCodec[T any] struct{}

func (JsonCodec[T]) Encode(value T) ([]byte, error) {
	return json.Marshal(value)
}

func (JsonCodec[T]) Decode(data []byte) (*T, error) {
	var res T
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, DecodeError{Format: "json", Cause: err}
	}
	return &res, nil
}

var _ Codec[any] = GobCodec[any]{}

// GobCodec keeps the dynamic type of interface values. Concrete types stored
// behind an interface must be registered with gob.Register.
type GobCodec[T any] struct{}

func (GobCodec[T]) Encode(value T) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GobCodec[T]) Decode(data []byte) (*T, error) {
	var res T
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&res); err != nil {
		return nil, DecodeError{Format: "gob", Cause: err}
	}
	return &res, nil
}
