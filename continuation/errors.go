package continuation

import (
	"fmt"
)

// CreationError means an execution could not be snapshotted, almost always
// because user code put a value into a scope that can not be encoded.
type CreationError struct {
	FlowId  string
	Message string
	Cause   error
}

func (e CreationError) Error() string {
	return fmt.Sprintf("could not create continuation of flow '%s': %s: %v", e.FlowId, e.Message, e.Cause)
}

func (e CreationError) Unwrap() error {
	return e.Cause
}

type UnmarshalErrorKind string

// CORRUPT means the bytes do not decode at all.
const CORRUPT UnmarshalErrorKind = "CORRUPT"

// UNRESOLVED_TYPE means a scope value names a type this process does not
// know, usually a deployment mismatch.
const UNRESOLVED_TYPE UnmarshalErrorKind = "UNRESOLVED_TYPE"

// UNKNOWN_VERSION means the snapshot was written by an incompatible release.
const UNKNOWN_VERSION UnmarshalErrorKind = "UNKNOWN_VERSION"

type UnmarshalError struct {
	Kind    UnmarshalErrorKind
	Message string
	Cause   error
}

func (e UnmarshalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("could not unmarshal continuation (%s): %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("could not unmarshal continuation (%s): %s", e.Kind, e.Message)
}

func (e UnmarshalError) Unwrap() error {
	return e.Cause
}
