// Type-tagged byte payload carrying a cell value across a transport boundary.

package grid

import (
	"bytes"
	"unicode/utf8"
)

// Envelope tags a raw payload with the type of the field that produced it so
// consumers can decode it unambiguously.
type Envelope struct {
	TypeID string `json:"type_id" cbor:"1,keyasint" jsonschema:"description=Stringified FieldType tag"`
	Value  []byte `json:"value" cbor:"2,keyasint" jsonschema:"description=Raw payload"`
}

// Wrap returns an Envelope holding a copy of b tagged with t.
func Wrap(t FieldType, b []byte) Envelope {
	return Envelope{TypeID: t.TypeID(), Value: bytes.Clone(b)}
}

// WrapString returns an Envelope holding the UTF-8 bytes of s tagged with t.
func WrapString(t FieldType, s string) Envelope {
	return Envelope{TypeID: t.TypeID(), Value: []byte(s)}
}

// FieldType returns the type the envelope is tagged with.
func (e Envelope) FieldType() (FieldType, error) {
	return FieldTypeFromTypeID(e.TypeID)
}

// String returns the payload decoded as UTF-8.
//
// Invalid UTF-8 yields the empty string, not an error. The result is
// therefore indistinguishable from an empty payload; use StrictString when
// that matters.
func (e Envelope) String() string {
	if !utf8.Valid(e.Value) {
		return ""
	}
	return string(e.Value)
}

// StrictString returns the payload decoded as UTF-8 or ErrInvalidUTF8.
func (e Envelope) StrictString() (string, error) {
	if !utf8.Valid(e.Value) {
		return "", ErrInvalidUTF8
	}
	return string(e.Value), nil
}

// Validate checks that the envelope's tag is a known field type.
func (e Envelope) Validate() error {
	_, err := e.FieldType()
	return err
}
