// Package wire encodes grid entities and changesets as positionally tagged
// CBOR records.
//
// Every struct in package grid carries `cbor:"N,keyasint"` tags, so a record
// is a CBOR map keyed by small integers rather than field names. FieldType is
// encoded as its integer tag. Decoded values are validated: an unknown
// FieldType tag fails with grid.ErrInvalidTag.
package wire

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var errNilValue = errors.New("cannot decode into nil value")

// Encoder writes records to a stream.
type Encoder interface {
	Encode(v any) error
}

// Decoder reads records from a stream.
type Decoder interface {
	Decode(v any) error
}

// validator is implemented by every grid entity and changeset.
type validator interface {
	Validate() error
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding sorts map keys so identical values produce
	// identical bytes.
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(err)
	}
	if decMode, err = (cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}).DecMode(); err != nil {
		panic(err)
	}
}

// Marshal returns the positional encoding of v.
func Marshal(v any) ([]byte, error) {
	if err := validate(v); err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return b, nil
}

// Unmarshal decodes data into v and validates the result.
func Unmarshal(data []byte, v any) error {
	if v == nil {
		return errNilValue
	}
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", v, err)
	}
	if err := validate(v); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", v, err)
	}
	return nil
}

// NewEncoder returns an Encoder writing a sequence of records to w.
func NewEncoder(w io.Writer) Encoder {
	return &encoder{enc: encMode.NewEncoder(w)}
}

// NewDecoder returns a Decoder reading a sequence of records from r.
func NewDecoder(r io.Reader) Decoder {
	return &decoder{dec: decMode.NewDecoder(r)}
}

type encoder struct {
	enc *cbor.Encoder
}

func (e *encoder) Encode(v any) error {
	if err := validate(v); err != nil {
		return fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return e.enc.Encode(v)
}

type decoder struct {
	dec *cbor.Decoder
}

func (d *decoder) Decode(v any) error {
	if err := d.dec.Decode(v); err != nil {
		// io.EOF is returned as is so callers can detect the end of stream.
		return err
	}
	if err := validate(v); err != nil {
		return fmt.Errorf("failed to decode %T: %w", v, err)
	}
	return nil
}

// validate runs Validate on v. Values whose Validate method has a pointer
// receiver are validated through a copy, so passing a struct by value is
// checked the same as passing its pointer.
func validate(v any) error {
	if val, ok := v.(validator); ok {
		return val.Validate()
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() == reflect.Pointer {
		return nil
	}
	p := reflect.New(rv.Type())
	p.Elem().Set(rv)
	if val, ok := p.Interface().(validator); ok {
		return val.Validate()
	}
	return nil
}
