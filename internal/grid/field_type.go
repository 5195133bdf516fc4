package grid

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FieldType is the declared type of a field. Its integer value is the stable
// tag used on the wire and in Envelope.TypeID.
type FieldType uint8

const (
	// RichText stores free-form text. It is the default type.
	RichText FieldType = 0
	// Number stores numeric values in their textual form.
	Number FieldType = 1
	// DateTime stores a date/time in its textual form.
	DateTime FieldType = 2
	// SingleSelect stores one option ID from the field's type options.
	SingleSelect FieldType = 3
	// MultiSelect stores several option IDs from the field's type options.
	MultiSelect FieldType = 4
	// Checkbox stores a boolean.
	Checkbox FieldType = 5

	fieldTypeCount = 6
)

// AllFieldTypes returns every FieldType in tag order.
func AllFieldTypes() []FieldType {
	return []FieldType{RichText, Number, DateTime, SingleSelect, MultiSelect, Checkbox}
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	return t < fieldTypeCount
}

// TypeID returns the stringified tag of t, e.g. "3" for SingleSelect.
func (t FieldType) TypeID() string {
	return strconv.Itoa(int(t))
}

// FieldTypeFromTypeID maps a stringified tag back to its FieldType.
//
// Any string outside "0".."5" fails with ErrInvalidTag. Leading zeros, signs
// and whitespace are rejected rather than normalized.
func FieldTypeFromTypeID(typeID string) (FieldType, error) {
	switch typeID {
	case "0":
		return RichText, nil
	case "1":
		return Number, nil
	case "2":
		return DateTime, nil
	case "3":
		return SingleSelect, nil
	case "4":
		return MultiSelect, nil
	case "5":
		return Checkbox, nil
	default:
		return RichText, fmt.Errorf("%w: %q", ErrInvalidTag, typeID)
	}
}

// String returns the display name of t.
func (t FieldType) String() string {
	switch t {
	case RichText:
		return "RichText"
	case Number:
		return "Number"
	case DateTime:
		return "DateTime"
	case SingleSelect:
		return "SingleSelect"
	case MultiSelect:
		return "MultiSelect"
	case Checkbox:
		return "Checkbox"
	default:
		return "FieldType(" + strconv.Itoa(int(t)) + ")"
	}
}

// ParseFieldType maps a display name as returned by String back to its
// FieldType.
func ParseFieldType(name string) (FieldType, error) {
	for _, t := range AllFieldTypes() {
		if t.String() == name {
			return t, nil
		}
	}
	return RichText, fmt.Errorf("%w: unknown name %q", ErrInvalidTag, name)
}

// Validate returns ErrInvalidTag when t is not a known field type.
func (t FieldType) Validate() error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidTag, uint8(t))
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
// Unknown tags are rejected instead of falling back to RichText.
func (t *FieldType) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidTag, data)
	}
	if v < 0 || v >= fieldTypeCount {
		return fmt.Errorf("%w: %d", ErrInvalidTag, v)
	}
	*t = FieldType(v)
	return nil
}
