package grid

import (
	"errors"
	"testing"
)

func TestEnvelope(t *testing.T) {
	t.Run("WrapString", func(t *testing.T) {
		e := WrapString(RichText, "hello")
		if e.TypeID != "0" {
			t.Errorf("TypeID = %q, want %q", e.TypeID, "0")
		}
		if got := e.String(); got != "hello" {
			t.Errorf("String() = %q, want %q", got, "hello")
		}
		s, err := e.StrictString()
		if err != nil || s != "hello" {
			t.Errorf("StrictString() = %q, %v", s, err)
		}
	})

	t.Run("Wrap copies", func(t *testing.T) {
		b := []byte("12.5")
		e := Wrap(Number, b)
		b[0] = 'X'
		if got := e.String(); got != "12.5" {
			t.Errorf("String() = %q after mutating input, want %q", got, "12.5")
		}
		ft, err := e.FieldType()
		if err != nil || ft != Number {
			t.Errorf("FieldType() = %v, %v", ft, err)
		}
	})

	t.Run("invalid UTF-8 falls back to empty", func(t *testing.T) {
		e := Wrap(RichText, []byte{0xff, 0xfe, 0xfd})
		if got := e.String(); got != "" {
			t.Errorf("String() = %q, want empty", got)
		}
		if _, err := e.StrictString(); !errors.Is(err, ErrInvalidUTF8) {
			t.Errorf("StrictString() error = %v, want ErrInvalidUTF8", err)
		}
	})

	t.Run("empty payload", func(t *testing.T) {
		e := Wrap(Checkbox, nil)
		if got := e.String(); got != "" {
			t.Errorf("String() = %q, want empty", got)
		}
		if _, err := e.StrictString(); err != nil {
			t.Errorf("StrictString() error = %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		for _, ft := range AllFieldTypes() {
			e := WrapString(ft, "x")
			if err := e.Validate(); err != nil {
				t.Errorf("Validate(%v) = %v", ft, err)
			}
		}
		e := Envelope{TypeID: "7", Value: []byte("x")}
		if err := e.Validate(); !errors.Is(err, ErrInvalidTag) {
			t.Errorf("Validate() = %v, want ErrInvalidTag", err)
		}
	})
}
