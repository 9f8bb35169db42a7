package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"formscan/internal/domain"
)

// ValueKind distinguishes the three shapes a cell value can take.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindText
	KindNumber
)

// Value is the typed content of a Cell: text, number, or absent. The zero
// Value is null. Numbers keep their literal form so that a value is written
// back exactly as it was read.
type Value struct {
	kind ValueKind
	text string
}

// Null returns the absent value.
func Null() Value { return Value{} }

// Text returns a text value. The string is stored verbatim.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a numeric value with the given literal.
func Number(n json.Number) Value { return Value{kind: KindNumber, text: n.String()} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// IsEmpty reports whether the value is null or the empty string.
func (v Value) IsEmpty() bool {
	return v.kind == KindNull || (v.kind == KindText && v.text == "")
}

// String returns the text or number literal; null renders as "".
func (v Value) String() string { return v.text }

// Equal compares kind and literal.
func (v Value) Equal(o Value) bool { return v.kind == o.kind && v.text == o.text }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindNumber:
		return []byte(v.text), nil
	default:
		return json.Marshal(v.text)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, ok := parseValue(data)
	if !ok {
		return fmt.Errorf("document: unsupported cell value %s", domain.Truncate(string(data), 64))
	}
	*v = parsed
	return nil
}

// parseValue accepts null, strings and numbers. Booleans, objects and
// arrays are rejected; a cell holding one is read as null and flagged.
func parseValue(data []byte) (Value, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Null(), true
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Null(), false
		}
		return Text(s), true
	case 't', 'f', '{', '[':
		return Null(), false
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return Null(), false
		}
		return Number(n), true
	}
}
