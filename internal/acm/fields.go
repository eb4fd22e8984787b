package acm

import (
	"strconv"
	"strings"
)

// FieldType selects how a reply field is decoded
type FieldType int

const (
	Int FieldType = iota
	Float
	Str
	// Raw returns the whole reply line without splitting.
	Raw
)

// String returns the string representation of FieldType
func (t FieldType) String() string {
	switch t {
	case Int:
		return "int"
	case Float:
		return "float"
	case Str:
		return "str"
	case Raw:
		return "raw"
	default:
		return "unknown"
	}
}

// FieldSeparator separates reply fields.
const FieldSeparator = ","

// Values holds decoded reply fields. Element types follow the manifest passed
// to Parse: int for Int, float64 for Float, string for Str and Raw.
type Values []any

// Int returns field i decoded as Int. It panics if the manifest said otherwise.
func (v Values) Int(i int) int { return v[i].(int) }

// Float returns field i decoded as Float. It panics if the manifest said otherwise.
func (v Values) Float(i int) float64 { return v[i].(float64) }

// Str returns field i decoded as Str or Raw. It panics if the manifest said otherwise.
func (v Values) Str(i int) string { return v[i].(string) }

// Ints returns all fields of an all-Int reply.
func (v Values) Ints() []int {
	out := make([]int, len(v))
	for i := range v {
		out[i] = v.Int(i)
	}
	return out
}

// Floats returns all fields of an all-Float reply.
func (v Values) Floats() []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v.Float(i)
	}
	return out
}

// Strings returns all fields of an all-Str reply.
func (v Values) Strings() []string {
	out := make([]string, len(v))
	for i := range v {
		out[i] = v.Str(i)
	}
	return out
}

// Parse splits a reply on commas and converts each whitespace-trimmed field
// according to types. A single type is broadcast to every field. A manifest of
// exactly {Raw} returns the line untouched as a single field.
//
// Callers tell single- and multi-field replies apart by their manifest length;
// the result is always a slice.
func Parse(raw string, types ...FieldType) (Values, error) {
	if len(types) == 1 && types[0] == Raw {
		return Values{raw}, nil
	}

	fields := strings.Split(strings.TrimSpace(raw), FieldSeparator)
	if len(types) == 1 && len(fields) > 1 {
		types = repeat(types[0], len(fields))
	}
	if len(types) != len(fields) {
		return nil, &ArityError{Expected: len(types), Actual: len(fields), Raw: raw}
	}

	values := make(Values, len(fields))
	for i, f := range fields {
		v, err := parseField(strings.TrimSpace(f), types[i])
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func parseField(field string, t FieldType) (any, error) {
	switch t {
	case Int:
		n, err := strconv.Atoi(field)
		if err != nil {
			return nil, &FieldError{Field: field, Type: t, Err: err}
		}
		return n, nil
	case Float:
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, &FieldError{Field: field, Type: t, Err: err}
		}
		return f, nil
	case Str, Raw:
		return field, nil
	default:
		return nil, &FieldError{Field: field, Type: t, Err: strconv.ErrSyntax}
	}
}

func repeat(t FieldType, n int) []FieldType {
	types := make([]FieldType, n)
	for i := range types {
		types[i] = t
	}
	return types
}

// channelTypes is the manifest of a six channel vector reply.
func channelTypes(t FieldType) []FieldType {
	return repeat(t, Channels)
}
