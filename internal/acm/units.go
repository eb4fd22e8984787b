package acm

import (
	"fmt"
	"strings"
)

// Unit is a controller display unit. The numeric values are the UNI codes.
type Unit int

const (
	Mbar Unit = 0
	Torr Unit = 1
	Pa   Unit = 2
)

// String returns the string representation of Unit
func (u Unit) String() string {
	switch u {
	case Mbar:
		return "mbar"
	case Torr:
		return "torr"
	case Pa:
		return "pa"
	default:
		return "unknown"
	}
}

// Factor returns how many pascal one unit of u is.
func (u Unit) Factor() (float64, error) {
	switch u {
	case Mbar:
		return 1e2, nil
	case Torr:
		return 133.322, nil
	case Pa:
		return 1, nil
	default:
		return 0, fmt.Errorf("%w: code %d", ErrUnknownUnit, int(u))
	}
}

// MarshalText implements encoding.TextMarshaler
func (u Unit) MarshalText() ([]byte, error) {
	if _, err := u.Factor(); err != nil {
		return nil, err
	}
	return []byte(u.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (u *Unit) UnmarshalText(text []byte) error {
	parsed, err := ParseUnit(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ParseUnit converts a unit name into a Unit.
func ParseUnit(value string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "mbar", "0":
		return Mbar, nil
	case "torr", "1":
		return Torr, nil
	case "pa", "pascal", "2":
		return Pa, nil
	default:
		return Mbar, fmt.Errorf("%w: %q", ErrUnknownUnit, value)
	}
}

// DecodeUnit converts a UNI reply code into a Unit.
func DecodeUnit(code int) (Unit, error) {
	u := Unit(code)
	if _, err := u.Factor(); err != nil {
		return Mbar, err
	}
	return u, nil
}

// ToPa converts value expressed in u to pascal.
func ToPa(value float64, u Unit) (float64, error) {
	f, err := u.Factor()
	if err != nil {
		return 0, err
	}
	return value * f, nil
}

// FromPa converts a pascal value to u.
func FromPa(value float64, u Unit) (float64, error) {
	f, err := u.Factor()
	if err != nil {
		return 0, err
	}
	return value / f, nil
}
