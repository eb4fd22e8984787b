package acm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Channels is the number of gauge inputs on the controller.
const Channels = 6

// ChannelStatus is the first field of a PR<ch> reply.
type ChannelStatus int

const (
	StatusOK ChannelStatus = iota
	StatusUnder
	StatusOver
	StatusSensorError
	StatusSensorOff
	StatusNoSensor
	StatusIDError
)

var channelStatusNames = [...]string{
	StatusOK:          "ok",
	StatusUnder:       "under",
	StatusOver:        "over",
	StatusSensorError: "sensor_error",
	StatusSensorOff:   "sensor_off",
	StatusNoSensor:    "no_sensor",
	StatusIDError:     "id_error",
}

// String returns the string representation of ChannelStatus
func (s ChannelStatus) String() string {
	if s < StatusOK || s > StatusIDError {
		return "unknown"
	}
	return channelStatusNames[s]
}

// MarshalText implements encoding.TextMarshaler
func (s ChannelStatus) MarshalText() ([]byte, error) {
	if s < StatusOK || s > StatusIDError {
		return nil, &UnknownStatusError{Code: int(s)}
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *ChannelStatus) UnmarshalText(text []byte) error {
	for code, name := range channelStatusNames {
		if name == string(text) {
			*s = ChannelStatus(code)
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownStatus, text)
}

// ChannelStatuses returns every known status in code order
func ChannelStatuses() []ChannelStatus {
	out := make([]ChannelStatus, 0, len(channelStatusNames))
	for s := StatusOK; s <= StatusIDError; s++ {
		out = append(out, s)
	}
	return out
}

// DecodeChannelStatus maps a status code from the controller. Codes outside
// the table are an *UnknownStatusError.
func DecodeChannelStatus(code int) (ChannelStatus, error) {
	s := ChannelStatus(code)
	if s < StatusOK || s > StatusIDError {
		return StatusOK, &UnknownStatusError{Code: code}
	}
	return s, nil
}

// EnableState is a per-channel SEN value.
type EnableState int

const (
	// EnableNoChange leaves the channel as it is when written.
	EnableNoChange EnableState = iota
	EnableOff
	EnableOn
)

// String returns the string representation of EnableState
func (e EnableState) String() string {
	switch e {
	case EnableNoChange:
		return "no_change"
	case EnableOff:
		return "off"
	case EnableOn:
		return "on"
	default:
		return strconv.Itoa(int(e))
	}
}

// MarshalText implements encoding.TextMarshaler
func (e EnableState) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (e *EnableState) UnmarshalText(text []byte) error {
	parsed, err := ParseEnableState(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ParseEnableState accepts a state name or its numeric code.
func ParseEnableState(value string) (EnableState, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "no_change":
		return EnableNoChange, nil
	case "off":
		return EnableOff, nil
	case "on":
		return EnableOn, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return EnableNoChange, fmt.Errorf("invalid switch state %q", value)
	}
	return EnableState(n), nil
}

// MeasurementFilter is a per-channel FIL value.
type MeasurementFilter int

const (
	FilterFast MeasurementFilter = iota
	FilterMedium
	FilterSlow
)

// String returns the string representation of MeasurementFilter
func (f MeasurementFilter) String() string {
	switch f {
	case FilterFast:
		return "fast"
	case FilterMedium:
		return "medium"
	case FilterSlow:
		return "slow"
	default:
		return strconv.Itoa(int(f))
	}
}

// MarshalText implements encoding.TextMarshaler
func (f MeasurementFilter) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (f *MeasurementFilter) UnmarshalText(text []byte) error {
	parsed, err := ParseMeasurementFilter(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseMeasurementFilter accepts a filter name or its numeric code.
func ParseMeasurementFilter(value string) (MeasurementFilter, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "fast":
		return FilterFast, nil
	case "medium":
		return FilterMedium, nil
	case "slow":
		return FilterSlow, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return FilterFast, fmt.Errorf("invalid measurement filter %q", value)
	}
	return MeasurementFilter(n), nil
}

// ErrorCode is one entry of a RES reply. Codes without a name are kept as is.
type ErrorCode int

const (
	NoError     ErrorCode = 0
	Watchdog    ErrorCode = 1
	TaskFail    ErrorCode = 2
	EPROM       ErrorCode = 3
	RAM         ErrorCode = 4
	EEPROM      ErrorCode = 5
	Display     ErrorCode = 6
	ADConv      ErrorCode = 7
	Gauge1Err   ErrorCode = 9
	Gauge1IDErr ErrorCode = 10
	Gauge2Err   ErrorCode = 11
	Gauge2IDErr ErrorCode = 12
)

var errorCodeNames = map[ErrorCode]string{
	NoError:     "no_error",
	Watchdog:    "watchdog",
	TaskFail:    "task_fail",
	EPROM:       "eprom",
	RAM:         "ram",
	EEPROM:      "eeprom",
	Display:     "display",
	ADConv:      "adconv",
	Gauge1Err:   "gauge_1_err",
	Gauge1IDErr: "gauge_1_id_err",
	Gauge2Err:   "gauge_2_err",
	Gauge2IDErr: "gauge_2_id_err",
}

// String returns the error name, or the decimal code when it has none
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return strconv.Itoa(int(c))
}

// Known reports whether the code has a name in the error table.
func (c ErrorCode) Known() bool {
	_, ok := errorCodeNames[c]
	return ok
}

// MarshalText implements encoding.TextMarshaler
func (c ErrorCode) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *ErrorCode) UnmarshalText(text []byte) error {
	for code, name := range errorCodeNames {
		if name == string(text) {
			*c = code
			return nil
		}
	}
	n, err := strconv.Atoi(string(text))
	if err != nil {
		return fmt.Errorf("invalid error code %q", text)
	}
	*c = ErrorCode(n)
	return nil
}

// DecodeErrors sorts the codes ascending and maps them to ErrorCode.
// An empty input yields [NoError].
func DecodeErrors(codes []int) []ErrorCode {
	if len(codes) == 0 {
		return []ErrorCode{NoError}
	}

	sorted := append([]int(nil), codes...)
	sort.Ints(sorted)

	out := make([]ErrorCode, len(sorted))
	for i, code := range sorted {
		out[i] = ErrorCode(code)
	}
	return out
}
