package acm

import (
	"errors"
	"fmt"
)

var (
	// ErrRejected is returned when the controller answers a command with NAK
	ErrRejected = errors.New("command rejected by controller")
	// ErrUnexpectedAck is returned when the acknowledgement line is neither ACK nor NAK
	ErrUnexpectedAck = errors.New("unexpected acknowledgement")
	// ErrArityMismatch is returned when a reply has a different number of fields than requested
	ErrArityMismatch = errors.New("reply field count mismatch")
	// ErrMalformedField is returned when a reply field cannot be converted to its type
	ErrMalformedField = errors.New("malformed reply field")
	// ErrUnknownStatus is returned for a channel status code outside the fixed table
	ErrUnknownStatus = errors.New("unknown channel status code")
	// ErrGaugeStatus is returned by strict pressure reads on an abnormal channel
	ErrGaugeStatus = errors.New("gauge status error")
	// ErrInvalidChannel is returned for channels outside 1..6
	ErrInvalidChannel = errors.New("invalid channel")
	// ErrUnknownUnit is returned for unit codes or names outside mbar/torr/pa
	ErrUnknownUnit = errors.New("unknown pressure unit")
	// ErrInvalidFactor is returned for a calibration factor that is NaN or infinite
	ErrInvalidFactor = errors.New("invalid calibration factor")
)

// RejectedError carries the command the controller refused.
type RejectedError struct {
	Command string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("command %q resulted in negative acknowledgement from the device", e.Command)
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// UnexpectedAckError carries the raw line received instead of ACK/NAK.
type UnexpectedAckError struct {
	Command string
	Raw     []byte
}

func (e *UnexpectedAckError) Error() string {
	return fmt.Sprintf("command %q resulted in an unexpected acknowledgement from the device: %q", e.Command, e.Raw)
}

func (e *UnexpectedAckError) Unwrap() error { return ErrUnexpectedAck }

// ArityError reports a reply whose field count does not match the type manifest.
type ArityError struct {
	Expected int
	Actual   int
	Raw      string
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%v: expected %d fields, got %d in %q", ErrArityMismatch, e.Expected, e.Actual, e.Raw)
}

func (e *ArityError) Unwrap() error { return ErrArityMismatch }

// FieldError reports a field that could not be converted.
type FieldError struct {
	Field string
	Type  FieldType
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %q is not a valid %s", ErrMalformedField, e.Field, e.Type)
}

func (e *FieldError) Unwrap() []error { return []error{ErrMalformedField, e.Err} }

// UnknownStatusError carries the status code that has no table entry.
type UnknownStatusError struct {
	Code int
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("%v: %d", ErrUnknownStatus, e.Code)
}

func (e *UnknownStatusError) Unwrap() error { return ErrUnknownStatus }

// GaugeStatusError is returned by a strict pressure read when the channel is not ok.
type GaugeStatusError struct {
	Channel int
	Status  ChannelStatus
}

func (e *GaugeStatusError) Error() string {
	return fmt.Sprintf("pressure reading error on channel %d: status %d (%s)", e.Channel, int(e.Status), e.Status)
}

func (e *GaugeStatusError) Unwrap() error { return ErrGaugeStatus }

// FactorError is returned for a calibration factor the controller cannot take.
type FactorError struct {
	Channel int
	Factor  float64
}

func (e *FactorError) Error() string {
	if e.Channel == 0 {
		return fmt.Sprintf("%v: %g", ErrInvalidFactor, e.Factor)
	}
	return fmt.Sprintf("%v: %g on channel %d", ErrInvalidFactor, e.Factor, e.Channel)
}

func (e *FactorError) Unwrap() error { return ErrInvalidFactor }

func checkChannel(ch int) error {
	if ch < 1 || ch > Channels {
		return fmt.Errorf("%w: %d (must be 1-%d)", ErrInvalidChannel, ch, Channels)
	}
	return nil
}
