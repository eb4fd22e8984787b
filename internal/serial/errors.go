package serial

import "errors"

var (
	// ErrNotOpen is returned when operations are attempted on a closed connection
	ErrNotOpen = errors.New("serial port is not open")
	// ErrPortLocked is returned when a port is already owned by another session
	ErrPortLocked = errors.New("serial port is locked by another session")
	// ErrPortClosed is returned by reads and writes on a closed session
	ErrPortClosed = errors.New("serial port is closed")
	// ErrInvalidConfig is returned for unusable port settings
	ErrInvalidConfig = errors.New("invalid serial configuration")
	// ErrReadTimeout is returned when no complete line arrives before the read timeout
	ErrReadTimeout = errors.New("read operation timed out")
	// ErrWriteTimeout is returned when a write does not complete in time
	ErrWriteTimeout = errors.New("write operation timed out")
	// ErrLineTooLong is returned when a reply exceeds the line buffer
	ErrLineTooLong = errors.New("line exceeds maximum length")
)
