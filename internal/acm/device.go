package acm

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// Protocol commands
const (
	cmdBaud        = "BAU"
	cmdUnits       = "UNI"
	cmdSensors     = "SEN"
	cmdPressure    = "PR"
	cmdGaugeKind   = "TID"
	cmdFilter      = "FIL"
	cmdCalibration = "CAL"
	cmdErrors      = "RES"
	cmdResetErrors = "RES,1"
)

// Device is an ACM 1000 controller session.
//
// Every exchange is serialized on the transport. FIL, CAL and SEN address all
// six channels in one frame, so changing one channel is a read-modify-write of
// the whole vector; Device holds a single lock over each such cycle. Hosts that
// talk to the same controller through another Device or process get no such
// guarantee.
type Device struct {
	codec  *Codec
	logger *log.Logger

	// settingsMu spans the read and the write of a multi-channel vector.
	settingsMu sync.Mutex
}

// Option configures a Device
type Option func(*Device)

// WithLogger sets the logger used for protocol tracing.
func WithLogger(l *log.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.logger = l
		}
	}
}

// PressureReading is one PR<ch> sample.
type PressureReading struct {
	Channel int           `json:"channel"`
	Status  ChannelStatus `json:"status"`
	// Raw is the value in the display unit.
	Raw  float64 `json:"raw"`
	Unit Unit    `json:"unit"`
	// Pascal is Raw converted to Pa.
	Pascal float64 `json:"pascal"`
}

// PressureOptions selects how Pressure reports its value.
type PressureOptions struct {
	// DisplayUnits returns the value in the controller's display unit instead of Pa.
	DisplayUnits bool
	// StatusError fails with *GaugeStatusError when the channel status is not ok.
	StatusError bool
	// Unit, when set, is used as the display unit instead of querying UNI.
	Unit *Unit
}

// Open starts a session on t by sending the BAU probe. If the probe fails the
// transport is closed and the error returned. There is no retry.
func Open(t Transport, opts ...Option) (*Device, error) {
	d := &Device{logger: log.New(io.Discard)}
	for _, opt := range opts {
		opt(d)
	}
	d.codec = NewCodec(t, d.logger)

	if _, err := d.codec.Query(cmdBaud); err != nil {
		if cerr := t.Close(); cerr != nil {
			d.logger.Warn("close after failed handshake", "err", cerr)
		}
		return nil, fmt.Errorf("handshake: %w", err)
	}

	d.logger.Debug("session established")
	return d, nil
}

// Ping re-sends the BAU probe. On failure the transport is closed, as in Open,
// and the error returned.
func (d *Device) Ping() error {
	if _, err := d.codec.Query(cmdBaud); err != nil {
		if cerr := d.codec.Close(); cerr != nil {
			d.logger.Warn("close after failed ping", "err", cerr)
		}
		return err
	}
	return nil
}

// Close closes the transport.
func (d *Device) Close() error {
	return d.codec.Close()
}

// Metrics returns the protocol counters of this session.
func (d *Device) Metrics() *Metrics {
	return d.codec.Metrics()
}

// Codec returns the frame codec for raw command access.
func (d *Device) Codec() *Codec {
	return d.codec
}

func (d *Device) query(cmd string, types ...FieldType) (Values, error) {
	reply, err := d.codec.Query(cmd)
	if err != nil {
		return nil, err
	}
	values, err := Parse(reply, types...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}
	return values, nil
}

// Units returns the current display unit.
func (d *Device) Units() (Unit, error) {
	v, err := d.query(cmdUnits, Int)
	if err != nil {
		return Mbar, err
	}
	return DecodeUnit(v.Int(0))
}

// SetUnits sets the display unit and returns the unit echoed by the controller.
func (d *Device) SetUnits(u Unit) (Unit, error) {
	if _, err := u.Factor(); err != nil {
		return Mbar, err
	}
	v, err := d.query(fmt.Sprintf("%s,%d", cmdUnits, int(u)), Int)
	if err != nil {
		return Mbar, err
	}
	return DecodeUnit(v.Int(0))
}

// ToPa converts a value in unit u to Pa. A nil u queries the display unit
// first, which costs one UNI round trip.
func (d *Device) ToPa(value float64, u *Unit) (float64, error) {
	unit, err := d.unitOrQuery(u)
	if err != nil {
		return 0, err
	}
	return ToPa(value, unit)
}

// FromPa converts a Pa value to unit u. A nil u queries the display unit
// first, which costs one UNI round trip.
func (d *Device) FromPa(value float64, u *Unit) (float64, error) {
	unit, err := d.unitOrQuery(u)
	if err != nil {
		return 0, err
	}
	return FromPa(value, unit)
}

func (d *Device) unitOrQuery(u *Unit) (Unit, error) {
	if u != nil {
		return *u, nil
	}
	return d.Units()
}

func (d *Device) readChannel(ch int) (ChannelStatus, float64, error) {
	if err := checkChannel(ch); err != nil {
		return StatusOK, 0, err
	}
	v, err := d.query(cmdPressure+strconv.Itoa(ch), Int, Float)
	if err != nil {
		return StatusOK, 0, err
	}
	status, err := DecodeChannelStatus(v.Int(0))
	if err != nil {
		return StatusOK, 0, err
	}
	return status, v.Float(1), nil
}

// ChannelStatus returns the status of channel ch.
func (d *Device) ChannelStatus(ch int) (ChannelStatus, error) {
	status, _, err := d.readChannel(ch)
	return status, err
}

// Pressure reads channel ch. By default the value is converted to Pa using the
// current display unit, which costs an extra UNI round trip unless opts.Unit
// is set. An abnormal status only fails the read when opts.StatusError is set.
func (d *Device) Pressure(ch int, opts PressureOptions) (float64, error) {
	status, value, err := d.readChannel(ch)
	if err != nil {
		return 0, err
	}
	if status != StatusOK && opts.StatusError {
		return 0, &GaugeStatusError{Channel: ch, Status: status}
	}
	if opts.DisplayUnits {
		return value, nil
	}
	return d.ToPa(value, opts.Unit)
}

// Reading returns status and value of channel ch in both display unit and Pa.
// A nil u queries the display unit first.
func (d *Device) Reading(ch int, u *Unit) (PressureReading, error) {
	unit, err := d.unitOrQuery(u)
	if err != nil {
		return PressureReading{}, err
	}
	status, value, err := d.readChannel(ch)
	if err != nil {
		return PressureReading{}, err
	}
	pa, err := ToPa(value, unit)
	if err != nil {
		return PressureReading{}, err
	}
	return PressureReading{Channel: ch, Status: status, Raw: value, Unit: unit, Pascal: pa}, nil
}

// Readings reads all six channels with a single UNI query.
func (d *Device) Readings() ([]PressureReading, error) {
	unit, err := d.Units()
	if err != nil {
		return nil, err
	}
	readings := make([]PressureReading, 0, Channels)
	for ch := 1; ch <= Channels; ch++ {
		r, err := d.Reading(ch, &unit)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

// EnableStates returns the SEN vector.
func (d *Device) EnableStates() ([]EnableState, error) {
	v, err := d.query(cmdSensors, channelTypes(Int)...)
	if err != nil {
		return nil, err
	}
	return toEnableStates(v.Ints()), nil
}

// IsEnabled returns the SEN value of channel ch.
func (d *Device) IsEnabled(ch int) (EnableState, error) {
	if err := checkChannel(ch); err != nil {
		return EnableNoChange, err
	}
	states, err := d.EnableStates()
	if err != nil {
		return EnableNoChange, err
	}
	return states[ch-1], nil
}

// Enable turns on the sensor at channel ch and returns the state echoed by the
// controller. A channel without a sensor is skipped: no SEN frame is written
// and EnableNoChange is returned.
func (d *Device) Enable(ch int) (EnableState, error) {
	return d.setEnabled(ch, EnableOn)
}

// Disable turns off the sensor at channel ch. See Enable.
func (d *Device) Disable(ch int) (EnableState, error) {
	return d.setEnabled(ch, EnableOff)
}

func (d *Device) setEnabled(ch int, state EnableState) (EnableState, error) {
	if err := checkChannel(ch); err != nil {
		return EnableNoChange, err
	}

	d.settingsMu.Lock()
	defer d.settingsMu.Unlock()

	status, err := d.ChannelStatus(ch)
	if err != nil {
		return EnableNoChange, err
	}
	if status == StatusNoSensor {
		d.logger.Debug("no sensor, enable state unchanged", "channel", ch)
		return EnableNoChange, nil
	}

	current, err := d.EnableStates()
	if err != nil {
		return EnableNoChange, err
	}
	current[ch-1] = state

	v, err := d.query(vectorCommand(cmdSensors, fromEnableStates(current)), channelTypes(Int)...)
	if err != nil {
		return EnableNoChange, err
	}
	return EnableState(v.Int(ch - 1)), nil
}

// EnableSensors enables every channel in turn. Each channel is its own
// read-modify-write cycle.
func (d *Device) EnableSensors() error {
	for ch := 1; ch <= Channels; ch++ {
		if _, err := d.Enable(ch); err != nil {
			return fmt.Errorf("enable channel %d: %w", ch, err)
		}
	}
	return nil
}

// MeasurementFilters returns the FIL vector.
func (d *Device) MeasurementFilters() ([]MeasurementFilter, error) {
	v, err := d.query(cmdFilter, channelTypes(Int)...)
	if err != nil {
		return nil, err
	}
	ints := v.Ints()
	filters := make([]MeasurementFilter, len(ints))
	for i, n := range ints {
		filters[i] = MeasurementFilter(n)
	}
	return filters, nil
}

// MeasurementFilter returns the filter of channel ch.
func (d *Device) MeasurementFilter(ch int) (MeasurementFilter, error) {
	if err := checkChannel(ch); err != nil {
		return FilterFast, err
	}
	filters, err := d.MeasurementFilters()
	if err != nil {
		return FilterFast, err
	}
	return filters[ch-1], nil
}

// SetMeasurementFilter changes the filter of channel ch, rewriting the other
// five channels with their current values. It returns the echoed value.
func (d *Device) SetMeasurementFilter(ch int, f MeasurementFilter) (MeasurementFilter, error) {
	if err := checkChannel(ch); err != nil {
		return FilterFast, err
	}

	d.settingsMu.Lock()
	defer d.settingsMu.Unlock()

	current, err := d.MeasurementFilters()
	if err != nil {
		return FilterFast, err
	}
	current[ch-1] = f

	args := make([]string, len(current))
	for i, c := range current {
		args[i] = strconv.Itoa(int(c))
	}
	v, err := d.query(vectorCommand(cmdFilter, args), channelTypes(Int)...)
	if err != nil {
		return FilterFast, err
	}
	return MeasurementFilter(v.Int(ch - 1)), nil
}

// CalibrationFactors returns the CAL vector.
func (d *Device) CalibrationFactors() ([]float64, error) {
	v, err := d.query(cmdCalibration, channelTypes(Float)...)
	if err != nil {
		return nil, err
	}
	return v.Floats(), nil
}

// CalibrationFactor returns the calibration factor of channel ch.
func (d *Device) CalibrationFactor(ch int) (float64, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	factors, err := d.CalibrationFactors()
	if err != nil {
		return 0, err
	}
	return factors[ch-1], nil
}

// SetCalibrationFactor changes the calibration factor of channel ch, rewriting
// the other five channels with their current values. It returns the echoed value.
// A NaN or infinite factor is a *FactorError and nothing is sent.
func (d *Device) SetCalibrationFactor(ch int, factor float64) (float64, error) {
	if err := checkChannel(ch); err != nil {
		return 0, err
	}
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return 0, &FactorError{Channel: ch, Factor: factor}
	}

	d.settingsMu.Lock()
	defer d.settingsMu.Unlock()

	current, err := d.CalibrationFactors()
	if err != nil {
		return 0, err
	}
	current[ch-1] = factor

	args := make([]string, len(current))
	for i, c := range current {
		args[i] = formatFloat(c)
	}
	v, err := d.query(vectorCommand(cmdCalibration, args), channelTypes(Float)...)
	if err != nil {
		return 0, err
	}
	return v.Float(ch - 1), nil
}

// GaugeKinds returns the TID vector.
func (d *Device) GaugeKinds() ([]string, error) {
	v, err := d.query(cmdGaugeKind, channelTypes(Str)...)
	if err != nil {
		return nil, err
	}
	return v.Strings(), nil
}

// GaugeKind returns the gauge type attached to channel ch.
func (d *Device) GaugeKind(ch int) (string, error) {
	if err := checkChannel(ch); err != nil {
		return "", err
	}
	kinds, err := d.GaugeKinds()
	if err != nil {
		return "", err
	}
	return kinds[ch-1], nil
}

// CurrentErrors returns the active error codes, or [NoError].
func (d *Device) CurrentErrors() ([]ErrorCode, error) {
	v, err := d.query(cmdErrors, Int)
	if err != nil {
		return nil, err
	}
	return DecodeErrors(v.Ints()), nil
}

// ResetErrors clears the active errors and returns those that were present
// before the reset.
func (d *Device) ResetErrors() ([]ErrorCode, error) {
	v, err := d.query(cmdResetErrors, Int)
	if err != nil {
		return nil, err
	}
	errs := DecodeErrors(v.Ints())
	d.logger.Info("errors reset", "previous", errs)
	return errs, nil
}

func vectorCommand(cmd string, args []string) string {
	return cmd + FieldSeparator + strings.Join(args, FieldSeparator)
}

func toEnableStates(ints []int) []EnableState {
	states := make([]EnableState, len(ints))
	for i, n := range ints {
		states[i] = EnableState(n)
	}
	return states
}

func fromEnableStates(states []EnableState) []string {
	args := make([]string, len(states))
	for i, s := range states {
		args[i] = strconv.Itoa(int(s))
	}
	return args
}

// formatFloat renders f with a decimal point so the controller never sees a
// bare integer where a float field is expected.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
