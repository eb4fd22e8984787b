// Package poll samples controller variables on an interval.
//
// Variables are listed in an explicit table instead of being discovered at
// run time. Each entry names an accessor, whether it is read once per channel,
// and a priority; pollers skip entries below their minimum priority.
package poll

import (
	"github.com/Shoaibashk/GaugeLink/internal/acm"
)

// Device is the subset of *acm.Device the poller reads.
type Device interface {
	Units() (acm.Unit, error)
	Pressure(ch int, opts acm.PressureOptions) (float64, error)
	ChannelStatus(ch int) (acm.ChannelStatus, error)
	IsEnabled(ch int) (acm.EnableState, error)
	GaugeKind(ch int) (string, error)
	MeasurementFilter(ch int) (acm.MeasurementFilter, error)
	CalibrationFactor(ch int) (float64, error)
}

// Kind groups variables by how often they change
type Kind int

const (
	// KindStatus changes on its own and is read every pass.
	KindStatus Kind = iota
	// KindSetting only changes when written and is read every pass.
	KindSetting
	// KindInfo is fixed for the session and read once.
	KindInfo
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindSetting:
		return "setting"
	case KindInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Reader reads one variable. ch is 0 for controller-wide variables. unit is
// the display unit read at the start of the pass.
type Reader func(d Device, ch int, unit acm.Unit) (any, error)

// Variable is one entry of the poll table
type Variable struct {
	Name       string
	Kind       Kind
	PerChannel bool
	Priority   int
	Read       Reader
}

// Variable names
const (
	VarPressure          = "pressure"
	VarChannelStatus     = "channel_status"
	VarUnits             = "units"
	VarEnabled           = "enabled"
	VarGaugeKind         = "gauge_kind"
	VarMeasurementFilter = "measurement_filter"
	VarCalibrationFactor = "calibration_factor"
)

// Table returns the ACM 1000 variable table.
func Table() []Variable {
	return []Variable{
		{
			Name: VarPressure, Kind: KindStatus, PerChannel: true, Priority: 5,
			Read: func(d Device, ch int, unit acm.Unit) (any, error) {
				return d.Pressure(ch, acm.PressureOptions{Unit: &unit})
			},
		},
		{
			Name: VarChannelStatus, Kind: KindStatus, PerChannel: true, Priority: 5,
			Read: func(d Device, ch int, _ acm.Unit) (any, error) {
				return d.ChannelStatus(ch)
			},
		},
		{
			Name: VarUnits, Kind: KindStatus, Priority: 0,
			Read: func(_ Device, _ int, unit acm.Unit) (any, error) {
				return unit, nil
			},
		},
		{
			Name: VarEnabled, Kind: KindStatus, PerChannel: true, Priority: 2,
			Read: func(d Device, ch int, _ acm.Unit) (any, error) {
				return d.IsEnabled(ch)
			},
		},
		{
			Name: VarGaugeKind, Kind: KindInfo, PerChannel: true, Priority: 0,
			Read: func(d Device, ch int, _ acm.Unit) (any, error) {
				return d.GaugeKind(ch)
			},
		},
		{
			Name: VarMeasurementFilter, Kind: KindSetting, PerChannel: true, Priority: 0,
			Read: func(d Device, ch int, _ acm.Unit) (any, error) {
				return d.MeasurementFilter(ch)
			},
		},
		{
			Name: VarCalibrationFactor, Kind: KindSetting, PerChannel: true, Priority: -2,
			Read: func(d Device, ch int, _ acm.Unit) (any, error) {
				return d.CalibrationFactor(ch)
			},
		},
	}
}
