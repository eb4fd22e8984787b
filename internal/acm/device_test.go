package acm_test

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/Shoaibashk/GaugeLink/internal/acm"
	"github.com/Shoaibashk/GaugeLink/internal/acm/acmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDevice(t *testing.T, sim *acmtest.Simulator) *acm.Device {
	t.Helper()
	dev, err := acm.Open(sim)
	require.NoError(t, err)
	sim.Reset()
	return dev
}

func TestOpenSendsHandshake(t *testing.T) {
	sim := acmtest.New()
	_, err := acm.Open(sim)
	require.NoError(t, err)

	assert.Equal(t, [][]byte{[]byte("BAU\r\n"), {acm.ENQ}}, sim.Writes())
	assert.False(t, sim.Closed())
}

func TestOpenFailureClosesTransport(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*acmtest.Simulator)
		wantErr error
	}{
		{"nak", func(s *acmtest.Simulator) { s.Reject["BAU"] = true }, acm.ErrRejected},
		{"bad ack", func(s *acmtest.Simulator) { s.AckOverride["BAU"] = []byte("x") }, acm.ErrUnexpectedAck},
		{"transport", func(s *acmtest.Simulator) { s.WriteErr = errors.New("unplugged") }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := acmtest.New()
			tt.setup(sim)

			dev, err := acm.Open(sim)
			require.Error(t, err)
			assert.Nil(t, dev)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.True(t, sim.Closed())
		})
	}
}

func TestPing(t *testing.T) {
	sim := acmtest.New()
	dev := openDevice(t, sim)

	require.NoError(t, dev.Ping())
	assert.False(t, sim.Closed())

	sim.Reject["BAU"] = true
	require.ErrorIs(t, dev.Ping(), acm.ErrRejected)
	assert.True(t, sim.Closed())
}

func TestUnits(t *testing.T) {
	sim := acmtest.New()
	sim.Units = 1
	dev := openDevice(t, sim)

	u, err := dev.Units()
	require.NoError(t, err)
	assert.Equal(t, acm.Torr, u)

	u, err = dev.SetUnits(acm.Pa)
	require.NoError(t, err)
	assert.Equal(t, acm.Pa, u)
	assert.Equal(t, "UNI,2", sim.Commands()[1])
	assert.Equal(t, 2, sim.Units)
}

func TestChannelStatus(t *testing.T) {
	sim := acmtest.New()
	sim.Channels[3].Status = 5
	dev := openDevice(t, sim)

	status, err := dev.ChannelStatus(4)
	require.NoError(t, err)
	assert.Equal(t, acm.StatusNoSensor, status)
	assert.Equal(t, []string{"PR4"}, sim.Commands())

	sim.Channels[0].Status = 9
	_, err = dev.ChannelStatus(1)
	assert.ErrorIs(t, err, acm.ErrUnknownStatus)
}

func TestPressure(t *testing.T) {
	sim := acmtest.New()
	sim.Units = 0
	sim.Channels[1].Pressure = 2.5e-3
	dev := openDevice(t, sim)

	pa, err := dev.Pressure(2, acm.PressureOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 0.25, pa, 1e-12)
	assert.Equal(t, []string{"PR2", "UNI"}, sim.Commands())

	sim.Reset()
	raw, err := dev.Pressure(2, acm.PressureOptions{DisplayUnits: true})
	require.NoError(t, err)
	assert.InDelta(t, 2.5e-3, raw, 1e-12)
	assert.Equal(t, []string{"PR2"}, sim.Commands())

	sim.Reset()
	torr := acm.Torr
	pa, err = dev.Pressure(2, acm.PressureOptions{Unit: &torr})
	require.NoError(t, err)
	assert.InDelta(t, 2.5e-3*133.322, pa, 1e-12)
	assert.Equal(t, []string{"PR2"}, sim.Commands())
}

func TestPressureStatusError(t *testing.T) {
	sim := acmtest.New()
	sim.Channels[0].Status = 2
	dev := openDevice(t, sim)

	value, err := dev.Pressure(1, acm.PressureOptions{StatusError: true})
	require.ErrorIs(t, err, acm.ErrGaugeStatus)
	assert.Zero(t, value)

	var gaugeErr *acm.GaugeStatusError
	require.ErrorAs(t, err, &gaugeErr)
	assert.Equal(t, 1, gaugeErr.Channel)
	assert.Equal(t, acm.StatusOver, gaugeErr.Status)

	// without StatusError the value is still returned
	value, err = dev.Pressure(1, acm.PressureOptions{DisplayUnits: true})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, value)
}

func TestReadings(t *testing.T) {
	sim := acmtest.New()
	sim.Units = 2
	sim.Channels[5].Status = 5
	dev := openDevice(t, sim)

	readings, err := dev.Readings()
	require.NoError(t, err)
	require.Len(t, readings, acm.Channels)
	assert.Equal(t, []string{"UNI", "PR1", "PR2", "PR3", "PR4", "PR5", "PR6"}, sim.Commands())

	assert.Equal(t, 6, readings[5].Channel)
	assert.Equal(t, acm.StatusNoSensor, readings[5].Status)
	assert.Equal(t, acm.Pa, readings[0].Unit)
	assert.Equal(t, 1000.0, readings[0].Pascal)
}

func TestInvalidChannel(t *testing.T) {
	sim := acmtest.New()
	dev := openDevice(t, sim)

	for _, ch := range []int{0, 7, -1} {
		_, err := dev.ChannelStatus(ch)
		assert.ErrorIs(t, err, acm.ErrInvalidChannel)
		_, err = dev.SetMeasurementFilter(ch, acm.FilterSlow)
		assert.ErrorIs(t, err, acm.ErrInvalidChannel)
		_, err = dev.Enable(ch)
		assert.ErrorIs(t, err, acm.ErrInvalidChannel)
	}
	assert.Empty(t, sim.Writes())
}

func TestSetMeasurementFilterRewritesVector(t *testing.T) {
	sim := acmtest.New()
	dev := openDevice(t, sim)

	got, err := dev.SetMeasurementFilter(3, acm.FilterSlow)
	require.NoError(t, err)
	assert.Equal(t, acm.FilterSlow, got)
	assert.Equal(t, []string{"FIL", "FIL,0,0,2,0,0,0"}, sim.Commands())

	filters, err := dev.MeasurementFilters()
	require.NoError(t, err)
	assert.Equal(t, []acm.MeasurementFilter{0, 0, 2, 0, 0, 0}, filters)
}

func TestSetMeasurementFilterKeepsOtherChannels(t *testing.T) {
	sim := acmtest.New()
	for i := range sim.Channels {
		sim.Channels[i].Filter = 1
	}
	dev := openDevice(t, sim)

	_, err := dev.SetMeasurementFilter(6, acm.FilterFast)
	require.NoError(t, err)
	assert.Equal(t, "FIL,1,1,1,1,1,0", sim.Commands()[1])

	f, err := dev.MeasurementFilter(5)
	require.NoError(t, err)
	assert.Equal(t, acm.FilterMedium, f)
}

func TestSetCalibrationFactor(t *testing.T) {
	sim := acmtest.New()
	dev := openDevice(t, sim)

	got, err := dev.SetCalibrationFactor(2, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, got)
	assert.Equal(t, []string{"CAL", "CAL,1.0,0.5,1.0,1.0,1.0,1.0"}, sim.Commands())

	factor, err := dev.CalibrationFactor(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, factor)
}

func TestSetCalibrationFactorRejectsNonFinite(t *testing.T) {
	for _, factor := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		sim := acmtest.New()
		dev := openDevice(t, sim)

		_, err := dev.SetCalibrationFactor(3, factor)
		require.ErrorIs(t, err, acm.ErrInvalidFactor)

		var ferr *acm.FactorError
		require.ErrorAs(t, err, &ferr)
		assert.Equal(t, 3, ferr.Channel)
		assert.Empty(t, sim.Commands())
	}
}

func TestSettingsReadArity(t *testing.T) {
	sim := acmtest.New()
	sim.ReplyOverride["FIL"] = "0,0,0"
	dev := openDevice(t, sim)

	_, err := dev.SetMeasurementFilter(1, acm.FilterSlow)
	require.ErrorIs(t, err, acm.ErrArityMismatch)
	assert.Equal(t, []string{"FIL"}, sim.Commands())
}

func TestEnableSkipsMissingSensor(t *testing.T) {
	sim := acmtest.New()
	sim.Channels[2].Status = 5
	sim.Channels[2].Enabled = 1
	dev := openDevice(t, sim)

	state, err := dev.Enable(3)
	require.NoError(t, err)
	assert.Equal(t, acm.EnableNoChange, state)
	assert.Equal(t, []string{"PR3"}, sim.Commands())
	assert.Equal(t, 1, sim.Channels[2].Enabled)
}

func TestEnableDisableKeepOtherChannels(t *testing.T) {
	sim := acmtest.New()
	sim.Channels[0].Enabled = 1
	sim.Channels[4].Enabled = 1
	dev := openDevice(t, sim)

	state, err := dev.Disable(2)
	require.NoError(t, err)
	assert.Equal(t, acm.EnableOff, state)
	assert.Equal(t, []string{"PR2", "SEN", "SEN,1,1,2,2,1,2"}, sim.Commands())

	sim.Reset()
	state, err = dev.Enable(1)
	require.NoError(t, err)
	assert.Equal(t, acm.EnableOn, state)

	states, err := dev.EnableStates()
	require.NoError(t, err)
	assert.Equal(t, []acm.EnableState{2, 1, 2, 2, 1, 2}, states)

	enabled, err := dev.IsEnabled(5)
	require.NoError(t, err)
	assert.Equal(t, acm.EnableOff, enabled)
}

func TestEnableSensors(t *testing.T) {
	sim := acmtest.New()
	for i := range sim.Channels {
		sim.Channels[i].Enabled = 1
	}
	sim.Channels[3].Status = 5
	dev := openDevice(t, sim)

	require.NoError(t, dev.EnableSensors())
	for i, c := range sim.Channels {
		if i == 3 {
			assert.Equal(t, 1, c.Enabled)
			continue
		}
		assert.Equal(t, 2, c.Enabled, "channel %d", i+1)
	}
}

func TestEnableSensorsStopsOnError(t *testing.T) {
	sim := acmtest.New()
	sim.Reject["PR2"] = true
	dev := openDevice(t, sim)

	err := dev.EnableSensors()
	require.ErrorIs(t, err, acm.ErrRejected)
	assert.Contains(t, err.Error(), "channel 2")
}

func TestGaugeKind(t *testing.T) {
	sim := acmtest.New()
	sim.Channels[1].Kind = "PEN"
	dev := openDevice(t, sim)

	kind, err := dev.GaugeKind(2)
	require.NoError(t, err)
	assert.Equal(t, "PEN", kind)
}

func TestErrors(t *testing.T) {
	sim := acmtest.New()
	dev := openDevice(t, sim)

	errs, err := dev.CurrentErrors()
	require.NoError(t, err)
	assert.Equal(t, []acm.ErrorCode{acm.NoError}, errs)

	sim.Errors = []int{9, 1}
	errs, err = dev.CurrentErrors()
	require.NoError(t, err)
	assert.Equal(t, []acm.ErrorCode{acm.Watchdog, acm.Gauge1Err}, errs)

	errs, err = dev.ResetErrors()
	require.NoError(t, err)
	assert.Equal(t, []acm.ErrorCode{acm.Watchdog, acm.Gauge1Err}, errs)
	assert.Empty(t, sim.Errors)
	assert.Equal(t, "RES,1", sim.Commands()[2])

	errs, err = dev.CurrentErrors()
	require.NoError(t, err)
	assert.Equal(t, []acm.ErrorCode{acm.NoError}, errs)
}

func TestConcurrentSettingsAreNotLost(t *testing.T) {
	sim := acmtest.New()
	dev := openDevice(t, sim)

	var wg sync.WaitGroup
	for ch := 1; ch <= acm.Channels; ch++ {
		wg.Add(1)
		go func(ch int) {
			defer wg.Done()
			_, err := dev.SetMeasurementFilter(ch, acm.FilterSlow)
			assert.NoError(t, err)
			_, err = dev.SetCalibrationFactor(ch, float64(ch))
			assert.NoError(t, err)
		}(ch)
	}
	wg.Wait()

	filters, err := dev.MeasurementFilters()
	require.NoError(t, err)
	assert.Equal(t, []acm.MeasurementFilter{2, 2, 2, 2, 2, 2}, filters)

	factors, err := dev.CalibrationFactors()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, factors)
}
