package serial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

func TestDefaultConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*PortConfig)
	}{
		{"zero baud", func(c *PortConfig) { c.BaudRate = 0 }},
		{"odd baud", func(c *PortConfig) { c.BaudRate = 9601 }},
		{"data bits", func(c *PortConfig) { c.DataBits = 9 }},
		{"parity", func(c *PortConfig) { c.Parity = Parity(42) }},
		{"stop bits", func(c *PortConfig) { c.StopBits = StopBits(7) }},
		{"negative timeout", func(c *PortConfig) { c.ReadTimeoutMs = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestToSerialMode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Parity = ParityEven
	cfg.StopBits = StopBits2

	mode := cfg.ToSerialMode()
	assert.Equal(t, 9600, mode.BaudRate)
	assert.Equal(t, 8, mode.DataBits)
	assert.Equal(t, serial.EvenParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
}

func TestParseHelpers(t *testing.T) {
	p, err := ParseParity("ODD")
	require.NoError(t, err)
	assert.Equal(t, ParityOdd, p)

	fc, err := ParseFlowControl("rts/cts")
	require.NoError(t, err)
	assert.Equal(t, FlowControlHardware, fc)

	sb, err := ParseStopBits("1.5")
	require.NoError(t, err)
	assert.Equal(t, StopBits1Half, sb)

	_, err = ParseStopBits("3")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = ParseParity("weird")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
