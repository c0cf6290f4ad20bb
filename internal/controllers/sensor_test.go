package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trainctl/internal/hw"
)

func newSensorController(t *testing.T) (*SensorController, *hw.MemoryBackend) {
	t.Helper()
	hardware, mem, profile := newTestRig(t)
	return NewSensorController(hardware, profile, zap.NewNop()), mem
}

func TestSensorRead(t *testing.T) {
	c, mem := newSensorController(t)
	require.Equal(t, []string{"S1", "S2", "S3", "S4", "S5", "S6", "S7", "S8"}, c.IDs())

	triggered, err := c.Read("S1")
	require.NoError(t, err)
	assert.False(t, triggered)

	mem.SetInput("XB0", hw.High)
	triggered, err = c.Read("S1")
	require.NoError(t, err)
	assert.True(t, triggered)
}

func TestSensorReadAll(t *testing.T) {
	c, mem := newSensorController(t)

	mem.SetInput("XB2", hw.High)
	mem.SetInput("XB7", hw.High)

	states, err := c.ReadAll()
	require.NoError(t, err)
	require.Len(t, states, 8)
	assert.True(t, states["S3"])
	assert.True(t, states["S8"])
	assert.False(t, states["S1"])
}

func TestSensorUnknownID(t *testing.T) {
	c, mem := newSensorController(t)

	before := mem.Ops()
	_, err := c.Read("S99")
	assert.ErrorIs(t, err, ErrUnknownID)
	assert.Equal(t, before, mem.Ops())
}
