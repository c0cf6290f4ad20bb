package controllers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trainctl/internal/hw"
)

func newPowerController(t *testing.T) (*PowerController, *hw.MemoryBackend) {
	t.Helper()
	hardware, mem, profile := newTestRig(t)
	return NewPowerController(hardware, profile, nil, zap.NewNop()), mem
}

func TestPowerEnableDisable(t *testing.T) {
	c, mem := newPowerController(t)

	state, err := c.State()
	require.NoError(t, err)
	assert.False(t, state, "track power must start disabled")

	require.NoError(t, c.Enable())
	state, err = c.State()
	require.NoError(t, err)
	assert.True(t, state)
	assert.Equal(t, hw.High, mem.Level("XA0"))

	require.NoError(t, c.Disable())
	state, err = c.State()
	require.NoError(t, err)
	assert.False(t, state)
}

func TestPowerToggle(t *testing.T) {
	c, _ := newPowerController(t)

	powered, err := c.Toggle()
	require.NoError(t, err)
	assert.True(t, powered)

	powered, err = c.Toggle()
	require.NoError(t, err)
	assert.False(t, powered)
}

func TestPowerConcurrentToggles(t *testing.T) {
	c, _ := newPowerController(t)

	// Starting from disabled, an even number of serialized toggles lands
	// back on disabled; the interleaving must never produce a torn state.
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := c.Toggle()
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	state, err := c.State()
	require.NoError(t, err)
	assert.False(t, state)
}
