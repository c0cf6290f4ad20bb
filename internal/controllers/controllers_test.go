package controllers

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"trainctl/internal/board"
	"trainctl/internal/hw"
)

// newTestRig builds a hardware interface over the sim board with a memory
// backend the test can inspect and drive.
func newTestRig(t *testing.T) (*hw.HardwareInterface, *hw.MemoryBackend, *board.Profile) {
	t.Helper()

	loader, err := board.NewLoader(nil)
	require.NoError(t, err)
	profile, err := loader.Load("sim")
	require.NoError(t, err)

	mem := hw.NewMemoryBackend("mem")
	hardware, err := hw.NewWithBackends(profile, map[string]hw.Backend{"mem": mem}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { hardware.Close() })

	return hardware, mem, profile
}
