//go:build !linux

package hw

import (
	"fmt"

	"trainctl/internal/board"
)

// The GPIO character device only exists on Linux. Use the sim board
// profile (memory bus) when developing on other platforms.
func newGPIOChipBackend(spec board.Bus) (Backend, error) {
	return nil, fmt.Errorf("gpiochip bus %q requires linux", spec.Name)
}
