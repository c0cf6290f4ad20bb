package hw

import (
	"fmt"

	"go.uber.org/zap"

	"trainctl/internal/board"
)

// Level is the logical state of a pin.
type Level int

const (
	Low  Level = 0
	High Level = 1
)

func (l Level) String() string {
	if l == High {
		return "high"
	}
	return "low"
}

// Line is a claimed physical line. Implementations are not required to be
// safe for concurrent use; HardwareInterface serializes access per pin.
type Line interface {
	Value() (Level, error)
	SetValue(Level) error
	Close() error
}

// Backend owns one bus handle (GPIO chip, I2C device, or the in-memory
// fake) and hands out claimed lines on it.
type Backend interface {
	Name() string
	Claim(pin board.Pin) (Line, error)
	Close() error
}

// openBackends opens every bus declared in the profile, in declaration
// order. On failure the backends opened so far are closed again in reverse.
func openBackends(profile *board.Profile, logger *zap.Logger) ([]Backend, error) {
	opened := make([]Backend, 0, len(profile.Buses))

	closeOpened := func() {
		for i := len(opened) - 1; i >= 0; i-- {
			if err := opened[i].Close(); err != nil {
				logger.Warn("failed to close backend during rollback",
					zap.String("bus", opened[i].Name()),
					zap.Error(err))
			}
		}
	}

	for _, bus := range profile.Buses {
		var (
			backend Backend
			err     error
		)
		switch bus.Type {
		case board.BusGPIOChip:
			backend, err = newGPIOChipBackend(bus)
		case board.BusMCP23017:
			backend, err = newMCP23017Backend(bus)
		case board.BusMemory:
			backend = NewMemoryBackend(bus.Name)
		default:
			err = fmt.Errorf("unknown bus type %q", bus.Type)
		}
		if err != nil {
			closeOpened()
			return nil, fmt.Errorf("open bus %q: %w", bus.Name, err)
		}
		logger.Debug("bus opened",
			zap.String("bus", bus.Name),
			zap.String("type", bus.Type))
		opened = append(opened, backend)
	}

	return opened, nil
}
