package hw

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"trainctl/internal/board"
)

// MCP23017 register map (IOCON.BANK=0, the power-on default).
const (
	regIODIRA = 0x00
	regIODIRB = 0x01
	regGPPUA  = 0x0C
	regGPPUB  = 0x0D
	regGPIOA  = 0x12
	regGPIOB  = 0x13
	regOLATA  = 0x14
	regOLATB  = 0x15
)

// mcp23017Backend drives a 16-line I2C port expander. Lines 0-7 are port A,
// 8-15 port B. Register read-modify-writes are guarded by the backend mutex
// because lines on the same port share a register.
type mcp23017Backend struct {
	name string
	bus  i2c.BusCloser
	dev  *i2c.Dev

	mu sync.Mutex
}

func newMCP23017Backend(spec board.Bus) (Backend, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(spec.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", spec.I2CBus, err)
	}

	b := &mcp23017Backend{
		name: spec.Name,
		bus:  bus,
		dev:  &i2c.Dev{Bus: bus, Addr: spec.Address},
	}

	// Probe the device so a missing or unpowered expander fails at startup
	// instead of on the first request.
	if _, err := b.readReg(regIODIRA); err != nil {
		bus.Close()
		return nil, fmt.Errorf("mcp23017 at 0x%02x not responding: %w", spec.Address, err)
	}

	return b, nil
}

func (b *mcp23017Backend) Name() string { return b.name }

func (b *mcp23017Backend) Claim(pin board.Pin) (Line, error) {
	if pin.Line < 0 || pin.Line > 15 {
		return nil, fmt.Errorf("line %d out of range 0-15", pin.Line)
	}

	port := byte(pin.Line / 8) // 0 = A, 1 = B
	bit := byte(1 << (pin.Line % 8))

	b.mu.Lock()
	defer b.mu.Unlock()

	// IODIR bit set = input. Inputs also get the internal pull-up so an
	// open sensor circuit reads as a defined level.
	if err := b.updateReg(regIODIRA+port, bit, pin.Direction == board.DirectionInput); err != nil {
		return nil, fmt.Errorf("configure direction: %w", err)
	}
	if pin.Direction == board.DirectionInput {
		if err := b.updateReg(regGPPUA+port, bit, true); err != nil {
			return nil, fmt.Errorf("configure pull-up: %w", err)
		}
	}

	return &mcpLine{backend: b, port: port, bit: bit, input: pin.Direction == board.DirectionInput}, nil
}

func (b *mcp23017Backend) Close() error {
	return b.bus.Close()
}

func (b *mcp23017Backend) readReg(reg byte) (byte, error) {
	var buf [1]byte
	if err := b.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (b *mcp23017Backend) writeReg(reg, val byte) error {
	return b.dev.Tx([]byte{reg, val}, nil)
}

// updateReg sets or clears a single bit. Callers must hold b.mu.
func (b *mcp23017Backend) updateReg(reg, bit byte, set bool) error {
	val, err := b.readReg(reg)
	if err != nil {
		return err
	}
	if set {
		val |= bit
	} else {
		val &^= bit
	}
	return b.writeReg(reg, val)
}

type mcpLine struct {
	backend *mcp23017Backend
	port    byte
	bit     byte
	input   bool
}

func (l *mcpLine) Value() (Level, error) {
	b := l.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	// Outputs read back from the latch, inputs from the port.
	reg := byte(regGPIOA) + l.port
	if !l.input {
		reg = regOLATA + l.port
	}
	val, err := b.readReg(reg)
	if err != nil {
		return Low, err
	}
	if val&l.bit != 0 {
		return High, nil
	}
	return Low, nil
}

func (l *mcpLine) SetValue(level Level) error {
	b := l.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.updateReg(regOLATA+l.port, l.bit, level == High)
}

func (l *mcpLine) Close() error { return nil }
