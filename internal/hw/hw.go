// Package hw is the hardware resource coordination layer. It is the sole
// owner of every claimed pin and bus handle on the board; controllers go
// through Read/Write/Toggle and never see a raw line. Operations on the
// same pin are serialized in arrival order, operations on distinct pins run
// in parallel.
package hw

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"trainctl/internal/board"
)

type pinResource struct {
	mu   sync.Mutex
	spec board.Pin
	line Line
}

// HardwareInterface mediates every physical read and write. Constructed
// once at startup, shared by all controllers, closed at process shutdown.
type HardwareInterface struct {
	logger   *zap.Logger
	profile  *board.Profile
	backends []Backend
	pins     map[string]*pinResource
	claimed  []string // claim order, for reverse-order release

	closeOnce sync.Once
	closeErr  error
}

// New opens every bus and claims every pin in the profile eagerly. Any
// failure releases what was already acquired and returns the error, so a
// partially initialized board never serves requests.
func New(profile *board.Profile, logger *zap.Logger) (*HardwareInterface, error) {
	backends, err := openBackends(profile, logger)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]Backend, len(backends))
	for _, b := range backends {
		byName[b.Name()] = b
	}

	return newWithOpenBackends(profile, backends, byName, logger)
}

// NewWithBackends claims the profile's pins against caller-supplied
// backends. Tests use it to hold on to the memory backend.
func NewWithBackends(profile *board.Profile, backends map[string]Backend, logger *zap.Logger) (*HardwareInterface, error) {
	ordered := make([]Backend, 0, len(profile.Buses))
	for _, bus := range profile.Buses {
		b, ok := backends[bus.Name]
		if !ok {
			return nil, fmt.Errorf("no backend supplied for bus %q", bus.Name)
		}
		ordered = append(ordered, b)
	}
	return newWithOpenBackends(profile, ordered, backends, logger)
}

func newWithOpenBackends(profile *board.Profile, ordered []Backend, byName map[string]Backend, logger *zap.Logger) (*HardwareInterface, error) {
	h := &HardwareInterface{
		logger:   logger,
		profile:  profile,
		backends: ordered,
		pins:     make(map[string]*pinResource, len(profile.Pins)),
	}

	if err := h.checkLogicalMap(); err != nil {
		h.release()
		return nil, err
	}

	for _, pin := range profile.Pins {
		backend, ok := byName[pin.Bus]
		if !ok {
			h.release()
			return nil, newHwError("claim", pin.ID, ErrNotConfigured,
				fmt.Errorf("unknown bus %q", pin.Bus))
		}
		line, err := backend.Claim(pin)
		if err != nil {
			h.release()
			return nil, h.wrap("claim", pin.ID, err)
		}
		h.pins[pin.ID] = &pinResource{spec: pin, line: line}
		h.claimed = append(h.claimed, pin.ID)
		logger.Debug("pin claimed",
			zap.String("pin", pin.ID),
			zap.String("bus", pin.Bus),
			zap.Int("line", pin.Line),
			zap.String("direction", pin.Direction))
	}

	logger.Info("hardware interface initialized",
		zap.String("board", profile.Name),
		zap.Int("revision", profile.Revision),
		zap.Int("buses", len(ordered)),
		zap.Int("pins", len(h.pins)))

	return h, nil
}

// checkLogicalMap fails fast when a logical id references a pin that is not
// declared, before anything is claimed.
func (h *HardwareInterface) checkLogicalMap() error {
	require := func(role, id string) error {
		for _, pin := range h.profile.Pins {
			if pin.ID == id {
				return nil
			}
		}
		return newHwError("init", id, ErrNotConfigured,
			fmt.Errorf("%s references a pin not present in the board profile", role))
	}

	for i, id := range h.profile.Leds {
		if err := require(fmt.Sprintf("led %d", i+1), id); err != nil {
			return err
		}
	}
	if err := require("power", h.profile.Power); err != nil {
		return err
	}
	for pointID, id := range h.profile.Points {
		if err := require("point "+pointID, id); err != nil {
			return err
		}
	}
	for sensorID, id := range h.profile.Sensors {
		if err := require("sensor "+sensorID, id); err != nil {
			return err
		}
	}
	return nil
}

// Read returns the current physical level of the pin. Works for inputs and
// for outputs (readback of the driven level).
func (h *HardwareInterface) Read(pinID string) (Level, error) {
	p, ok := h.pins[pinID]
	if !ok {
		return Low, newHwError("read", pinID, ErrNotConfigured, nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	v, err := p.line.Value()
	if err != nil {
		return Low, h.wrap("read", pinID, err)
	}
	return v, nil
}

// Write drives an output pin to the given level.
func (h *HardwareInterface) Write(pinID string, level Level) error {
	p, ok := h.pins[pinID]
	if !ok {
		return newHwError("write", pinID, ErrNotConfigured, nil)
	}
	if p.spec.Direction != board.DirectionOutput {
		return newHwError("write", pinID, ErrNotConfigured,
			errors.New("pin is not an output"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.line.SetValue(level); err != nil {
		return h.wrap("write", pinID, err)
	}
	return nil
}

// Toggle reads the pin and writes the complement as one transaction under
// the pin's lock, so concurrent toggles serialize and strictly alternate.
// Returns the level that was written.
func (h *HardwareInterface) Toggle(pinID string) (Level, error) {
	p, ok := h.pins[pinID]
	if !ok {
		return Low, newHwError("toggle", pinID, ErrNotConfigured, nil)
	}
	if p.spec.Direction != board.DirectionOutput {
		return Low, newHwError("toggle", pinID, ErrNotConfigured,
			errors.New("pin is not an output"))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	v, err := p.line.Value()
	if err != nil {
		return Low, h.wrap("toggle", pinID, err)
	}
	next := High
	if v == High {
		next = Low
	}
	if err := p.line.SetValue(next); err != nil {
		return Low, h.wrap("toggle", pinID, err)
	}
	return next, nil
}

// PinCount returns the number of claimed pins.
func (h *HardwareInterface) PinCount() int {
	return len(h.pins)
}

// Profile returns the board profile the interface was built from.
func (h *HardwareInterface) Profile() *board.Profile {
	return h.profile
}

// Close releases every line and then every bus handle, in reverse order of
// acquisition. Safe to call more than once.
func (h *HardwareInterface) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.release()
	})
	return h.closeErr
}

func (h *HardwareInterface) release() error {
	var firstErr error

	for i := len(h.claimed) - 1; i >= 0; i-- {
		p := h.pins[h.claimed[i]]
		if err := p.line.Close(); err != nil {
			h.logger.Warn("failed to release pin",
				zap.String("pin", p.spec.ID),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	for i := len(h.backends) - 1; i >= 0; i-- {
		if err := h.backends[i].Close(); err != nil {
			h.logger.Warn("failed to close bus",
				zap.String("bus", h.backends[i].Name()),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// wrap classifies a backend error into the HwError taxonomy.
func (h *HardwareInterface) wrap(op, pinID string, err error) *HwError {
	kind := ErrBusFault
	if errors.Is(err, os.ErrPermission) {
		kind = ErrPermissionDenied
	}
	h.logger.Error("hardware operation failed",
		zap.String("op", op),
		zap.String("pin", pinID),
		zap.Error(err))
	return newHwError(op, pinID, kind, err)
}
