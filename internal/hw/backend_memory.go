package hw

import (
	"fmt"
	"sync"

	"trainctl/internal/board"
)

// MemoryBackend is a bus fake for desktop development and tests. Written
// levels are read back as-is; input lines can be driven from test code with
// SetInput. It also counts line transactions so tests can assert that a
// rejected operation never reached hardware.
type MemoryBackend struct {
	name string

	mu     sync.Mutex
	levels map[string]Level
	faults map[string]error
	ops    int
}

func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{
		name:   name,
		levels: make(map[string]Level),
		faults: make(map[string]error),
	}
}

func (b *MemoryBackend) Name() string { return b.name }

func (b *MemoryBackend) Claim(pin board.Pin) (Line, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, claimed := b.levels[pin.ID]; claimed {
		return nil, fmt.Errorf("line %d already claimed", pin.Line)
	}
	b.levels[pin.ID] = Low
	return &memoryLine{backend: b, id: pin.ID}, nil
}

func (b *MemoryBackend) Close() error { return nil }

// SetInput drives an input line from the outside, the way a train passing
// over an occupancy sensor would. It does not count as a bus transaction.
func (b *MemoryBackend) SetInput(pinID string, level Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.levels[pinID] = level
}

// SetFault makes every transaction on the given line fail with err.
// Pass nil to clear.
func (b *MemoryBackend) SetFault(pinID string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.faults, pinID)
		return
	}
	b.faults[pinID] = err
}

// Level reports the current level of a line without counting a transaction.
func (b *MemoryBackend) Level(pinID string) Level {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.levels[pinID]
}

// Ops reports how many line transactions the backend has served.
func (b *MemoryBackend) Ops() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ops
}

type memoryLine struct {
	backend *MemoryBackend
	id      string
}

func (l *memoryLine) Value() (Level, error) {
	b := l.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops++
	if err := b.faults[l.id]; err != nil {
		return Low, err
	}
	return b.levels[l.id], nil
}

func (l *memoryLine) SetValue(level Level) error {
	b := l.backend
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ops++
	if err := b.faults[l.id]; err != nil {
		return err
	}
	b.levels[l.id] = level
	return nil
}

func (l *memoryLine) Close() error { return nil }
