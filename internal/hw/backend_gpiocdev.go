//go:build linux

package hw

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"

	"trainctl/internal/board"
)

// gpiochipBackend drives header GPIOs through the Linux character device,
// the same interface the board was originally wired against.
type gpiochipBackend struct {
	name string
	chip *gpiocdev.Chip
}

func newGPIOChipBackend(spec board.Bus) (Backend, error) {
	chip, err := gpiocdev.NewChip(spec.Chip, gpiocdev.WithConsumer("trainctl"))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", spec.Chip, err)
	}
	return &gpiochipBackend{name: spec.Name, chip: chip}, nil
}

func (b *gpiochipBackend) Name() string { return b.name }

func (b *gpiochipBackend) Claim(pin board.Pin) (Line, error) {
	var opt gpiocdev.LineReqOption = gpiocdev.AsInput
	if pin.Direction == board.DirectionOutput {
		// Outputs start low: everything off until commanded.
		opt = gpiocdev.AsOutput(0)
	}
	line, err := b.chip.RequestLine(pin.Line, opt)
	if err != nil {
		return nil, fmt.Errorf("request line %d: %w", pin.Line, err)
	}
	return &cdevLine{line: line}, nil
}

func (b *gpiochipBackend) Close() error {
	return b.chip.Close()
}

type cdevLine struct {
	line *gpiocdev.Line
}

func (l *cdevLine) Value() (Level, error) {
	v, err := l.line.Value()
	if err != nil {
		return Low, err
	}
	if v != 0 {
		return High, nil
	}
	return Low, nil
}

func (l *cdevLine) SetValue(level Level) error {
	return l.line.SetValue(int(level))
}

func (l *cdevLine) Close() error {
	return l.line.Close()
}
