package hw

import (
	"errors"
	"fmt"
)

// Failure kinds at the hardware boundary. Callers match with errors.Is;
// the concrete cause stays reachable through Unwrap.
var (
	ErrNotConfigured    = errors.New("pin not configured")
	ErrBusFault         = errors.New("bus fault")
	ErrPermissionDenied = errors.New("permission denied")
)

// HwError carries the operation and pin a hardware failure belongs to.
// Kind is one of the sentinels above.
type HwError struct {
	Op   string
	Pin  string
	Kind error
	Err  error
}

func (e *HwError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Pin, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Pin, e.Kind, e.Err)
}

func (e *HwError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newHwError(op, pin string, kind, err error) *HwError {
	return &HwError{Op: op, Pin: pin, Kind: kind, Err: err}
}
