package controllers

import (
	"errors"
	"fmt"
)

// Failure kinds at the controller boundary. Hardware faults pass through
// underneath and stay matchable with errors.Is against the hw sentinels.
var (
	ErrUnknownID       = errors.New("unknown id")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ControllerError names the controller and logical id a failure belongs to.
type ControllerError struct {
	Controller string
	ID         string
	Kind       error
	Err        error
}

func (e *ControllerError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Controller, e.ID, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Controller, e.ID, e.Kind, e.Err)
}

func (e *ControllerError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newControllerError(controller, id string, kind, err error) *ControllerError {
	return &ControllerError{Controller: controller, ID: id, Kind: kind, Err: err}
}
