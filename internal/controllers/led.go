// Package controllers provides the typed facades over the shared hardware
// interface: LEDs, track power, points and occupancy sensors. Controllers
// hold only their logical-id-to-pin mapping, immutable after construction;
// every getter is a hardware readback, never a cached value.
package controllers

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"trainctl/internal/api/websocket"
	"trainctl/internal/board"
	"trainctl/internal/hw"
)

// LedRange is a colour subset of the LED strip, indexed 1-based.
type LedRange struct {
	First int
	Last  int
}

// Colour subsets on the stock board.
var (
	GreenLeds = LedRange{First: 1, Last: 6}
	AmberLeds = LedRange{First: 7, Last: 12}
	RedLeds   = LedRange{First: 13, Last: 24}
)

// LedController drives the indicator LEDs. Indices are 1-based.
type LedController struct {
	hardware *hw.HardwareInterface
	pins     []string
	hub      *websocket.Hub
	logger   *zap.Logger

	mu       sync.Mutex
	blinkers map[int]*blinker
}

type blinker struct {
	stop chan struct{}
	done chan struct{}
}

func NewLedController(hardware *hw.HardwareInterface, profile *board.Profile, hub *websocket.Hub, logger *zap.Logger) *LedController {
	return &LedController{
		hardware: hardware,
		pins:     profile.Leds,
		hub:      hub,
		logger:   logger,
		blinkers: make(map[int]*blinker),
	}
}

// Count returns the number of configured LEDs.
func (c *LedController) Count() int {
	return len(c.pins)
}

func (c *LedController) pin(index int) (string, error) {
	if index < 1 || index > len(c.pins) {
		return "", newControllerError("led", strconv.Itoa(index), ErrUnknownID,
			fmt.Errorf("index must be between 1 and %d", len(c.pins)))
	}
	return c.pins[index-1], nil
}

// Set turns one LED on or off. An active blinker on the LED is cancelled
// first, matching the behaviour of an explicit command overriding a blink.
func (c *LedController) Set(index int, on bool) error {
	pin, err := c.pin(index)
	if err != nil {
		return err
	}

	c.StopBlink(index)

	level := hw.Low
	if on {
		level = hw.High
	}
	if err := c.hardware.Write(pin, level); err != nil {
		return newControllerError("led", strconv.Itoa(index), err, nil)
	}

	c.publishLed(index, on)
	return nil
}

// Get reads the LED's current level back from the hardware.
func (c *LedController) Get(index int) (bool, error) {
	pin, err := c.pin(index)
	if err != nil {
		return false, err
	}
	level, err := c.hardware.Read(pin)
	if err != nil {
		return false, newControllerError("led", strconv.Itoa(index), err, nil)
	}
	return level == hw.High, nil
}

// SetAll drives every LED to the same state and cancels all blinkers.
func (c *LedController) SetAll(on bool) error {
	c.stopAllBlinkers()

	level := hw.Low
	if on {
		level = hw.High
	}
	for index, pin := range c.pins {
		if err := c.hardware.Write(pin, level); err != nil {
			return newControllerError("led", strconv.Itoa(index+1), err, nil)
		}
		c.publishLed(index+1, on)
	}
	return nil
}

// Blink toggles the LED at the given interval until StopBlink, Set or
// SetAll cancels it.
func (c *LedController) Blink(index int, interval time.Duration) error {
	pin, err := c.pin(index)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return newControllerError("led", strconv.Itoa(index), ErrInvalidArgument,
			fmt.Errorf("blink interval must be positive, got %s", interval))
	}

	c.mu.Lock()
	if old, ok := c.blinkers[index]; ok {
		stopBlinker(old)
	}
	b := &blinker{stop: make(chan struct{}), done: make(chan struct{})}
	c.blinkers[index] = b
	c.mu.Unlock()

	go c.blinkLoop(index, pin, interval, b)

	if c.hub != nil {
		c.hub.Broadcast(websocket.NewLedStateMessage(index, "blinking"))
	}
	c.logger.Debug("led blinking",
		zap.Int("led", index),
		zap.Duration("interval", interval))
	return nil
}

func (c *LedController) blinkLoop(index int, pin string, interval time.Duration, b *blinker) {
	defer close(b.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			if _, err := c.hardware.Toggle(pin); err != nil {
				c.logger.Error("blink toggle failed",
					zap.Int("led", index),
					zap.Error(err))
				// A dead blinker must not keep reporting "blinking".
				c.mu.Lock()
				if c.blinkers[index] == b {
					delete(c.blinkers, index)
				}
				c.mu.Unlock()
				return
			}
		}
	}
}

// StopBlink cancels the LED's blinker, if any, leaving the LED at whatever
// level the last toggle wrote.
func (c *LedController) StopBlink(index int) {
	c.mu.Lock()
	b, ok := c.blinkers[index]
	if ok {
		delete(c.blinkers, index)
	}
	c.mu.Unlock()
	if ok {
		stopBlinker(b)
	}
}

func (c *LedController) stopAllBlinkers() {
	c.mu.Lock()
	blinkers := c.blinkers
	c.blinkers = make(map[int]*blinker)
	c.mu.Unlock()
	for _, b := range blinkers {
		stopBlinker(b)
	}
}

func stopBlinker(b *blinker) {
	close(b.stop)
	<-b.done
}

// BlinkingLeds returns the indices of all LEDs with an active blinker,
// in ascending order.
func (c *LedController) BlinkingLeds() []int {
	c.mu.Lock()
	indices := make([]int, 0, len(c.blinkers))
	for index := range c.blinkers {
		indices = append(indices, index)
	}
	c.mu.Unlock()
	sort.Ints(indices)
	return indices
}

// IsBlinking reports whether the LED has an active blinker.
func (c *LedController) IsBlinking(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.blinkers[index]
	return ok
}

// State returns "blinking", "on" or "off" for the LED, reading the level
// back from the hardware for the non-blinking case.
func (c *LedController) State(index int) (string, error) {
	if _, err := c.pin(index); err != nil {
		return "", err
	}
	if c.IsBlinking(index) {
		return "blinking", nil
	}
	on, err := c.Get(index)
	if err != nil {
		return "", err
	}
	if on {
		return "on", nil
	}
	return "off", nil
}

// SetColor addresses an LED by colour subset and 1-based position within
// the subset, e.g. the 2nd red LED is index 14.
func (c *LedController) SetColor(r LedRange, position int, on bool) error {
	count := r.Last - r.First + 1
	if position < 1 || position > count {
		return newControllerError("led", strconv.Itoa(position), ErrUnknownID,
			fmt.Errorf("position must be between 1 and %d", count))
	}
	return c.Set(r.First+position-1, on)
}

// Close cancels all blinkers. The LEDs keep their last level; shutdown of
// the hardware interface decides what happens to the lines.
func (c *LedController) Close() {
	c.stopAllBlinkers()
}

func (c *LedController) publishLed(index int, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	if c.hub != nil {
		c.hub.Broadcast(websocket.NewLedStateMessage(index, state))
	}
}
