package websocket

import "time"

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Hardware state messages
	MessageTypeLedState    MessageType = "led_state"
	MessageTypePowerState  MessageType = "power_state"
	MessageTypePointsState MessageType = "points_state"
	MessageTypeSensorState MessageType = "sensor_state"

	// Self-test messages
	MessageTypeSelfTestState MessageType = "selftest_state"

	// System messages
	MessageTypeSystemStatus MessageType = "system_status"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// LedStateData reports one LED changing state.
type LedStateData struct {
	Led   int    `json:"led"`
	State string `json:"state"` // "on", "off" or "blinking"
}

// PowerStateData reports the track power relay changing state.
type PowerStateData struct {
	Powered bool `json:"powered"`
}

// PointsStateData reports a point changing position.
type PointsStateData struct {
	Point    string `json:"point"`
	Position string `json:"position"` // "normal" or "reverse"
}

// SensorStateData reports an occupancy sensor changing state.
type SensorStateData struct {
	Sensor    string `json:"sensor"`
	Triggered bool   `json:"triggered"`
}

// SystemStatusData reports a lifecycle state transition.
type SystemStatusData struct {
	State string `json:"state"`
}

// SelfTestStateData reports a self-test run transition.
type SelfTestStateData struct {
	RunID    string `json:"run_id,omitempty"`
	State    string `json:"state"`
	Previous string `json:"previous_state"`
}

// NewMessage creates a new message with current timestamp
func NewMessage(msgType MessageType, data interface{}) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

func NewLedStateMessage(led int, state string) Message {
	return NewMessage(MessageTypeLedState, LedStateData{Led: led, State: state})
}

func NewPowerStateMessage(powered bool) Message {
	return NewMessage(MessageTypePowerState, PowerStateData{Powered: powered})
}

func NewPointsStateMessage(point, position string) Message {
	return NewMessage(MessageTypePointsState, PointsStateData{Point: point, Position: position})
}

func NewSensorStateMessage(sensor string, triggered bool) Message {
	return NewMessage(MessageTypeSensorState, SensorStateData{Sensor: sensor, Triggered: triggered})
}

func NewSystemStatusMessage(state string) Message {
	return NewMessage(MessageTypeSystemStatus, SystemStatusData{State: state})
}

func NewSelfTestStateMessage(runID, state, previous string) Message {
	return NewMessage(MessageTypeSelfTestState, SelfTestStateData{
		RunID:    runID,
		State:    state,
		Previous: previous,
	})
}
