// Package types holds the payload shapes shared by the REST API.
package types

// Response is the envelope for operations that return no resource data.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewOKResponse builds a success envelope.
func NewOKResponse(message string) Response {
	return Response{Status: "ok", Message: message}
}

// NewErrorResponse builds a failure envelope.
func NewErrorResponse(message string) Response {
	return Response{Status: "error", Message: message}
}

// LedStatus reports one LED.
type LedStatus struct {
	Led   int    `json:"led"`
	State string `json:"state"` // "on", "off" or "blinking"
}

// PowerStatus reports the track power relay.
type PowerStatus struct {
	Powered bool `json:"powered"`
}

// PointStatus reports one turnout point.
type PointStatus struct {
	Point    string `json:"point"`
	Position string `json:"position"` // "normal" or "reverse"
}

// SensorStatus reports one occupancy sensor.
type SensorStatus struct {
	Sensor    string `json:"sensor"`
	Triggered bool   `json:"triggered"`
}
