// internal/model/event.go
package model

import "time"

// ConnectionState is a state of the printer link
type ConnectionState string

const (
	StateIdle                ConnectionState = "IDLE"
	StateDiscovering         ConnectionState = "DISCOVERING"
	StateAwaitingAccessGrant ConnectionState = "AWAITING_ACCESS_GRANT"
	StateConnecting          ConnectionState = "CONNECTING"
	StateReady               ConnectionState = "READY"
	StateDisconnected        ConnectionState = "DISCONNECTED"
	StateFailed              ConnectionState = "FAILED"
)

// EventType represents the type of event
type EventType string

const (
	EventStateChanged     EventType = "STATE_CHANGED"
	EventDeviceFound      EventType = "DEVICE_FOUND"
	EventScanCompleted    EventType = "SCAN_COMPLETED"
	EventAccessRequested  EventType = "ACCESS_REQUESTED"
	EventAccessResolved   EventType = "ACCESS_RESOLVED"
	EventPrintCompleted   EventType = "PRINT_COMPLETED"
	EventPrintFailed      EventType = "PRINT_FAILED"
	EventTransportFailure EventType = "TRANSPORT_FAILURE"
)

// Event is published for every observable change of the printer link
type Event struct {
	Type      EventType              `json:"type"`
	Token     string                 `json:"token,omitempty"`
	State     ConnectionState        `json:"state,omitempty"`
	Previous  ConnectionState        `json:"previous,omitempty"`
	Device    *Device                `json:"device,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventPublisher receives events from the connection layer
type EventPublisher interface {
	Publish(event Event)
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) Publish(Event) {}
