package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventPublishStarted   EventType = "publish.started"
	EventPublishProgress  EventType = "publish.progress"
	EventPublishSucceeded EventType = "publish.succeeded"
	EventPublishFailed    EventType = "publish.failed"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// PublishStartedEvent is emitted when a publish pipeline begins.
type PublishStartedEvent struct {
	Title      string `json:"title"`
	SlideCount int    `json:"slide_count"`
}

// PublishProgressEvent marks the completion of one pipeline stage
// (rendering, uploading, publishing).
type PublishProgressEvent struct {
	Stage  string `json:"stage"`
	Detail string `json:"detail,omitempty"`
}

// PublishSucceededEvent carries the platform post id of a finished publish.
type PublishSucceededEvent struct {
	PostID              string   `json:"post_id"`
	ContainerIDs        []string `json:"container_ids"`
	CarouselContainerID string   `json:"carousel_container_id"`
}

// PublishFailedEvent carries the terminal error of a failed publish.
type PublishFailedEvent struct {
	Title string `json:"title"`
	Error string `json:"error"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
