package events

import (
	"github.com/postflowhq/carousel-service/internal/types"
)

// Publisher interface for emitting publish lifecycle events
type Publisher interface {
	PublishStarted(title string, slideCount int)
	PublishProgress(stage, detail string)
	PublishSucceeded(postID string, containerIDs []string, carouselContainerID string)
	PublishFailed(title string, err error)
}

// Broadcaster is the hub-side surface the publisher needs.
type Broadcaster interface {
	Broadcast(event *types.Event)
}

// EventPublisher implements Publisher on top of the WebSocket hub. Emission
// is fire-and-forget: a slow or absent dashboard never affects a publish.
type EventPublisher struct {
	hub Broadcaster
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub Broadcaster) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

func (p *EventPublisher) PublishStarted(title string, slideCount int) {
	p.hub.Broadcast(types.NewEvent(types.EventPublishStarted, &types.PublishStartedEvent{
		Title:      title,
		SlideCount: slideCount,
	}))
}

func (p *EventPublisher) PublishProgress(stage, detail string) {
	p.hub.Broadcast(types.NewEvent(types.EventPublishProgress, &types.PublishProgressEvent{
		Stage:  stage,
		Detail: detail,
	}))
}

func (p *EventPublisher) PublishSucceeded(postID string, containerIDs []string, carouselContainerID string) {
	p.hub.Broadcast(types.NewEvent(types.EventPublishSucceeded, &types.PublishSucceededEvent{
		PostID:              postID,
		ContainerIDs:        containerIDs,
		CarouselContainerID: carouselContainerID,
	}))
}

func (p *EventPublisher) PublishFailed(title string, err error) {
	p.hub.Broadcast(types.NewEvent(types.EventPublishFailed, &types.PublishFailedEvent{
		Title: title,
		Error: err.Error(),
	}))
}

// NoopPublisher discards all events. The scheduler worker runs without a
// dashboard hub and uses this.
type NoopPublisher struct{}

func (NoopPublisher) PublishStarted(string, int) {}

func (NoopPublisher) PublishProgress(string, string) {}

func (NoopPublisher) PublishSucceeded(string, []string, string) {}

func (NoopPublisher) PublishFailed(string, error) {}
