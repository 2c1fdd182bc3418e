package events

import (
	"context"
	"sync"
	"time"

	"holanu-server/internal/observability"

	"github.com/google/uuid"
)

// Event is a domain event delivered to live subscribers
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	AgentID   string                 `json:"agent_id,omitempty"`
	Data      map[string]interface{} `json:"data"`
	Timestamp string                 `json:"timestamp"`
}

// Publisher fans out lead events to in-process subscribers. Each subscriber
// gets a buffered channel; slow subscribers have events dropped rather than
// blocking the publishing request path.
type Publisher struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]chan Event
	logger      *observability.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(logger *observability.Logger) *Publisher {
	return &Publisher{
		subscribers: make(map[uuid.UUID]chan Event),
		logger:      logger,
	}
}

// Subscribe registers a new subscriber and returns its id and event channel
func (p *Publisher) Subscribe() (uuid.UUID, <-chan Event) {
	ch := make(chan Event, 32)
	id := uuid.New()

	p.mu.Lock()
	p.subscribers[id] = ch
	p.mu.Unlock()

	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel
func (p *Publisher) Unsubscribe(id uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ch, ok := p.subscribers[id]; ok {
		delete(p.subscribers, id)
		close(ch)
	}
}

func (p *Publisher) publish(ctx context.Context, event Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for id, ch := range p.subscribers {
		select {
		case ch <- event:
		default:
			p.logger.Warn(observability.WithFields(ctx,
				observability.Field{Key: "subscriber_id", Value: id.String()},
				observability.Field{Key: "event_type", Value: event.Type},
			), "dropping event for slow subscriber")
		}
	}
}

// PublishLeadCreated publishes a lead.created event
func (p *Publisher) PublishLeadCreated(ctx context.Context, leadID, propertyID uuid.UUID, agentID *uuid.UUID, score float64) {
	event := Event{
		ID:   uuid.New().String(),
		Type: "lead.created",
		Data: map[string]interface{}{
			"lead_id":     leadID.String(),
			"property_id": propertyID.String(),
			"score":       score,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if agentID != nil {
		event.AgentID = agentID.String()
	}

	p.publish(ctx, event)
}

// PublishLeadAssigned publishes a lead.assigned event
func (p *Publisher) PublishLeadAssigned(ctx context.Context, leadID, agentID uuid.UUID, reason string) {
	p.publish(ctx, Event{
		ID:      uuid.New().String(),
		Type:    "lead.assigned",
		AgentID: agentID.String(),
		Data: map[string]interface{}{
			"lead_id":  leadID.String(),
			"agent_id": agentID.String(),
			"reason":   reason,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// PublishLeadMessage publishes a lead.message event for an inbound or
// outbound conversation message
func (p *Publisher) PublishLeadMessage(ctx context.Context, leadID, messageID uuid.UUID, role, channel string) {
	p.publish(ctx, Event{
		ID:   uuid.New().String(),
		Type: "lead.message",
		Data: map[string]interface{}{
			"lead_id":    leadID.String(),
			"message_id": messageID.String(),
			"role":       role,
			"channel":    channel,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// PublishLeadStatusChanged publishes a lead.status_changed event
func (p *Publisher) PublishLeadStatusChanged(ctx context.Context, leadID uuid.UUID, status string) {
	p.publish(ctx, Event{
		ID:   uuid.New().String(),
		Type: "lead.status_changed",
		Data: map[string]interface{}{
			"lead_id": leadID.String(),
			"status":  status,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
