package events

import (
	"context"
	"fmt"
	"time"
)

// MessagePublisher publishes a correlated Zeebe message.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, ttl time.Duration, variables interface{}) error
}

// ZeebePublisher correlates stage changes into running hiring processes, for
// example to start onboarding once a candidate is hired. The candidate id is
// the correlation key. Other event types are ignored.
type ZeebePublisher struct {
	client      MessagePublisher
	messageName string
	ttl         time.Duration
}

func NewZeebePublisher(client MessagePublisher, messageName string, ttl time.Duration) *ZeebePublisher {
	return &ZeebePublisher{client: client, messageName: messageName, ttl: ttl}
}

type stageMessage struct {
	TenantID    string `json:"tenantId"`
	CandidateID string `json:"candidateId"`
	FromStage   string `json:"fromStage"`
	ToStage     string `json:"toStage"`
	ActorID     string `json:"actorId"`
	EventID     string `json:"eventId"`
}

func (p *ZeebePublisher) Publish(ctx context.Context, e Event) error {
	if e.Type != TypeStageChanged {
		return nil
	}

	vars := stageMessage{
		TenantID:    e.TenantID,
		CandidateID: e.CandidateID,
		FromStage:   string(e.From),
		ToStage:     string(e.To),
		ActorID:     e.ActorID,
		EventID:     e.ID,
	}
	if err := p.client.PublishMessage(ctx, p.messageName, e.CandidateID, p.ttl, vars); err != nil {
		return fmt.Errorf("zeebe publish %s: %w", p.messageName, err)
	}
	return nil
}
