package streaming

import (
	"context"
	"time"

	"github.com/google/uuid"

	"ransomguard/internal/domain/models"
)

// EventBusPublisher implements services.EventPublisher using the EventBus
type EventBusPublisher struct {
	eventBus *EventBus
}

// NewEventBusPublisher creates a new publisher adapter
func NewEventBusPublisher(eventBus *EventBus) *EventBusPublisher {
	return &EventBusPublisher{eventBus: eventBus}
}

// PublishScan publishes an event for a persisted scan
func (p *EventBusPublisher) PublishScan(ctx context.Context, scan *models.ScanResult, modelVersion string) error {
	if p.eventBus == nil {
		return nil
	}
	return p.eventBus.Publish(ctx, NewScanEvent(scan, modelVersion))
}

// PublishQuickScan publishes an event for a predefined profile scan
func (p *EventBusPublisher) PublishQuickScan(ctx context.Context, profile string, v *models.Verdict, modelVersion string) error {
	if p.eventBus == nil {
		return nil
	}
	return p.eventBus.Publish(ctx, NewQuickScanEvent(profile, v, modelVersion))
}

// PublishModelReload publishes the outcome of a model reload
func (p *EventBusPublisher) PublishModelReload(ctx context.Context, version string, features int, err error) error {
	if p.eventBus == nil {
		return nil
	}

	event := &ModelReloadEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeModelReloaded,
		Timestamp: time.Now().UTC(),
		Success:   err == nil,
		Version:   version,
		Features:  features,
	}
	if err != nil {
		event.Error = err.Error()
	}

	return p.eventBus.PublishModelReload(ctx, event)
}
