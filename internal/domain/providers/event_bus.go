package providers

import (
	"context"

	"github.com/nfcure/digitaltwin/backend/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to report events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ReportEvent) error

	// Subscribe subscribes to events on a channel
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ReportEvent, error)

	// Unsubscribe unsubscribes from a channel
	Unsubscribe(ctx context.Context, channel string) error

	// Close closes the event bus and all subscriptions
	Close() error
}

const (
	// EventChannelReportUpdates carries every report event
	EventChannelReportUpdates = "reports:updates"

	// EventChannelPatientPrefix is the prefix for per-patient channels
	EventChannelPatientPrefix = "patient:"
)

// GetPatientChannel returns the channel name for a specific patient
func GetPatientChannel(patientID string) string {
	return EventChannelPatientPrefix + patientID
}
