package interfaces

import "context"

//go:generate mockgen -destination=mocks/mock_events_publisher.go -package=mock_interfaces -source=events_publisher.go
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}
