package notify

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/vietanh2810/fuelticket-api/internal/domain"
)

type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// LogPublisher writes every event to the global logger. It stands in for
// the broker when none is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, event domain.Event) error {
	zap.L().Info("ticket event",
		zap.String("type", string(event.Type)),
		zap.Uint("station_id", event.StationID),
		zap.String("ticket_number", event.Ticket.Number),
		zap.String("receipt_path", event.ReceiptPath),
	)

	return nil
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event domain.Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
