package order

import (
	"context"

	"go.uber.org/zap"
)

// Notifier is informed of orders that were just finalized. It is called
// after commit and must not block; delivery failures are the notifier's own
// concern.
type Notifier interface {
	OrderFinalized(ctx context.Context, o Order)
}

// LogNotifier reports finalized orders to a logger.
type LogNotifier struct {
	lg *zap.Logger
}

// NewLogNotifier returns a Notifier writing one Info line per order.
func NewLogNotifier(lg *zap.Logger) *LogNotifier {
	return &LogNotifier{lg: lg}
}

func (n *LogNotifier) OrderFinalized(_ context.Context, o Order) {
	n.lg.Info("Order finalized",
		zap.String("order_id", o.ID),
		zap.String("order_number", o.Number),
		zap.Stringer("total_paid", o.TotalPaid),
		zap.Stringer("change_due", o.ChangeDue),
	)
}

type nopNotifier struct{}

func (nopNotifier) OrderFinalized(context.Context, Order) {}
