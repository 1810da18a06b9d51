package receipt

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// OrderLoader reads an order with its items.
type OrderLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// Worker renders a receipt into the media directory for every placed order.
type Worker struct {
	orders   OrderLoader
	renderer *Renderer
	mediaDir string
	logger   *slog.Logger
}

func NewWorker(orders OrderLoader, renderer *Renderer, mediaDir string, logger *slog.Logger) *Worker {
	return &Worker{orders: orders, renderer: renderer, mediaDir: mediaDir, logger: logger}
}

// FileName is the receipt file name for an order.
func FileName(orderID string) string {
	return fmt.Sprintf("order_%s.pdf", orderID)
}

// Path is where the receipt for orderID is written.
func (w *Worker) Path(orderID string) string {
	return filepath.Join(w.mediaDir, FileName(orderID))
}

// Handle is a kafka.Handler for order.placed events. Other event types are ignored.
func (w *Worker) Handle(ctx context.Context, evt *pkgkafka.Event) error {
	if evt.EventType != event.TopicOrderPlaced {
		w.logger.DebugContext(ctx, "ignoring event", slog.String("event_type", evt.EventType))
		return nil
	}

	var data event.OrderPlacedData
	if err := evt.UnmarshalData(&data); err != nil {
		return fmt.Errorf("decode order.placed payload: %w", err)
	}
	if data.OrderID == "" {
		return fmt.Errorf("order.placed event %s has no order id", evt.EventID)
	}

	order, err := w.orders.GetByID(ctx, data.OrderID)
	if err != nil {
		return fmt.Errorf("load order %s: %w", data.OrderID, err)
	}

	var buf bytes.Buffer
	if err := w.renderer.Render(ctx, order, &buf); err != nil {
		return err
	}
	if err := w.write(order.ID, buf.Bytes()); err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "receipt saved",
		slog.String("order_id", order.ID),
		slog.String("path", w.Path(order.ID)),
	)
	return nil
}

// write replaces the receipt file atomically.
func (w *Worker) write(orderID string, data []byte) error {
	if err := os.MkdirAll(w.mediaDir, 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	tmp, err := os.CreateTemp(w.mediaDir, ".receipt-*.pdf")
	if err != nil {
		return fmt.Errorf("create temp receipt: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write receipt: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close receipt: %w", err)
	}
	if err := os.Rename(tmp.Name(), w.Path(orderID)); err != nil {
		return fmt.Errorf("move receipt into place: %w", err)
	}
	return nil
}
