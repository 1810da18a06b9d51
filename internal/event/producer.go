// Package event publishes storefront domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

const (
	AggregateUser    = "user"
	AggregateProduct = "product"
	AggregateCart    = "cart"
	AggregateOrder   = "order"
)

// Topics for storefront domain events.
var (
	TopicUserRegistered = pkgkafka.Topic(AggregateUser, "registered")
	TopicProductCreated = pkgkafka.Topic(AggregateProduct, "created")
	TopicCartUpdated    = pkgkafka.Topic(AggregateCart, "updated")
	TopicOrderPlaced    = pkgkafka.Topic(AggregateOrder, "placed")
)

// Source identifies events emitted by this service.
const Source = "storefront"

type UserRegisteredData struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

type ProductCreatedData struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Price        int64  `json:"price"`
	QuantityLeft int    `json:"quantity_left"`
	CreatedBy    string `json:"created_by,omitempty"`
}

// CartUpdatedData describes one item change. Quantity is the new quantity,
// zero when Removed.
type CartUpdatedData struct {
	UserID    string `json:"user_id"`
	ItemID    string `json:"item_id"`
	ProductID string `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity"`
	Removed   bool   `json:"removed"`
}

type OrderPlacedItem struct {
	ProductID string `json:"product_id"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

type OrderPlacedData struct {
	OrderID    string            `json:"order_id"`
	UserID     string            `json:"user_id"`
	TotalPrice int64             `json:"total_price"`
	Items      []OrderPlacedItem `json:"items"`
}

// Publisher is what services publish through.
type Publisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishProductCreated(ctx context.Context, product *domain.Product) error
	PublishCartUpdated(ctx context.Context, data CartUpdatedData) error
	PublishOrderPlaced(ctx context.Context, order *domain.Order) error
}

type eventSink interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes storefront events to Kafka.
type Producer struct {
	sink   eventSink
	logger *slog.Logger
}

func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{sink: kafka, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}
	if err := p.sink.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

func (p *Producer) PublishUserRegistered(ctx context.Context, u *domain.User) error {
	return p.publish(ctx, TopicUserRegistered, u.ID, AggregateUser, UserRegisteredData{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
	})
}

func (p *Producer) PublishProductCreated(ctx context.Context, pr *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, pr.ID, AggregateProduct, ProductCreatedData{
		ID:           pr.ID,
		Title:        pr.Title,
		Price:        pr.Price,
		QuantityLeft: pr.QuantityLeft,
		CreatedBy:    pr.CreatedBy,
	})
}

// PublishCartUpdated keys the event by user so a user's cart changes stay ordered.
func (p *Producer) PublishCartUpdated(ctx context.Context, data CartUpdatedData) error {
	return p.publish(ctx, TopicCartUpdated, data.UserID, AggregateCart, data)
}

func (p *Producer) PublishOrderPlaced(ctx context.Context, o *domain.Order) error {
	items := make([]OrderPlacedItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderPlacedItem{ProductID: it.ProductID, Price: it.Price, Quantity: it.Quantity}
	}
	return p.publish(ctx, TopicOrderPlaced, o.ID, AggregateOrder, OrderPlacedData{
		OrderID:    o.ID,
		UserID:     o.UserID,
		TotalPrice: o.TotalPrice,
		Items:      items,
	})
}

// Nop discards every event. It is used when no Kafka brokers are configured.
type Nop struct{}

func (Nop) PublishUserRegistered(context.Context, *domain.User) error    { return nil }
func (Nop) PublishProductCreated(context.Context, *domain.Product) error { return nil }
func (Nop) PublishCartUpdated(context.Context, CartUpdatedData) error    { return nil }
func (Nop) PublishOrderPlaced(context.Context, *domain.Order) error      { return nil }
