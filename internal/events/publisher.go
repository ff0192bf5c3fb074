package events

import (
	"context"
	"fmt"
	"time"

	"catalog-service/internal/models"

	"github.com/Tesseract-Nexus/go-shared/events"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Publisher wraps the go-shared events publisher for catalog events. A nil
// *Publisher is valid and publishes nothing.
type Publisher struct {
	publisher *events.Publisher
	storeID   string
	logger    *logrus.Entry
}

// NewPublisher creates a new catalog events publisher
func NewPublisher(natsURL, storeID string, logger *logrus.Logger) (*Publisher, error) {
	if natsURL == "" {
		natsURL = "nats://nats.nats.svc.cluster.local:4222"
	}

	config := events.DefaultPublisherConfig(natsURL)
	config.Name = "catalog-service"

	publisher, err := events.NewPublisher(config, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create events publisher: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := publisher.EnsureStream(ctx, events.StreamProducts, []string{"product.>"}); err != nil {
		logger.WithError(err).Warn("Failed to ensure products stream (may already exist)")
	}

	return &Publisher{
		publisher: publisher,
		storeID:   storeID,
		logger:    logger.WithField("component", "catalog-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.publisher != nil {
		p.publisher.Close()
	}
}

// PublishProductCreated publishes a product.created event for an imported product
func (p *Publisher) PublishProductCreated(ctx context.Context, product *models.Product, actorID string) error {
	if p == nil {
		return nil
	}
	event := p.buildProductEvent(events.ProductCreated, product)
	event.ActorID = actorID
	event.ChangeType = "created"
	return p.publish(ctx, event)
}

// PublishProductPriceChanged publishes a product.price_changed event
func (p *Publisher) PublishProductPriceChanged(ctx context.Context, product *models.Product, oldPrice, newPrice decimal.Decimal, actorID string) error {
	if p == nil {
		return nil
	}
	event := p.buildProductEvent("product.price_changed", product)
	event.ActorID = actorID
	event.ChangeType = "price_changed"
	event.OldValue = map[string]interface{}{"price": oldPrice.InexactFloat64()}
	event.NewValue = map[string]interface{}{"price": newPrice.InexactFloat64()}
	event.ChangedFields = []string{"price"}
	return p.publish(ctx, event)
}

func (p *Publisher) buildProductEvent(eventType string, product *models.Product) *events.ProductEvent {
	event := events.NewProductEvent(eventType, p.storeID)
	event.SourceID = uuid.New().String()
	event.ProductID = product.ID.String()
	event.ProductName = product.Name
	event.SKU = product.SKU
	event.Status = string(product.Status)
	event.Price = product.Price.InexactFloat64()
	return event
}

// publish sends the event in the background so catalog writes never wait on NATS
func (p *Publisher) publish(ctx context.Context, event *events.ProductEvent) error {
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := p.publisher.PublishProduct(pubCtx, event); err != nil {
			p.logger.WithFields(logrus.Fields{
				"eventType": event.EventType,
				"productID": event.ProductID,
				"sku":       event.SKU,
			}).WithError(err).Error("Failed to publish product event")
			return
		}
		p.logger.WithFields(logrus.Fields{
			"eventType": event.EventType,
			"productID": event.ProductID,
			"sku":       event.SKU,
		}).Debug("Product event published")
	}()

	return nil
}
