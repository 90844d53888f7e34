// Package notify publishes order lifecycle events onto the Redis
// queue so downstream consumers (alerting, journaling) can react
// without sitting inside the tick path.
package notify

import (
	"context"
	"fmt"
	"time"

	"PatternTrade/internal/domain/models"
	xhttp "PatternTrade/pkg/http"
	"PatternTrade/pkg/logger"
	"PatternTrade/pkg/queue"
)

const orderEventType = "order_event"

// OrderEvent is the queue payload for a lifecycle transition.
type OrderEvent struct {
	OrderID   int64     `json:"order_id"`
	Symbol    string    `json:"symbol"`
	UserID    string    `json:"user_id"`
	Algo      string    `json:"algo"`
	Direction string    `json:"direction"`
	Phase     string    `json:"phase"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	Profit    float64   `json:"profit"`
	At        time.Time `json:"at"`
}

// OrderEventPublisher forwards order transitions to the queue.
// Publish failures are logged and dropped so a broker outage never
// stalls order processing.
type OrderEventPublisher struct {
	q queue.QueueService
	l *logger.Logger
}

func NewOrderEventPublisher(q queue.QueueService, l *logger.Logger) *OrderEventPublisher {
	return &OrderEventPublisher{q: q, l: l}
}

func (p *OrderEventPublisher) OrderPlaced(ctx context.Context, o *models.Order) {
	p.publish(ctx, eventFor(o, o.EntryPrice, o.PlacedAt))
}

func (p *OrderEventPublisher) OrderExecuted(ctx context.Context, o *models.Order) {
	p.publish(ctx, eventFor(o, o.FillPrice, o.ExecutedAt))
}

func (p *OrderEventPublisher) OrderClosed(ctx context.Context, o *models.Order) {
	p.publish(ctx, eventFor(o, o.ExitPrice, o.ClosedAt))
}

func (p *OrderEventPublisher) publish(ctx context.Context, ev OrderEvent) {
	if err := p.q.PublishMessage(ctx, orderEventType, ev); err != nil {
		p.l.Warn("order event publish failed",
			logger.Int64("order_id", ev.OrderID),
			logger.String("phase", ev.Phase),
			logger.Error(err))
	}
}

func eventFor(o *models.Order, price float64, at time.Time) OrderEvent {
	return OrderEvent{
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		UserID:    o.UserID,
		Algo:      string(o.Algo),
		Direction: string(o.Direction),
		Phase:     string(o.Phase),
		Price:     price,
		Quantity:  o.Quantity,
		Profit:    o.ClosingProfit,
		At:        at,
	}
}

// OrderEventJob consumes order events off the queue, writes them to
// the audit log, and forwards them to the webhook when one is
// configured.
type OrderEventJob struct {
	l          *logger.Logger
	webhookURL string
	client     *xhttp.Client
}

func NewOrderEventJob(l *logger.Logger, webhookURL string) *OrderEventJob {
	j := &OrderEventJob{l: l, webhookURL: webhookURL}
	if webhookURL != "" {
		j.client = xhttp.NewClient(xhttp.WithTimeout(5 * time.Second))
	}
	return j
}

func (j *OrderEventJob) Name() string { return "order_event_audit" }

func (j *OrderEventJob) Type() string { return orderEventType }

func (j *OrderEventJob) Handle(ctx context.Context, payload interface{}) error {
	ev, err := queue.ParsePayload[OrderEvent](payload)
	if err != nil {
		return err
	}
	j.l.Info("order event",
		logger.Int64("order_id", ev.OrderID),
		logger.String("symbol", ev.Symbol),
		logger.String("user_id", ev.UserID),
		logger.String("algo", ev.Algo),
		logger.String("phase", ev.Phase),
		logger.Float64("price", ev.Price),
		logger.Float64("profit", ev.Profit))

	if j.client == nil {
		return nil
	}
	// Returning the error lets the queue retry delivery.
	resp, err := j.client.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    j.webhookURL,
		Body:   ev,
	})
	if err != nil {
		return fmt.Errorf("webhook delivery: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook delivery: status %d", resp.StatusCode)
	}
	return nil
}
