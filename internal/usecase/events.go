package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	EventOrderPlaced    OrderEventType = "order.placed"
	EventOrderConfirmed OrderEventType = "order.confirmed"
	EventOrderPacked    OrderEventType = "order.packed"
	EventOrderShipped   OrderEventType = "order.shipped"
	EventOrderDelivered OrderEventType = "order.delivered"
	EventOrderCancelled OrderEventType = "order.cancelled"
)

// 注文ライフサイクルの事実通知。コミット後に流す。
type OrderEvent struct {
	EventID     string          `json:"event_id"`
	EventType   OrderEventType  `json:"event_type"`
	OrderID     int64           `json:"order_id"`
	CustomerID  int64           `json:"customer_id"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// 発行失敗は注文の成立に影響しない（呼び出し側でログするだけ）。
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, ev OrderEvent) error
}
