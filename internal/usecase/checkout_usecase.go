package usecase

import (
	"context"
	"errors"
	"time"

	"app/internal/domain/model"
	"app/internal/logger"
	"app/internal/metrics"
	repo "app/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// トランザクションサイズの上限
const MaxCartItems = 100

// カートの1行。永続化しない入力DTO。
type CartRequestItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type OrderItemOutput struct {
	ProductID       int64           `json:"product_id"`
	ProducerID      int64           `json:"producer_id"`
	RetailerID      int64           `json:"retailer_id"`
	Quantity        int64           `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"price_at_purchase"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	CustomerID    int64             `json:"customer_id"`
	DistributorID *int64            `json:"distributor_id"`
	Status        string            `json:"status"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderItemOutput `json:"items"`
}

// カートを価格確定済みの注文へ変換する調整役。
// 検証→注文作成→明細作成→在庫減算を1トランザクションで行い、部分成立を許さない。
type CheckoutUsecase struct {
	tx     repo.TransactionManager
	events EventPublisher
	logger *zap.Logger
}

// eventsはnil可（その場合イベントは流さない）。
func NewCheckoutUsecase(tx repo.TransactionManager, events EventPublisher) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, events: events, logger: logger.Get()}
}

func (u *CheckoutUsecase) CreateOrder(ctx context.Context, p Principal, cartItems []CartRequestItem) (OrderOutput, error) {
	if !p.Valid() {
		return OrderOutput{}, NewValidationError("invalid principal")
	}
	if len(cartItems) == 0 {
		return OrderOutput{}, NewValidationError("cart empty")
	}
	if len(cartItems) > MaxCartItems {
		return OrderOutput{}, NewValidationError("cart too large")
	}
	for _, ci := range cartItems {
		if ci.ProductID <= 0 {
			return OrderOutput{}, NewValidationError("invalid product_id")
		}
		if ci.Quantity <= 0 {
			return OrderOutput{}, NewValidationError("quantity must be > 0")
		}
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//まず全行を検証してから書き込む。1行でも落ちたら何も書かない。
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		total := decimal.Zero

		for _, ci := range cartItems {
			prod, err := r.Products().FindByID(ctx, ci.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewNotFoundError("product", ci.ProductID)
			}
			if err != nil {
				return NewPersistenceError("load product", err)
			}

			//未割当の商品は注文に載せられない
			if !prod.Assigned() {
				return NewValidationError("product not assigned to a retailer")
			}

			if prod.Stock <= 0 || prod.Stock < ci.Quantity {
				return &InsufficientStockError{
					ProductID: prod.ID,
					Available: prod.Stock,
					Requested: ci.Quantity,
				}
			}

			if !prod.Price.IsPositive() {
				return NewValidationError("product price must be > 0")
			}

			//スナップショット（以後、商品価格が変わっても注文側は動かない）
			now := time.Now()
			item := model.OrderItem{
				ProductID:       prod.ID,
				ProducerID:      prod.ProducerID,
				RetailerID:      *prod.RetailerID,
				Quantity:        ci.Quantity,
				PriceAtPurchase: prod.Price,
				CreatedAt:       now,
			}
			orderItems = append(orderItems, item)
			total = total.Add(item.LineTotal())
		}

		//注文作成
		now := time.Now()
		orderID, err := r.Orders().Create(ctx, model.Order{
			CustomerID:  p.UserID,
			Status:      model.OrderStatusPlaced,
			TotalAmount: total,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return NewPersistenceError("create order", err)
		}

		//明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewPersistenceError("create order items", err)
		}

		//在庫減算。条件付きUPDATEなので並行チェックアウトに負けたらここで落ちて全体が巻き戻る。
		for _, ci := range cartItems {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return NewPersistenceError("decrease stock", err)
			}
			if !ok {
				prod, ferr := r.Products().FindByID(ctx, ci.ProductID)
				available := int64(0)
				if ferr == nil {
					available = prod.Stock
				}
				return &InsufficientStockError{
					ProductID: ci.ProductID,
					Available: available,
					Requested: ci.Quantity,
				}
			}

			//台帳
			if err := r.Inventory().CreateMovement(ctx, model.StockMovement{
				ProductID:   ci.ProductID,
				OrderID:     &orderID,
				ActorUserID: p.UserID,
				Delta:       -ci.Quantity,
				Reason:      model.StockMovementCheckout,
				CreatedAt:   time.Now(),
			}); err != nil {
				return NewPersistenceError("create stock movement", err)
			}
		}

		created := model.Order{
			ID:          orderID,
			CustomerID:  p.UserID,
			Status:      model.OrderStatusPlaced,
			TotalAmount: total,
			CreatedAt:   now,
		}
		out = toOrderOutput(created, orderItems)
		return nil
	})

	if err != nil {
		metrics.CheckoutFailedTotal.WithLabelValues(failReason(err)).Inc()
		u.logger.Warn("checkout failed",
			zap.Int64("customer_id", p.UserID),
			zap.Int("cart_size", len(cartItems)),
			zap.Error(err))
		return OrderOutput{}, err
	}

	metrics.OrdersPlacedTotal.Inc()
	u.logger.Info("order placed",
		zap.Int64("order_id", out.ID),
		zap.Int64("customer_id", p.UserID),
		zap.String("total_amount", out.TotalAmount.String()))

	u.publish(ctx, EventOrderPlaced, out)

	return out, nil
}

// コミット後のイベント発行。失敗しても注文は成立している。
func (u *CheckoutUsecase) publish(ctx context.Context, t OrderEventType, out OrderOutput) {
	if u.events == nil {
		return
	}
	ev := OrderEvent{
		EventID:     uuid.NewString(),
		EventType:   t,
		OrderID:     out.ID,
		CustomerID:  out.CustomerID,
		Status:      out.Status,
		TotalAmount: out.TotalAmount,
		OccurredAt:  time.Now(),
	}
	if err := u.events.PublishOrderEvent(ctx, ev); err != nil {
		u.logger.Warn("event publish failed",
			zap.String("event_type", string(t)),
			zap.Int64("order_id", out.ID),
			zap.Error(err))
	}
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:       it.ProductID,
			ProducerID:      it.ProducerID,
			RetailerID:      it.RetailerID,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
			LineTotal:       it.LineTotal(),
		})
	}

	return OrderOutput{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		DistributorID: o.DistributorID,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
	}
}

// メトリクスのラベル用
func failReason(err error) string {
	if _, ok := AsInsufficientStockError(err); ok {
		return "insufficient_stock"
	}
	if _, ok := AsNotFoundError(err); ok {
		return "not_found"
	}
	if _, ok := AsValidationError(err); ok {
		return "validation"
	}
	if _, ok := AsPersistenceError(err); ok {
		return "persistence"
	}
	return "other"
}
