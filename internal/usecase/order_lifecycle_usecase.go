package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"app/internal/domain/model"
	"app/internal/logger"
	"app/internal/metrics"
	repo "app/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 注文ステータスの遷移を司る。
// PLACED→CONFIRMED→PACKED→SHIPPED→DELIVERED。CANCELLEDは終端以外のどこからでも。
// 価格と明細はPLACED時点で凍結済みなので、cancel以外の遷移はステータス更新だけで済む。
type OrderLifecycleUsecase struct {
	tx     repo.TransactionManager
	events EventPublisher
	cache  OrderCache
	logger *zap.Logger
}

// events/cacheはnil可。
func NewOrderLifecycleUsecase(tx repo.TransactionManager, events EventPublisher, cache OrderCache) *OrderLifecycleUsecase {
	return &OrderLifecycleUsecase{tx: tx, events: events, cache: cache, logger: logger.Get()}
}

func (u *OrderLifecycleUsecase) Confirm(ctx context.Context, p Principal, orderID int64) error {
	return u.transition(ctx, p, orderID, "confirm", model.OrderStatusPlaced, model.OrderStatusConfirmed, EventOrderConfirmed)
}

func (u *OrderLifecycleUsecase) Ship(ctx context.Context, p Principal, orderID int64) error {
	return u.transition(ctx, p, orderID, "ship", model.OrderStatusPacked, model.OrderStatusShipped, EventOrderShipped)
}

func (u *OrderLifecycleUsecase) Deliver(ctx context.Context, p Principal, orderID int64) error {
	return u.transition(ctx, p, orderID, "deliver", model.OrderStatusShipped, model.OrderStatusDelivered, EventOrderDelivered)
}

// CONFIRMED→PACKED。配送担当の割当もここで行う。
func (u *OrderLifecycleUsecase) Pack(ctx context.Context, p Principal, orderID int64, distributorID int64) error {
	if !p.Valid() {
		return NewValidationError("invalid principal")
	}
	if orderID <= 0 {
		return NewValidationError("invalid order id")
	}
	if distributorID <= 0 {
		return NewValidationError("distributor id required")
	}

	var after model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//配送担当がDISTRIBUTORロールで実在するか
		d, err := r.Users().FindByID(ctx, distributorID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewValidationError("invalid distributor")
		}
		if err != nil {
			return NewPersistenceError("load distributor", err)
		}
		if d.Role != model.RoleDistributor || !d.IsActive {
			return NewValidationError("invalid distributor")
		}

		ok, err := r.Orders().PackIf(ctx, orderID, distributorID)
		if err != nil {
			return NewPersistenceError("pack order", err)
		}
		if !ok {
			return u.transitionConflict(ctx, r, orderID, "pack")
		}

		if err := u.audit(ctx, r, p, orderID, model.OrderStatusConfirmed, model.OrderStatusPacked); err != nil {
			return err
		}

		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return NewPersistenceError("reload order", err)
		}
		after = o
		return nil
	})

	if err != nil {
		return err
	}

	u.finish(ctx, "pack", after, EventOrderPacked)
	return nil
}

// 終端以外のどこからでも取り消せる。明細の数量を在庫へ戻すのはこの遷移だけ。
func (u *OrderLifecycleUsecase) Cancel(ctx context.Context, p Principal, orderID int64) error {
	if !p.Valid() {
		return NewValidationError("invalid principal")
	}
	if orderID <= 0 {
		return NewValidationError("invalid order id")
	}

	var after model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("order", orderID)
		}
		if err != nil {
			return NewPersistenceError("load order", err)
		}

		//他人の注文は「存在しない扱い」にする
		if p.Role == model.RoleCustomer && o.CustomerID != p.UserID {
			return NewNotFoundError("order", orderID)
		}

		if o.Status.Terminal() {
			return &InvalidStateTransitionError{OrderID: orderID, From: o.Status, Transition: "cancel"}
		}

		//在庫戻し。ステータス更新と同じトランザクションなので両方成立か両方不成立。
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewPersistenceError("load order items", err)
		}
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return NewPersistenceError("restore stock", err)
			}
			if err := r.Inventory().CreateMovement(ctx, model.StockMovement{
				ProductID:   it.ProductID,
				OrderID:     &orderID,
				ActorUserID: p.UserID,
				Delta:       it.Quantity,
				Reason:      model.StockMovementCancel,
				CreatedAt:   time.Now(),
			}); err != nil {
				return NewPersistenceError("create stock movement", err)
			}
		}

		//読み取ったステータスを前提にした条件付き更新。
		//並行遷移に負けたらここで落ちて在庫戻しも巻き戻る。
		ok, err := r.Orders().UpdateStatusIf(ctx, orderID, o.Status, model.OrderStatusCancelled)
		if err != nil {
			return NewPersistenceError("cancel order", err)
		}
		if !ok {
			return u.transitionConflict(ctx, r, orderID, "cancel")
		}

		if err := u.audit(ctx, r, p, orderID, o.Status, model.OrderStatusCancelled); err != nil {
			return err
		}

		after = o
		after.Status = model.OrderStatusCancelled
		return nil
	})

	if err != nil {
		return err
	}

	metrics.OrdersCancelledTotal.Inc()
	u.finish(ctx, "cancel", after, EventOrderCancelled)
	return nil
}

// 単純な1ステップ遷移（confirm/ship/deliver）
func (u *OrderLifecycleUsecase) transition(ctx context.Context, p Principal, orderID int64, name string, from model.OrderStatus, to model.OrderStatus, ev OrderEventType) error {
	if !p.Valid() {
		return NewValidationError("invalid principal")
	}
	if orderID <= 0 {
		return NewValidationError("invalid order id")
	}

	var after model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		ok, err := r.Orders().UpdateStatusIf(ctx, orderID, from, to)
		if err != nil {
			return NewPersistenceError(name+" order", err)
		}
		if !ok {
			return u.transitionConflict(ctx, r, orderID, name)
		}

		if err := u.audit(ctx, r, p, orderID, from, to); err != nil {
			return err
		}

		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return NewPersistenceError("reload order", err)
		}
		after = o
		return nil
	})

	if err != nil {
		return err
	}

	u.finish(ctx, name, after, ev)
	return nil
}

// 条件付きUPDATEが空振りしたとき、現在の状態を読み直して適切なエラーに変換する。
func (u *OrderLifecycleUsecase) transitionConflict(ctx context.Context, r repo.TxRepos, orderID int64, name string) error {
	o, err := r.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError("order", orderID)
	}
	if err != nil {
		return NewPersistenceError("reload order", err)
	}
	return &InvalidStateTransitionError{OrderID: orderID, From: o.Status, Transition: name}
}

func (u *OrderLifecycleUsecase) audit(ctx context.Context, r repo.TxRepos, p Principal, orderID int64, before model.OrderStatus, after model.OrderStatus) error {
	err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  p.UserID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   fmt.Sprintf(`{"status":%q}`, string(before)),
		AfterJSON:    fmt.Sprintf(`{"status":%q}`, string(after)),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return NewPersistenceError("create audit log", err)
	}
	return nil
}

// コミット後の後始末: メトリクス、ログ、キャッシュ破棄、イベント。
func (u *OrderLifecycleUsecase) finish(ctx context.Context, name string, o model.Order, ev OrderEventType) {
	metrics.OrderTransitionsTotal.WithLabelValues(string(o.Status)).Inc()

	u.logger.Info("order transitioned",
		zap.Int64("order_id", o.ID),
		zap.String("transition", name),
		zap.String("status", string(o.Status)))

	if u.cache != nil {
		u.cache.Invalidate(ctx, o.ID)
	}

	if u.events != nil {
		e := OrderEvent{
			EventID:     uuid.NewString(),
			EventType:   ev,
			OrderID:     o.ID,
			CustomerID:  o.CustomerID,
			Status:      string(o.Status),
			TotalAmount: o.TotalAmount,
			OccurredAt:  time.Now(),
		}
		if err := u.events.PublishOrderEvent(ctx, e); err != nil {
			u.logger.Warn("event publish failed",
				zap.String("event_type", string(ev)),
				zap.Int64("order_id", o.ID),
				zap.Error(err))
		}
	}
}
