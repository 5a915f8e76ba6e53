package usecase

import (
	"context"
	"errors"

	"app/internal/domain/model"
	"app/internal/logger"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// 注文詳細の読み取りキャッシュ（cache-aside）。
// 取得失敗・保存失敗は実装側で握ってログするだけにする。
type OrderCache interface {
	Get(ctx context.Context, orderID int64) (OrderOutput, bool)
	Set(ctx context.Context, out OrderOutput)
	Invalidate(ctx context.Context, orderID int64)
}

// ロール別の注文読み取り。書き込みは一切しない。
type OrderQueryUsecase struct {
	tx     repo.TransactionManager
	cache  OrderCache
	logger *zap.Logger
}

// cacheはnil可。
func NewOrderQueryUsecase(tx repo.TransactionManager, cache OrderCache) *OrderQueryUsecase {
	return &OrderQueryUsecase{tx: tx, cache: cache, logger: logger.Get()}
}

// 注文詳細。呼び出し主体に見せてよい注文かをここで判定する。
func (u *OrderQueryUsecase) GetOrder(ctx context.Context, p Principal, orderID int64) (OrderOutput, error) {
	if !p.Valid() {
		return OrderOutput{}, NewValidationError("invalid principal")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewValidationError("invalid order id")
	}

	if u.cache != nil {
		if out, ok := u.cache.Get(ctx, orderID); ok {
			if !visibleTo(p, out) {
				return OrderOutput{}, NewNotFoundError("order", orderID)
			}
			return out, nil
		}
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("order", orderID)
		}
		if err != nil {
			return NewPersistenceError("load order", err)
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewPersistenceError("load order items", err)
		}

		out = toOrderOutput(o, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if u.cache != nil {
		u.cache.Set(ctx, out)
	}

	//関与していない注文は「存在しない扱い」にする
	if !visibleTo(p, out) {
		return OrderOutput{}, NewNotFoundError("order", orderID)
	}
	return out, nil
}

func (u *OrderQueryUsecase) ListByCustomer(ctx context.Context, customerID int64, page int, limit int) ([]OrderOutput, error) {
	return u.list(ctx, customerID, page, limit, func(r repo.TxRepos, page, limit int) ([]model.Order, int64, error) {
		return r.Orders().ListByCustomerID(ctx, customerID, page, limit)
	})
}

func (u *OrderQueryUsecase) ListByRetailer(ctx context.Context, retailerID int64, page int, limit int) ([]OrderOutput, error) {
	return u.list(ctx, retailerID, page, limit, func(r repo.TxRepos, page, limit int) ([]model.Order, int64, error) {
		return r.Orders().ListByRetailerID(ctx, retailerID, page, limit)
	})
}

func (u *OrderQueryUsecase) ListByFarmer(ctx context.Context, producerID int64, page int, limit int) ([]OrderOutput, error) {
	return u.list(ctx, producerID, page, limit, func(r repo.TxRepos, page, limit int) ([]model.Order, int64, error) {
		return r.Orders().ListByFarmerID(ctx, producerID, page, limit)
	})
}

func (u *OrderQueryUsecase) ListByDistributor(ctx context.Context, distributorID int64, page int, limit int) ([]OrderOutput, error) {
	return u.list(ctx, distributorID, page, limit, func(r repo.TxRepos, page, limit int) ([]model.Order, int64, error) {
		return r.Orders().ListByDistributorID(ctx, distributorID, page, limit)
	})
}

// 管理者用の注文一覧
func (u *OrderQueryUsecase) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	if f.Page < 1 {
		return []OrderOutput{}, NewValidationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewValidationError("invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return NewPersistenceError("list orders", err)
		}
		outs, err = u.expand(ctx, r, orders)
		return err
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderQueryUsecase) list(ctx context.Context, scopeID int64, page int, limit int,
	fetch func(r repo.TxRepos, page, limit int) ([]model.Order, int64, error)) ([]OrderOutput, error) {

	if scopeID <= 0 {
		return []OrderOutput{}, NewValidationError("invalid id")
	}
	if page < 1 {
		return []OrderOutput{}, NewValidationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return []OrderOutput{}, NewValidationError("invalid limit")
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := fetch(r, page, limit)
		if err != nil {
			return NewPersistenceError("list orders", err)
		}
		outs, err = u.expand(ctx, r, orders)
		return err
	})
	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderQueryUsecase) expand(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return nil, NewPersistenceError("load order items", err)
		}
		outs = append(outs, toOrderOutput(o, items))
	}
	return outs, nil
}

// 注文に関与している主体だけが読める
func visibleTo(p Principal, out OrderOutput) bool {
	switch p.Role {
	case model.RoleAdmin:
		return true
	case model.RoleCustomer:
		return out.CustomerID == p.UserID
	case model.RoleDistributor:
		return out.DistributorID != nil && *out.DistributorID == p.UserID
	case model.RoleRetailer:
		for _, it := range out.Items {
			if it.RetailerID == p.UserID {
				return true
			}
		}
	case model.RoleFarmer:
		for _, it := range out.Items {
			if it.ProducerID == p.UserID {
				return true
			}
		}
	}
	return false
}
