package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page       int
	Limit      int
	Status     string
	CustomerID *int64
	From       *time.Time
	To         *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	//前提ステータスが一致したときだけ更新する（条件付きUPDATE）。
	//falseは「前提が成立しなかった」＝並行して誰かが先に進めた/取り消した。
	UpdateStatusIf(ctx context.Context, orderID int64, from model.OrderStatus, to model.OrderStatus) (bool, error)
	//PACKEDへの遷移はdistributor_idの割当とステータス更新を1回のUPDATEで行う。
	PackIf(ctx context.Context, orderID int64, distributorID int64) (bool, error)

	ListByCustomerID(ctx context.Context, customerID int64, page int, limit int) ([]model.Order, int64, error)
	ListByDistributorID(ctx context.Context, distributorID int64, page int, limit int) ([]model.Order, int64, error)
	//order_itemsへコピーしたretailer_id/producer_id経由で引く
	ListByRetailerID(ctx context.Context, retailerID int64, page int, limit int) ([]model.Order, int64, error)
	ListByFarmerID(ctx context.Context, producerID int64, page int, limit int) ([]model.Order, int64, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
