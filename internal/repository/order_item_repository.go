package repository

import (
	"context"

	"app/internal/domain/model"
)

// 明細はチェックアウト時に一括作成したあと更新しない（価格スナップショット）。
type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}
