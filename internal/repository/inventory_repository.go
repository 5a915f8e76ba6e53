package repository

import (
	"context"

	"app/internal/domain/model"
)

// 在庫（product.stock）を動かせるのはここだけ。
type InventoryRepository interface {
	// 在庫の現在値を設定（管理者調整）
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 在庫が足りるときだけ減算。falseは在庫不足。
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセル）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 台帳行の作成
	CreateMovement(ctx context.Context, m model.StockMovement) error
}
