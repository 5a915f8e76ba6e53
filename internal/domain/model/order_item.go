package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。ProducerID/RetailerIDは作成時点のコピー（商品側が後で変わっても追跡できる）。
// PriceAtPurchaseは作成時に一度だけ書くスナップショットで、以後更新しない。
type OrderItem struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID         int64           `gorm:"not null;index" json:"order_id"`
	ProductID       int64           `gorm:"not null;index" json:"product_id"`
	ProducerID      int64           `gorm:"not null;index" json:"producer_id"`
	RetailerID      int64           `gorm:"not null;index" json:"retailer_id"`
	Quantity        int64           `gorm:"not null" json:"quantity"`
	PriceAtPurchase decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_purchase"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.PriceAtPurchase.Mul(decimal.NewFromInt(it.Quantity))
}
