package model

import "time"

// 在庫変動の理由
type StockMovementReason string

const (
	//チェックアウトによる減算
	StockMovementCheckout StockMovementReason = "CHECKOUT"
	//キャンセルによる戻し
	StockMovementCancel StockMovementReason = "CANCEL"
	//管理者による調整
	StockMovementAdjust StockMovementReason = "ADJUST"
)

// 在庫台帳。stockを動かした操作は必ずここに1行残す。
type StockMovement struct {
	ID          int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64               `gorm:"not null;index" json:"product_id"`
	OrderID     *int64              `gorm:"index" json:"order_id"`
	ActorUserID int64               `gorm:"not null;index" json:"actor_user_id"`
	Delta       int64               `gorm:"not null" json:"delta"`
	Reason      StockMovementReason `gorm:"type:varchar(20);not null" json:"reason"`
	CreatedAt   time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
}
