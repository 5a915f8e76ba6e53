package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductStatus string

const (
	ProductStatusAvailable   ProductStatus = "AVAILABLE"
	ProductStatusUnavailable ProductStatus = "UNAVAILABLE"
)

// 農家が出品する商品。RetailerIDは割当されるまでnull。
type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	CropType    string          `gorm:"type:varchar(100);not null;index" json:"crop_type"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock       int64           `gorm:"not null" json:"stock"`
	ProducerID  int64           `gorm:"not null;index" json:"producer_id"`
	RetailerID  *int64          `gorm:"index" json:"retailer_id"`
	Status      ProductStatus   `gorm:"type:varchar(20);not null;default:'AVAILABLE'" json:"status"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}

// 注文対象にできる状態か（生産者・小売の両方が割当済み）
func (p Product) Assigned() bool {
	return p.ProducerID > 0 && p.RetailerID != nil && *p.RetailerID > 0
}
