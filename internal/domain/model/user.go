package model

import "time"

type Role string

const (
	RoleCustomer    Role = "CUSTOMER"
	RoleFarmer      Role = "FARMER"
	RoleRetailer    Role = "RETAILER"
	RoleDistributor Role = "DISTRIBUTOR"
	RoleAdmin       Role = "ADMIN"
)

// 登録を許可するロールか
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleFarmer, RoleRetailer, RoleDistributor, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Email        string `gorm:"uniqueIndex;not null"`
	Name         string `gorm:"type:varchar(255);not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'CUSTOMER';index"`
	IsActive     bool   `gorm:"not null;default:true"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
