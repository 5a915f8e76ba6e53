package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/logger"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// 商品カタログの管理。出品時の小売割当と、管理者による付け替え・在庫調整もここ。
type ProductUsecase struct {
	tx          repo.TransactionManager
	productRepo repo.ProductRepository
	policy      AssignmentPolicy
	logger      *zap.Logger
}

func NewProductUsecase(tx repo.TransactionManager, productRepo repo.ProductRepository, policy AssignmentPolicy) *ProductUsecase {
	return &ProductUsecase{tx: tx, productRepo: productRepo, policy: policy, logger: logger.Get()}
}

type CreateProductInput struct {
	Name        string
	CropType    string
	Description string
	Price       decimal.Decimal
	Stock       int64
}

// 出品。小売割当ポリシーを通してretailer_idを決めてから保存する。
func (u *ProductUsecase) CreateProduct(ctx context.Context, p Principal, in CreateProductInput) (model.Product, error) {
	if !p.Valid() {
		return model.Product{}, NewValidationError("invalid principal")
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Product{}, NewValidationError("name required")
	}
	if strings.TrimSpace(in.CropType) == "" {
		return model.Product{}, NewValidationError("crop_type required")
	}
	if !in.Price.IsPositive() {
		return model.Product{}, NewValidationError("price must be > 0")
	}
	if in.Stock < 0 {
		return model.Product{}, NewValidationError("stock must be >= 0")
	}

	var created model.Product

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		candidates, err := r.Users().ListByRole(ctx, model.RoleRetailer)
		if err != nil {
			return NewPersistenceError("list retailers", err)
		}

		retailerID, err := u.policy(p.UserID, strings.TrimSpace(in.CropType), candidates)
		if err != nil {
			return err
		}

		//ポリシーが返したidがまだ小売か確認する（古い読み取りを信用しない）
		if err := verifyRetailer(ctx, r, retailerID); err != nil {
			return err
		}

		now := time.Now()
		created, err = r.Products().Create(ctx, model.Product{
			Name:        strings.TrimSpace(in.Name),
			CropType:    strings.TrimSpace(in.CropType),
			Description: in.Description,
			Price:       in.Price,
			Stock:       in.Stock,
			ProducerID:  p.UserID,
			RetailerID:  &retailerID,
			Status:      model.ProductStatusAvailable,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return NewPersistenceError("create product", err)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}

	u.logger.Info("product created",
		zap.Int64("product_id", created.ID),
		zap.Int64("producer_id", created.ProducerID),
		zap.Int64p("retailer_id", created.RetailerID))
	return created, nil
}

type UpdateProductInput struct {
	Name        string
	CropType    string
	Description string
	Price       decimal.Decimal
	Status      model.ProductStatus
}

// 出品内容の更新。農家は自分の商品しか触れない（他人のは存在しない扱い）。
// 在庫はここでは動かせない（管理者調整か注文フローのみ）。
func (u *ProductUsecase) UpdateProduct(ctx context.Context, p Principal, productID int64, in UpdateProductInput) (model.Product, error) {
	if !p.Valid() {
		return model.Product{}, NewValidationError("invalid principal")
	}
	if productID <= 0 {
		return model.Product{}, NewValidationError("invalid product id")
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Product{}, NewValidationError("name required")
	}
	if strings.TrimSpace(in.CropType) == "" {
		return model.Product{}, NewValidationError("crop_type required")
	}
	if !in.Price.IsPositive() {
		return model.Product{}, NewValidationError("price must be > 0")
	}
	switch in.Status {
	case model.ProductStatusAvailable, model.ProductStatusUnavailable:
	default:
		return model.Product{}, NewValidationError("invalid status")
	}

	prod, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewNotFoundError("product", productID)
	}
	if err != nil {
		return model.Product{}, NewPersistenceError("load product", err)
	}
	if p.Role == model.RoleFarmer && prod.ProducerID != p.UserID {
		return model.Product{}, NewNotFoundError("product", productID)
	}

	prod.Name = strings.TrimSpace(in.Name)
	prod.CropType = strings.TrimSpace(in.CropType)
	prod.Description = in.Description
	prod.Price = in.Price
	prod.Status = in.Status
	prod.UpdatedAt = time.Now()

	if err := u.productRepo.Update(ctx, prod); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.Product{}, NewNotFoundError("product", productID)
		}
		return model.Product{}, NewPersistenceError("update product", err)
	}
	return prod, nil
}

// 出品取り下げ（soft delete）。既存注文の明細は残る。
func (u *ProductUsecase) DeleteProduct(ctx context.Context, p Principal, productID int64) error {
	if !p.Valid() {
		return NewValidationError("invalid principal")
	}
	if productID <= 0 {
		return NewValidationError("invalid product id")
	}

	prod, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError("product", productID)
	}
	if err != nil {
		return NewPersistenceError("load product", err)
	}
	if p.Role == model.RoleFarmer && prod.ProducerID != p.UserID {
		return NewNotFoundError("product", productID)
	}

	if err := u.productRepo.SoftDelete(ctx, productID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("product", productID)
		}
		return NewPersistenceError("delete product", err)
	}

	u.logger.Info("product deleted",
		zap.Int64("product_id", productID),
		zap.Int64("actor_id", p.UserID))
	return nil
}

// 明示的な割当（出品済み商品に小売を付ける）
func (u *ProductUsecase) AssignProduct(ctx context.Context, p Principal, productID int64, retailerID int64) error {
	return u.reassign(ctx, p, productID, retailerID)
}

// 管理者による小売の付け替え。既存注文の明細側コピーは動かない。
func (u *ProductUsecase) ReassignRetailer(ctx context.Context, p Principal, productID int64, newRetailerID int64) error {
	return u.reassign(ctx, p, productID, newRetailerID)
}

func (u *ProductUsecase) reassign(ctx context.Context, p Principal, productID int64, retailerID int64) error {
	if !p.Valid() {
		return NewValidationError("invalid principal")
	}
	if productID <= 0 {
		return NewValidationError("invalid product id")
	}
	if retailerID <= 0 {
		return NewValidationError("invalid retailer id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		prod, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("product", productID)
		}
		if err != nil {
			return NewPersistenceError("load product", err)
		}

		if err := verifyRetailer(ctx, r, retailerID); err != nil {
			return err
		}

		if err := r.Products().UpdateRetailer(ctx, productID, retailerID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewNotFoundError("product", productID)
			}
			return NewPersistenceError("update retailer", err)
		}

		before := int64(0)
		if prod.RetailerID != nil {
			before = *prod.RetailerID
		}
		err = r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  p.UserID,
			Action:       model.AuditActionReassignRetailer,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   fmt.Sprintf(`{"retailer_id":%d}`, before),
			AfterJSON:    fmt.Sprintf(`{"retailer_id":%d}`, retailerID),
			CreatedAt:    time.Now(),
		})
		if err != nil {
			return NewPersistenceError("create audit log", err)
		}
		return nil
	})
}

// 管理者による在庫の現在値調整。台帳と監査ログも同時に書く。
func (u *ProductUsecase) AdminSetStock(ctx context.Context, p Principal, productID int64, newStock int64, reason string) error {
	if !p.Valid() {
		return NewValidationError("invalid principal")
	}
	if productID <= 0 {
		return NewValidationError("invalid product id")
	}
	if newStock < 0 {
		return NewValidationError("stock must be >= 0")
	}
	if strings.TrimSpace(reason) == "" {
		return NewValidationError("reason required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		prod, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewNotFoundError("product", productID)
		}
		if err != nil {
			return NewPersistenceError("load product", err)
		}

		if err := r.Inventory().SetStock(ctx, productID, newStock); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewNotFoundError("product", productID)
			}
			return NewPersistenceError("set stock", err)
		}

		if err := r.Inventory().CreateMovement(ctx, model.StockMovement{
			ProductID:   productID,
			ActorUserID: p.UserID,
			Delta:       newStock - prod.Stock,
			Reason:      model.StockMovementAdjust,
			CreatedAt:   time.Now(),
		}); err != nil {
			return NewPersistenceError("create stock movement", err)
		}

		err = r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  p.UserID,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   fmt.Sprintf(`{"stock":%d}`, prod.Stock),
			AfterJSON:    fmt.Sprintf(`{"stock":%d}`, newStock),
			CreatedAt:    time.Now(),
		})
		if err != nil {
			return NewPersistenceError("create audit log", err)
		}
		return nil
	})
}

type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	CropType string
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewValidationError("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewValidationError("invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewValidationError("q too long")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, NewValidationError("invalid sort")
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		CropType: strings.TrimSpace(in.CropType),
		Sort:     in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, NewPersistenceError("list products", err)
	}

	return ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewValidationError("invalid product id")
	}

	prod, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, NewNotFoundError("product", productID)
	}
	if err != nil {
		return model.Product{}, NewPersistenceError("load product", err)
	}
	return prod, nil
}

func verifyRetailer(ctx context.Context, r repo.TxRepos, retailerID int64) error {
	ru, err := r.Users().FindByID(ctx, retailerID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFoundError("retailer", retailerID)
	}
	if err != nil {
		return NewPersistenceError("load retailer", err)
	}
	if ru.Role != model.RoleRetailer || !ru.IsActive {
		return NewValidationError("user is not a retailer")
	}
	return nil
}
