package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	repo "app/internal/repository"
	"app/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func farmer(id int64) usecase.Principal {
	return usecase.Principal{UserID: id, Role: model.RoleFarmer}
}

func activeRetailer(id int64) *model.User {
	return &model.User{ID: id, Role: model.RoleRetailer, IsActive: true}
}

func newProductFixture(policy usecase.AssignmentPolicy) (*usecase.ProductUsecase, *TxManagerMock, *ProductRepoMock, *InventoryRepoMock, *UserRepoMock, *AuditRepoMock) {
	products := new(ProductRepoMock)
	inventory := new(InventoryRepoMock)
	users := new(UserRepoMock)
	audit := new(AuditRepoMock)

	tx := &TxManagerMock{Repos: &TxReposStub{
		products:  products,
		inventory: inventory,
		users:     users,
		auditLogs: audit,
	}}

	uc := usecase.NewProductUsecase(tx, products, policy)
	return uc, tx, products, inventory, users, audit
}

func TestCreateProduct_AssignsRetailerViaPolicy(t *testing.T) {
	uc, tx, products, _, users, _ := newProductFixture(usecase.FirstRetailerPolicy)

	tx.On("WithinTx", mock.Anything).Return()
	users.On("ListByRole", mock.Anything, model.RoleRetailer).
		Return([]model.User{*activeRetailer(200)}, nil)
	users.On("FindByID", mock.Anything, int64(200)).Return(activeRetailer(200), nil)

	products.On("Create", mock.Anything, mock.MatchedBy(func(p model.Product) bool {
		return p.Name == "tomato" &&
			p.ProducerID == 100 &&
			p.RetailerID != nil && *p.RetailerID == 200 &&
			p.Status == model.ProductStatusAvailable
	})).Return(model.Product{ID: 1, Name: "tomato", ProducerID: 100}, nil)

	got, err := uc.CreateProduct(context.Background(), farmer(100), usecase.CreateProductInput{
		Name:     "tomato",
		CropType: "vegetable",
		Price:    decimal.RequireFromString("10.00"),
		Stock:    5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
	products.AssertExpectations(t)
}

func TestCreateProduct_NoRetailerAvailable(t *testing.T) {
	uc, tx, _, _, users, _ := newProductFixture(usecase.FirstRetailerPolicy)

	tx.On("WithinTx", mock.Anything).Return()
	users.On("ListByRole", mock.Anything, model.RoleRetailer).Return([]model.User{}, nil)

	_, err := uc.CreateProduct(context.Background(), farmer(100), usecase.CreateProductInput{
		Name:     "tomato",
		CropType: "vegetable",
		Price:    decimal.RequireFromString("10.00"),
		Stock:    5,
	})

	_, ok := usecase.AsNotFoundError(err)
	assert.True(t, ok)
}

// ポリシーの読み取りが古く、選ばれたユーザーがもう小売でない場合は弾く
func TestCreateProduct_StaleRetailerRejected(t *testing.T) {
	stale := func(producerID int64, cropType string, candidates []model.User) (int64, error) {
		return 200, nil
	}
	uc, tx, _, _, users, _ := newProductFixture(stale)

	tx.On("WithinTx", mock.Anything).Return()
	users.On("ListByRole", mock.Anything, model.RoleRetailer).Return([]model.User{}, nil)
	users.On("FindByID", mock.Anything, int64(200)).
		Return(&model.User{ID: 200, Role: model.RoleCustomer, IsActive: true}, nil)

	_, err := uc.CreateProduct(context.Background(), farmer(100), usecase.CreateProductInput{
		Name:     "tomato",
		CropType: "vegetable",
		Price:    decimal.RequireFromString("10.00"),
		Stock:    5,
	})

	_, ok := usecase.AsValidationError(err)
	assert.True(t, ok)
	assertErrContains(t, err, "not a retailer")
}

func TestCreateProduct_InvalidInput(t *testing.T) {
	uc, _, _, _, _, _ := newProductFixture(usecase.FirstRetailerPolicy)

	cases := []struct {
		name string
		in   usecase.CreateProductInput
		want string
	}{
		{"empty name", usecase.CreateProductInput{CropType: "v", Price: decimal.RequireFromString("1.00")}, "name required"},
		{"empty crop", usecase.CreateProductInput{Name: "n", Price: decimal.RequireFromString("1.00")}, "crop_type required"},
		{"zero price", usecase.CreateProductInput{Name: "n", CropType: "v", Price: decimal.Zero}, "price"},
		{"negative stock", usecase.CreateProductInput{Name: "n", CropType: "v", Price: decimal.RequireFromString("1.00"), Stock: -1}, "stock"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.CreateProduct(context.Background(), farmer(100), tc.in)
			assertErrContains(t, err, tc.want)
		})
	}
}

// 付け替えは旧小売と新小売の両方を監査ログに残す
func TestReassignRetailer_WritesAudit(t *testing.T) {
	uc, tx, products, _, users, audit := newProductFixture(usecase.FirstRetailerPolicy)

	old := int64(200)
	tx.On("WithinTx", mock.Anything).Return()
	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, RetailerID: &old}, nil)
	users.On("FindByID", mock.Anything, int64(300)).Return(activeRetailer(300), nil)
	products.On("UpdateRetailer", mock.Anything, int64(1), int64(300)).Return(nil)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionReassignRetailer &&
			l.ResourceID == 1 &&
			l.BeforeJSON == `{"retailer_id":200}` &&
			l.AfterJSON == `{"retailer_id":300}`
	})).Return(nil)

	err := uc.ReassignRetailer(context.Background(), admin(1), 1, 300)
	require.NoError(t, err)
	audit.AssertExpectations(t)
}

func TestReassignRetailer_ProductNotFound(t *testing.T) {
	uc, tx, products, _, _, _ := newProductFixture(usecase.FirstRetailerPolicy)

	tx.On("WithinTx", mock.Anything).Return()
	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{}, repo.ErrNotFound)

	err := uc.ReassignRetailer(context.Background(), admin(1), 1, 300)

	_, ok := usecase.AsNotFoundError(err)
	assert.True(t, ok)
}

// 在庫調整は差分を台帳へ、前後の値を監査ログへ書く
func TestAdminSetStock_RecordsDelta(t *testing.T) {
	uc, tx, products, inventory, _, audit := newProductFixture(usecase.FirstRetailerPolicy)

	tx.On("WithinTx", mock.Anything).Return()
	products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{ID: 1, Stock: 5}, nil)
	inventory.On("SetStock", mock.Anything, int64(1), int64(8)).Return(nil)
	inventory.On("CreateMovement", mock.Anything, mock.MatchedBy(func(m model.StockMovement) bool {
		return m.ProductID == 1 && m.Delta == 3 && m.Reason == model.StockMovementAdjust
	})).Return(nil)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateStock &&
			l.BeforeJSON == `{"stock":5}` &&
			l.AfterJSON == `{"stock":8}`
	})).Return(nil)

	err := uc.AdminSetStock(context.Background(), admin(1), 1, 8, "manual recount")
	require.NoError(t, err)
	inventory.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestAdminSetStock_RequiresReason(t *testing.T) {
	uc, _, _, _, _, _ := newProductFixture(usecase.FirstRetailerPolicy)

	err := uc.AdminSetStock(context.Background(), admin(1), 1, 8, "  ")
	assertErrContains(t, err, "reason required")
}

// 農家は自分の商品しか更新できない（他人のは存在しない扱い）
func TestUpdateProduct_OwnershipHidden(t *testing.T) {
	uc, _, products, _, _, _ := newProductFixture(usecase.FirstRetailerPolicy)

	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, ProducerID: 100}, nil)

	_, err := uc.UpdateProduct(context.Background(), farmer(999), 1, usecase.UpdateProductInput{
		Name:     "tomato",
		CropType: "vegetable",
		Price:    decimal.RequireFromString("12.00"),
		Status:   model.ProductStatusAvailable,
	})

	_, ok := usecase.AsNotFoundError(err)
	assert.True(t, ok)
}

func TestUpdateProduct_Success(t *testing.T) {
	uc, _, products, _, _, _ := newProductFixture(usecase.FirstRetailerPolicy)

	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, ProducerID: 100, Stock: 5}, nil)
	products.On("Update", mock.Anything, mock.MatchedBy(func(p model.Product) bool {
		//在庫は据え置き、価格とステータスだけ更新される
		return p.ID == 1 &&
			p.Stock == 5 &&
			p.Price.Equal(decimal.RequireFromString("12.00")) &&
			p.Status == model.ProductStatusUnavailable
	})).Return(nil)

	got, err := uc.UpdateProduct(context.Background(), farmer(100), 1, usecase.UpdateProductInput{
		Name:     "tomato",
		CropType: "vegetable",
		Price:    decimal.RequireFromString("12.00"),
		Status:   model.ProductStatusUnavailable,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ProductStatusUnavailable, got.Status)
	products.AssertExpectations(t)
}

func TestDeleteProduct_OwnerOnly(t *testing.T) {
	uc, _, products, _, _, _ := newProductFixture(usecase.FirstRetailerPolicy)

	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, ProducerID: 100}, nil)

	err := uc.DeleteProduct(context.Background(), farmer(999), 1)
	_, ok := usecase.AsNotFoundError(err)
	assert.True(t, ok)
}

func TestDeleteProduct_AdminBypassesOwnership(t *testing.T) {
	uc, _, products, _, _, _ := newProductFixture(usecase.FirstRetailerPolicy)

	products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, ProducerID: 100}, nil)
	products.On("SoftDelete", mock.Anything, int64(1)).Return(nil)

	err := uc.DeleteProduct(context.Background(), admin(1), 1)
	require.NoError(t, err)
	products.AssertExpectations(t)
}

func TestListPublicProducts_Validation(t *testing.T) {
	uc, _, _, _, _, _ := newProductFixture(usecase.FirstRetailerPolicy)

	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 0, Limit: 20})
	assertErrContains(t, err, "invalid page")

	_, err = uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 1, Limit: 101})
	assertErrContains(t, err, "invalid limit")

	_, err = uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 1, Limit: 20, Sort: "bogus"})
	assertErrContains(t, err, "invalid sort")
}
