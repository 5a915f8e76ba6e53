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

// テスト用のインメモリキャッシュ。Redis実装と同じ契約（失敗は握る）で動く。
type mapOrderCache struct {
	store map[int64]usecase.OrderOutput
	hits  int
	sets  int
}

func newMapOrderCache() *mapOrderCache {
	return &mapOrderCache{store: map[int64]usecase.OrderOutput{}}
}

func (c *mapOrderCache) Get(ctx context.Context, orderID int64) (usecase.OrderOutput, bool) {
	out, ok := c.store[orderID]
	if ok {
		c.hits++
	}
	return out, ok
}

func (c *mapOrderCache) Set(ctx context.Context, out usecase.OrderOutput) {
	c.sets++
	c.store[out.ID] = out
}

func (c *mapOrderCache) Invalidate(ctx context.Context, orderID int64) {
	delete(c.store, orderID)
}

func newQueryFixture(cache usecase.OrderCache) (*usecase.OrderQueryUsecase, *TxManagerMock, *OrderRepoMock, *OrderItemRepoMock) {
	orders := new(OrderRepoMock)
	orderItems := new(OrderItemRepoMock)

	tx := &TxManagerMock{Repos: &TxReposStub{
		orders:     orders,
		orderItems: orderItems,
	}}

	uc := usecase.NewOrderQueryUsecase(tx, cache)
	return uc, tx, orders, orderItems
}

func storedOrder() (model.Order, []model.OrderItem) {
	did := int64(300)
	o := model.Order{
		ID:            7,
		CustomerID:    9,
		DistributorID: &did,
		Status:        model.OrderStatusShipped,
		TotalAmount:   decimal.RequireFromString("25.00"),
	}
	items := []model.OrderItem{
		{OrderID: 7, ProductID: 1, ProducerID: 100, RetailerID: 200, Quantity: 2, PriceAtPurchase: decimal.RequireFromString("10.00")},
		{OrderID: 7, ProductID: 3, ProducerID: 101, RetailerID: 200, Quantity: 1, PriceAtPurchase: decimal.RequireFromString("5.00")},
	}
	return o, items
}

func expectStoredOrder(tx *TxManagerMock, orders *OrderRepoMock, orderItems *OrderItemRepoMock) {
	o, items := storedOrder()
	tx.On("WithinTx", mock.Anything).Return()
	orders.On("FindByID", mock.Anything, int64(7)).Return(o, nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(7)).Return(items, nil)
}

// 関与している主体は読める／それ以外は存在しない扱い
func TestGetOrder_Visibility(t *testing.T) {
	cases := []struct {
		name    string
		p       usecase.Principal
		visible bool
	}{
		{"owner customer", customer(9), true},
		{"other customer", customer(10), false},
		{"assigned distributor", distributor(300), true},
		{"other distributor", distributor(301), false},
		{"item retailer", retailer(200), true},
		{"other retailer", retailer(201), false},
		{"item farmer", farmer(100), true},
		{"other farmer", farmer(999), false},
		{"admin", admin(1), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, tx, orders, orderItems := newQueryFixture(nil)
			expectStoredOrder(tx, orders, orderItems)

			out, err := uc.GetOrder(context.Background(), tc.p, 7)
			if tc.visible {
				require.NoError(t, err)
				assert.Equal(t, int64(7), out.ID)
				assert.Len(t, out.Items, 2)
			} else {
				_, ok := usecase.AsNotFoundError(err)
				assert.True(t, ok)
			}
		})
	}
}

// 2回目はキャッシュから返り、DBは1回しか叩かれない
func TestGetOrder_CacheAside(t *testing.T) {
	cache := newMapOrderCache()
	uc, tx, orders, orderItems := newQueryFixture(cache)
	expectStoredOrder(tx, orders, orderItems)

	_, err := uc.GetOrder(context.Background(), customer(9), 7)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	out, err := uc.GetOrder(context.Background(), customer(9), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), out.ID)
	assert.Equal(t, 1, cache.hits)
	orders.AssertNumberOfCalls(t, "FindByID", 1)
}

// キャッシュヒットでも可視性判定は省略しない
func TestGetOrder_CacheHitStillHidden(t *testing.T) {
	cache := newMapOrderCache()
	uc, tx, orders, orderItems := newQueryFixture(cache)
	expectStoredOrder(tx, orders, orderItems)

	_, err := uc.GetOrder(context.Background(), customer(9), 7)
	require.NoError(t, err)

	_, err = uc.GetOrder(context.Background(), customer(10), 7)
	_, ok := usecase.AsNotFoundError(err)
	assert.True(t, ok)
}

func TestGetOrder_NotFound(t *testing.T) {
	uc, tx, orders, _ := newQueryFixture(nil)

	tx.On("WithinTx", mock.Anything).Return()
	orders.On("FindByID", mock.Anything, int64(404)).Return(model.Order{}, repo.ErrNotFound)

	_, err := uc.GetOrder(context.Background(), customer(9), 404)

	_, ok := usecase.AsNotFoundError(err)
	assert.True(t, ok)
}

func TestListByCustomer_ExpandsItems(t *testing.T) {
	uc, tx, orders, orderItems := newQueryFixture(nil)

	o, items := storedOrder()
	tx.On("WithinTx", mock.Anything).Return()
	orders.On("ListByCustomerID", mock.Anything, int64(9), 1, 20).
		Return([]model.Order{o}, int64(1), nil)
	orderItems.On("ListByOrderID", mock.Anything, int64(7)).Return(items, nil)

	outs, err := uc.ListByCustomer(context.Background(), 9, 1, 20)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Len(t, outs[0].Items, 2)
	assert.True(t, outs[0].TotalAmount.Equal(decimal.RequireFromString("25.00")))
}

func TestList_PagingValidation(t *testing.T) {
	uc, _, _, _ := newQueryFixture(nil)

	_, err := uc.ListByCustomer(context.Background(), 9, 0, 20)
	assertErrContains(t, err, "invalid page")

	_, err = uc.ListByRetailer(context.Background(), 200, 1, 0)
	assertErrContains(t, err, "invalid limit")

	_, err = uc.ListByFarmer(context.Background(), 0, 1, 20)
	assertErrContains(t, err, "invalid id")
}

func TestListAdmin_PassesFilter(t *testing.T) {
	uc, tx, orders, _ := newQueryFixture(nil)

	f := repo.AdminOrderListFilter{Page: 1, Limit: 50, Status: string(model.OrderStatusPlaced)}

	tx.On("WithinTx", mock.Anything).Return()
	orders.On("ListAdmin", mock.Anything, f).Return([]model.Order{}, int64(0), nil)

	outs, err := uc.ListAdmin(context.Background(), f)
	require.NoError(t, err)
	assert.Empty(t, outs)
	orders.AssertExpectations(t)
}
