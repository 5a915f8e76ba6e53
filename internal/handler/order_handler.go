package handler

import (
	"context"
	"net/http"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/middleware"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	checkout  *usecase.CheckoutUsecase
	lifecycle *usecase.OrderLifecycleUsecase
	queries   *usecase.OrderQueryUsecase
}

func NewOrderHandler(checkout *usecase.CheckoutUsecase, lifecycle *usecase.OrderLifecycleUsecase, queries *usecase.OrderQueryUsecase) *OrderHandler {
	return &OrderHandler{checkout: checkout, lifecycle: lifecycle, queries: queries}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))

	g.POST("", h.create, middleware.RequireRoles(model.RoleCustomer))
	g.GET("", h.listMine, middleware.RequireRoles(model.RoleCustomer))
	g.GET("/retailer", h.listRetailer, middleware.RequireRoles(model.RoleRetailer))
	g.GET("/farmer", h.listFarmer, middleware.RequireRoles(model.RoleFarmer))
	g.GET("/distributor", h.listDistributor, middleware.RequireRoles(model.RoleDistributor))
	g.GET("/:id", h.detail)

	//遷移ごとの呼び出しロールはここで縛る。状態の前提はコアが見る。
	g.POST("/:id/confirm", h.confirm, middleware.RequireRoles(model.RoleRetailer))
	g.POST("/:id/pack", h.pack, middleware.RequireRoles(model.RoleAdmin))
	g.POST("/:id/ship", h.ship, middleware.RequireRoles(model.RoleDistributor))
	g.POST("/:id/deliver", h.deliver, middleware.RequireRoles(model.RoleDistributor))
	g.POST("/:id/cancel", h.cancel, middleware.RequireRoles(model.RoleCustomer, model.RoleAdmin))
}

type orderCreateRequest struct {
	Items []usecase.CartRequestItem `json:"items"`
}

func (h *OrderHandler) create(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req orderCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	out, err := h.checkout.CreateOrder(c.Request().Context(), p, req.Items)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	out, err := h.queries.GetOrder(c.Request().Context(), p, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) listMine(c echo.Context) error {
	return h.listScoped(c, h.queries.ListByCustomer)
}

func (h *OrderHandler) listRetailer(c echo.Context) error {
	return h.listScoped(c, h.queries.ListByRetailer)
}

func (h *OrderHandler) listFarmer(c echo.Context) error {
	return h.listScoped(c, h.queries.ListByFarmer)
}

func (h *OrderHandler) listDistributor(c echo.Context) error {
	return h.listScoped(c, h.queries.ListByDistributor)
}

// 一覧は常に自分のidでしか引けない
func (h *OrderHandler) listScoped(c echo.Context, fetch func(ctx context.Context, id int64, page, limit int) ([]usecase.OrderOutput, error)) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	page, limit := parsePaging(c)
	outs, err := fetch(c.Request().Context(), p.UserID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, outs)
}

func (h *OrderHandler) confirm(c echo.Context) error {
	return h.transition(c, h.lifecycle.Confirm)
}

func (h *OrderHandler) ship(c echo.Context) error {
	return h.transition(c, h.lifecycle.Ship)
}

func (h *OrderHandler) deliver(c echo.Context) error {
	return h.transition(c, h.lifecycle.Deliver)
}

func (h *OrderHandler) cancel(c echo.Context) error {
	return h.transition(c, h.lifecycle.Cancel)
}

type packRequest struct {
	DistributorID int64 `json:"distributor_id"`
}

func (h *OrderHandler) pack(c echo.Context) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	var req packRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	if err := h.lifecycle.Pack(c.Request().Context(), p, id, req.DistributorID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *OrderHandler) transition(c echo.Context, fn func(ctx context.Context, p usecase.Principal, orderID int64) error) error {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	if err := fn(c.Request().Context(), p, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
