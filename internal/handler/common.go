package handler

import (
	"net/http"
	"strconv"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// usecaseのエラー種別をHTTPステータスに写す。
func writeError(c echo.Context, err error) error {
	if _, ok := usecase.AsValidationError(err); ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if _, ok := usecase.AsNotFoundError(err); ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	}
	if _, ok := usecase.AsInsufficientStockError(err); ok {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}
	if _, ok := usecase.AsInvalidStateTransitionError(err); ok {
		return c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	}
	if _, ok := usecase.AsUnauthenticatedError(err); ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parsePaging(c echo.Context) (page int, limit int) {
	page = 1
	limit = 50
	if v := c.QueryParam("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			page = n
		}
	}
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	return page, limit
}
