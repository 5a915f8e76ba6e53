package server

import (
	"strconv"
	"time"

	"app/internal/metrics"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

func New() *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(echomw.Recover())
	e.Use(requestMetrics())

	return e
}

// リクエスト件数とレイテンシを記録する
func requestMetrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			method := c.Request().Method
			path := c.Path()
			code := strconv.Itoa(status)

			metrics.HTTPRequestsTotal.WithLabelValues(method, path, code).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(method, path, code).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
