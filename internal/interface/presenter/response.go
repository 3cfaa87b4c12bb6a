// Package presenter はAPIの成功レスポンスを {data, meta} の形に揃えます
// エラーレスポンスは middleware.CustomHTTPErrorHandler が {"error": ...} で返します
package presenter

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response は成功レスポンスの外枠です
type Response struct {
	Data interface{} `json:"data"`
	Meta *Meta       `json:"meta"`
}

// Meta はデータ以外の付加情報です
type Meta struct {
	Message string `json:"message,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

func respond(c echo.Context, data interface{}, meta *Meta) error {
	return c.JSON(http.StatusOK, Response{Data: data, Meta: meta})
}

// OK はデータのみを返します。meta は null になります
func OK(c echo.Context, data interface{}) error {
	return respond(c, data, nil)
}

// Message はログアウトなど返すデータがない操作の結果を返します
func Message(c echo.Context, message string) error {
	return respond(c, nil, &Meta{Message: message})
}

// List はセッション一覧などを件数付きで返します
func List(c echo.Context, data interface{}, total int) error {
	return respond(c, data, &Meta{Total: &total})
}
