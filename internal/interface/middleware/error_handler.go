package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jborjar/paquetes/pkg/apperror"
	"github.com/jborjar/paquetes/pkg/logger"
)

// ErrorResponse はエラーレスポンス構造を定義します
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody はエラー本体を定義します
type ErrorBody struct {
	Code    string                `json:"code"`
	Message string                `json:"message"`
	Details []apperror.FieldError `json:"details,omitempty"`
}

// CustomHTTPErrorHandler はエラーを {"error": {...}} 形式のJSONに変換します
// 5xxのエラーだけをログに出力します
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	appErr := toAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(c.Request().Context(), "request failed",
			"code", appErr.Code,
			"error", err.Error(),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(appErr.HTTPStatus)
		return
	}

	_ = c.JSON(appErr.HTTPStatus, ErrorResponse{
		Error: ErrorBody{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
		},
	})
}

// toAppError は任意のエラーをAppErrorに変換します
// Echo HTTPError（未定義ルート、ボディサイズ超過など）はステータスからコードを決めます
func toAppError(err error) *apperror.AppError {
	if appErr, ok := apperror.As(err); ok {
		return appErr
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return apperror.NewInternalError(err)
	}

	message := http.StatusText(he.Code)
	if m, ok := he.Message.(string); ok && m != "" {
		message = m
	}

	switch {
	case he.Code == http.StatusNotFound:
		return &apperror.AppError{Code: apperror.CodeNotFound, Message: message, HTTPStatus: he.Code}
	case he.Code == http.StatusUnauthorized:
		return &apperror.AppError{Code: apperror.CodeUnauthorized, Message: message, HTTPStatus: he.Code}
	case he.Code == http.StatusForbidden:
		return &apperror.AppError{Code: apperror.CodeForbidden, Message: message, HTTPStatus: he.Code}
	case he.Code == http.StatusTooManyRequests:
		return &apperror.AppError{Code: apperror.CodeRateLimitExceeded, Message: message, HTTPStatus: he.Code}
	case he.Code >= http.StatusInternalServerError:
		return apperror.NewInternalError(err)
	default:
		return &apperror.AppError{Code: apperror.CodeInvalidRequest, Message: message, HTTPStatus: he.Code}
	}
}
