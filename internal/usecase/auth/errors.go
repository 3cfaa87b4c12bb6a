// Package auth はセッション認証ユースケースの共通処理を提供します
package auth

import (
	"errors"

	"github.com/jborjar/paquetes/internal/domain/service"
	"github.com/jborjar/paquetes/pkg/apperror"
)

// MapSessionError はSessionServiceのエラーをAppErrorに変換します
// ストレージ障害は認証失敗ではなく503として扱います
func MapSessionError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperror.As(err); ok {
		return err
	}

	switch {
	case service.IsStorageError(err):
		return apperror.NewStorageUnavailableError(err)
	case errors.Is(err, service.ErrInvalidUsername):
		return apperror.NewValidationError(err.Error(), []apperror.FieldError{
			{Field: "username", Message: err.Error()},
		})
	case errors.Is(err, service.ErrInvalidMaxSessions):
		return apperror.NewValidationError(err.Error(), []apperror.FieldError{
			{Field: "max_sessions", Message: err.Error()},
		})
	case errors.Is(err, service.ErrSessionIDCollision):
		return apperror.NewServiceUnavailableError(err.Error())
	default:
		return apperror.NewInternalError(err)
	}
}
