package validator

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jborjar/paquetes/internal/domain/authz"
	"github.com/jborjar/paquetes/pkg/apperror"
)

var (
	// ユーザー名に使用できる文字
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._@+-]+$`)
	// "subsystem:permission" または単純なスコープ。サブシステムにはワイルドカードを許可
	scopePattern = regexp.MustCompile(`^[A-Za-z0-9_.*-]+(:[A-Za-z0-9_.-]+)?$`)
)

// CustomValidator はEcho用のカスタムバリデーターです
type CustomValidator struct {
	validator *validator.Validate
}

// NewCustomValidator は新しいCustomValidatorを作成します
func NewCustomValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(fieldName)

	_ = v.RegisterValidation("username", validateUsername)
	_ = v.RegisterValidation("scopes", validateScopes)

	return &CustomValidator{validator: v}
}

// Validate はリクエストを検証します
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors はバリデーションエラーをフォーマットします
func (cv *CustomValidator) formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperror.NewValidationError(err.Error(), nil)
	}

	details := make([]apperror.FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, apperror.FieldError{
			Field:   e.Field(),
			Message: getValidationMessage(e),
		})
	}

	return apperror.NewValidationError("validation failed", details)
}

// validateUsername はユーザー名のバリデーション
func validateUsername(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return name != "" && len(name) <= 128 && usernamePattern.MatchString(name)
}

// validateScopes はカンマ区切りスコープ文字列のバリデーション
// 空文字列はスコープなしとして許可します
func validateScopes(fl validator.FieldLevel) bool {
	for _, scope := range authz.ParseScopes(fl.Field().String()) {
		if !scopePattern.MatchString(scope) {
			return false
		}
	}
	return true
}

// getValidationMessage はバリデーションエラーメッセージを返します
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must be at least " + e.Param() + unit(e)
	case "max":
		return "must be at most " + e.Param() + unit(e)
	case "uuid":
		return "must be a valid UUID"
	case "username":
		return "must contain only letters, digits and . _ @ + -"
	case "scopes":
		return "must be a comma separated list of scopes (name or subsystem:permission)"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "validation failed"
	}
}

func unit(e validator.FieldError) string {
	if e.Kind() == reflect.String {
		return " characters"
	}
	return ""
}

// fieldName はエラー詳細に出すフィールド名を、クライアントが送ったキー名に揃えます
// json、query、param、formの順にタグを探し、なければsnake_caseにします
func fieldName(f reflect.StructField) string {
	for _, key := range []string{"json", "query", "param", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return toSnakeCase(f.Name)
}

// toSnakeCase はPascalCase/camelCaseをsnake_caseに変換します
func toSnakeCase(str string) string {
	var result []rune
	for i, r := range str {
		if i > 0 && 'A' <= r && r <= 'Z' {
			result = append(result, '_')
		}
		result = append(result, r)
	}
	return strings.ToLower(string(result))
}
