package validator

import (
	"net/http"
	"reflect"
	"strings"

	"air5star/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// echo.Validator の実装
type EchoValidator struct {
	validate *validator.Validate
}

// json タグ名でエラーを返す
func New() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func NewEchoValidator(v *validator.Validate) *EchoValidator {
	return &EchoValidator{validate: v}
}

// 失敗したらフィールドごとの理由を details に入れた400
func (ev *EchoValidator) Validate(i any) error {
	err := ev.validate.Struct(i)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	fields := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		fields[fieldPath(fe)] = describe(fe)
	}
	return usecase.NewValidationError("validation failed", map[string]any{"fields": fields})
}

// 先頭の構造体名を落とす（AddCartInput.productId -> productId）
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "len":
		return "must be " + fe.Param() + " characters"
	case "url":
		return "must be a valid url"
	}
	return "is invalid"
}
