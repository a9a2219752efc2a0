package validator

import (
	"context"
	"net/http"
	"strings"
	"unicode"

	"air5star/internal/repository"
	"air5star/internal/usecase"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// パスワード最低文字数（bcryptは72byteまで）
const (
	minPasswordLen = 8
	maxPasswordLen = 72
)

type authValidator struct {
	users    repository.UserRepository
	validate *validator.Validate
}

// Usecaseは interface を依存注入
func NewAuthValidator(users repository.UserRepository, v *validator.Validate) usecase.AuthValidator {
	return &authValidator{users: users, validate: v}
}

// サインアップの入力を検証
func (v *authValidator) ValidateRegister(ctx context.Context, email string, password string) error {
	if err := v.checkEmail(email); err != nil {
		return err
	}
	if err := v.ValidatePassword(ctx, password); err != nil {
		return err
	}

	// email重複チェック（DBが必要）
	u, err := v.users.FindByEmail(ctx, email)
	if err == nil && u != nil {
		return usecase.NewHTTPError(http.StatusConflict, "email already registered")
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return errors.Wrap(err, "find user by email")
	}
	return nil
}

// ログインの入力を検証
func (v *authValidator) ValidateLogin(_ context.Context, email string, password string) error {
	if err := v.checkEmail(email); err != nil {
		return err
	}
	if password == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "password is required")
	}
	return nil
}

// 8〜72文字、英字と数字を含む
func (v *authValidator) ValidatePassword(_ context.Context, password string) error {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return usecase.NewHTTPError(http.StatusBadRequest, "password must be 8 to 72 characters")
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return usecase.NewHTTPError(http.StatusBadRequest, "password must contain letters and digits")
	}
	return nil
}

func (v *authValidator) checkEmail(email string) error {
	if strings.TrimSpace(email) == "" {
		return usecase.NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if err := v.validate.Var(email, "email,max=255"); err != nil {
		return usecase.NewHTTPError(http.StatusBadRequest, "invalid email")
	}
	return nil
}
