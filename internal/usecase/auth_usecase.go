package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"strings"
	"time"

	"air5star/internal/config"
	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidatePassword(ctx context.Context, password string) error
}

type UserDTO struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Role        model.Role `json:"role"`
	IsActive    bool       `json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type TokenDTO struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	ExpiresIn   int       `json:"expiresIn"`
}

type AuthResponse struct {
	User  UserDTO  `json:"user"`
	Token TokenDTO `json:"token"`
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"max=30"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	Phone string `json:"phone" validate:"max=30"`
}

type ForgotPasswordInput struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type AuthUsecase struct {
	users     repo.UserRepository
	resets    repo.PasswordResetRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	mailer    Mailer
	validator AuthValidator
	clock     Clock
	logger    *zap.Logger

	accessTTL time.Duration
	adminTTL  time.Duration
	resetTTL  time.Duration
	feURL     string

	// メール送信はリクエストを待たせない
	runAsync func(func())
}

type AuthDeps struct {
	Config    *config.Config
	Users     repo.UserRepository
	Resets    repo.PasswordResetRepository
	Hasher    PasswordHasher
	Tokens    TokenIssuer
	Mailer    Mailer
	Validator AuthValidator
	Clock     Clock
	Logger    *zap.Logger
}

func NewAuthUsecase(d AuthDeps) *AuthUsecase {
	return &AuthUsecase{
		users:     d.Users,
		resets:    d.Resets,
		hasher:    d.Hasher,
		tokens:    d.Tokens,
		mailer:    d.Mailer,
		validator: d.Validator,
		clock:     d.Clock,
		logger:    d.Logger,
		accessTTL: d.Config.Auth.AccessTTL,
		adminTTL:  d.Config.Admin.TokenTTL,
		resetTTL:  d.Config.Auth.ResetTokenTTL,
		feURL:     strings.TrimRight(d.Config.Frontend.URL, "/"),
		runAsync:  func(fn func()) { go fn() },
	}
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (AuthResponse, error) {
	email := normalizeEmail(in.Email)
	if err := u.validator.ValidateRegister(ctx, email, in.Password); err != nil {
		return AuthResponse{}, err
	}

	//パスワードは必ずハッシュ化して保存
	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return AuthResponse{}, internalError(err, "hash password")
	}

	user := &model.User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         model.RoleCustomer,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return AuthResponse{}, conflict("email already registered")
		}
		return AuthResponse{}, internalError(err, "create user")
	}

	return u.issue(user, u.accessTTL)
}

// 顧客ログイン（bearer token）
func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (AuthResponse, error) {
	user, err := u.authenticate(ctx, in)
	if err != nil {
		return AuthResponse{}, err
	}
	return u.issue(user, u.accessTTL)
}

// 管理者ログイン。tokenはcookieに入れる
func (u *AuthUsecase) AdminLogin(ctx context.Context, in LoginInput) (AuthResponse, error) {
	user, err := u.authenticate(ctx, in)
	if err != nil {
		return AuthResponse{}, err
	}
	if !user.IsAdmin() {
		return AuthResponse{}, forbidden("admin access required")
	}
	return u.issue(user, u.adminTTL)
}

func (u *AuthUsecase) authenticate(ctx context.Context, in LoginInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if err := u.validator.ValidateLogin(ctx, email, in.Password); err != nil {
		return nil, err
	}

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, internalError(err, "find user")
	}
	if !u.hasher.Verify(in.Password, user.PasswordHash) {
		return nil, unauthorized("invalid email or password")
	}
	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, forbidden("account is disabled")
	}

	now := u.clock.Now()
	if err := u.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// 失敗してもログインは通す
		u.logger.Warn("update last login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}
	return user, nil
}

func (u *AuthUsecase) issue(user *model.User, ttl time.Duration) (AuthResponse, error) {
	token, exp, err := u.tokens.Issue(user, ttl, u.clock.Now())
	if err != nil {
		return AuthResponse{}, internalError(err, "issue token")
	}
	return AuthResponse{
		User: toUserDTO(user),
		Token: TokenDTO{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresAt:   exp,
			ExpiresIn:   int(ttl.Seconds()),
		},
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (UserDTO, error) {
	if userID <= 0 {
		return UserDTO{}, unauthorized("unauthorized")
	}
	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return UserDTO{}, unauthorized("unauthorized")
	}
	if err != nil {
		return UserDTO{}, internalError(err, "find user")
	}
	if !user.IsActive {
		return UserDTO{}, forbidden("account is disabled")
	}
	return toUserDTO(user), nil
}

func (u *AuthUsecase) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (UserDTO, error) {
	if userID <= 0 {
		return UserDTO{}, unauthorized("unauthorized")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return UserDTO{}, validationError("name is required")
	}
	if err := u.users.UpdateProfile(ctx, userID, name, strings.TrimSpace(in.Phone)); err != nil {
		return UserDTO{}, notFoundOrInternal(err, "user")
	}
	return u.Me(ctx, userID)
}

// 登録の有無に関わらず同じ応答を返す
func (u *AuthUsecase) ForgotPassword(ctx context.Context, in ForgotPasswordInput) SuccessResponse {
	resp := SuccessResponse{Message: "if the email is registered, a reset link has been sent"}

	user, err := u.users.FindByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			u.logger.Error("forgot password lookup failed", zap.Error(err))
		}
		return resp
	}
	if !user.IsActive {
		return resp
	}

	plain, hash, err := newRandomTokenAndHash()
	if err != nil {
		u.logger.Error("generate reset token failed", zap.Error(err))
		return resp
	}
	if err := u.resets.Create(ctx, model.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hash,
		ExpiresAt: u.clock.Now().Add(u.resetTTL),
	}); err != nil {
		u.logger.Error("store reset token failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return resp
	}

	link := u.feURL + "/reset-password?token=" + url.QueryEscape(plain)
	to := user.Email
	bg := context.WithoutCancel(ctx)
	u.runAsync(func() {
		if err := u.mailer.SendPasswordReset(bg, to, link); err != nil {
			u.logger.Error("send reset mail failed", zap.Int64("user_id", user.ID), zap.Error(err))
		}
	})
	return resp
}

// 使い捨て。成功したら既存のtokenは全て無効
func (u *AuthUsecase) ResetPassword(ctx context.Context, in ResetPasswordInput) (SuccessResponse, error) {
	if strings.TrimSpace(in.Token) == "" {
		return SuccessResponse{}, validationError("token is required")
	}
	if err := u.validator.ValidatePassword(ctx, in.Password); err != nil {
		return SuccessResponse{}, err
	}

	invalid := validationError("invalid or expired reset token")

	t, err := u.resets.FindByTokenHash(ctx, hashToken(in.Token))
	if errors.Is(err, repo.ErrNotFound) {
		return SuccessResponse{}, invalid
	}
	if err != nil {
		return SuccessResponse{}, internalError(err, "find reset token")
	}
	now := u.clock.Now()
	if !t.IsUsable(now) {
		return SuccessResponse{}, invalid
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return SuccessResponse{}, internalError(err, "hash password")
	}
	if err := u.resets.MarkUsed(ctx, t.ID, now); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return SuccessResponse{}, invalid
		}
		return SuccessResponse{}, internalError(err, "mark reset token used")
	}
	if err := u.users.UpdatePassword(ctx, t.UserID, hash); err != nil {
		return SuccessResponse{}, internalError(err, "update password")
	}
	if _, err := u.users.IncrementTokenVersion(ctx, t.UserID); err != nil {
		return SuccessResponse{}, internalError(err, "bump token version")
	}
	return SuccessResponse{Message: "password has been reset"}, nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// 再設定token生成（平文 + DB保存hash）
func newRandomTokenAndHash() (plain string, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, hashToken(plain), nil
}

func hashToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
