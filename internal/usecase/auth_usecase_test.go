package usecase

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var authNow = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type authFixture struct {
	uc     *AuthUsecase
	users  *UserRepoMock
	resets *ResetRepoMock
	hasher *HasherMock
	tokens *TokenIssuerMock
	mailer *MailerMock
}

func newAuthFixture() authFixture {
	cfg := testConfig()
	cfg.Auth.AccessTTL = 24 * time.Hour
	cfg.Auth.ResetTokenTTL = time.Hour
	cfg.Admin.TokenTTL = 8 * time.Hour

	f := authFixture{
		users:  new(UserRepoMock),
		resets: new(ResetRepoMock),
		hasher: new(HasherMock),
		tokens: new(TokenIssuerMock),
		mailer: new(MailerMock),
	}
	f.uc = NewAuthUsecase(AuthDeps{
		Config:    cfg,
		Users:     f.users,
		Resets:    f.resets,
		Hasher:    f.hasher,
		Tokens:    f.tokens,
		Mailer:    f.mailer,
		Validator: passValidator{},
		Clock:     fixedClock{now: authNow},
		Logger:    zap.NewNop(),
	})
	// テストでは同期実行
	f.uc.runAsync = func(fn func()) { fn() }
	return f
}

func customer() *model.User {
	return &model.User{ID: 1, Email: "asha@example.com", PasswordHash: "hashed", Name: "Asha", Role: model.RoleCustomer, IsActive: true}
}

func TestAuthUsecase_Register(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	f.hasher.On("Hash", "password123").Return("hashed", nil)
	f.users.On("Create", ctx, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "asha@example.com" && u.Role == model.RoleCustomer && u.PasswordHash == "hashed"
	})).Return(nil).Once()
	f.tokens.On("Issue", mock.Anything, 24*time.Hour, authNow).Return("jwt", authNow.Add(24*time.Hour), nil)

	out, err := f.uc.Register(ctx, RegisterInput{Email: " Asha@Example.com ", Password: "password123", Name: "Asha"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.User.ID)
	assert.Equal(t, "jwt", out.Token.AccessToken)
	assert.Equal(t, "Bearer", out.Token.TokenType)
	assert.Equal(t, 86400, out.Token.ExpiresIn)
}

func TestAuthUsecase_Register_Duplicate(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.hasher.On("Hash", mock.Anything).Return("hashed", nil)
	f.users.On("Create", ctx, mock.Anything).Return(repo.ErrDuplicate)

	_, err := f.uc.Register(ctx, RegisterInput{Email: "asha@example.com", Password: "password123", Name: "Asha"})
	assert.Equal(t, CodeConflict, errCode(err))
}

func TestAuthUsecase_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.users.On("FindByEmail", ctx, "asha@example.com").Return(customer(), nil)
	f.hasher.On("Verify", "password123", "hashed").Return(true)
	f.users.On("UpdateLastLogin", ctx, int64(1), authNow).Return(nil)
	f.tokens.On("Issue", mock.Anything, 24*time.Hour, authNow).Return("jwt", authNow.Add(24*time.Hour), nil)

	out, err := f.uc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "password123"})
	require.NoError(t, err)
	require.NotNil(t, out.User.LastLoginAt)
	assert.Equal(t, authNow, *out.User.LastLoginAt)
}

func TestAuthUsecase_Login_Failures(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	f.users.On("FindByEmail", ctx, "ghost@example.com").Return(nil, repo.ErrNotFound)
	_, err := f.uc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "x"})
	assert.Equal(t, CodeUnauthorized, errCode(err))

	f.users.On("FindByEmail", ctx, "asha@example.com").Return(customer(), nil)
	f.hasher.On("Verify", "wrong", "hashed").Return(false)
	_, err = f.uc.Login(ctx, LoginInput{Email: "asha@example.com", Password: "wrong"})
	assert.Equal(t, CodeUnauthorized, errCode(err))

	disabled := customer()
	disabled.Email = "off@example.com"
	disabled.IsActive = false
	f.users.On("FindByEmail", ctx, "off@example.com").Return(disabled, nil)
	f.hasher.On("Verify", "password123", "hashed").Return(true)
	_, err = f.uc.Login(ctx, LoginInput{Email: "off@example.com", Password: "password123"})
	assert.Equal(t, CodeForbidden, errCode(err))

	f.tokens.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthUsecase_AdminLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.users.On("FindByEmail", ctx, "asha@example.com").Return(customer(), nil)
	f.hasher.On("Verify", "password123", "hashed").Return(true)
	f.users.On("UpdateLastLogin", ctx, int64(1), authNow).Return(nil)

	_, err := f.uc.AdminLogin(ctx, LoginInput{Email: "asha@example.com", Password: "password123"})
	assert.Equal(t, CodeForbidden, errCode(err))

	admin := customer()
	admin.ID = 9
	admin.Email = "admin@example.com"
	admin.Role = model.RoleAdmin
	f.users.On("FindByEmail", ctx, "admin@example.com").Return(admin, nil)
	f.users.On("UpdateLastLogin", ctx, int64(9), authNow).Return(nil)
	f.tokens.On("Issue", admin, 8*time.Hour, authNow).Return("admin-jwt", authNow.Add(8*time.Hour), nil)

	out, err := f.uc.AdminLogin(ctx, LoginInput{Email: "admin@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "admin-jwt", out.Token.AccessToken)
	assert.Equal(t, 8*3600, out.Token.ExpiresIn)
}

func TestAuthUsecase_ForgotPassword_SendsLink(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.users.On("FindByEmail", ctx, "asha@example.com").Return(customer(), nil)

	var stored model.PasswordResetToken
	f.resets.On("Create", ctx, mock.Anything).
		Run(func(args mock.Arguments) { stored = args.Get(1).(model.PasswordResetToken) }).
		Return(nil)

	var link string
	f.mailer.On("SendPasswordReset", mock.Anything, "asha@example.com", mock.Anything).
		Run(func(args mock.Arguments) { link = args.String(2) }).
		Return(nil).Once()

	out := f.uc.ForgotPassword(ctx, ForgotPasswordInput{Email: "asha@example.com"})
	assert.NotEmpty(t, out.Message)

	require.True(t, strings.HasPrefix(link, "http://localhost:3000/reset-password?token="))
	u, err := url.Parse(link)
	require.NoError(t, err)
	plain := u.Query().Get("token")
	assert.Equal(t, hashToken(plain), stored.TokenHash)
	assert.Equal(t, authNow.Add(time.Hour), stored.ExpiresAt)
	f.mailer.AssertExpectations(t)
}

func TestAuthUsecase_ForgotPassword_UnknownEmailSameResponse(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.users.On("FindByEmail", ctx, "ghost@example.com").Return(nil, repo.ErrNotFound)
	f.users.On("FindByEmail", ctx, "asha@example.com").Return(customer(), nil)
	f.resets.On("Create", ctx, mock.Anything).Return(nil)
	f.mailer.On("SendPasswordReset", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	unknown := f.uc.ForgotPassword(ctx, ForgotPasswordInput{Email: "ghost@example.com"})
	known := f.uc.ForgotPassword(ctx, ForgotPasswordInput{Email: "asha@example.com"})
	assert.Equal(t, known, unknown)
	f.mailer.AssertNumberOfCalls(t, "SendPasswordReset", 1)
}

func TestAuthUsecase_ResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	token := model.PasswordResetToken{ID: 5, UserID: 1, TokenHash: hashToken("plain-token"), ExpiresAt: authNow.Add(30 * time.Minute)}
	f.resets.On("FindByTokenHash", ctx, hashToken("plain-token")).Return(token, nil)
	f.hasher.On("Hash", "newpassword1").Return("new-hash", nil)
	f.resets.On("MarkUsed", ctx, int64(5), authNow).Return(nil).Once()
	f.users.On("UpdatePassword", ctx, int64(1), "new-hash").Return(nil).Once()
	f.users.On("IncrementTokenVersion", ctx, int64(1)).Return(3, nil).Once()

	_, err := f.uc.ResetPassword(ctx, ResetPasswordInput{Token: "plain-token", Password: "newpassword1"})
	require.NoError(t, err)
	f.users.AssertExpectations(t)
	f.resets.AssertExpectations(t)
}

func TestAuthUsecase_ResetPassword_Unusable(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()

	used := authNow.Add(-time.Minute)
	f.resets.On("FindByTokenHash", ctx, hashToken("used")).
		Return(model.PasswordResetToken{ID: 1, UserID: 1, ExpiresAt: authNow.Add(time.Hour), UsedAt: &used}, nil)
	f.resets.On("FindByTokenHash", ctx, hashToken("expired")).
		Return(model.PasswordResetToken{ID: 2, UserID: 1, ExpiresAt: authNow.Add(-time.Second)}, nil)
	f.resets.On("FindByTokenHash", ctx, hashToken("unknown")).Return(nil, repo.ErrNotFound)

	for _, tok := range []string{"used", "expired", "unknown"} {
		_, err := f.uc.ResetPassword(ctx, ResetPasswordInput{Token: tok, Password: "newpassword1"})
		assert.Equal(t, CodeValidation, errCode(err), tok)
	}
	f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdminUserUsecase_SetStatus(t *testing.T) {
	ctx := context.Background()
	users := new(UserRepoMock)
	audit := new(AuditRepoMock)
	uc := NewAdminUserUsecase(users, audit, fixedClock{now: authNow})

	inactive := false
	_, err := uc.SetStatus(ctx, 9, 9, UpdateUserStatusInput{IsActive: &inactive})
	assert.Equal(t, CodeValidation, errCode(err))

	users.On("FindByID", ctx, int64(1)).Return(customer(), nil)
	users.On("SetActive", ctx, int64(1), false).Return(nil).Once()
	users.On("IncrementTokenVersion", ctx, int64(1)).Return(1, nil).Once()
	audit.On("Create", ctx, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateUserStatus && l.ResourceID == 1 &&
			l.BeforeJSON == `{"isActive":true}` && l.AfterJSON == `{"isActive":false}`
	})).Return(nil).Once()

	out, err := uc.SetStatus(ctx, 9, 1, UpdateUserStatusInput{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, out.IsActive)
	users.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestAdminUserUsecase_ForceLogout(t *testing.T) {
	ctx := context.Background()
	users := new(UserRepoMock)
	audit := new(AuditRepoMock)
	uc := NewAdminUserUsecase(users, audit, fixedClock{now: authNow})

	u := customer()
	u.TokenVersion = 2
	users.On("FindByID", ctx, int64(1)).Return(u, nil)
	users.On("IncrementTokenVersion", ctx, int64(1)).Return(3, nil)
	audit.On("Create", ctx, mock.Anything).Return(nil)

	out, err := uc.ForceLogout(ctx, 9, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, out.NewTokenVersion)
}
