package auth

import (
	"strconv"
	"time"

	"air5star/internal/config"
	"air5star/internal/domain/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid token")

// トークンに載せる情報
type Claims struct {
	UserID       int64      `json:"userId"`
	Role         model.Role `json:"role"`
	Email        string     `json:"email"`
	TokenVersion int        `json:"tv"`
	jwt.RegisteredClaims
}

// HS256 で署名・検証する
type JWTService struct {
	secret []byte
}

func NewJWTService(cfg *config.Config) (*JWTService, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	return &JWTService{secret: []byte(cfg.Auth.JWTSecret)}, nil
}

// 有効期限付きで発行
func (s *JWTService) Issue(user *model.User, ttl time.Duration, now time.Time) (string, time.Time, error) {
	exp := now.Add(ttl)
	claims := Claims{
		UserID:       user.ID,
		Role:         user.Role,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, exp, nil
}

// 署名・期限・必須claimを確認
func (s *JWTService) Parse(raw string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	// sub と userId は同じ値
	if claims.UserID <= 0 || claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, ErrInvalidToken
	}
	if claims.Role != model.RoleCustomer && claims.Role != model.RoleAdmin {
		return nil, ErrInvalidToken
	}
	if claims.TokenVersion < 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
