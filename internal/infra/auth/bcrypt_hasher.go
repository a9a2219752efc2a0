package auth

import (
	"air5star/internal/config"

	"golang.org/x/crypto/bcrypt"
)

// bcryptハッシュ化と照合
type BcryptHasher struct {
	cost int
}

// DI
func NewBcryptHasher(cfg *config.Config) *BcryptHasher {
	cost := cfg.Auth.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// bcryptでハッシュ化
func (h *BcryptHasher) Hash(plain string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// 平文(plain)をbcryptで比較
func (h *BcryptHasher) Verify(plain string, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
