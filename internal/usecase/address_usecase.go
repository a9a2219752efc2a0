package usecase

import (
	"context"
	"strings"

	"air5star/internal/domain/model"
	repo "air5star/internal/repository"
)

// 作成・更新の入力
type AddressInput struct {
	FullName   string `json:"fullName" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"required,max=30"`
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2" validate:"max=255"`
	Landmark   string `json:"landmark" validate:"max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postalCode" validate:"required,max=20"`
	Country    string `json:"country" validate:"omitempty,len=2"`
	IsDefault  bool   `json:"isDefault"`
}

// 既定住所はユーザーごとに最大1件。切り替えはtx内で外してから付ける。
type AddressUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	clock     Clock
}

func NewAddressUsecase(tx repo.TransactionManager, addresses repo.AddressRepository, clock Clock) *AddressUsecase {
	return &AddressUsecase{tx: tx, addresses: addresses, clock: clock}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]model.Address, error) {
	if userID <= 0 {
		return nil, unauthorized("unauthorized")
	}
	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, internalError(err, "list addresses")
	}
	return list, nil
}

func (u *AddressUsecase) Get(ctx context.Context, userID, addressID int64) (model.Address, error) {
	return u.owned(ctx, u.addresses, userID, addressID)
}

// 最初の1件は自動で既定にする
func (u *AddressUsecase) Create(ctx context.Context, userID int64, in AddressInput) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, unauthorized("unauthorized")
	}

	var created model.Address
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, err := r.Addresses().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err, "list addresses")
		}

		makeDefault := in.IsDefault || len(existing) == 0
		if makeDefault && len(existing) > 0 {
			if err := r.Addresses().ClearDefault(ctx, userID); err != nil {
				return internalError(err, "clear default address")
			}
		}

		now := u.clock.Now()
		a := applyAddressInput(model.Address{UserID: userID, CreatedAt: now}, in)
		a.IsDefault = makeDefault
		a.UpdatedAt = now

		created, err = r.Addresses().Create(ctx, a)
		if err != nil {
			return internalError(err, "create address")
		}
		return nil
	})
	if err != nil {
		return model.Address{}, passOrInternal(err, "create address")
	}
	return created, nil
}

// isDefault=true なら既定にもする（falseでは外さない）
func (u *AddressUsecase) Update(ctx context.Context, userID, addressID int64, in AddressInput) (model.Address, error) {
	var updated model.Address
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := u.owned(ctx, r.Addresses(), userID, addressID)
		if err != nil {
			return err
		}

		a := applyAddressInput(cur, in)
		a.UpdatedAt = u.clock.Now()
		if err := r.Addresses().Update(ctx, a); err != nil {
			return notFoundOrInternal(err, "address")
		}

		if in.IsDefault && !cur.IsDefault {
			if err := switchDefault(ctx, r.Addresses(), userID, addressID); err != nil {
				return err
			}
			a.IsDefault = true
		}
		updated = a
		return nil
	})
	if err != nil {
		return model.Address{}, passOrInternal(err, "update address")
	}
	return updated, nil
}

// 既定を消したら残りの先頭を既定にする
func (u *AddressUsecase) Delete(ctx context.Context, userID, addressID int64) (SuccessResponse, error) {
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := u.owned(ctx, r.Addresses(), userID, addressID)
		if err != nil {
			return err
		}
		if err := r.Addresses().Delete(ctx, addressID); err != nil {
			return notFoundOrInternal(err, "address")
		}
		if !cur.IsDefault {
			return nil
		}

		rest, err := r.Addresses().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err, "list addresses")
		}
		if len(rest) == 0 {
			return nil
		}
		return switchDefault(ctx, r.Addresses(), userID, rest[0].ID)
	})
	if err != nil {
		return SuccessResponse{}, passOrInternal(err, "delete address")
	}
	return SuccessResponse{Message: "address deleted"}, nil
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID, addressID int64) (model.Address, error) {
	var out model.Address
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := u.owned(ctx, r.Addresses(), userID, addressID)
		if err != nil {
			return err
		}
		if err := switchDefault(ctx, r.Addresses(), userID, addressID); err != nil {
			return err
		}
		cur.IsDefault = true
		out = cur
		return nil
	})
	if err != nil {
		return model.Address{}, passOrInternal(err, "set default address")
	}
	return out, nil
}

// 本人の住所のみ。他人のものは403
func (u *AddressUsecase) owned(ctx context.Context, addresses repo.AddressRepository, userID, addressID int64) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, unauthorized("unauthorized")
	}
	if addressID <= 0 {
		return model.Address{}, validationError("invalid address id")
	}
	a, err := addresses.FindByID(ctx, addressID)
	if err != nil {
		return model.Address{}, notFoundOrInternal(err, "address")
	}
	if a.UserID != userID {
		return model.Address{}, forbidden("forbidden")
	}
	return a, nil
}

func switchDefault(ctx context.Context, addresses repo.AddressRepository, userID, addressID int64) error {
	if err := addresses.ClearDefault(ctx, userID); err != nil {
		return internalError(err, "clear default address")
	}
	if err := addresses.MarkDefault(ctx, userID, addressID); err != nil {
		return notFoundOrInternal(err, "address")
	}
	return nil
}

func applyAddressInput(a model.Address, in AddressInput) model.Address {
	a.FullName = strings.TrimSpace(in.FullName)
	a.Phone = strings.TrimSpace(in.Phone)
	a.Line1 = strings.TrimSpace(in.Line1)
	a.Line2 = strings.TrimSpace(in.Line2)
	a.Landmark = strings.TrimSpace(in.Landmark)
	a.City = strings.TrimSpace(in.City)
	a.State = strings.TrimSpace(in.State)
	a.PostalCode = strings.TrimSpace(in.PostalCode)
	a.Country = strings.ToUpper(strings.TrimSpace(in.Country))
	if a.Country == "" {
		a.Country = "IN"
	}
	return a
}
