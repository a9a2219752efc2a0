package repository

import "errors"

var (
	// 対象なし
	ErrNotFound = errors.New("not found")
	// 一意制約違反（email / sku / code など）
	ErrDuplicate = errors.New("duplicate")
)
