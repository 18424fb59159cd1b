package inventory

import "errors"

var (
	ErrProductNotFound = errors.New("inventory: product not found")
	ErrInvalidMovement = errors.New("inventory: invalid movement")
)
