package order

import "errors"

var (
	ErrEmptyOrder      = errors.New("order must contain at least one item")
	ErrInvalidQuantity = errors.New("item quantity must be positive")
	ErrOrderNotFound   = errors.New("order not found")
	ErrStatusNotFound  = errors.New("order status does not exist")
	ErrForbidden       = errors.New("operation not permitted for this caller")
	ErrInvalidState    = errors.New("only orders in the new status can be deleted")
)
