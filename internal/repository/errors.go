package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrDuplicateProduct   = errors.New("product with this head, size and color already exists")
	ErrInsufficientStock  = errors.New("inventory would drop below zero")
	ErrLineItemNotFound   = errors.New("line item not found")
	ErrLineItemConsumed   = errors.New("line item already consumed")
	ErrOrderNotFound      = errors.New("order not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrPaymentAlreadyPaid = errors.New("payment for this order is already paid")
	ErrStaleTransition    = errors.New("payment is no longer in the expected status")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileExists      = errors.New("profile already exists")
	ErrAddressNotFound    = errors.New("address not found")
	ErrDuplicateSessionID = errors.New("payment session id already recorded")
)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
