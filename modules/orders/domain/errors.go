package domain

import "errors"

var (
	ErrInvalidRequest        = errors.New("invalid request")
	ErrOrderNotFound         = errors.New("order not found")
	ErrDuplicateIntent       = errors.New("an order already exists for this gateway intent")
	ErrPersistence           = errors.New("order persistence failed")
	ErrIntentIDRequired      = errors.New("gateway intent id is required")
	ErrTotalNotPositive      = errors.New("order total must be positive")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrCustomerNameRequired  = errors.New("customer name is required")
	ErrCustomerEmailRequired = errors.New("customer email is required")
	ErrCustomerEmailInvalid  = errors.New("customer email is invalid")
	ErrPaymentNotConfirmed   = errors.New("payment has not been confirmed for this order")
)
