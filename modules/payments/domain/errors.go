package domain

import "errors"

var (
	ErrGateway          = errors.New("payment gateway error")
	ErrSignatureInvalid = errors.New("payment signature is invalid")
	ErrNotConfigured    = errors.New("payment verification is not configured")
	ErrMalformedWebhook = errors.New("malformed webhook payload")
)
