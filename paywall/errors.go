package paywall

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrPaymentCreate       = errors.New("payment create failed")
	ErrPaymentCapture      = errors.New("payment capture failed")
	ErrPaymentVerification = errors.New("payment verification failed")
)
