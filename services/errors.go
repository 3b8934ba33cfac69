package services

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound   = errors.New("order tidak ditemukan")
	ErrPaymentNotFound = errors.New("pembayaran tidak ditemukan")

	// ErrUnknownPaymentType rejects anything that is not dp/full before any I/O.
	ErrUnknownPaymentType = errors.New("jenis pembayaran tidak dikenal")

	// ErrOrderNotPayable means the order is not in a stage where the requested
	// payment type may be initiated (e.g. balance before the demo exists).
	ErrOrderNotPayable = errors.New("order tidak dapat dibayar pada status saat ini")

	// ErrMalformedCallback means the webhook payload decoded but carries no
	// session id; the gateway controls redelivery, we do not retry.
	ErrMalformedCallback = errors.New("callback tanpa session id")

	// ErrReconciliationConflict means a callback outcome contradicts a payment
	// that already settled. Requires manual review.
	ErrReconciliationConflict = errors.New("callback bertentangan dengan pembayaran yang sudah final")
)

// GatewayError wraps a failure reported by (or while reaching) iPaymu. No
// partial state is ever committed when one of these surfaces.
type GatewayError struct {
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ipaymu: %s: %v", e.Message, e.Err)
	}
	return "ipaymu: " + e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
