package services

import (
	"errors"
	"strings"

	"github.com/chachabrian/chefbook-backend/internal/database"
)

var (
	// ErrForbidden means the caller's account type may not run the operation.
	ErrForbidden = errors.New("forbidden for this account type")

	ErrNotFoundOrAlreadyHandled = database.ErrNotFoundOrAlreadyHandled
)

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid booking: " + strings.Join(e.Problems, "; ")
}

// PaymentError means the payment, not the booking, was rejected.
type PaymentError struct {
	Reference string
	Reason    string
}

func (e *PaymentError) Error() string {
	return "payment verification failed: " + e.Reason
}
