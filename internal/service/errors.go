package service

import (
	"errors"
	"fmt"
)

var (
	// ErrPaymentNotCompleted means verification ran before the provider
	// settled the charge. No state was mutated.
	ErrPaymentNotCompleted = errors.New("payment not completed")

	// ErrWebhookVerification means the webhook signature did not match.
	ErrWebhookVerification = errors.New("webhook verification failed")
)

// ValidationError reports malformed or inconsistent caller input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
