package provider

import (
	"errors"
	"fmt"

	"carbooker/internal/domain"
)

// Adapter charge statuses, normalized across gateways.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Webhook event types surfaced to the payment service.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

var ErrUnsupportedMethod = errors.New("unsupported payment method")

// Error wraps a gateway failure so the transport layer can map it to an
// upstream error response while keeping the original message.
type Error struct {
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(provider, message string, err error) *Error {
	return &Error{Provider: provider, Message: message, Err: err}
}

// Registry selects the adapter matching a payment method. Adding a gateway
// means registering one more adapter; callers never branch on method names.
type Registry struct {
	adapters map[string]domain.ProviderAdapter
}

func NewRegistry(adapters ...domain.ProviderAdapter) *Registry {
	r := &Registry{adapters: make(map[string]domain.ProviderAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

func (r *Registry) Get(method string) (domain.ProviderAdapter, error) {
	adapter, ok := r.adapters[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	return adapter, nil
}
