package records

import (
	"context"
	"fmt"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// Provider looks up a user's academic record.
type Provider interface {
	// Lookup returns the record for id. A missing user is reported with
	// ErrCodeRecordNotFound.
	Lookup(ctx context.Context, userType UserType, id string) (*Record, error)
	Close() error
}

func notFound(userType UserType, id string) error {
	return saeserrors.New(saeserrors.ErrCodeRecordNotFound,
		fmt.Sprintf("no %s with id %q", userType, id), nil)
}

// IsNotFound reports whether err means the user does not exist.
func IsNotFound(err error) bool {
	return saeserrors.GetCode(err) == saeserrors.ErrCodeRecordNotFound
}

// NoopProvider knows no users. It backs deployments without a records store.
type NoopProvider struct{}

var _ Provider = NoopProvider{}

// Lookup always reports not found.
func (NoopProvider) Lookup(_ context.Context, userType UserType, id string) (*Record, error) {
	return nil, notFound(userType, id)
}

// Close implements Provider.
func (NoopProvider) Close() error { return nil }
