// Package identity defines the contract with the account store that
// authenticates shoppers.
package identity

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrAuthFailure is returned when the identifier is unknown or the secret does
// not match.
var ErrAuthFailure = errors.New("invalid credentials")

// Account is the stored form of a shopper identity.
type Account struct {
	ID           string
	Identifier   string
	PasswordHash []byte
}

// Verifier checks credentials and returns the identity they authenticate.
// Any error other than ErrAuthFailure means the store itself could not answer.
type Verifier interface {
	Verify(ctx context.Context, identifier, secret string) (string, error)
}
