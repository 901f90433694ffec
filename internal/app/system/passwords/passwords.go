// internal/app/system/passwords/passwords.go

// Package passwords hashes and verifies user passwords with bcrypt.
//
// Hash is synchronous. Verification is offered both as a blocking call and
// as VerifyAsync, which delivers a single Result on a channel once the
// comparison finishes. A wrong password is never an error: it yields false.
// Errors are reserved for faults in the comparison itself, such as a
// corrupt or truncated digest.
package passwords

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the salt rounds used for existing account records.
const DefaultCost = 8

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

var (
	// ErrPasswordTooLong is returned by Hash when the password exceeds MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password exceeds 72 bytes")
	// ErrEmptyPassword is returned by Hash for an empty password.
	ErrEmptyPassword = errors.New("password must not be empty")
)

// VerificationError reports a fault while comparing a password against a
// digest. It is not returned for a simple mismatch.
type VerificationError struct {
	Err error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("password verification failed: %v", e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// Result is delivered by VerifyAsync.
type Result struct {
	OK  bool
	Err error
}

// Hasher is the credential capability consumed by the accounts service.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) (bool, error)
	VerifyAsync(ctx context.Context, plaintext, digest string) <-chan Result
}

// Bcrypt implements Hasher. A fresh salt is generated on every Hash call.
type Bcrypt struct {
	cost int
}

// NewBcrypt returns a bcrypt Hasher with the given cost. A cost of 0 selects
// DefaultCost.
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Bcrypt{cost: cost}, nil
}

// Cost returns the configured work factor.
func (b *Bcrypt) Cost() int { return b.cost }

// Hash returns the bcrypt digest of plaintext.
func (b *Bcrypt) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmptyPassword
	}
	if len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches digest.
func (b *Bcrypt) Verify(plaintext, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, &VerificationError{Err: err}
	}
}

// VerifyAsync runs Verify in the background. The returned channel receives
// exactly one Result and is then closed. If ctx ends before the comparison
// does, the Result carries ctx.Err(); the comparison still runs to
// completion but its outcome is discarded.
func (b *Bcrypt) VerifyAsync(ctx context.Context, plaintext, digest string) <-chan Result {
	return verifyAsync(ctx, b, plaintext, digest)
}

func verifyAsync(ctx context.Context, h interface {
	Verify(string, string) (bool, error)
}, plaintext, digest string) <-chan Result {
	out := make(chan Result, 1)
	if err := ctx.Err(); err != nil {
		out <- Result{Err: err}
		close(out)
		return out
	}

	done := make(chan Result, 1)
	go func() {
		ok, err := h.Verify(plaintext, digest)
		done <- Result{OK: ok, Err: err}
	}()

	go func() {
		defer close(out)
		select {
		case r := <-done:
			out <- r
		case <-ctx.Done():
			out <- Result{Err: ctx.Err()}
		}
	}()

	return out
}

// Await blocks until r delivers its result.
func Await(r <-chan Result) (bool, error) {
	res, ok := <-r
	if !ok {
		return false, errors.New("verification result channel closed")
	}
	return res.OK, res.Err
}
