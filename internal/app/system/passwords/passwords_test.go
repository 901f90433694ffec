package passwords

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *Bcrypt {
	t.Helper()
	h, err := NewBcrypt(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcrypt: %v", err)
	}
	return h
}

func TestNewBcrypt_DefaultCost(t *testing.T) {
	h, err := NewBcrypt(0)
	if err != nil {
		t.Fatalf("NewBcrypt(0): %v", err)
	}
	if h.Cost() != DefaultCost {
		t.Errorf("cost = %d, want %d", h.Cost(), DefaultCost)
	}
}

func TestNewBcrypt_RejectsBadCost(t *testing.T) {
	for _, cost := range []int{1, 3, 32, -1} {
		if _, err := NewBcrypt(cost); err == nil {
			t.Errorf("NewBcrypt(%d): expected error", cost)
		}
	}
}

func TestHash_SaltedPerCall(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash("correct horse")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Error("expected different digests for the same password")
	}
	if len(a) != len(b) {
		t.Errorf("digest lengths differ: %d vs %d", len(a), len(b))
	}
	if !strings.HasPrefix(a, "$2a$") {
		t.Errorf("unexpected digest format %q", a)
	}
}

func TestHash_Limits(t *testing.T) {
	h := newTestHasher(t)

	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("empty: got %v, want ErrEmptyPassword", err)
	}
	if _, err := h.Hash(strings.Repeat("x", MaxPasswordBytes+1)); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("long: got %v, want ErrPasswordTooLong", err)
	}
	if _, err := h.Hash(strings.Repeat("x", MaxPasswordBytes)); err != nil {
		t.Errorf("72 bytes should hash: %v", err)
	}
}

func TestVerify(t *testing.T) {
	h := newTestHasher(t)
	digest, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := h.Verify("s3cret", digest)
	if err != nil || !ok {
		t.Errorf("matching password: ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("wrong", digest)
	if err != nil {
		t.Errorf("mismatch must not be an error, got %v", err)
	}
	if ok {
		t.Error("mismatch reported as match")
	}
}

func TestVerify_CorruptDigest(t *testing.T) {
	h := newTestHasher(t)

	ok, err := h.Verify("anything", "not-a-bcrypt-digest")
	if ok {
		t.Error("corrupt digest reported as match")
	}
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *VerificationError, got %T (%v)", err, err)
	}
	if !errors.Is(err, bcrypt.ErrHashTooShort) {
		t.Errorf("expected wrapped ErrHashTooShort, got %v", verr.Err)
	}
}

func TestVerifyAsync(t *testing.T) {
	h := newTestHasher(t)
	digest, err := h.Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ok, err := Await(h.VerifyAsync(ctx, "s3cret", digest))
	if err != nil || !ok {
		t.Errorf("match: ok=%v err=%v", ok, err)
	}

	ok, err = Await(h.VerifyAsync(ctx, "nope", digest))
	if err != nil || ok {
		t.Errorf("mismatch: ok=%v err=%v", ok, err)
	}

	_, err = Await(h.VerifyAsync(ctx, "x", "garbage"))
	var verr *VerificationError
	if !errors.As(err, &verr) {
		t.Errorf("corrupt digest: expected *VerificationError, got %v", err)
	}
}

func TestVerifyAsync_SingleResultThenClosed(t *testing.T) {
	h := newTestHasher(t)
	digest, _ := h.Hash("s3cret")

	ch := h.VerifyAsync(context.Background(), "s3cret", digest)
	if _, ok := <-ch; !ok {
		t.Fatal("expected a result")
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed after one result")
	}
}

func TestVerifyAsync_CancelledContext(t *testing.T) {
	h := newTestHasher(t)
	digest, _ := h.Hash("s3cret")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := Await(h.VerifyAsync(ctx, "s3cret", digest))
	if ok {
		t.Error("cancelled verification reported a match")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
