// Package otp holds pending email-verification state for the registration
// and password-reset flows.
//
// The store is process-local and lives for the lifetime of the process: a
// restart silently drops every pending verification and users simply request
// a new code. It is NOT safe to run behind a load balancer with more than
// one instance, since a resend landing on a different process will not see
// the original record. Deployments that need horizontal scaling must swap
// this for a shared cache implementation; the flows only depend on the
// Set/Get/Validate/Delete surface.
package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"
)

// Purpose says which flow a pending record belongs to.
type Purpose string

const (
	PurposeRegister      Purpose = "register"
	PurposePasswordReset Purpose = "password_reset"
)

// Payload is the purpose-specific data held until the flow is finalized.
// The unexported method seals the union to the two variants below.
type Payload interface {
	Purpose() Purpose
	payload()
}

// RegisterPayload holds everything needed to create the account once the
// code is verified. The password arrives here already hashed; the store
// never sees plaintext credentials.
type RegisterPayload struct {
	FirstName    string
	LastName     string
	Username     string
	PasswordHash string
}

// ResetPayload carries the account's username for reference. The new
// password is deliberately absent: it is supplied at completion time.
type ResetPayload struct {
	Username string
}

func (RegisterPayload) Purpose() Purpose { return PurposeRegister }
func (RegisterPayload) payload()         {}

func (ResetPayload) Purpose() Purpose { return PurposePasswordReset }
func (ResetPayload) payload()         {}

// Record is one pending verification, keyed by the normalized email address.
// At most one live record exists per identifier; issuing a new code replaces
// the prior record entirely.
type Record struct {
	Identifier string
	Code       string
	Payload    Payload
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Attempts   int
}

// Failure classifies why a Validate call did not succeed.
type Failure string

const (
	FailureNone            Failure = ""
	FailureNotFound        Failure = "not_found"
	FailureExpired         Failure = "expired"
	FailureMismatch        Failure = "mismatch"
	FailureTooManyAttempts Failure = "too_many_attempts"
)

// Result is the outcome of Validate. Lookup and verification failures are
// reported here rather than as errors so callers translate them to
// user-facing messages without exception-style control flow.
type Result struct {
	Valid   bool
	Failure Failure
	Payload Payload
}

// Store is the authoritative holder of pending verifications. All access is
// serialized behind a single mutex, which covers the race between a resend
// overwriting a record and a concurrent validation of the same identifier.
type Store struct {
	mu      sync.Mutex
	records map[string]*Record

	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
}

// NewStore creates an empty store. ttl is the validity window of each code;
// maxAttempts caps consecutive wrong-code submissions before the record is
// discarded and the user must request a fresh code.
func NewStore(ttl time.Duration, maxAttempts int) *Store {
	return &Store{
		records:     make(map[string]*Record),
		ttl:         ttl,
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

// NormalizeIdentifier canonicalizes an email for use as a store key.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Set generates a fresh 6-digit code and stores a record for identifier,
// replacing and invalidating any prior record. Attempts reset to zero and
// the expiry window restarts. Returns the code for delivery; the code is
// never exposed through any other path.
func (s *Store) Set(identifier string, payload Payload) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	key := NormalizeIdentifier(identifier)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = &Record{
		Identifier: key,
		Code:       code,
		Payload:    payload,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
		Attempts:   0,
	}
	return code, nil
}

// Get returns the live record for identifier, or false when none exists.
// Expired records are treated as absent and purged.
func (s *Store) Get(identifier string) (*Record, bool) {
	key := NormalizeIdentifier(identifier)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return nil, false
	}
	if s.now().After(rec.ExpiresAt) {
		delete(s.records, key)
		return nil, false
	}
	cp := *rec
	return &cp, true
}

// Validate checks submitted against the live record for identifier.
// A mismatch increments the attempt counter and leaves the record live
// until the cap is reached, at which point the record is discarded.
// Success does NOT consume the record: deletion is the caller's
// responsibility at finalize, so "verify" and "finalize" can be
// distinct steps.
func (s *Store) Validate(identifier, submitted string) Result {
	key := NormalizeIdentifier(identifier)

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		return Result{Failure: FailureNotFound}
	}
	if s.now().After(rec.ExpiresAt) {
		delete(s.records, key)
		return Result{Failure: FailureExpired}
	}
	if rec.Code != submitted {
		rec.Attempts++
		if rec.Attempts >= s.maxAttempts {
			delete(s.records, key)
			return Result{Failure: FailureTooManyAttempts}
		}
		return Result{Failure: FailureMismatch}
	}
	return Result{Valid: true, Payload: rec.Payload}
}

// Delete consumes the record for identifier. Deleting an absent record is
// a no-op, so finalize paths can call it unconditionally.
func (s *Store) Delete(identifier string) {
	key := NormalizeIdentifier(identifier)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
}

// generateCode returns a uniformly random 6-digit numeric code in
// [100000, 999999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
