package account

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher is the one-way credential digest contract. The service never sees a
// raw password after hashing and never stores one.
type Hasher interface {
	Hash(secret string) (string, error)
	Verify(secret, digest string) bool
}

// BcryptHasher hashes with bcrypt. A zero Cost means bcrypt.DefaultCost;
// tests run at bcrypt.MinCost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(secret string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

func (h BcryptHasher) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
