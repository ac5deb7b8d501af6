package account

import (
	"strings"

	"github.com/stlalpha/scrollkeep/internal/store"
)

// Repository is the account store plus the secondary lookups the service
// needs. All access goes through the embedded store's lock.
type Repository struct {
	*store.Store[Account]
}

// OpenRepository loads the account backing file at path.
func OpenRepository(path string) (*Repository, error) {
	s, err := store.Open[Account](path, codec{})
	if err != nil {
		return nil, err
	}
	return &Repository{Store: s}, nil
}

// FindByUsername returns the account stored under username (exact match).
func (r *Repository) FindByUsername(username string) (Account, bool) {
	return r.Find(username)
}

// FindByCustomID scans for an account whose custom ID matches
// case-insensitively.
func (r *Repository) FindByCustomID(customID string) (Account, bool) {
	for _, a := range r.All() {
		if strings.EqualFold(a.CustomID, customID) {
			return a, true
		}
	}
	return Account{}, false
}

// HasAdmin reports whether any persisted account carries the ADMIN role.
func (r *Repository) HasAdmin() bool {
	for _, a := range r.All() {
		if a.Role == RoleAdmin {
			return true
		}
	}
	return false
}
