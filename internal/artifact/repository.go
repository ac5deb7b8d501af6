package artifact

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/stlalpha/scrollkeep/internal/store"
)

// idPrefix + a 4-digit zero-padded sequence forms an artifact ID, e.g. SC0001.
const idPrefix = "SC"

// Repository is the artifact store plus monotonic ID generation. The ID
// counter survives restarts: it is reseeded from the highest numeric suffix
// found in the loaded records, so IDs are never reused even when
// high-numbered artifacts were deleted.
type Repository struct {
	*store.Store[Artifact]

	mu     sync.Mutex
	nextID int
}

// OpenRepository loads the artifact backing file at path and seeds the ID
// counter from its contents.
func OpenRepository(path string) (*Repository, error) {
	s, err := store.Open[Artifact](path, codec{})
	if err != nil {
		return nil, err
	}
	r := &Repository{Store: s, nextID: 1}
	for _, a := range s.All() {
		if n, ok := numericSuffix(a.ID); ok && n >= r.nextID {
			r.nextID = n + 1
		}
	}
	return r, nil
}

// GenerateID returns the next artifact ID and advances the counter.
func (r *Repository) GenerateID() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := fmt.Sprintf("%s%04d", idPrefix, r.nextID)
	r.nextID++
	return id
}

// numericSuffix extracts the digits of an artifact ID. IDs with no digits at
// all (hand-edited files) are ignored for counter seeding.
func numericSuffix(id string) (int, bool) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, id)
	if digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
