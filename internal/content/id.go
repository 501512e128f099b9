package content

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ids hands out monotonic ULIDs so rows created in the same millisecond
// still sort by creation.
var ids = struct {
	sync.Mutex
	entropy *ulid.MonotonicEntropy
}{entropy: ulid.Monotonic(rand.Reader, 0)}

// NewID returns a fresh ULID string for a realm, source or job row.
func NewID() (string, error) {
	ids.Lock()
	defer ids.Unlock()
	id, err := ulid.New(ulid.Timestamp(time.Now()), ids.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
