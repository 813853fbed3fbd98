package section

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID generates a stable section identifier: a "section_" prefix followed
// by a ULID, which carries a millisecond timestamp plus random suffix so ids
// sort by creation time and never collide with earlier ones.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "section_" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
