package conversation

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

// IDGenerator hands out ULIDs. IDs created in the same millisecond come from a
// monotonic entropy source, so they are distinct and still sort in creation order.
type IDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
	lastMs  uint64
	now     func() time.Time
}

func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

var defaultIDs = NewIDGenerator()

// NewID returns a fresh id from the process-wide generator.
func NewID() string {
	return defaultIDs.Next()
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := ulid.Timestamp(g.now())
	// never step backwards, even if the wall clock does
	if ms < g.lastMs {
		ms = g.lastMs
	}
	id, err := ulid.New(ms, g.entropy)
	if err != nil {
		// entropy overflow within one millisecond: move on to the next one
		ms++
		id = ulid.MustNew(ms, g.entropy)
	}
	g.lastMs = ms
	return id.String()
}
