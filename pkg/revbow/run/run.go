package run

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/revbow/pkg/revbow/store"
)

// Builder issues pipeline runs with monotonic, time-sortable ids.
type Builder struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a new run builder
func New() *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Start creates a run over the given input files. Ids issued by one builder
// are strictly increasing.
func (b *Builder) Start(inputs []string) store.Run {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	return store.Run{
		ID:        ulid.MustNew(ulid.Timestamp(now), b.entropy).String(),
		CreatedAt: now,
		Inputs:    append([]string(nil), inputs...),
	}
}

// Time returns the creation time encoded in a run id.
func Time(id string) (time.Time, error) {
	u, err := ulid.ParseStrict(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(u.Time()), nil
}
