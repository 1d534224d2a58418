// Package beacon counts distinct users that announced presence per job.
package beacon

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrMissingFields = errors.New("missing userId or jobId")
	ErrMissingJobID  = errors.New("missing jobId")
)

// Counter maps a job identifier to the set of users seen under it. Sets are
// never evicted.
type Counter struct {
	mu   sync.RWMutex
	jobs map[string]map[string]struct{}
}

// NewCounter returns an empty counter.
func NewCounter() *Counter {
	return &Counter{jobs: make(map[string]map[string]struct{})}
}

// Record adds userID to the set for jobID. Repeated calls are idempotent.
func (c *Counter) Record(_ context.Context, jobID, userID string) error {
	if jobID == "" || userID == "" {
		return ErrMissingFields
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	users, ok := c.jobs[jobID]
	if !ok {
		users = make(map[string]struct{})
		c.jobs[jobID] = users
	}
	users[userID] = struct{}{}
	return nil
}

// Count returns the number of distinct users recorded for jobID.
func (c *Counter) Count(_ context.Context, jobID string) (int, error) {
	if jobID == "" {
		return 0, ErrMissingJobID
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.jobs[jobID]), nil
}
