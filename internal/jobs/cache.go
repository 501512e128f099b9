package jobs

import (
	"sync"

	"github.com/hpungsan/pathfinder/internal/content"
)

// StatusCache holds the latest known state of in-flight jobs. It is owned by
// one Tracker and lives as long as it; the database stays authoritative.
type StatusCache struct {
	mu   sync.RWMutex
	jobs map[string]content.Job
}

// NewStatusCache creates an empty cache.
func NewStatusCache() *StatusCache {
	return &StatusCache{jobs: make(map[string]content.Job)}
}

// Get returns a copy of the cached job.
func (c *StatusCache) Get(id string) (*content.Job, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	j, ok := c.jobs[id]
	if !ok {
		return nil, false
	}
	return &j, true
}

// Put stores a copy of j, or drops it once the job is terminal.
func (c *StatusCache) Put(j *content.Job) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if j.Status.IsTerminal() {
		delete(c.jobs, j.ID)
		return
	}
	c.jobs[j.ID] = *j
}

// Delete removes a job from the cache.
func (c *StatusCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.jobs, id)
}

// Len returns the number of cached jobs.
func (c *StatusCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.jobs)
}
