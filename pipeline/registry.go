package pipeline

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	statusTTL       = time.Hour
	cleanupInterval = 10 * time.Minute
)

// Registry keeps the live status of every job in memory. Entries expire an
// hour after the last update, long after any client stopped watching.
type Registry struct {
	statuses *gocache.Cache
	sessions *gocache.Cache

	mu       sync.Mutex
	watchers map[string][]chan JobStatus
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		statuses: gocache.New(statusTTL, cleanupInterval),
		sessions: gocache.New(statusTTL, cleanupInterval),
		watchers: make(map[string][]chan JobStatus),
	}
}

// Publish records the latest status and fans it out to every watcher. A
// watcher that fell behind loses intermediate snapshots, never the job.
func (r *Registry) Publish(status JobStatus) {
	r.statuses.Set(status.JobID, status, statusTTL)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ch := range r.watchers[status.JobID] {
		select {
		case ch <- status:
		default:
		}
	}
}

// Status returns the latest snapshot for a job.
func (r *Registry) Status(jobID string) (JobStatus, bool) {
	v, ok := r.statuses.Get(jobID)
	if !ok {
		return JobStatus{}, false
	}
	return v.(JobStatus), true
}

// Watch subscribes to status updates for a job. The cancel function must
// be called when the watcher is done.
func (r *Registry) Watch(jobID string) (<-chan JobStatus, func()) {
	ch := make(chan JobStatus, 32)

	r.mu.Lock()
	r.watchers[jobID] = append(r.watchers[jobID], ch)
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		list := r.watchers[jobID]
		for i, c := range list {
			if c == ch {
				r.watchers[jobID] = append(list[:i], list[i+1:]...)
				break
			}
		}
		if len(r.watchers[jobID]) == 0 {
			delete(r.watchers, jobID)
		}
	}
	return ch, cancel
}

// BindSession remembers which wizard session a job belongs to, for the
// data deletion endpoint.
func (r *Registry) BindSession(jobID, sessionID string) {
	r.sessions.Set(jobID, sessionID, statusTTL)
}

// SessionFor returns the session id a job was started from.
func (r *Registry) SessionFor(jobID string) (string, bool) {
	v, ok := r.sessions.Get(jobID)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Forget drops everything the registry holds about a job.
func (r *Registry) Forget(jobID string) {
	r.statuses.Delete(jobID)
	r.sessions.Delete(jobID)
}
