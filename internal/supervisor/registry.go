package supervisor

import (
	"sync"

	"jobhost/internal/apperrors"
)

// registry tracks one supervisor per job name with thread-safe access.
type registry struct {
	mu          sync.RWMutex
	supervisors map[string]*Supervisor
}

func newRegistry() *registry {
	return &registry{
		supervisors: make(map[string]*Supervisor),
	}
}

// reserve claims a job name. Returns error if already claimed. The slot
// holds nil until commit fills it, so two syncs racing on a new job cannot
// both create a supervisor.
func (r *registry) reserve(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.supervisors[name]; exists {
		return apperrors.Conflict("job", name, "already registered")
	}
	r.supervisors[name] = nil
	return nil
}

// commit fills a reserved slot with the actual supervisor.
func (r *registry) commit(name string, s *Supervisor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.supervisors[name] = s
}

// release removes a supervisor. Returns it if the name was present.
func (r *registry) release(name string) (*Supervisor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.supervisors[name]
	if exists {
		delete(r.supervisors, name)
	}
	return s, exists
}

// get retrieves a supervisor. Returns (nil, true) if reserved but not yet
// committed.
func (r *registry) get(name string) (*Supervisor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, exists := r.supervisors[name]
	return s, exists
}

// list returns a copy of the name to supervisor map.
func (r *registry) list() map[string]*Supervisor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Supervisor, len(r.supervisors))
	for name, s := range r.supervisors {
		result[name] = s
	}
	return result
}

// names returns all registered job names.
func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.supervisors))
	for name := range r.supervisors {
		names = append(names, name)
	}
	return names
}
