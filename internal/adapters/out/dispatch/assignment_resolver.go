package dispatch

import (
	"context"
	"sync"

	"fulfillment/internal/core/domain/model/assignment"
	"fulfillment/internal/core/domain/model/kernel"
)

// StaticAssignmentResolver implements AssignmentResolver from a fixed
// in-memory pool of stakeholders per role. Production deployments replace it
// with a staffing-service client; the automation engine only depends on the
// port.
type StaticAssignmentResolver struct {
	mu   sync.RWMutex
	pool map[assignment.Role][]kernel.UUID
}

// NewStaticAssignmentResolver creates an empty resolver.
func NewStaticAssignmentResolver() *StaticAssignmentResolver {
	return &StaticAssignmentResolver{
		pool: make(map[assignment.Role][]kernel.UUID),
	}
}

// Register adds a stakeholder to the pool for a role.
func (r *StaticAssignmentResolver) Register(role assignment.Role, userID kernel.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pool[role] = append(r.pool[role], userID)
}

// FindAvailable returns the registered stakeholders for the role.
func (r *StaticAssignmentResolver) FindAvailable(
	_ context.Context, role assignment.Role,
) ([]kernel.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]kernel.UUID, len(r.pool[role]))
	copy(candidates, r.pool[role])
	return candidates, nil
}
