package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Store persists the step-result log of a saga execution. The executor saves
// after every completed step, so a process that dies mid-saga leaves behind a
// record of exactly which external resources were created. A later process can
// reload that record and force compensation (see NewExecutorFromState).
// Automatic crash recovery is not implemented; the store makes it possible,
// not transparent.
type Store interface {
	// Save persists the current execution state.
	Save(ctx context.Context, sagaID string, state State) error

	// Load retrieves an execution state by saga ID.
	Load(ctx context.Context, sagaID string) (*State, error)

	// Delete removes an execution state, e.g. after a completed rollback.
	Delete(ctx context.Context, sagaID string) error
}

// State is the durable snapshot of one saga execution.
type State struct {
	SagaID         string          `json:"saga_id"`
	SagaName       string          `json:"saga_name"`
	Status         string          `json:"status"`
	CompletedSteps []CompletedStep `json:"completed_steps"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CompletedStep records a step whose forward action succeeded, along with its
// output for use by undo functions during a later forced rollback.
type CompletedStep struct {
	Name   string          `json:"name"`
	Output json.RawMessage `json:"output,omitempty"`
}

// Execution status values recorded in State.Status.
const (
	StatusRunning     = "running"
	StatusCompleted   = "completed"
	StatusAborted     = "aborted"
	StatusRollingBack = "rolling_back"
	StatusRolledBack  = "rolled_back"
	StatusWedged      = "wedged"
)

// MemoryStore is an in-memory Store for tests and callers that do not need
// durability.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states: make(map[string]*State),
	}
}

// Save stores the execution state in memory.
func (m *MemoryStore) Save(ctx context.Context, sagaID string, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stateCopy := state
	stateCopy.UpdatedAt = time.Now()
	m.states[sagaID] = &stateCopy
	return nil
}

// Load retrieves the execution state from memory.
func (m *MemoryStore) Load(ctx context.Context, sagaID string) (*State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, exists := m.states[sagaID]
	if !exists {
		return nil, fmt.Errorf("saga %s not found", sagaID)
	}

	stateCopy := *state
	return &stateCopy, nil
}

// Delete removes the execution state from memory.
func (m *MemoryStore) Delete(ctx context.Context, sagaID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, sagaID)
	return nil
}
