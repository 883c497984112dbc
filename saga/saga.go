package saga

import (
	"github.com/google/uuid"
)

// SagaID uniquely identifies one execution of a saga.
type SagaID struct {
	UUID uuid.UUID
}

// NewSagaID generates a fresh SagaID.
func NewSagaID() SagaID {
	return SagaID{UUID: uuid.New()}
}

// String returns the string representation of the SagaID.
func (s SagaID) String() string {
	return s.UUID.String()
}

// SagaName is a human-readable name for a particular kind of saga,
// e.g. "create-course".
type SagaName string

// String returns the string representation of the SagaName.
func (s SagaName) String() string {
	return string(s)
}

// StepName is a unique name for a step within a saga plan. Step outputs are
// recorded under this name, and undo functions look them up by it.
type StepName string
