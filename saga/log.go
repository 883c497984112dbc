package saga

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// StepEvent is an entry in the execution log.
type StepEvent struct {
	SagaID    SagaID
	Step      StepName
	EventType StepEventType
}

// String implements the fmt.Stringer interface for StepEvent.
func (e *StepEvent) String() string {
	return fmt.Sprintf("%s %s", e.Step, e.EventType)
}

// StepEventType defines the events that can occur for a saga step.
type StepEventType int

const (
	EventStarted StepEventType = iota
	EventSucceeded
	EventFailed
	EventUndoStarted
	EventUndoFinished
	EventUndoFailed
)

// String returns the string representation of the StepEventType.
func (t StepEventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	case EventUndoStarted:
		return "undo_started"
	case EventUndoFinished:
		return "undo_finished"
	case EventUndoFailed:
		return "undo_failed"
	default:
		return fmt.Sprintf("unknown StepEventType: %d", int(t))
	}
}

// StepStatus is the cumulative status of a step derived from its events.
type StepStatus int

const (
	StatusNeverStarted StepStatus = iota
	StatusStarted
	StatusSucceeded
	StatusFailed
	StatusUndoStarted
	StatusUndoFinished
	StatusUndoFailed
)

// nextStatus returns the status of a step after recording the given event.
// The transitions form a state machine; any event not legal for the current
// status indicates a bug in the executor (or a corrupt log) and is rejected.
func (s StepStatus) nextStatus(eventType StepEventType) (StepStatus, error) {
	switch s {
	case StatusNeverStarted:
		if eventType == EventStarted {
			return StatusStarted, nil
		}
	case StatusStarted:
		switch eventType {
		case EventSucceeded:
			return StatusSucceeded, nil
		case EventFailed:
			return StatusFailed, nil
		}
	case StatusSucceeded:
		if eventType == EventUndoStarted {
			return StatusUndoStarted, nil
		}
	case StatusUndoStarted:
		switch eventType {
		case EventUndoFinished:
			return StatusUndoFinished, nil
		case EventUndoFailed:
			return StatusUndoFailed, nil
		}
	}

	return StatusNeverStarted, fmt.Errorf(
		"illegal event type %s for current step status %s", eventType, s)
}

// Log is the write log for one saga execution. It records every step event
// and tracks whether the saga is unwinding.
type Log struct {
	mu         sync.Mutex
	sagaID     SagaID
	unwinding  bool
	events     []*StepEvent
	stepStatus map[StepName]StepStatus
}

// NewLog creates an empty Log for the given saga execution.
func NewLog(sagaID SagaID) *Log {
	return &Log{
		sagaID:     sagaID,
		events:     make([]*StepEvent, 0),
		stepStatus: make(map[StepName]StepStatus),
	}
}

// Record adds an event to the log, validating it against the step's state
// machine.
func (l *Log) Record(event *StepEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current := l.stepStatus[event.Step]
	next, err := current.nextStatus(event.EventType)
	if err != nil {
		return err
	}

	switch next {
	case StatusFailed, StatusUndoStarted, StatusUndoFinished:
		l.unwinding = true
	}

	l.stepStatus[event.Step] = next
	l.events = append(l.events, event)
	return nil
}

// Unwinding reports whether the saga has entered compensation.
func (l *Log) Unwinding() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.unwinding
}

// StatusFor returns the cumulative status of a step.
func (l *Log) StatusFor(step StepName) StepStatus {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.stepStatus[step]
}

// Events returns the recorded events in order.
func (l *Log) Events() []*StepEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	events := make([]*StepEvent, len(l.events))
	copy(events, l.events)
	return events
}

// String implements the fmt.Stringer interface for Log.
func (l *Log) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("SAGA LOG:\n")
	sb.WriteString(fmt.Sprintf("saga id:   %s\n", l.sagaID))
	direction := "forward"
	if l.unwinding {
		direction = "unwinding"
	}
	sb.WriteString(fmt.Sprintf("direction: %s\n", direction))
	sb.WriteString(fmt.Sprintf("events (%d total):\n", len(l.events)))
	for i, event := range l.events {
		sb.WriteString(fmt.Sprintf("%03d %s\n", i+1, event))
	}
	return sb.String()
}

// MarshalJSON implements the json.Marshaler interface for StepStatus.
func (s StepStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for StepStatus.
func (s *StepStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	switch str {
	case "never_started":
		*s = StatusNeverStarted
	case "started":
		*s = StatusStarted
	case "succeeded":
		*s = StatusSucceeded
	case "failed":
		*s = StatusFailed
	case "undo_started":
		*s = StatusUndoStarted
	case "undo_finished":
		*s = StatusUndoFinished
	case "undo_failed":
		*s = StatusUndoFailed
	default:
		return fmt.Errorf("invalid StepStatus: %q", str)
	}
	return nil
}

// String returns the string representation of the StepStatus.
func (s StepStatus) String() string {
	switch s {
	case StatusNeverStarted:
		return "never_started"
	case StatusStarted:
		return "started"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusUndoStarted:
		return "undo_started"
	case StatusUndoFinished:
		return "undo_finished"
	case StatusUndoFailed:
		return "undo_failed"
	default:
		return fmt.Sprintf("unknown StepStatus: %d", int(s))
	}
}
