package domain

import (
	"fmt"
	"strings"
)

// Priority is the urgency label of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Priorities lists every priority in ascending order of urgency.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ParsePriority converts a label into a Priority.
func ParsePriority(s string) (Priority, error) {
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	return p.Rank() > 0
}

// Rank orders priorities from 1 (low) to 4 (urgent); unknown values rank 0.
func (p Priority) Rank() int {
	for i, known := range Priorities {
		if p == known {
			return i + 1
		}
	}
	return 0
}

func (p Priority) String() string {
	return string(p)
}
