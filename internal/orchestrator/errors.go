package orchestrator

import (
	"fmt"
)

// NotFoundError names the identifier a lookup failed on, so handlers
// can echo it back to the client.
type NotFoundError struct {
	Kind string // "session", "item", "learner"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// UnresolvedTopicError is returned when a topic reference matches
// nothing in the catalog. It carries the topics that do exist.
type UnresolvedTopicError struct {
	Ref             string
	AvailableTopics []string
}

func (e *UnresolvedTopicError) Error() string {
	return fmt.Sprintf("topic %q not found in catalog", e.Ref)
}
