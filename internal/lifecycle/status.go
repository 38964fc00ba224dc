package lifecycle

import (
	"fmt"
	"strings"
)

// Status is the workflow state of a script record. Values are the display
// names stored in the document store's status property.
type Status string

const (
	NotReady   Status = "Not ready"
	Ready      Status = "Ready"
	NotStarted Status = "Not started"
	InProgress Status = "In progress"
	Done       Status = "Done"
	Published  Status = "Published"
	Error      Status = "Error"
)

var allStatuses = []Status{
	NotReady,
	Ready,
	NotStarted,
	InProgress,
	Done,
	Published,
	Error,
}

var statusByKey = func() map[string]Status {
	set := make(map[string]Status, len(allStatuses)*2)
	for _, status := range allStatuses {
		set[normalizeKey(string(status))] = status
	}
	return set
}()

// transitions lists every legal forward edge. Error is reachable only from
// InProgress, Published only from Done.
var transitions = map[Status][]Status{
	NotReady:   {Ready},
	Ready:      {NotStarted},
	NotStarted: {InProgress},
	InProgress: {Done, Error},
	Done:       {Published},
}

// rank orders the forward chain; Error sits outside it.
var rank = map[Status]int{
	NotReady:   0,
	Ready:      1,
	NotStarted: 2,
	InProgress: 3,
	Done:       4,
	Published:  5,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// Parse converts a display name ("In progress") or an identifier-style name
// ("IN_PROGRESS", "in-progress") into a known Status.
func Parse(value string) (Status, bool) {
	key := normalizeKey(value)
	if key == "" {
		return "", false
	}
	status, ok := statusByKey[key]
	return status, ok
}

func normalizeKey(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer("_", " ", "-", " ").Replace(value)
}

// IsInitial reports whether a newly created record may start in status.
func IsInitial(status Status) bool {
	return status == NotReady || status == NotStarted
}

// IsTerminal reports whether status has no outgoing automated transition.
// Done is terminal only when the record needs no publishing.
func IsTerminal(status Status, requiresPublishing bool) bool {
	switch status {
	case Published, Error:
		return true
	case Done:
		return !requiresPublishing
	default:
		return false
	}
}

// Eligible reports whether the render pass may claim a record in status.
func Eligible(status Status) bool {
	return status == NotStarted
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates from -> to and returns a *TransitionError when the edge
// is illegal.
func Transition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to, Backward: isBackward(from, to)}
}

func isBackward(from, to Status) bool {
	fr, okFrom := rank[from]
	tr, okTo := rank[to]
	return okFrom && okTo && tr < fr
}

// TransitionError reports an illegal status change.
type TransitionError struct {
	From     Status
	To       Status
	Backward bool
}

func (e *TransitionError) Error() string {
	if e.Backward {
		return fmt.Sprintf("illegal backward transition %q -> %q", e.From, e.To)
	}
	return fmt.Sprintf("illegal transition %q -> %q", e.From, e.To)
}

// ErrorKind classifies the error for failure logging.
func (e *TransitionError) ErrorKind() string { return "validation" }
