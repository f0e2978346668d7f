package task

import (
	"fmt"
	"strings"
)

// Status represents task status
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

var AllStatuses = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// ParseStatus accepts only the exact status names.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q (want one of %s)", s, strings.Join(StatusNames(), ", "))
	}
	return st, nil
}

func StatusNames() []string {
	names := make([]string, len(AllStatuses))
	for i, s := range AllStatuses {
		names[i] = string(s)
	}
	return names
}

// UpdateTaskRequest holds the optional fields of an update. Nil fields are
// left unchanged.
type UpdateTaskRequest struct {
	Description *string
	Status      *Status
}

// InvalidTaskError describes the first record of a loaded collection that
// breaks an invariant.
type InvalidTaskError struct {
	Index  int
	ID     int
	Reason string
}

func (e *InvalidTaskError) Error() string {
	if e.ID != 0 {
		return fmt.Sprintf("task #%d (id %d): %s", e.Index, e.ID, e.Reason)
	}
	return fmt.Sprintf("task #%d: %s", e.Index, e.Reason)
}
