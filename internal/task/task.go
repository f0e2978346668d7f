package task

import (
	"math"
	"slices"
	"strings"
)

// Task is one trackable unit of work.
type Task struct {
	ID          int       `json:"id" yaml:"id" toml:"id"`
	Description string    `json:"description" yaml:"description" toml:"description"`
	Status      Status    `json:"status" yaml:"status" toml:"status"`
	CreatedAt   Timestamp `json:"createdAt" yaml:"createdAt" toml:"createdAt"`
	UpdatedAt   Timestamp `json:"updatedAt" yaml:"updatedAt" toml:"updatedAt"`
}

// touch refreshes UpdatedAt, never letting it fall behind CreatedAt.
func (t *Task) touch(now Timestamp) {
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

func (t *Task) Clone() *Task {
	c := *t
	return &c
}

// Collection is the ordered set of tasks persisted as one unit.
type Collection struct {
	Tasks []*Task
}

func NewCollection(tasks ...*Task) *Collection {
	if tasks == nil {
		tasks = []*Task{}
	}
	return &Collection{Tasks: tasks}
}

func (c *Collection) Len() int {
	return len(c.Tasks)
}

// NextID returns 1 for an empty collection and max(id)+1 otherwise. Ids
// freed by deletion are not reused unless they were the maximum. ok is
// false when the maximum id is math.MaxInt.
func (c *Collection) NextID() (id int, ok bool) {
	maxID := 0
	for _, t := range c.Tasks {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	if maxID == math.MaxInt {
		return 0, false
	}
	return maxID + 1, true
}

func (c *Collection) Find(id int) *Task {
	for _, t := range c.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (c *Collection) Append(t *Task) {
	c.Tasks = append(c.Tasks, t)
}

// Remove drops every task with id and reports whether one was found.
func (c *Collection) Remove(id int) bool {
	n := len(c.Tasks)
	c.Tasks = slices.DeleteFunc(c.Tasks, func(t *Task) bool {
		return t.ID == id
	})
	return len(c.Tasks) != n
}

// Validate checks the invariants a loaded collection must satisfy.
func (c *Collection) Validate() error {
	seen := make(map[int]struct{}, len(c.Tasks))
	for i, t := range c.Tasks {
		if t == nil {
			return &InvalidTaskError{Index: i, Reason: "empty record"}
		}
		if t.ID <= 0 {
			return &InvalidTaskError{Index: i, ID: t.ID, Reason: "id must be positive"}
		}
		if _, dup := seen[t.ID]; dup {
			return &InvalidTaskError{Index: i, ID: t.ID, Reason: "duplicate id"}
		}
		seen[t.ID] = struct{}{}
		if strings.TrimSpace(t.Description) == "" {
			return &InvalidTaskError{Index: i, ID: t.ID, Reason: "description is empty"}
		}
		if !t.Status.Valid() {
			return &InvalidTaskError{Index: i, ID: t.ID, Reason: "unknown status " + string(t.Status)}
		}
		if t.CreatedAt.IsZero() || t.UpdatedAt.IsZero() {
			return &InvalidTaskError{Index: i, ID: t.ID, Reason: "missing timestamp"}
		}
		if t.UpdatedAt.Before(t.CreatedAt) {
			return &InvalidTaskError{Index: i, ID: t.ID, Reason: "updatedAt is before createdAt"}
		}
	}
	return nil
}
