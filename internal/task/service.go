package task

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kazz187/tasktracker/pkg/cerr"
)

// Service implements the task store operations. It keeps no state between
// calls: every operation loads the collection, mutates it and saves it.
type Service struct {
	repository Repository
	now        func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(repository Repository, opts ...Option) *Service {
	s := &Service{
		repository: repository,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add appends a new todo task with the next free id.
func (s *Service) Add(ctx context.Context, description string) (*Task, error) {
	description, err := validateDescription(description)
	if err != nil {
		return nil, err
	}

	var created *Task
	err = s.mutate(ctx, func(c *Collection) (bool, error) {
		id, ok := c.NextID()
		if !ok {
			return false, cerr.NewError(cerr.DataLoss, "no task id left: the task file already uses the largest id", nil)
		}
		now := NewTimestamp(s.now())
		created = &Task{
			ID:          id,
			Description: description,
			Status:      StatusTodo,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		c.Append(created)
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "task added", "task_id", created.ID)
	return created.Clone(), nil
}

// Update applies the supplied fields of req. A request with no fields still
// refreshes UpdatedAt.
func (s *Service) Update(ctx context.Context, id int, req UpdateTaskRequest) (*Task, error) {
	var description string
	if req.Description != nil {
		d, err := validateDescription(*req.Description)
		if err != nil {
			return nil, err
		}
		description = d
	}
	if req.Status != nil {
		if err := validateStatus(*req.Status); err != nil {
			return nil, err
		}
	}

	updated, err := s.modify(ctx, id, func(t *Task) {
		if req.Description != nil {
			t.Description = description
		}
		if req.Status != nil {
			t.Status = *req.Status
		}
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "task updated", "task_id", id)
	return updated, nil
}

// MarkStatus sets the status of task id.
func (s *Service) MarkStatus(ctx context.Context, id int, status Status) (*Task, error) {
	if err := validateStatus(status); err != nil {
		return nil, err
	}

	updated, err := s.modify(ctx, id, func(t *Task) {
		t.Status = status
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "task status changed", "task_id", id, "status", status)
	return updated, nil
}

// Delete removes task id. Deleting an id that does not exist is not an
// error: it reports false and leaves the backing file untouched.
func (s *Service) Delete(ctx context.Context, id int) (bool, error) {
	var removed bool
	err := s.mutate(ctx, func(c *Collection) (bool, error) {
		removed = c.Remove(id)
		return removed, nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		slog.InfoContext(ctx, "task deleted", "task_id", id)
	} else {
		slog.DebugContext(ctx, "delete of unknown task ignored", "task_id", id)
	}
	return removed, nil
}

// List returns the tasks whose status equals status, or all tasks when
// status is empty, in collection order. The sequence iterates over a
// snapshot and can be ranged over any number of times. A zero count is the
// "no results" outcome.
func (s *Service) List(ctx context.Context, status Status) (iter.Seq[*Task], int, error) {
	if status != "" {
		if err := validateStatus(status); err != nil {
			return nil, 0, err
		}
	}

	c, err := s.repository.Load(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]*Task, 0, c.Len())
	for _, t := range c.Tasks {
		if status == "" || t.Status == status {
			matched = append(matched, t)
		}
	}

	seq := func(yield func(*Task) bool) {
		for _, t := range matched {
			if !yield(t.Clone()) {
				return
			}
		}
	}
	return seq, len(matched), nil
}

// Format rewrites the backing file in canonical form and returns its
// contents before and after. Nothing is written when they are equal, when
// dryRun is set or when there is no file yet. A corrupt file fails to decode
// and is left as is.
func (s *Service) Format(ctx context.Context, dryRun bool) (before, after []byte, err error) {
	f, ok := s.repository.(Formatter)
	if !ok {
		return nil, nil, cerr.NewError(cerr.Internal, "the task repository cannot be formatted", nil)
	}

	unlock, err := s.lock(ctx, dryRun)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	before, err = f.Raw(ctx)
	if err != nil || before == nil {
		return nil, nil, err
	}
	c, err := f.Decode(before)
	if err != nil {
		return nil, nil, err
	}
	after, err = f.Encode(c)
	if err != nil {
		return nil, nil, err
	}
	if dryRun || bytes.Equal(before, after) {
		return before, after, nil
	}

	if err := s.repository.Save(ctx, c); err != nil {
		return nil, nil, err
	}
	slog.InfoContext(ctx, "task file reformatted", "tasks", c.Len())
	return before, after, nil
}

// Formatter is implemented by repositories that expose their encoding.
type Formatter interface {
	// Raw returns the stored bytes, or nil when nothing is stored yet.
	Raw(ctx context.Context) ([]byte, error)
	Decode(data []byte) (*Collection, error)
	Encode(c *Collection) ([]byte, error)
}

func (s *Service) modify(ctx context.Context, id int, apply func(t *Task)) (*Task, error) {
	var updated *Task
	err := s.mutate(ctx, func(c *Collection) (bool, error) {
		t := c.Find(id)
		if t == nil {
			return false, cerr.NewError(cerr.NotFound, fmt.Sprintf("task %d not found", id), nil)
		}
		apply(t)
		t.touch(NewTimestamp(s.now()))
		updated = t.Clone()
		return true, nil
	})
	return updated, err
}

// mutate runs one locked load-mutate-save cycle. fn reports whether the
// collection changed; unchanged collections are not written back.
func (s *Service) mutate(ctx context.Context, fn func(c *Collection) (bool, error)) error {
	unlock, err := s.lock(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	c, err := s.repository.Load(ctx)
	if err != nil {
		return err
	}
	changed, err := fn(c)
	if err != nil || !changed {
		return err
	}
	return s.repository.Save(ctx, c)
}

func (s *Service) lock(ctx context.Context, skip bool) (func(), error) {
	if skip {
		return func() {}, nil
	}
	release, err := s.repository.Lock(ctx)
	if err != nil {
		return nil, err
	}
	return func() {
		if err := release(); err != nil {
			slog.WarnContext(ctx, "failed to release task file lock", "error", err)
		}
	}, nil
}

func validateDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", cerr.NewError(cerr.InvalidArgument, "task description cannot be empty", nil)
	}
	if !utf8.ValidString(description) {
		return "", cerr.NewError(cerr.InvalidArgument, "task description is not valid UTF-8", nil)
	}
	return description, nil
}

func validateStatus(status Status) error {
	if !status.Valid() {
		return cerr.NewError(cerr.InvalidArgument, fmt.Sprintf("invalid status %q", status),
			errors.New("status must be one of "+strings.Join(StatusNames(), ", ")))
	}
	return nil
}
