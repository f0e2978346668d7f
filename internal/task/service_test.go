package task_test

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kazz187/tasktracker/internal/task"
	"github.com/kazz187/tasktracker/internal/task/repositoryimpl"
	"github.com/kazz187/tasktracker/pkg/cerr"
	"github.com/kazz187/tasktracker/pkg/storage"
)

// clock returns increasing instants one second apart.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newService(t *testing.T) (*task.Service, string) {
	t.Helper()
	return newServiceFor(t, "tasks.json")
}

func newServiceFor(t *testing.T, name string) (*task.Service, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := storage.NewLocalStorage(dir, storage.WithLockTimeout(5*time.Second))
	require.NoError(t, err)
	repo, err := repositoryimpl.NewFileRepository(s, name)
	require.NoError(t, err)
	c := &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	return task.NewService(repo, task.WithClock(c.Now)), filepath.Join(dir, name)
}

func list(t *testing.T, svc *task.Service, status task.Status) []*task.Task {
	t.Helper()
	seq, n, err := svc.List(context.Background(), status)
	require.NoError(t, err)
	tasks := slices.Collect(seq)
	require.Len(t, tasks, n)
	return tasks
}

func ids(tasks []*task.Task) []int {
	out := make([]int, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestService_Scenario(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()

	milk, err := svc.Add(ctx, "buy milk")
	require.NoError(t, err)
	assert.Equal(t, 1, milk.ID)
	assert.Equal(t, task.StatusTodo, milk.Status)
	assert.True(t, milk.CreatedAt.Equal(milk.UpdatedAt))

	done, err := svc.MarkStatus(ctx, 1, task.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, task.StatusDone, done.Status)
	assert.True(t, done.CreatedAt.Equal(milk.CreatedAt), "createdAt is immutable")
	assert.True(t, milk.UpdatedAt.Before(done.UpdatedAt), "updatedAt is refreshed")

	dog, err := svc.Add(ctx, "walk dog")
	require.NoError(t, err)
	assert.Equal(t, 2, dog.ID)

	assert.Equal(t, []int{2}, ids(list(t, svc, task.StatusTodo)))

	removed, err := svc.Delete(ctx, 1)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, []int{2}, ids(list(t, svc, "")))

	before := readFile(t, path)
	removed, err = svc.Delete(ctx, 1)
	require.NoError(t, err, "deleting a missing id is not an error")
	assert.False(t, removed)
	assert.Equal(t, before, readFile(t, path))
	assert.Equal(t, []int{2}, ids(list(t, svc, "")))
}

func TestService_AddAssignsIncreasingIDs(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	var got []int
	for i := 0; i < 10; i++ {
		created, err := svc.Add(ctx, "task")
		require.NoError(t, err)
		got = append(got, created.ID)
	}
	for i := 1; i < len(got); i++ {
		assert.Greater(t, got[i], got[i-1])
	}

	_, err := svc.Delete(ctx, 4)
	require.NoError(t, err)
	created, err := svc.Add(ctx, "after delete")
	require.NoError(t, err)
	assert.Equal(t, 11, created.ID, "gaps left by deletes are not filled")
}

func TestService_AddTrimsAndRejectsEmpty(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()

	for _, d := range []string{"", "   ", "\n\t", "bad \xff byte"} {
		_, err := svc.Add(ctx, d)
		require.Error(t, err)
		assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
	}
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "rejected adds must not touch the file")

	created, err := svc.Add(ctx, "  call mom  ")
	require.NoError(t, err)
	assert.Equal(t, "call mom", created.Description)
}

func TestService_AddWhenIDsAreExhausted(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()
	seed := `[{"id": 9223372036854775807, "description": "last", "status": "todo",` +
		` "createdAt": "2024-03-01T09:00:00.000000Z", "updatedAt": "2024-03-01T09:00:00.000000Z"}]`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	_, err := svc.Add(ctx, "next")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.DataLoss), "got %v", err)
	assert.Equal(t, seed, readFile(t, path), "the file is not rewritten")

	assert.Equal(t, []int{math.MaxInt}, ids(list(t, svc, "")))
}

func TestService_RejectsInvalidUTF8(t *testing.T) {
	for _, name := range []string{"tasks.json", "tasks.toml", "tasks.yaml"} {
		t.Run(name, func(t *testing.T) {
			svc, path := newServiceFor(t, name)
			ctx := context.Background()

			_, err := svc.Add(ctx, "bad \xff byte")
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
			_, err = os.Stat(path)
			assert.True(t, os.IsNotExist(err))

			created, err := svc.Add(ctx, "café")
			require.NoError(t, err)
			before := readFile(t, path)

			bad := "still \xc3 bad"
			_, err = svc.Update(ctx, created.ID, task.UpdateTaskRequest{Description: &bad})
			assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)
			assert.Equal(t, before, readFile(t, path))

			stored := list(t, svc, "")
			require.Len(t, stored, 1)
			assert.Equal(t, "café", stored[0].Description)
		})
	}
}

func TestService_Update(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	original, err := svc.Add(ctx, "draft")
	require.NoError(t, err)

	desc := "final"
	status := task.StatusInProgress
	updated, err := svc.Update(ctx, original.ID, task.UpdateTaskRequest{Description: &desc, Status: &status})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Description)
	assert.Equal(t, task.StatusInProgress, updated.Status)
	assert.True(t, original.UpdatedAt.Before(updated.UpdatedAt))

	onlyDesc := "final v2"
	updated2, err := svc.Update(ctx, original.ID, task.UpdateTaskRequest{Description: &onlyDesc})
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, updated2.Status, "status is kept when not supplied")

	noop, err := svc.Update(ctx, original.ID, task.UpdateTaskRequest{})
	require.NoError(t, err)
	assert.Equal(t, "final v2", noop.Description)
	assert.True(t, updated2.UpdatedAt.Before(noop.UpdatedAt), "a no-op update still refreshes updatedAt")

	stored := list(t, svc, "")
	require.Len(t, stored, 1)
	assert.Equal(t, "final v2", stored[0].Description)
	assert.False(t, stored[0].UpdatedAt.Before(stored[0].CreatedAt))
}

func TestService_UpdateMissingLeavesFileUntouched(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, "only task")
	require.NoError(t, err)
	before := readFile(t, path)

	x := "x"
	_, err = svc.Update(ctx, 99, task.UpdateTaskRequest{Description: &x})
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "got %v", err)

	_, err = svc.MarkStatus(ctx, 99, task.StatusDone)
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound), "got %v", err)

	assert.Equal(t, before, readFile(t, path))
}

func TestService_ValidationBeforeLookup(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()
	_, err := svc.Add(ctx, "only task")
	require.NoError(t, err)
	before := readFile(t, path)

	blank := "  "
	_, err = svc.Update(ctx, 1, task.UpdateTaskRequest{Description: &blank})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)

	bad := task.Status("later")
	_, err = svc.Update(ctx, 1, task.UpdateTaskRequest{Status: &bad})
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)

	_, err = svc.MarkStatus(ctx, 99, bad)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)

	_, _, err = svc.List(ctx, bad)
	assert.True(t, cerr.IsCode(err, cerr.InvalidArgument), "got %v", err)

	assert.Equal(t, before, readFile(t, path))
}

func TestService_ListIsRestartableSnapshot(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	for _, d := range []string{"a", "b", "c"} {
		_, err := svc.Add(ctx, d)
		require.NoError(t, err)
	}
	_, err := svc.MarkStatus(ctx, 2, task.StatusDone)
	require.NoError(t, err)

	seq, n, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	first := ids(slices.Collect(seq))
	second := ids(slices.Collect(seq))
	assert.Equal(t, []int{1, 2, 3}, first)
	assert.Equal(t, first, second)

	for tk := range seq {
		tk.Description = "changed through the iterator"
	}
	assert.Equal(t, "a", list(t, svc, "")[0].Description)

	_, err = svc.Add(ctx, "d")
	require.NoError(t, err)
	assert.Len(t, slices.Collect(seq), 3, "the sequence is a snapshot")

	_, n, err = svc.List(ctx, task.StatusInProgress)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_ListEmpty(t *testing.T) {
	svc, path := newService(t)

	seq, n, err := svc.List(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, slices.Collect(seq))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "list never writes")
}

func TestService_CorruptFileIsReported(t *testing.T) {
	svc, path := newService(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	ctx := context.Background()

	_, _, err := svc.List(ctx, "")
	assert.True(t, cerr.IsCode(err, cerr.DataLoss), "got %v", err)

	_, err = svc.Add(ctx, "new")
	assert.True(t, cerr.IsCode(err, cerr.DataLoss), "got %v", err)

	assert.Equal(t, "{not json", readFile(t, path))
}

func TestService_ConcurrentAddsGetUniqueIDs(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	p := pool.NewWithResults[int]().WithErrors().WithMaxGoroutines(8)
	for i := 0; i < 20; i++ {
		p.Go(func() (int, error) {
			created, err := svc.Add(ctx, "parallel")
			if err != nil {
				return 0, err
			}
			return created.ID, nil
		})
	}
	got, err := p.Wait()
	require.NoError(t, err)

	slices.Sort(got)
	want := make([]int, 20)
	for i := range want {
		want[i] = i + 1
	}
	assert.Equal(t, want, got)
	assert.Len(t, list(t, svc, ""), 20)
}

func TestService_Format(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()
	legacy := `[{"id": 2, "description": "legacy", "status": "todo",
  "createdAt": "2024-03-01T09:30:00Z", "updatedAt": "2024-03-01T09:30:00Z"}]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	before, after, err := svc.Format(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, legacy, string(before))
	assert.NotEqual(t, string(before), string(after))
	assert.Equal(t, legacy, readFile(t, path), "dry run does not write")

	_, after2, err := svc.Format(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, string(after), string(after2))
	assert.Equal(t, string(after), readFile(t, path))
	assert.Contains(t, readFile(t, path), `"createdAt": "2024-03-01T09:30:00.000000Z"`)

	before3, after3, err := svc.Format(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, before3, after3, "a canonical file is left alone")
}
