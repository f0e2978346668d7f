package task

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) Timestamp {
	parsed, err := ParseTimestamp(s)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestCollection_NextID(t *testing.T) {
	nextID := func(c *Collection) int {
		id, ok := c.NextID()
		require.True(t, ok)
		return id
	}
	assert.Equal(t, 1, nextID(NewCollection()))

	c := NewCollection(&Task{ID: 1}, &Task{ID: 7}, &Task{ID: 3})
	assert.Equal(t, 8, nextID(c))

	c.Remove(3)
	assert.Equal(t, 8, nextID(c), "gaps below the maximum are not reused")

	c.Remove(7)
	assert.Equal(t, 2, nextID(c))

	c.Append(&Task{ID: math.MaxInt})
	_, ok := c.NextID()
	assert.False(t, ok, "no id after math.MaxInt")
}

func TestCollection_FindRemove(t *testing.T) {
	c := NewCollection(&Task{ID: 1, Description: "a"}, &Task{ID: 2, Description: "b"}, &Task{ID: 3, Description: "c"})

	require.NotNil(t, c.Find(2))
	assert.Equal(t, "b", c.Find(2).Description)
	assert.Nil(t, c.Find(9))

	assert.True(t, c.Remove(2))
	assert.False(t, c.Remove(2))
	require.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Tasks[0].ID)
	assert.Equal(t, 3, c.Tasks[1].ID)
}

func TestCollection_Validate(t *testing.T) {
	created := ts("2024-03-01T09:30:00.000000Z")
	later := ts("2024-03-01T10:30:00.000000Z")
	valid := func(id int) *Task {
		return &Task{ID: id, Description: "x", Status: StatusTodo, CreatedAt: created, UpdatedAt: later}
	}

	require.NoError(t, NewCollection().Validate())
	require.NoError(t, NewCollection(valid(1), valid(2)).Validate())

	tests := []struct {
		name   string
		mutate func(t *Task)
		reason string
	}{
		{"non-positive id", func(t *Task) { t.ID = -1 }, "id must be positive"},
		{"blank description", func(t *Task) { t.Description = " \t" }, "description is empty"},
		{"unknown status", func(t *Task) { t.Status = "blocked" }, "unknown status blocked"},
		{"missing timestamp", func(t *Task) { t.CreatedAt = Timestamp{} }, "missing timestamp"},
		{"updated before created", func(t *Task) { t.UpdatedAt = ts("2024-02-01T00:00:00.000000Z") }, "updatedAt is before createdAt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := valid(2)
			tt.mutate(broken)
			err := NewCollection(valid(1), broken).Validate()
			var ite *InvalidTaskError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, 1, ite.Index)
			assert.Equal(t, tt.reason, ite.Reason)
		})
	}

	err := NewCollection(valid(4), valid(4)).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id")
}

func TestTask_TouchNeverGoesBack(t *testing.T) {
	task := &Task{CreatedAt: ts("2024-03-01T09:30:00.000000Z")}

	task.touch(ts("2024-03-01T08:00:00.000000Z"))
	assert.True(t, task.UpdatedAt.Equal(task.CreatedAt))

	task.touch(ts("2024-03-01T11:00:00.000000Z"))
	assert.Equal(t, "2024-03-01T11:00:00.000000Z", task.UpdatedAt.String())
}

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"todo", "in-progress", "done"} {
		got, err := ParseStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, Status(in), got)
	}

	for _, in := range []string{"later", "DONE", " done ", "in_progress", "inprogress", ""} {
		_, err := ParseStatus(in)
		require.Error(t, err, in)
		assert.Contains(t, err.Error(), "todo, in-progress, done")
	}
}

func TestTimestamp(t *testing.T) {
	at := NewTimestamp(time.Date(2024, 3, 1, 9, 30, 0, 123456789, time.FixedZone("JST", 9*60*60)))
	assert.Equal(t, "2024-03-01T00:30:00.123456Z", at.String())

	parsed, err := ParseTimestamp(at.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(at))

	rfc, err := ParseTimestamp("2024-03-01T09:30:00.123456+09:00")
	require.NoError(t, err)
	assert.True(t, rfc.Equal(at))

	zero, err := ParseTimestamp("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = ParseTimestamp("tomorrow")
	assert.Error(t, err)
}

func TestTimestamp_SortsLexicographically(t *testing.T) {
	early := NewTimestamp(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	late := NewTimestamp(time.Date(2024, 3, 1, 9, 0, 0, 1000, time.UTC))
	assert.Less(t, early.String(), late.String())
	assert.True(t, early.Before(late))
}

func TestTimestamp_JSON(t *testing.T) {
	task := Task{ID: 1, Description: "a", Status: StatusTodo, CreatedAt: ts("2024-03-01T09:30:00.000000Z")}
	data, err := json.Marshal(task)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"description":"a","status":"todo","createdAt":"2024-03-01T09:30:00.000000Z","updatedAt":""}`, string(data))

	var decoded Task
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.CreatedAt.Equal(task.CreatedAt))
	assert.True(t, decoded.UpdatedAt.IsZero())
}
