package execution

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdmx/execbox/sandbox"
)

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusTimeout.IsTerminal())
}

func TestRecordTransitions(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)
	job := Job{Language: "python", Code: "print('hi')", TimeoutSeconds: 10}

	t.Run("NewIsPending", func(t *testing.T) {
		rec := newRecord("id-1", job, start)
		assert.Equal(t, StatusPending, rec.Status)
		assert.Nil(t, rec.EndTime)
		assert.Nil(t, rec.Output)
		assert.Nil(t, rec.Error)
		assert.Equal(t, start, rec.StartTime)
	})

	t.Run("CompleteWithoutStderr", func(t *testing.T) {
		rec := newRecord("id-1", job, start)
		require.NoError(t, rec.Complete(sandbox.Output{Stdout: "hi"}, end))

		assert.Equal(t, StatusCompleted, rec.Status)
		require.NotNil(t, rec.Output)
		assert.Equal(t, "hi", *rec.Output)
		assert.Nil(t, rec.Error)
		require.NotNil(t, rec.EndTime)
		assert.Equal(t, end, *rec.EndTime)
	})

	t.Run("CompleteWithStderr", func(t *testing.T) {
		rec := newRecord("id-1", job, start)
		require.NoError(t, rec.Complete(sandbox.Output{Stdout: "partial", Stderr: "Traceback"}, end))

		assert.Equal(t, StatusCompleted, rec.Status)
		assert.Equal(t, "partial", *rec.Output)
		require.NotNil(t, rec.Error)
		assert.Equal(t, "Traceback", *rec.Error)
	})

	t.Run("Fail", func(t *testing.T) {
		rec := newRecord("id-1", job, start)
		require.NoError(t, rec.Fail("Execution timed out after 1 seconds", end))

		assert.Equal(t, StatusFailed, rec.Status)
		assert.Nil(t, rec.Output)
		assert.Equal(t, "Execution timed out after 1 seconds", *rec.Error)
		require.NotNil(t, rec.EndTime)
	})

	t.Run("SecondTransitionRefused", func(t *testing.T) {
		rec := newRecord("id-1", job, start)
		require.NoError(t, rec.Complete(sandbox.Output{Stdout: "hi"}, end))

		assert.ErrorIs(t, rec.Fail("late", end.Add(time.Second)), ErrAlreadyTerminal)
		assert.ErrorIs(t, rec.Complete(sandbox.Output{Stdout: "again"}, end), ErrAlreadyTerminal)
		assert.Equal(t, StatusCompleted, rec.Status)
		assert.Equal(t, "hi", *rec.Output)
		assert.Equal(t, end, *rec.EndTime)
	})
}

func TestRecordJSONShape(t *testing.T) {
	rec := newRecord("id-1", Job{Language: "python", Code: "print(1)", TimeoutSeconds: 5},
		time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))

	assert.ElementsMatch(t,
		[]string{"id", "status", "language", "code", "input", "timeoutSeconds", "startTime", "endTime", "output", "error"},
		keys(fields))
	assert.Equal(t, "pending", fields["status"])
	assert.Equal(t, float64(5), fields["timeoutSeconds"])
	assert.Nil(t, fields["endTime"])
	assert.Nil(t, fields["output"])
	assert.Nil(t, fields["error"])
	assert.Nil(t, fields["input"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
