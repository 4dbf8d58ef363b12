package natsmq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palettekit/palette-api/internal/task"
)

// fakeMsg implements the handful of jetstream.Msg methods handleTrigger
// touches; the embedded interface panics on anything else.
type fakeMsg struct {
	jetstream.Msg
	data   []byte
	acked  bool
	nakked bool
}

func (m *fakeMsg) Data() []byte   { return m.data }
func (m *fakeMsg) Subject() string { return triggerSubject }
func (m *fakeMsg) Ack() error     { m.acked = true; return nil }
func (m *fakeMsg) Nak() error     { m.nakked = true; return nil }

// fakeRunner returns a canned error from Run.
type fakeRunner struct {
	err    error
	taskID uuid.UUID
}

func (r *fakeRunner) Run(_ context.Context, taskID uuid.UUID) error {
	r.taskID = taskID
	return r.err
}

func triggerData(t *testing.T, taskID uuid.UUID) []byte {
	t.Helper()
	data, err := json.Marshal(taskTrigger{TaskID: taskID})
	require.NoError(t, err)
	return data
}

func testQueue() *Queue {
	return &Queue{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestHandleTrigger(t *testing.T) {
	t.Parallel()

	t.Run("success acks", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		runner := &fakeRunner{}
		msg := &fakeMsg{data: triggerData(t, id)}

		testQueue().handleTrigger(context.Background(), runner, msg)

		assert.Equal(t, id, runner.taskID)
		assert.True(t, msg.acked)
		assert.False(t, msg.nakked)
	})

	t.Run("claim conflict is benign and acks", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{err: task.ErrClaimConflict}
		msg := &fakeMsg{data: triggerData(t, uuid.New())}

		testQueue().handleTrigger(context.Background(), runner, msg)

		assert.True(t, msg.acked)
		assert.False(t, msg.nakked)
	})

	t.Run("orchestration fault naks for redelivery", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{err: errors.New("store unavailable")}
		msg := &fakeMsg{data: triggerData(t, uuid.New())}

		testQueue().handleTrigger(context.Background(), runner, msg)

		assert.False(t, msg.acked)
		assert.True(t, msg.nakked)
	})

	t.Run("malformed payload is dropped with ack", func(t *testing.T) {
		t.Parallel()
		runner := &fakeRunner{}
		msg := &fakeMsg{data: []byte("{not json")}

		testQueue().handleTrigger(context.Background(), runner, msg)

		assert.Equal(t, uuid.Nil, runner.taskID)
		assert.True(t, msg.acked)
		assert.False(t, msg.nakked)
	})
}
