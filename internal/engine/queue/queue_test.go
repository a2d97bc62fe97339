package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"leadflow/internal/engine/dispatch"
	"leadflow/internal/platform/config"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testData() *dispatch.TriggerData {
	return &dispatch.TriggerData{
		TriggerType:    "lead_created",
		OrganizationID: "org.1",
		LeadID:         "L1",
		Lead:           &dispatch.Lead{ID: "L1"},
	}
}

type fakePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakePublisher) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: "WORKFLOW_EXECUTIONS", Sequence: uint64(len(f.msgs))}, nil
}

func TestNATSQueue_Enqueue(t *testing.T) {
	pub := &fakePublisher{}
	q := NewNATSQueue(pub, "workflows")
	q.now = func() time.Time { return testNow }

	id, err := q.Enqueue(context.Background(), "wf1", testData(), dispatch.EnqueueOptions{
		Priority: dispatch.PriorityCritical,
		Delay:    10 * time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, pub.msgs, 1)

	msg := pub.msgs[0]
	assert.Equal(t, "workflows.org_1.critical", msg.Subject)
	assert.Equal(t, id, msg.Header.Get(nats.MsgIdHdr))
	assert.Equal(t, "critical", msg.Header.Get(HeaderPriority))
	assert.Equal(t, "10m0s", msg.Header.Get(HeaderDelay))

	var job Job
	require.NoError(t, json.Unmarshal(msg.Data, &job))
	assert.Equal(t, "wf1", job.WorkflowID)
	assert.Equal(t, id, job.ExecutionID)
	require.NotNil(t, job.NotBefore)
	assert.True(t, job.NotBefore.Equal(testNow.Add(10*time.Minute)))
}

func TestNATSQueue_PublishError(t *testing.T) {
	q := NewNATSQueue(&fakePublisher{err: errors.New("no responders")}, "")

	id, err := q.Enqueue(context.Background(), "wf1", testData(), dispatch.EnqueueOptions{})
	assert.Error(t, err)
	assert.Empty(t, id)
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaQueue_Enqueue(t *testing.T) {
	w := &fakeWriter{}
	q := newKafkaQueue(w, "workflow-executions")

	id, err := q.Enqueue(context.Background(), "wf1", testData(), dispatch.EnqueueOptions{Priority: dispatch.PriorityLow})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "workflow-executions", msg.Topic)
	assert.Equal(t, []byte("wf1"), msg.Key)

	var job Job
	require.NoError(t, json.Unmarshal(msg.Value, &job))
	assert.Equal(t, id, job.ExecutionID)
	assert.Equal(t, dispatch.PriorityLow, job.Priority)
	assert.Nil(t, job.NotBefore)
}

func TestKafkaQueue_WriteError(t *testing.T) {
	q := newKafkaQueue(&fakeWriter{err: errors.New("leader not available")}, "t")
	_, err := q.Enqueue(context.Background(), "wf1", testData(), dispatch.EnqueueOptions{})
	assert.ErrorContains(t, err, "leader not available")
}

func TestNewKafkaQueue_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaQueue(config.KafkaConfig{Topic: "t"})
	assert.Error(t, err)
}

func TestLogQueue_Enqueue(t *testing.T) {
	q := NewLogQueue()
	id, err := q.Enqueue(context.Background(), "wf1", testData(), dispatch.EnqueueOptions{})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Enqueue(ctx, "wf1", testData(), dispatch.EnqueueOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_SelectsDriver(t *testing.T) {
	q, err := New(context.Background(), config.QueueConfig{Driver: "log"})
	require.NoError(t, err)
	assert.IsType(t, &LogQueue{}, q)

	_, err = New(context.Background(), config.QueueConfig{Driver: "sqs"})
	assert.Error(t, err)
}

func TestNewJob_DefaultsPriority(t *testing.T) {
	job := newJob("wf1", testData(), dispatch.EnqueueOptions{}, testNow)
	assert.Equal(t, dispatch.PriorityNormal, job.Priority)
	assert.Empty(t, job.Delay)
}
