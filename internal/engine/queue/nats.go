package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"leadflow/internal/engine/dispatch"
	"leadflow/internal/platform/config"
)

type msgPublisher interface {
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSQueue publishes jobs to JetStream on <prefix>.<org>.<priority>.
// The execution id doubles as the JetStream message id, so a retried publish is deduplicated.
type NATSQueue struct {
	js     msgPublisher
	nc     *nats.Conn
	prefix string
	now    func() time.Time
}

func ConnectNATS(ctx context.Context, cfg config.NATSConfig) (*NATSQueue, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("leadflow"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, err
	}

	if cfg.Stream != "" {
		_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     cfg.Stream,
			Subjects: []string{cfg.SubjectPrefix + ".>"},
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Stream, err)
		}
	}

	q := NewNATSQueue(js, cfg.SubjectPrefix)
	q.nc = nc
	return q, nil
}

func NewNATSQueue(js msgPublisher, prefix string) *NATSQueue {
	if prefix == "" {
		prefix = "workflows"
	}
	return &NATSQueue{js: js, prefix: prefix, now: time.Now}
}

func (q *NATSQueue) Enqueue(ctx context.Context, workflowID string, data *dispatch.TriggerData, opts dispatch.EnqueueOptions) (string, error) {
	job := newJob(workflowID, data, opts, q.now())

	msg, err := q.message(job)
	if err != nil {
		return "", err
	}

	if _, err := q.js.PublishMsg(ctx, msg); err != nil {
		return "", fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	return job.ExecutionID, nil
}

func (q *NATSQueue) message(job *Job) (*nats.Msg, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, err
	}

	org := ""
	if job.Trigger != nil {
		org = job.Trigger.OrganizationID
	}

	msg := nats.NewMsg(fmt.Sprintf("%s.%s.%s", q.prefix, subjectToken(org), job.Priority))
	msg.Data = payload
	msg.Header.Set(nats.MsgIdHdr, job.ExecutionID)
	msg.Header.Set(HeaderExecutionID, job.ExecutionID)
	msg.Header.Set(HeaderWorkflowID, job.WorkflowID)
	msg.Header.Set(HeaderPriority, string(job.Priority))
	if job.Delay != "" {
		msg.Header.Set(HeaderDelay, job.Delay)
	}
	return msg, nil
}

func (q *NATSQueue) Close() error {
	if q.nc != nil {
		return q.nc.Drain()
	}
	return nil
}

// subjectToken makes an organization id safe to use as one subject token.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
