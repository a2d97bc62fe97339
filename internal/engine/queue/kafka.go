package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"leadflow/internal/engine/dispatch"
	"leadflow/internal/platform/config"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaQueue writes jobs keyed by workflow id, so one workflow's executions stay ordered on a partition.
type KafkaQueue struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

func NewKafkaQueue(cfg config.KafkaConfig) (*KafkaQueue, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka queue requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka queue requires a topic")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		RequiredAcks: kafka.RequireAll,
		Balancer:     &kafka.Hash{},
	}
	return newKafkaQueue(w, cfg.Topic), nil
}

func newKafkaQueue(w messageWriter, topic string) *KafkaQueue {
	return &KafkaQueue{writer: w, topic: topic, now: time.Now}
}

func (q *KafkaQueue) Enqueue(ctx context.Context, workflowID string, data *dispatch.TriggerData, opts dispatch.EnqueueOptions) (string, error) {
	job := newJob(workflowID, data, opts, q.now())

	payload, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	headers := []kafka.Header{
		{Key: HeaderExecutionID, Value: []byte(job.ExecutionID)},
		{Key: HeaderPriority, Value: []byte(job.Priority)},
	}
	if job.Delay != "" {
		headers = append(headers, kafka.Header{Key: HeaderDelay, Value: []byte(job.Delay)})
	}

	err = q.writer.WriteMessages(ctx, kafka.Message{
		Topic:   q.topic,
		Key:     []byte(workflowID),
		Value:   payload,
		Headers: headers,
		Time:    job.EnqueuedAt,
	})
	if err != nil {
		return "", fmt.Errorf("write to %s: %w", q.topic, err)
	}
	return job.ExecutionID, nil
}

func (q *KafkaQueue) Close() error {
	return q.writer.Close()
}
