package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"leadflow/internal/engine/dispatch"
	"leadflow/internal/platform/config"
)

const (
	HeaderPriority    = "Leadflow-Priority"
	HeaderDelay       = "Leadflow-Delay"
	HeaderWorkflowID  = "Leadflow-Workflow-Id"
	HeaderExecutionID = "Leadflow-Execution-Id"
)

// Queue is an execution queue the dispatcher can enqueue into.
type Queue interface {
	dispatch.Enqueuer
	Close() error
}

// Job is the message body every queue driver publishes.
type Job struct {
	ExecutionID string                `json:"executionId"`
	WorkflowID  string                `json:"workflowId"`
	Priority    dispatch.Priority     `json:"priority"`
	Delay       string                `json:"delay,omitempty"`
	NotBefore   *time.Time            `json:"notBefore,omitempty"`
	Metadata    map[string]string     `json:"metadata,omitempty"`
	Trigger     *dispatch.TriggerData `json:"trigger"`
	EnqueuedAt  time.Time             `json:"enqueuedAt"`
}

func newJob(workflowID string, data *dispatch.TriggerData, opts dispatch.EnqueueOptions, now time.Time) *Job {
	job := &Job{
		ExecutionID: "exec_" + uuid.New().String(),
		WorkflowID:  workflowID,
		Priority:    opts.Priority,
		Metadata:    opts.Metadata,
		Trigger:     data,
		EnqueuedAt:  now.UTC(),
	}
	if job.Priority == "" {
		job.Priority = dispatch.PriorityNormal
	}
	if opts.Delay > 0 {
		notBefore := job.EnqueuedAt.Add(opts.Delay)
		job.Delay = opts.Delay.String()
		job.NotBefore = &notBefore
	}
	return job
}

// New builds the queue selected by cfg.Driver.
func New(ctx context.Context, cfg config.QueueConfig) (Queue, error) {
	switch strings.ToLower(cfg.Driver) {
	case "nats":
		return ConnectNATS(ctx, cfg.NATS)
	case "kafka":
		return NewKafkaQueue(cfg.Kafka)
	case "", "log":
		return NewLogQueue(), nil
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
