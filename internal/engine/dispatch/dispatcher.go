package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"leadflow/internal/platform/metrics"
	"leadflow/internal/platform/models"
)

const auditWriteTimeout = 5 * time.Second

type Options struct {
	// EnqueueTimeout bounds a single enqueue call. Zero means no per-call bound.
	EnqueueTimeout time.Duration
	// BatchTimeout bounds every enqueue of one dispatch call. Zero means no bound.
	BatchTimeout time.Duration
	// MaxConcurrency above 1 enqueues workflows in parallel.
	MaxConcurrency int
	Classifier     *Classifier
	Now            func() time.Time
}

// Dispatcher fans one trigger event out to the tenant's matching workflows.
type Dispatcher struct {
	store      WorkflowStore
	queue      Enqueuer
	audit      AuditSink
	classifier *Classifier
	opts       Options
	now        func() time.Time
}

func NewDispatcher(store WorkflowStore, queue Enqueuer, audit AuditSink, opts Options) *Dispatcher {
	d := &Dispatcher{
		store:      store,
		queue:      queue,
		audit:      audit,
		classifier: opts.Classifier,
		opts:       opts,
		now:        opts.Now,
	}
	if d.classifier == nil {
		d.classifier = NewClassifier()
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

// Dispatch evaluates every active workflow bound to the request's trigger type.
// Only ErrInvalidInput and *LookupError are returned; per-workflow failures are
// reported in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) (*Result, error) {
	start := d.now()

	if req == nil || req.Lead == nil || req.OrganizationID == "" {
		return nil, ErrInvalidInput
	}

	triggerType := req.TriggerType
	if triggerType == "" {
		triggerType = models.TriggerLeadCreated
	}

	event := &TriggerEvent{
		Type:           triggerType,
		Source:         req.Lead.Source,
		LeadID:         req.Lead.ID,
		Timestamp:      start,
		OrganizationID: req.OrganizationID,
		Lead:           req.Lead,
	}

	logger := log.With().
		Str("org_id", event.OrganizationID).
		Str("lead_id", event.LeadID).
		Str("trigger_type", event.Type).
		Logger()

	workflows, err := d.store.ListActiveByTrigger(ctx, event.OrganizationID, event.Type)
	if err != nil {
		logger.Error().Err(err).Msg("workflow lookup failed")
		return nil, &LookupError{Err: err, Elapsed: d.now().Sub(start)}
	}
	workflows = uniqueWorkflows(workflows)

	results := make([]EnqueueResult, len(workflows))
	batchCtx := ctx
	if d.opts.BatchTimeout > 0 {
		var cancel context.CancelFunc
		batchCtx, cancel = context.WithTimeout(ctx, d.opts.BatchTimeout)
		defer cancel()
	}
	d.run(batchCtx, event, req, workflows, results)

	result := &Result{
		Executions:     results,
		LeadID:         event.LeadID,
		CorrelationIDs: make([]string, 0, len(results)),
	}
	result.Summary.TotalWorkflows = len(results)
	for _, r := range results {
		switch r.Status {
		case StatusQueued:
			result.Summary.Queued++
			result.CorrelationIDs = append(result.CorrelationIDs, r.ExecutionID)
		case StatusFailed:
			result.Summary.Failed++
		case StatusSkipped:
			result.Summary.Skipped++
		}
		metrics.DispatchResults.WithLabelValues(string(r.Status)).Inc()
	}
	result.Message = summaryMessage(result.Summary)

	elapsed := d.now().Sub(start)
	result.Summary.ProcessingTimeMs = elapsed.Milliseconds()
	metrics.DispatchDuration.Observe(elapsed.Seconds())

	logger.Info().
		Int("total", result.Summary.TotalWorkflows).
		Int("queued", result.Summary.Queued).
		Int("failed", result.Summary.Failed).
		Int("skipped", result.Summary.Skipped).
		Int64("processing_time_ms", result.Summary.ProcessingTimeMs).
		Msg("webhook dispatched")

	d.recordAudit(ctx, event, req, result.Summary)

	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, event *TriggerEvent, req *Request, workflows []*models.Workflow, results []EnqueueResult) {
	if d.opts.MaxConcurrency <= 1 || len(workflows) <= 1 {
		for i, wf := range workflows {
			results[i] = d.handle(ctx, event, req, wf)
		}
		return
	}

	sem := make(chan struct{}, d.opts.MaxConcurrency)
	var wg sync.WaitGroup
	for i, wf := range workflows {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, wf *models.Workflow) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = d.handle(ctx, event, req, wf)
		}(i, wf)
	}
	wg.Wait()
}

func (d *Dispatcher) handle(ctx context.Context, event *TriggerEvent, req *Request, wf *models.Workflow) EnqueueResult {
	res := EnqueueResult{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
	}

	if ok, reason := Match(wf.TriggerConfig, event); !ok {
		res.Status = StatusSkipped
		res.Reason = reason
		res.Timestamp = d.now()
		log.Debug().Str("workflow_id", wf.ID).Str("reason", string(reason)).Msg("workflow skipped")
		return res
	}

	priority, rule := d.classifier.Classify(event, wf, event.Lead)
	res.Priority = priority

	execID, err := d.enqueue(ctx, event, req, wf, priority, rule)
	res.Timestamp = d.now()
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		log.Warn().Err(err).
			Str("org_id", event.OrganizationID).
			Str("workflow_id", wf.ID).
			Str("priority", string(priority)).
			Msg("workflow enqueue failed")
		return res
	}

	res.Status = StatusQueued
	res.ExecutionID = execID
	metrics.DispatchPriority.WithLabelValues(string(priority)).Inc()
	log.Debug().
		Str("workflow_id", wf.ID).
		Str("execution_id", execID).
		Str("priority", string(priority)).
		Str("rule", rule).
		Msg("workflow queued")
	return res
}

type enqueueOutcome struct {
	id  string
	err error
}

// enqueue gives up when ctx or the per-call timeout expires, even if the queue
// client ignores its context.
func (d *Dispatcher) enqueue(ctx context.Context, event *TriggerEvent, req *Request, wf *models.Workflow, priority Priority, rule string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("dispatch deadline reached before enqueue: %w", err)
	}

	callCtx := ctx
	if d.opts.EnqueueTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.opts.EnqueueTimeout)
		defer cancel()
	}

	data := &TriggerData{
		TriggerType:    event.Type,
		OrganizationID: event.OrganizationID,
		LeadID:         event.LeadID,
		Source:         event.Source,
		Timestamp:      event.Timestamp,
		Lead:           event.Lead,
		Metadata:       req.Metadata,
	}
	opts := EnqueueOptions{
		Priority: priority,
		Delay:    wf.TriggerConfig.Delay.Std(),
		Metadata: map[string]string{
			"organizationId": event.OrganizationID,
			"leadId":         event.LeadID,
			"workflowName":   wf.Name,
			"triggerType":    event.Type,
			"priorityRule":   rule,
		},
	}

	done := make(chan enqueueOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- enqueueOutcome{err: fmt.Errorf("enqueue panicked: %v", r)}
			}
		}()
		id, err := d.queue.Enqueue(callCtx, wf.ID, data, opts)
		done <- enqueueOutcome{id: id, err: err}
	}()

	select {
	case out := <-done:
		if out.err == nil && out.id == "" {
			return "", fmt.Errorf("queue returned an empty execution id")
		}
		return out.id, out.err
	case <-callCtx.Done():
		return "", fmt.Errorf("enqueue timed out: %w", callCtx.Err())
	}
}

// recordAudit is best-effort: failures are logged and never reach the caller.
func (d *Dispatcher) recordAudit(ctx context.Context, event *TriggerEvent, req *Request, summary Summary) {
	if d.audit == nil {
		return
	}

	auditCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	rec := &models.WebhookExecution{
		OrganizationID:   event.OrganizationID,
		LeadID:           event.LeadID,
		TriggerType:      event.Type,
		TotalWorkflows:   summary.TotalWorkflows,
		Queued:           summary.Queued,
		Failed:           summary.Failed,
		Skipped:          summary.Skipped,
		ProcessingTimeMs: summary.ProcessingTimeMs,
		Payload:          string(req.RawPayload),
		CreatedAt:        event.Timestamp.Unix(),
	}
	if err := d.writeAudit(auditCtx, rec); err != nil {
		log.Error().Err(err).
			Str("org_id", event.OrganizationID).
			Str("lead_id", event.LeadID).
			Msg("failed to record webhook execution")
	}
}

func (d *Dispatcher) writeAudit(ctx context.Context, rec *models.WebhookExecution) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("audit sink panicked: %v", r)
		}
	}()
	return d.audit.RecordExecution(ctx, rec)
}

func uniqueWorkflows(workflows []*models.Workflow) []*models.Workflow {
	seen := make(map[string]struct{}, len(workflows))
	out := make([]*models.Workflow, 0, len(workflows))
	for _, wf := range workflows {
		if wf == nil {
			continue
		}
		if _, dup := seen[wf.ID]; dup {
			continue
		}
		seen[wf.ID] = struct{}{}
		out = append(out, wf)
	}
	return out
}

func summaryMessage(s Summary) string {
	if s.TotalWorkflows == 0 {
		return "No active workflows found for trigger"
	}
	return fmt.Sprintf("Processed %d workflows: %d queued, %d skipped, %d failed",
		s.TotalWorkflows, s.Queued, s.Skipped, s.Failed)
}
