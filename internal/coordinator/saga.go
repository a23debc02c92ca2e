package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcmexdev/disqueria/internal/coordinator/sagalog"
)

// Step represents a single unit of work in the saga. Compensate undoes a
// successful Execute; it is never called for a step whose Execute failed.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Policy decides what happens to applied steps when a later step fails.
type Policy string

const (
	// CompensationNone leaves applied steps in place.
	CompensationNone Policy = "none"
	// CompensationSaga compensates applied steps in reverse order.
	CompensationSaga Policy = "saga"
)

// ParsePolicy accepts "none" and "saga". Empty means CompensationNone.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", CompensationNone:
		return CompensationNone, nil
	case CompensationSaga:
		return CompensationSaga, nil
	default:
		return "", fmt.Errorf("coordinator: unknown compensation policy %q", s)
	}
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithPolicy(p Policy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// WithStepTimeout bounds each Execute and Compensate call.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stepTimeout = d }
}

// WithLog records every step transition in repo.
func WithLog(repo sagalog.Repository) Option {
	return func(o *Orchestrator) { o.log = repo }
}

// StepError reports which step stopped the saga. It unwraps to the step's
// own error so its classification survives.
type StepError struct {
	Step  string
	Index int
	Err   error
	// Compensated is set when CompensationSaga undid every step applied
	// before the failure. It stays false when nothing was applied or when
	// any compensation failed.
	Compensated bool
}

func (e *StepError) Error() string { return fmt.Sprintf("step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Orchestrator runs a fixed list of steps strictly one after another and
// stops at the first failure.
type Orchestrator struct {
	sagaID      string
	steps       []Step
	policy      Policy
	stepTimeout time.Duration
	log         sagalog.Repository

	applied []Step
}

func NewOrchestrator(sagaID string, steps []Step, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sagaID: sagaID,
		steps:  steps,
		policy: CompensationNone,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Policy returns the configured compensation policy.
func (o *Orchestrator) Policy() Policy { return o.policy }

// Applied returns the names of the steps that executed successfully and
// have not been compensated.
func (o *Orchestrator) Applied() []string {
	names := make([]string, len(o.applied))
	for i, s := range o.applied {
		names[i] = s.Name()
	}
	return names
}

// Start runs the steps sequentially, awaiting each before the next. The
// context is checked before every step, so cancelling it aborts the run
// between steps. On the first failure the run stops and a *StepError is
// returned; under CompensationSaga the steps applied so far are compensated
// first.
func (o *Orchestrator) Start(ctx context.Context) error {
	for i, step := range o.steps {
		if err := ctx.Err(); err != nil {
			return o.fail(ctx, i, step, err)
		}

		slog.DebugContext(ctx, "executing step", "saga_id", o.sagaID, "step", step.Name())
		if err := o.run(ctx, step.Execute); err != nil {
			slog.WarnContext(ctx, "step failed", "saga_id", o.sagaID, "step", step.Name(), "error", err)
			return o.fail(ctx, i, step, err)
		}

		o.applied = append(o.applied, step)
		o.record(ctx, sagalog.StatusStepDone, step.Name(), nil)
	}
	return nil
}

// Rollback compensates every applied step in reverse order when the policy
// is CompensationSaga, and does nothing under CompensationNone. It is used
// by Start on step failure and by callers whose work after Start failed.
// Compensation runs even if ctx is already cancelled. It reports whether
// every compensation succeeded.
func (o *Orchestrator) Rollback(ctx context.Context, cause error) bool {
	if o.policy != CompensationSaga || len(o.applied) == 0 {
		return true
	}

	ctx = context.WithoutCancel(ctx)
	o.record(ctx, sagalog.StatusCompensating, "", cause)

	ok := true
	for i := len(o.applied) - 1; i >= 0; i-- {
		step := o.applied[i]
		slog.InfoContext(ctx, "compensating step", "saga_id", o.sagaID, "step", step.Name())
		if err := o.run(ctx, step.Compensate); err != nil {
			ok = false
			slog.ErrorContext(ctx, "CRITICAL: failed to compensate step",
				"saga_id", o.sagaID,
				"step", step.Name(),
				"error", err,
			)
			o.record(ctx, sagalog.StatusFailed, step.Name(), fmt.Errorf("compensation: %w", err))
			continue
		}
		o.record(ctx, sagalog.StatusCompensated, step.Name(), nil)
	}
	o.applied = nil
	return ok
}

func (o *Orchestrator) fail(ctx context.Context, index int, step Step, err error) *StepError {
	o.record(ctx, sagalog.StatusStepFailed, step.Name(), err)
	undo := o.policy == CompensationSaga && len(o.applied) > 0
	ok := o.Rollback(ctx, err)
	return &StepError{Step: step.Name(), Index: index, Err: err, Compensated: undo && ok}
}

func (o *Orchestrator) run(ctx context.Context, fn func(context.Context) error) error {
	if o.stepTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	return fn(ctx)
}

func (o *Orchestrator) record(ctx context.Context, status sagalog.Status, step string, cause error) {
	if o.log == nil {
		return
	}
	var errs []string
	if cause != nil {
		errs = []string{cause.Error()}
	}
	if err := o.log.Save(ctx, sagalog.NewEntry(ctx, o.sagaID, status, step, "", errs)); err != nil {
		slog.WarnContext(ctx, "could not write saga log", "saga_id", o.sagaID, "error", err)
	}
}
