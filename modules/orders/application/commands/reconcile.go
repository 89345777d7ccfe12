package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rai/storefront-payments/modules/orders/domain"
	"github.com/rai/storefront-payments/modules/shared/events"
)

const tracerName = "github.com/rai/storefront-payments/modules/orders"

// ReconcilerConfig tunes the side-effect steps.
type ReconcilerConfig struct {
	// StepLease bounds how long one trigger may hold a step before another
	// may take it over. It must exceed SideEffectTimeout, or a slow attempt
	// can still be running when a second trigger claims the same step.
	StepLease time.Duration
	// MaxStepAttempts failures abandon a step. Zero retries forever.
	MaxStepAttempts int
	// SideEffectTimeout bounds each invoice or notification attempt.
	SideEffectTimeout time.Duration
	Now               func() time.Time
}

func (c ReconcilerConfig) withDefaults() ReconcilerConfig {
	if c.StepLease <= 0 {
		c.StepLease = 2 * time.Minute
	}
	if c.SideEffectTimeout <= 0 {
		c.SideEffectTimeout = 30 * time.Second
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Reconciler advances an order from pending to fulfilled. Every entry point
// (client confirmation, webhook, manual retry) runs the same steps, and every
// step is a conditional write, so any number of concurrent or repeated calls
// converge on one payment transition, one invoice upload and one email.
//
// Within one call the steps are sequential: the payment transition commits
// before the invoice is attempted, and the notification waits until the
// invoice has been attempted by this call or settled by another.
type Reconciler struct {
	repo      domain.OrderRepository
	renderer  InvoiceRenderer
	storage   ObjectStorage
	notifier  Notifier
	publisher events.Publisher
	cfg       ReconcilerConfig
	logger    *slog.Logger
	tracer    trace.Tracer

	background sync.WaitGroup
}

func NewReconciler(
	repo domain.OrderRepository,
	renderer InvoiceRenderer,
	storage ObjectStorage,
	notifier Notifier,
	publisher events.Publisher,
	cfg ReconcilerConfig,
	logger *slog.Logger,
) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		repo:      repo,
		renderer:  renderer,
		storage:   storage,
		notifier:  notifier,
		publisher: publisher,
		cfg:       cfg.withDefaults(),
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// ReconcileRequest identifies the payment to reconcile. PaymentID may be
// empty only for manual retries of an order that is already paid.
type ReconcileRequest struct {
	IntentID  string
	PaymentID string
	Trigger   Trigger
}

// Reconcile runs the whole pipeline synchronously. Side-effect failures are
// reported in the Outcome, never as the returned error.
//
// Errors: domain.ErrOrderNotFound, domain.ErrPaymentNotConfirmed (manual
// retry of an unpaid order), domain.ErrPersistence.
func (r *Reconciler) Reconcile(ctx context.Context, req ReconcileRequest) (Outcome, error) {
	ctx, span := r.startSpan(ctx, "orders.Reconcile", req)
	defer span.End()

	order, outcome, err := r.settle(ctx, req)
	if err != nil || outcome.AlreadyProcessed {
		endSpan(span, err)
		return outcome, err
	}

	outcome.Invoice, outcome.Notification = r.fulfil(ctx, order)
	span.SetAttributes(
		attribute.String("invoice", string(outcome.Invoice.Status)),
		attribute.String("notification", string(outcome.Notification.Status)),
	)
	return outcome, nil
}

// ReconcileAsync commits the payment transition and returns; invoice and
// notification run in the background, detached from ctx's cancellation.
// Call Wait to drain background work before shutdown.
func (r *Reconciler) ReconcileAsync(ctx context.Context, req ReconcileRequest) (Outcome, error) {
	ctx, span := r.startSpan(ctx, "orders.ReconcileAsync", req)
	defer span.End()

	order, outcome, err := r.settle(ctx, req)
	if err != nil || outcome.AlreadyProcessed {
		endSpan(span, err)
		return outcome, err
	}

	outcome.Invoice = StepOutcome{Status: StepScheduled}
	outcome.Notification = StepOutcome{Status: StepScheduled}

	bg := context.WithoutCancel(ctx)
	r.background.Add(1)
	go func() {
		defer r.background.Done()
		inv, note := r.fulfil(bg, order)
		r.logger.Debug("background fulfillment finished",
			slog.String("intent_id", order.IntentID()),
			slog.String("invoice", inv.String()),
			slog.String("notification", note.String()),
		)
	}()
	return outcome, nil
}

// Wait blocks until background fulfillment started by ReconcileAsync ends.
func (r *Reconciler) Wait() {
	r.background.Wait()
}

// RecordFailure moves a pending order to failed after the gateway reported
// a failed payment attempt. It reports whether this call made the change.
func (r *Reconciler) RecordFailure(ctx context.Context, intentID, paymentID string) (bool, error) {
	order, err := r.repo.FindByIntentID(ctx, intentID)
	if err != nil {
		return false, lookupError(err)
	}

	changed, err := r.repo.MarkFailed(ctx, intentID, r.cfg.Now())
	if err != nil {
		return false, fmt.Errorf("marking payment failed: %w", err)
	}
	if changed {
		r.publish(ctx, domain.NewPaymentFailedEvent(order, paymentID))
	}
	return changed, nil
}

// settle locates the order and commits the payment transition. It returns
// the order as stored after the transition.
func (r *Reconciler) settle(ctx context.Context, req ReconcileRequest) (*domain.Order, Outcome, error) {
	order, err := r.repo.FindByIntentID(ctx, req.IntentID)
	if err != nil {
		return nil, Outcome{}, lookupError(err)
	}
	outcome := Outcome{OrderID: order.ID().String()}

	if order.FullyProcessed() {
		outcome.AlreadyProcessed = true
		return order, outcome, nil
	}

	if req.PaymentID != "" {
		won, err := r.repo.MarkPaid(ctx, req.IntentID, req.PaymentID, r.cfg.Now())
		if err != nil {
			return nil, outcome, fmt.Errorf("marking order paid: %w", err)
		}
		outcome.Transitioned = won
		if won {
			r.logger.Info("payment confirmed",
				slog.String("intent_id", req.IntentID),
				slog.String("order_id", outcome.OrderID),
				slog.String("payment_id", req.PaymentID),
				slog.String("trigger", string(req.Trigger)),
			)
		}
	}

	order, err = r.repo.FindByIntentID(ctx, req.IntentID)
	if err != nil {
		return nil, outcome, lookupError(err)
	}
	if !order.IsPaid() {
		return nil, outcome, domain.ErrPaymentNotConfirmed
	}
	if outcome.Transitioned {
		r.publish(ctx, domain.NewPaymentConfirmedEvent(order, req.PaymentID, string(req.Trigger)))
	}
	return order, outcome, nil
}

func (r *Reconciler) fulfil(ctx context.Context, order *domain.Order) (StepOutcome, StepOutcome) {
	inv := r.invoiceStep(ctx, order)

	// Re-read for the invoice URL and the step states other triggers wrote.
	current, err := r.repo.FindByIntentID(ctx, order.IntentID())
	if err != nil {
		note := StepOutcome{Status: StepFailed, Err: err}
		r.logStep(order, domain.StepNotification, note)
		return inv, note
	}

	invoiceAttempted := inv.Status == StepSucceeded || inv.Status == StepFailed
	if !invoiceAttempted && !current.Invoice().Settled() {
		return inv, StepOutcome{Status: StepDeferred}
	}
	return inv, r.notificationStep(ctx, current)
}

func (r *Reconciler) invoiceStep(ctx context.Context, order *domain.Order) StepOutcome {
	return r.runStep(ctx, order, domain.StepInvoice, func(ctx context.Context) (completion, error) {
		pdf, err := r.renderer.Render(order.Receipt())
		if err != nil {
			return nil, fmt.Errorf("rendering invoice: %w", err)
		}
		url, err := r.storage.Upload(ctx, order.InvoiceKey(), pdf, "application/pdf")
		if err != nil {
			return nil, fmt.Errorf("uploading invoice: %w", err)
		}
		return func(ctx context.Context, at time.Time) (bool, error) {
			return r.repo.CompleteInvoice(ctx, order.IntentID(), url, at)
		}, nil
	})
}

func (r *Reconciler) notificationStep(ctx context.Context, order *domain.Order) StepOutcome {
	return r.runStep(ctx, order, domain.StepNotification, func(ctx context.Context) (completion, error) {
		if err := r.notifier.Send(ctx, order.Receipt()); err != nil {
			return nil, fmt.Errorf("sending notifications: %w", err)
		}
		return func(ctx context.Context, at time.Time) (bool, error) {
			return r.repo.CompleteNotification(ctx, order.IntentID(), at)
		}, nil
	})
}

// completion records a finished side effect.
type completion func(ctx context.Context, at time.Time) (bool, error)

// runStep claims the step, performs the side effect and records completion.
// perform returns the completion write to run once the side effect succeeded.
func (r *Reconciler) runStep(
	ctx context.Context,
	order *domain.Order,
	step domain.Step,
	perform func(ctx context.Context) (completion, error),
) StepOutcome {
	ctx, span := r.tracer.Start(ctx, "orders.step."+step.String(),
		trace.WithAttributes(attribute.String("intent_id", order.IntentID())))
	defer span.End()

	if order.Step(step).Settled() {
		return StepOutcome{Status: StepSkipped}
	}

	claimedAt := r.cfg.Now()
	claimed, err := r.repo.ClaimStep(ctx, order.IntentID(), step, claimedAt, r.cfg.StepLease)
	if err != nil {
		out := StepOutcome{Status: StepFailed, Err: err}
		r.logStep(order, step, out)
		endSpan(span, err)
		return out
	}
	if !claimed {
		return StepOutcome{Status: StepSkipped}
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.cfg.SideEffectTimeout)
	complete, err := perform(stepCtx)
	cancel()
	if err != nil {
		out := StepOutcome{Status: StepFailed, Err: err}
		r.logStep(order, step, out)
		endSpan(span, err)
		r.release(ctx, order, step, domain.LeaseExpiry(claimedAt, r.cfg.StepLease))
		return out
	}

	done, err := complete(ctx, r.cfg.Now())
	if err != nil {
		// The side effect happened; a later trigger may repeat it once the
		// lease expires. Invoice uploads overwrite the same key.
		out := StepOutcome{Status: StepFailed, Err: err}
		r.logStep(order, step, out)
		endSpan(span, err)
		return out
	}
	if !done {
		return StepOutcome{Status: StepSkipped}
	}
	return StepOutcome{Status: StepSucceeded}
}

// release gives the lease back only if it is still ours. A lease that
// expired and was claimed by another trigger is left to its new holder.
func (r *Reconciler) release(ctx context.Context, order *domain.Order, step domain.Step, leaseUntil time.Time) {
	released, err := r.repo.ReleaseStep(context.WithoutCancel(ctx), order.IntentID(), step, leaseUntil, r.cfg.Now(), r.cfg.MaxStepAttempts)
	if err != nil {
		r.logger.Error("failed to release step lease",
			slog.String("intent_id", order.IntentID()),
			slog.String("step", step.String()),
			slog.Any("error", err),
		)
		return
	}
	if !released {
		r.logger.Warn("step lease expired before release",
			slog.String("intent_id", order.IntentID()),
			slog.String("step", step.String()),
		)
	}
}

func (r *Reconciler) logStep(order *domain.Order, step domain.Step, out StepOutcome) {
	r.logger.Warn("fulfillment step failed",
		slog.String("intent_id", order.IntentID()),
		slog.String("order_id", order.ID().String()),
		slog.String("step", step.String()),
		slog.Any("error", out.Err),
	)
}

func (r *Reconciler) publish(ctx context.Context, event events.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, event); err != nil {
		r.logger.Error("failed to publish event",
			slog.String("event_type", event.EventType().String()),
			slog.Any("error", err),
		)
	}
}

func (r *Reconciler) startSpan(ctx context.Context, name string, req ReconcileRequest) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("intent_id", req.IntentID),
		attribute.String("trigger", string(req.Trigger)),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
}

func lookupError(err error) error {
	if errors.Is(err, domain.ErrOrderNotFound) {
		return err
	}
	return fmt.Errorf("finding order: %w", err)
}
