// Package checkout turns a session's cart into a validated payment and a
// persisted order.
//
// A checkout attempt moves CartReady -> PaymentPending -> Completed|Rejected.
// Nothing is held between BeginCheckout and SubmitPayment: the live cart is
// the only state, and SubmitPayment re-reads it under the session lock.
package checkout

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/cart"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/domain/payment"
	"github.com/xenking/kart-checkout/internal/session"
)

// Sentinel errors for checkout attempts.
var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrOrderPersistFailed = errors.New("order could not be saved")
)

// OrderPersistError reports that payment passed validation but the order was
// not stored. The cart is left untouched so the shopper can retry.
type OrderPersistError struct {
	Draft order.Draft
	Err   error
}

func (e *OrderPersistError) Error() string {
	return fmt.Sprintf("persist order for %s: %v", e.Draft.IdentityID, e.Err)
}

func (e *OrderPersistError) Unwrap() error {
	return e.Err
}

// Is reports ErrOrderPersistFailed equivalence.
func (e *OrderPersistError) Is(target error) bool {
	return target == ErrOrderPersistFailed
}

// Status is the state of a checkout attempt.
type Status string

const (
	StatusCartReady      Status = "CART_READY"
	StatusPaymentPending Status = "PAYMENT_PENDING"
	StatusCompleted      Status = "COMPLETED"
	StatusRejected       Status = "REJECTED"
)

// IsTerminal reports whether the attempt is finished.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// String representation (for logging).
func (s Status) String() string {
	return string(s)
}

// Sessions gives exclusive access to a session's cart.
type Sessions interface {
	WithCart(token string, fn func(a *session.CartAccess) error) error
}

// Result is the outcome of a successful SubmitPayment.
type Result struct {
	Order  *order.Order
	Status Status
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(lg *zap.Logger) Option {
	return func(p *Pipeline) {
		p.lg = lg
	}
}

// WithTracerProvider sets the provider used for checkout spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Pipeline) {
		p.tracerProvider = tp
	}
}

// WithMeterProvider sets the provider used for checkout counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(p *Pipeline) {
		p.meterProvider = mp
	}
}

// Pipeline drives checkout attempts.
type Pipeline struct {
	sessions  Sessions
	validator payment.Validator
	orders    order.Repository

	lg             *zap.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	attempts       metric.Int64Counter
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	sessions Sessions,
	validator payment.Validator,
	orders order.Repository,
	opts ...Option,
) (*Pipeline, error) {
	p := &Pipeline{
		sessions:       sessions,
		validator:      validator,
		orders:         orders,
		lg:             zap.NewNop(),
		tracerProvider: tracenoop.NewTracerProvider(),
		meterProvider:  metricnoop.NewMeterProvider(),
	}
	for _, opt := range opts {
		opt(p)
	}

	const name = "github.com/xenking/kart-checkout/internal/checkout"
	p.tracer = p.tracerProvider.Tracer(name)

	attempts, err := p.meterProvider.Meter(name).Int64Counter("checkout.attempts",
		metric.WithDescription("Checkout payment submissions by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create attempts counter")
	}
	p.attempts = attempts

	return p, nil
}

// BeginCheckout returns a snapshot of the session's cart for review. The cart
// is not modified.
func (p *Pipeline) BeginCheckout(ctx context.Context, token string) (cart.Snapshot, error) {
	_, span := p.tracer.Start(ctx, "checkout.Begin")
	defer span.End()

	var snap cart.Snapshot
	err := p.sessions.WithCart(token, func(a *session.CartAccess) error {
		snap = a.Cart().Snapshot(a.Now())
		if snap.IsEmpty() {
			return ErrEmptyCart
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return cart.Snapshot{}, err
	}

	span.SetAttributes(
		attribute.Int("checkout.items", snap.Count),
		attribute.String("checkout.total", snap.Total.StringFixed(2)),
	)
	return snap, nil
}

// SubmitPayment validates the payment against the current cart total, saves
// the order and clears the cart. The cart is cleared only after the order is
// saved; a rejected payment or a failed save leaves it as it was.
func (p *Pipeline) SubmitPayment(ctx context.Context, token string, details payment.Details) (*Result, error) {
	ctx, span := p.tracer.Start(ctx, "checkout.SubmitPayment")
	defer span.End()

	status := StatusCartReady
	var result *Result
	err := p.sessions.WithCart(token, func(a *session.CartAccess) error {
		snap := a.Cart().Snapshot(a.Now())
		if snap.IsEmpty() {
			return ErrEmptyCart
		}

		// The charged amount is the order total as persisted.
		draft := order.NewDraft(a.IdentityID(), snap, a.Now())

		status = StatusPaymentPending
		if err := p.validator.Validate(details, draft.Total); err != nil {
			status = StatusRejected
			return err
		}

		id, err := p.orders.Persist(ctx, draft)
		if err != nil {
			status = StatusRejected
			return &OrderPersistError{Draft: draft, Err: err}
		}

		a.ClearCart()
		status = StatusCompleted
		result = &Result{Order: draft.Order(id), Status: status}
		return nil
	})

	outcome := outcomeOf(err)
	p.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	span.SetAttributes(
		attribute.String("checkout.status", status.String()),
		attribute.String("checkout.outcome", outcome),
	)

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, ErrOrderPersistFailed) {
			span.RecordError(err)
			p.lg.Error("Order persist failed after payment validation; cart kept",
				zap.Error(err),
			)
		}
		return nil, err
	}

	p.lg.Info("Checkout completed",
		zap.String("order_id", result.Order.ID),
		zap.String("identity", result.Order.IdentityID),
		zap.String("total", result.Order.Total.StringFixed(2)),
	)
	return result, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "completed"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, payment.ErrPaymentRejected):
		return "payment_rejected"
	case errors.Is(err, ErrOrderPersistFailed):
		return "persist_failed"
	case errors.Is(err, session.ErrSessionExpired):
		return "session_expired"
	case errors.Is(err, session.ErrNotAuthenticated):
		return "not_authenticated"
	default:
		return "error"
	}
}
