package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/chachabrian/chefbook-backend/pkg/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PaymentState string

const (
	PaymentAuthorized PaymentState = "authorized"
	PaymentCaptured   PaymentState = "captured"
	PaymentPending    PaymentState = "pending"
	PaymentFailed     PaymentState = "failed"
	PaymentReversed   PaymentState = "reversed"
)

const retryInterval = 100 * time.Millisecond

// GatewayPayment is a payment as reported by the gateway. Amount is in minor units.
type GatewayPayment struct {
	Reference string
	State     PaymentState
	Amount    int64
	Currency  string
}

// PaymentGateway is the outbound payment provider.
type PaymentGateway interface {
	FetchPayment(ctx context.Context, reference string) (*GatewayPayment, error)
	CapturePayment(ctx context.Context, reference string, amount int64, currency string) (*GatewayPayment, error)
}

// Verification is the outcome of reconciling one payment reference.
type Verification struct {
	Valid          bool
	CapturedAmount int64
	Currency       string
	Reason         string
}

type PaymentReconciler struct {
	gateway  PaymentGateway
	currency string
	timeout  time.Duration
	retries  int
	log      logrus.FieldLogger
}

func NewPaymentReconciler(gateway PaymentGateway, currency string, timeout time.Duration, retries int, log logrus.FieldLogger) *PaymentReconciler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if retries < 0 {
		retries = 0
	}
	return &PaymentReconciler{
		gateway:  gateway,
		currency: strings.ToLower(currency),
		timeout:  timeout,
		retries:  retries,
		log:      log,
	}
}

// Verify confirms that reference is captured for exactly expected minor units,
// capturing an authorized payment first. Failures come back as an invalid
// Verification, never as an error.
func (r *PaymentReconciler) Verify(ctx context.Context, reference string, expected int64) Verification {
	ctx, span := tracer.Start(ctx, "payment.verify")
	defer span.End()
	span.SetAttributes(attribute.String("payment.reference", reference), attribute.Int64("payment.expected", expected))

	log := r.log.WithField("payment_ref", reference)
	v := r.verify(ctx, log, reference, expected)
	if !v.Valid {
		span.SetStatus(codes.Error, v.Reason)
		log.WithField("reason", v.Reason).Warn("payment verification failed")
	}
	return v
}

func (r *PaymentReconciler) verify(ctx context.Context, log logrus.FieldLogger, reference string, expected int64) Verification {
	payment, err := r.call(ctx, log, "fetch", func(ctx context.Context) (*GatewayPayment, error) {
		return r.gateway.FetchPayment(ctx, reference)
	})
	if err != nil {
		return Verification{Reason: fmt.Sprintf("fetch payment: %v", err)}
	}

	if payment.State == PaymentAuthorized {
		amount, currency := payment.Amount, payment.Currency
		log.WithField("amount", amount).Info("capturing authorized payment")
		// Capture gets a single attempt. The re-read decides whether it landed.
		captureCtx, cancel := context.WithTimeout(ctx, r.timeout)
		_, captureErr := r.gateway.CapturePayment(captureCtx, reference, amount, currency)
		cancel()
		if captureErr != nil {
			log.WithError(captureErr).Warn("capture call failed")
		}

		payment, err = r.call(ctx, log, "fetch", func(ctx context.Context) (*GatewayPayment, error) {
			return r.gateway.FetchPayment(ctx, reference)
		})
		if err != nil {
			return Verification{Reason: fmt.Sprintf("re-read payment after capture: %v", err)}
		}
	}

	v := Verification{CapturedAmount: payment.Amount, Currency: strings.ToLower(payment.Currency)}
	switch {
	case payment.State != PaymentCaptured:
		v.Reason = fmt.Sprintf("payment is %s, not captured", payment.State)
	case r.currency != "" && v.Currency != r.currency:
		v.Reason = fmt.Sprintf("payment currency %s does not match %s", v.Currency, r.currency)
	case payment.Amount != expected:
		v.Reason = fmt.Sprintf("captured amount %s does not match expected %s",
			utils.FormatMinorUnits(payment.Amount), utils.FormatMinorUnits(expected))
	default:
		v.Valid = true
	}
	return v
}

// call runs a read-only gateway operation with a per-attempt timeout and
// the configured number of retries.
func (r *PaymentReconciler) call(ctx context.Context, log logrus.FieldLogger, op string, fn func(context.Context) (*GatewayPayment, error)) (*GatewayPayment, error) {
	attempt := 0
	return backoff.Retry(ctx, func() (*GatewayPayment, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		defer cancel()
		payment, err := fn(attemptCtx)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, fmt.Errorf("gateway returned no payment")
		}
		return payment, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(retryInterval)),
		backoff.WithMaxTries(uint(r.retries)+1),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.WithError(err).WithFields(logrus.Fields{"op": op, "attempt": attempt, "retry_in": next}).Warn("payment gateway call failed")
		}),
	)
}
