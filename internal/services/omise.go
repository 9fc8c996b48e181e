package services

import (
	"context"
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// OmiseGateway reads and captures Omise charges. The payment reference is the
// charge id (chrg_...).
type OmiseGateway struct {
	client *omise.Client
}

func NewOmiseGateway(publicKey, secretKey string) (*OmiseGateway, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, err
	}
	c.SetDebug(false)
	return &OmiseGateway{client: c}, nil
}

func (g *OmiseGateway) FetchPayment(ctx context.Context, reference string) (*GatewayPayment, error) {
	ch := &omise.Charge{}
	err := doWithContext(ctx, func() error {
		return g.client.Do(ch, &operations.RetrieveCharge{ChargeID: reference})
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve charge %s: %w", reference, err)
	}
	return chargeToPayment(ch), nil
}

// CapturePayment captures the full authorized amount. Omise captures the whole
// authorization, so amount and currency are only checked against it.
func (g *OmiseGateway) CapturePayment(ctx context.Context, reference string, amount int64, currency string) (*GatewayPayment, error) {
	ch := &omise.Charge{}
	err := doWithContext(ctx, func() error {
		return g.client.Do(ch, &operations.CaptureCharge{ChargeID: reference})
	})
	if err != nil {
		return nil, fmt.Errorf("capture charge %s: %w", reference, err)
	}
	p := chargeToPayment(ch)
	if p.Amount != amount || p.Currency != currency {
		return p, fmt.Errorf("captured %d %s, requested %d %s", p.Amount, p.Currency, amount, currency)
	}
	return p, nil
}

func chargeToPayment(ch *omise.Charge) *GatewayPayment {
	p := &GatewayPayment{
		Reference: ch.ID,
		Amount:    ch.Amount,
		Currency:  ch.Currency,
	}
	switch string(ch.Status) {
	case "successful":
		if ch.Paid {
			p.State = PaymentCaptured
		} else {
			p.State = PaymentAuthorized
		}
	case "pending":
		if ch.Authorized && !ch.Paid {
			p.State = PaymentAuthorized
		} else {
			p.State = PaymentPending
		}
	case "failed", "expired":
		p.State = PaymentFailed
	case "reversed":
		p.State = PaymentReversed
	default:
		p.State = PaymentState(ch.Status)
	}
	return p
}

// doWithContext bounds a blocking SDK call by ctx. The call itself is not
// interrupted; its result is discarded once ctx is done.
func doWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
