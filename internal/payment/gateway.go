// Package payment adapts wallet gateways to a two-phase initiate/callback protocol.
// Initiate hands the client what it needs to redirect to the wallet. The wallet's
// verdict comes back later through the payment callback, keyed by the charge token.
package payment

import (
	"context"
	"errors"
	"fmt"

	"smart-parking/internal/data/entity"
	"smart-parking/pkg/utils"
)

var (
	ErrUnsupportedMethod = errors.New("payment method not supported online")
	ErrInvalidCharge     = errors.New("invalid charge")
)

// Charge is what the booking side asks a gateway to collect.
type Charge struct {
	Token       string
	BookingCode string
	Amount      float64
	ProductName string
}

// Outcome is the gateway verdict for one charge.
type Outcome struct {
	Success    bool
	GatewayRef string
	Reason     string
}

// Initiation tells the client how to continue at the gateway. Outcome is set only by
// gateways that settle synchronously.
type Initiation struct {
	Token       string               `json:"token"`
	Method      entity.PaymentMethod `json:"method"`
	RedirectURL string               `json:"redirectUrl,omitempty"`
	HTTPMethod  string               `json:"httpMethod,omitempty"`
	Fields      map[string]string    `json:"fields,omitempty"`
	Outcome     *Outcome             `json:"-"`
}

type Gateway interface {
	Method() entity.PaymentMethod
	Initiate(ctx context.Context, charge Charge) (Initiation, error)
}

// Gateways resolves an adapter per payment method.
type Gateways map[entity.PaymentMethod]Gateway

func (g Gateways) For(method entity.PaymentMethod) (Gateway, error) {
	gw, ok := g[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}
	return gw, nil
}

// NewGateways builds the adapters from config. Mock mode swaps every wallet for an
// adapter that settles immediately.
func NewGateways(cfg utils.PaymentConfig) Gateways {
	if cfg.MockMode {
		return Gateways{
			entity.PaymentMethodEsewa:  NewMockGateway(entity.PaymentMethodEsewa, nil),
			entity.PaymentMethodKhalti: NewMockGateway(entity.PaymentMethodKhalti, nil),
		}
	}

	return Gateways{
		entity.PaymentMethodEsewa:  NewEsewaGateway(cfg.EsewaURL, cfg.EsewaMerchantID, cfg.SuccessURL, cfg.FailureURL),
		entity.PaymentMethodKhalti: NewKhaltiGateway(cfg.KhaltiPublicKey, cfg.SuccessURL),
	}
}

func validateCharge(c Charge) error {
	if c.Token == "" {
		return fmt.Errorf("%w: missing token", ErrInvalidCharge)
	}
	if c.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidCharge)
	}
	return nil
}
