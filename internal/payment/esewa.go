package payment

import (
	"context"
	"net/http"
	"strconv"

	"smart-parking/internal/data/entity"
)

// EsewaGateway produces the ePay form the client posts to eSewa. Amounts are in rupees.
type EsewaGateway struct {
	url        string
	merchantID string
	successURL string
	failureURL string
}

func NewEsewaGateway(url, merchantID, successURL, failureURL string) *EsewaGateway {
	return &EsewaGateway{
		url:        url,
		merchantID: merchantID,
		successURL: successURL,
		failureURL: failureURL,
	}
}

func (g *EsewaGateway) Method() entity.PaymentMethod { return entity.PaymentMethodEsewa }

func (g *EsewaGateway) Initiate(_ context.Context, c Charge) (Initiation, error) {
	if err := validateCharge(c); err != nil {
		return Initiation{}, err
	}

	amount := strconv.FormatFloat(c.Amount, 'f', -1, 64)
	return Initiation{
		Token:       c.Token,
		Method:      entity.PaymentMethodEsewa,
		RedirectURL: g.url,
		HTTPMethod:  http.MethodPost,
		Fields: map[string]string{
			"amt":   amount,
			"psc":   "0",
			"pdc":   "0",
			"txAmt": "0",
			"tAmt":  amount,
			"pid":   c.Token,
			"scd":   g.merchantID,
			"su":    g.successURL,
			"fu":    g.failureURL,
		},
	}, nil
}
