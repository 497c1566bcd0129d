package payment

import (
	"context"
	"math"
	"strconv"

	"smart-parking/internal/data/entity"
)

// KhaltiGateway returns the checkout widget config. Khalti takes amounts in paisa.
type KhaltiGateway struct {
	publicKey  string
	productURL string
}

func NewKhaltiGateway(publicKey, productURL string) *KhaltiGateway {
	return &KhaltiGateway{publicKey: publicKey, productURL: productURL}
}

func (g *KhaltiGateway) Method() entity.PaymentMethod { return entity.PaymentMethodKhalti }

func (g *KhaltiGateway) Initiate(_ context.Context, c Charge) (Initiation, error) {
	if err := validateCharge(c); err != nil {
		return Initiation{}, err
	}

	return Initiation{
		Token:  c.Token,
		Method: entity.PaymentMethodKhalti,
		Fields: map[string]string{
			"publicKey":       g.publicKey,
			"productIdentity": c.Token,
			"productName":     c.ProductName,
			"productUrl":      g.productURL,
			"amount":          strconv.FormatInt(ToPaisa(c.Amount), 10),
		},
	}, nil
}

// ToPaisa converts rupees to the integer paisa amount Khalti expects.
func ToPaisa(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}
