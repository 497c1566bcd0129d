package payment

import (
	"context"
	"testing"
	"time"

	"smart-parking/internal/data/entity"
	"smart-parking/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEsewaInitiateBuildsEpayForm(t *testing.T) {
	gw := NewEsewaGateway("https://uat.esewa.com.np/epay/main", "EPAYTEST", "https://app/ok", "https://app/fail")

	got, err := gw.Initiate(context.Background(), Charge{Token: "PAY-1", Amount: 150})
	require.NoError(t, err)
	assert.Equal(t, "https://uat.esewa.com.np/epay/main", got.RedirectURL)
	assert.Equal(t, "POST", got.HTTPMethod)
	assert.Equal(t, "150", got.Fields["amt"])
	assert.Equal(t, "150", got.Fields["tAmt"])
	assert.Equal(t, "0", got.Fields["txAmt"])
	assert.Equal(t, "PAY-1", got.Fields["pid"])
	assert.Equal(t, "EPAYTEST", got.Fields["scd"])
	assert.Equal(t, "https://app/ok", got.Fields["su"])
	assert.Equal(t, "https://app/fail", got.Fields["fu"])
	assert.Nil(t, got.Outcome)
}

func TestKhaltiInitiateUsesPaisa(t *testing.T) {
	gw := NewKhaltiGateway("test_public_key", "https://app")

	got, err := gw.Initiate(context.Background(), Charge{Token: "PAY-2", Amount: 150.5, ProductName: "Parking BK1"})
	require.NoError(t, err)
	assert.Equal(t, "15050", got.Fields["amount"])
	assert.Equal(t, "PAY-2", got.Fields["productIdentity"])
	assert.Equal(t, entity.PaymentMethodKhalti, got.Method)
}

func TestToPaisaRoundsFloatNoise(t *testing.T) {
	assert.Equal(t, int64(1999), ToPaisa(19.99))
	assert.Equal(t, int64(10000), ToPaisa(100))
}

func TestInitiateRejectsInvalidCharge(t *testing.T) {
	_, err := NewEsewaGateway("", "", "", "").Initiate(context.Background(), Charge{Token: "PAY-3"})
	require.ErrorIs(t, err, ErrInvalidCharge)

	_, err = NewKhaltiGateway("", "").Initiate(context.Background(), Charge{Amount: 10})
	require.ErrorIs(t, err, ErrInvalidCharge)
}

func TestMockGatewaySettlesImmediately(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	gw := NewMockGateway(entity.PaymentMethodEsewa, func() time.Time { return now })

	got, err := gw.Initiate(context.Background(), Charge{Token: "PAY-4", Amount: 50})
	require.NoError(t, err)
	require.NotNil(t, got.Outcome)
	assert.True(t, got.Outcome.Success)
	assert.Equal(t, "ESEWA1700000000000", got.Outcome.GatewayRef)

	gw.Decline = func(Charge) bool { return true }
	got, err = gw.Initiate(context.Background(), Charge{Token: "PAY-5", Amount: 50})
	require.NoError(t, err)
	assert.False(t, got.Outcome.Success)
}

func TestGatewaysFor(t *testing.T) {
	gws := NewGateways(utils.PaymentConfig{MockMode: true})

	gw, err := gws.For(entity.PaymentMethodKhalti)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentMethodKhalti, gw.Method())

	_, err = gws.For(entity.PaymentMethodCash)
	require.ErrorIs(t, err, ErrUnsupportedMethod)

	live := NewGateways(utils.PaymentConfig{EsewaURL: "https://esewa", EsewaMerchantID: "M"})
	gw, err = live.For(entity.PaymentMethodEsewa)
	require.NoError(t, err)
	assert.IsType(t, &EsewaGateway{}, gw)
}
