package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"smart-parking/internal/data/entity"
)

// MockGateway settles every charge immediately. For development and tests.
type MockGateway struct {
	method entity.PaymentMethod
	now    func() time.Time
	// Decline, when set, fails every charge it returns true for.
	Decline func(Charge) bool
}

func NewMockGateway(method entity.PaymentMethod, now func() time.Time) *MockGateway {
	if now == nil {
		now = time.Now
	}
	return &MockGateway{method: method, now: now}
}

func (g *MockGateway) Method() entity.PaymentMethod { return g.method }

func (g *MockGateway) Initiate(_ context.Context, c Charge) (Initiation, error) {
	if err := validateCharge(c); err != nil {
		return Initiation{}, err
	}

	outcome := &Outcome{
		Success:    true,
		GatewayRef: fmt.Sprintf("%s%d", strings.ToUpper(string(g.method)), g.now().UnixMilli()),
	}
	if g.Decline != nil && g.Decline(c) {
		outcome = &Outcome{Success: false, Reason: "declined by mock gateway"}
	}

	return Initiation{
		Token:   c.Token,
		Method:  g.method,
		Outcome: outcome,
	}, nil
}
