package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// ==================== TOKEN ====================

// GeneratePaymentToken returns the correlation token handed to a payment gateway
func GeneratePaymentToken() string {
	return "PAY-" + uuid.NewString()
}

// ==================== BOOKING CODE ====================

// GenerateBookingCode builds a human facing booking code.
// Format: BK<unix millis><4 digit random>
func GenerateBookingCode(now time.Time) string {
	return fmt.Sprintf("BK%d%04d", now.UnixMilli(), rand.Intn(10000))
}
