package entity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// QRPayload is the record encoded into the entry QR code.
type QRPayload struct {
	BookingCode string `json:"bookingCode"`
	SpotID      string `json:"spotId"`
	UserID      string `json:"userId"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

func NewQRPayload(b *Booking) QRPayload {
	return QRPayload{
		BookingCode: b.BookingCode,
		SpotID:      b.SpotID.String(),
		UserID:      b.UserID.String(),
		StartTime:   b.StartTime.UTC().Format(time.RFC3339),
		EndTime:     b.EndTime.UTC().Format(time.RFC3339),
	}
}

// EncodeQRPayload serializes the payload into the string handed to the QR renderer.
func EncodeQRPayload(p QRPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal qr payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeQRPayload(encoded string) (QRPayload, error) {
	var p QRPayload
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return p, fmt.Errorf("decode qr payload: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("unmarshal qr payload: %w", err)
	}
	return p, nil
}
