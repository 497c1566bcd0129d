package utils

import (
	"math"
	"strconv"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	if result < 1 {
		return defaultValue
	}

	return result
}

// ParseFloat converts string to float64, ok is false when value is empty or malformed
func ParseFloat(value string) (float64, bool) {
	if value == "" {
		return 0, false
	}

	result, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, false
	}

	return result, true
}

// RoundMoney rounds an amount to currency precision (2 decimals)
func RoundMoney(amount float64) float64 {
	return math.Round(amount*100) / 100
}
