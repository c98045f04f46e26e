package utils

import "math"

// CalculateRate converts an hourly rate and a duration in seconds into an
// amount, rounded to 4 decimal places.
func CalculateRate(hourlyRate float64, durationSeconds int64) float64 {
	amount := hourlyRate * (float64(durationSeconds) / 3600)
	return math.Round(amount*10000) / 10000
}
