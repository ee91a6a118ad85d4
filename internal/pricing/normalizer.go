// Package pricing converts marketplace-native prices into USD.
package pricing

// Normalize converts a source-currency price into USD using the configured
// multiplicative factor (Empire coins trade below face value, historically
// around 0.614 USD per coin). Pure and total; callers guarantee a
// non-negative price and a positive factor.
func Normalize(sourcePrice, factor float64) float64 {
	return sourcePrice * factor
}
