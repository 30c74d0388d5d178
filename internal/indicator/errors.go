package indicator

import "github.com/kosheduteam/signalengine/internal/apperr"

const component = "indicator"

// ErrInsufficientData is returned when fewer than 50 bars are supplied.
func ErrInsufficientData(n int) error {
	return apperr.New(apperr.Validation, component, "insufficient data").
		WithContext("bar_count", n).WithContext("minimum_required", minBars)
}

// ErrInvalidBar is returned when a bar in the sequence violates the OHLC
// invariants (§3).
func ErrInvalidBar(index int, symbol string) error {
	return apperr.New(apperr.Validation, component, "invalid bar").
		WithContext("index", index).WithContext("symbol", symbol)
}
