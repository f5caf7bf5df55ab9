package safety

import (
	"fmt"
	"math"
	"time"

	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// ValidationResult represents the result of a validation check
type ValidationResult struct {
	Valid   bool
	Message string
	Code    string
}

// Err converts a failed result into an error, nil when valid.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%s: %s", r.Code, r.Message)
}

func invalid(code, format string, args ...interface{}) ValidationResult {
	return ValidationResult{Valid: false, Code: code, Message: fmt.Sprintf(format, args...)}
}

var valid = ValidationResult{Valid: true}

// Validator checks values crossing the exchange boundary
type Validator struct {
	// MaxSnapshotAge rejects snapshots older than this; zero disables the check.
	MaxSnapshotAge time.Duration
	now            func() time.Time
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// ValidatePrice validates a price value for trading
func (v *Validator) ValidatePrice(price float64, symbol string) ValidationResult {
	switch {
	case math.IsNaN(price):
		return invalid("INVALID_PRICE_NAN", "invalid price for %s: price is NaN", symbol)
	case math.IsInf(price, 0):
		return invalid("INVALID_PRICE_INF", "invalid price for %s: price is infinite", symbol)
	case price <= 0:
		return invalid("INVALID_PRICE_NEGATIVE", "invalid price %.8f for %s: price must be positive", price, symbol)
	case price > 1e10:
		return invalid("PRICE_OUT_OF_BOUNDS", "suspicious price %.8f for %s: exceeds reasonable bounds", price, symbol)
	}
	return valid
}

// ValidateAmount validates the quote amount of a trade
func (v *Validator) ValidateAmount(amount float64, symbol string) ValidationResult {
	switch {
	case math.IsNaN(amount):
		return invalid("INVALID_AMOUNT_NAN", "invalid amount for %s: amount is NaN", symbol)
	case math.IsInf(amount, 0):
		return invalid("INVALID_AMOUNT_INF", "invalid amount for %s: amount is infinite", symbol)
	case amount <= 0:
		return invalid("INVALID_AMOUNT_NEGATIVE", "invalid amount %.8f for %s: amount must be positive", amount, symbol)
	case amount > 1e9:
		return invalid("AMOUNT_TOO_LARGE", "suspicious amount %.2f for %s: exceeds reasonable bounds", amount, symbol)
	}
	return valid
}

// ValidateBalance validates an account balance
func (v *Validator) ValidateBalance(balance float64, currency string) ValidationResult {
	switch {
	case math.IsNaN(balance):
		return invalid("BALANCE_NAN", "balance for %s is NaN", currency)
	case math.IsInf(balance, 0):
		return invalid("BALANCE_INF", "balance for %s is infinite", currency)
	case balance < 0:
		return invalid("BALANCE_NEGATIVE", "balance %.8f %s cannot be negative", balance, currency)
	}
	return valid
}

// ValidateSnapshot checks a market snapshot before a cycle acts on it.
func (v *Validator) ValidateSnapshot(s types.MarketSnapshot) ValidationResult {
	if s.Timestamp.IsZero() {
		return invalid("SNAPSHOT_NO_TIMESTAMP", "snapshot has no timestamp")
	}
	if v.MaxSnapshotAge > 0 {
		if age := v.now().Sub(s.Timestamp); age > v.MaxSnapshotAge {
			return invalid("SNAPSHOT_STALE", "snapshot is %s old, limit %s", age.Round(time.Second), v.MaxSnapshotAge)
		}
	}
	if math.IsNaN(s.VolatilityIndex) || s.VolatilityIndex < 0 || s.VolatilityIndex > 1 {
		return invalid("SNAPSHOT_VOLATILITY_RANGE", "volatility index %.4f outside [0,1]", s.VolatilityIndex)
	}
	for asset, price := range s.Prices {
		if r := v.ValidatePrice(price, asset); !r.Valid {
			return r
		}
	}
	return valid
}
