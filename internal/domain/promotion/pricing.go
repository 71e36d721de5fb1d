package promotion

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// CandidatePrice returns the price a mechanism yields for the given baseline,
// rounded to cents. It fails only for an unknown mechanism kind.
func CandidatePrice(m Mechanism, baseline decimal.Decimal) (decimal.Decimal, error) {
	switch m.Kind {
	case KindFixedPrice:
		return m.Amount.Round(2), nil
	case KindFlatAmount:
		return applyFlat(m, baseline), nil
	case KindPercentage:
		return applyPercentage(m, baseline), nil
	default:
		return zero, errors.Wrapf(ErrMalformedDefinition, "unsupported discount mechanism: %q", m.Kind)
	}
}

// Discount returns how much a mechanism takes off the baseline. A fixed
// price above the baseline yields a zero discount.
func Discount(m Mechanism, baseline decimal.Decimal) (decimal.Decimal, error) {
	price, err := CandidatePrice(m, baseline)
	if err != nil {
		return zero, err
	}
	return floorAtZero(baseline.Sub(price)).Round(2), nil
}

func applyFlat(m Mechanism, baseline decimal.Decimal) decimal.Decimal {
	return floorAtZero(baseline.Sub(m.Amount)).Round(2)
}

func applyPercentage(m Mechanism, baseline decimal.Decimal) decimal.Decimal {
	off := baseline.Mul(m.Amount).Div(hundred)
	if m.Cap != nil {
		off = decimal.Min(off, *m.Cap)
	}
	return floorAtZero(baseline.Sub(off)).Round(2)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
