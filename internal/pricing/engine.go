package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Order lifecycle states. A quotation never carries commission; only a
// confirmed order reports it.
const (
	StatusQuotation = "cotacao"
	StatusConfirmed = "confirmado"
)

var (
	// ErrInvalidQuantity is returned when a line quantity is zero or negative.
	ErrInvalidQuantity = errors.New("pricing: quantity must be positive")
	// ErrInvalidDiscount is returned when a discount percentage falls outside [0, 100).
	ErrInvalidDiscount = errors.New("pricing: discount percentage must be in [0, 100)")
	// ErrInvalidCommission is returned when a commission percentage is negative.
	ErrInvalidCommission = errors.New("pricing: commission percentage must not be negative")
	// ErrZeroListPrice is returned when a reverse calculation receives a non-positive list price.
	ErrZeroListPrice = errors.New("pricing: list price must be positive")
	// ErrInvalidManualPrice is returned when a manually typed final price is zero or negative.
	ErrInvalidManualPrice = errors.New("pricing: manual price must be positive")
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Line is one order item as the engine sees it: quantity, undiscounted list
// price, and the applied discount and commission rates. The list price is
// fixed at the moment the product was added; edits flow through the discount.
type Line struct {
	Quantity             int
	UnitPrice            decimal.Decimal
	DiscountPercentage   decimal.Decimal
	CommissionPercentage decimal.Decimal
}

// Validate reports the first precondition violation on the line. Violations
// are caller bugs, not user input errors; the engine never clamps silently.
func (l Line) Validate() error {
	if l.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if l.UnitPrice.Sign() < 0 {
		return ErrZeroListPrice
	}
	if l.DiscountPercentage.Sign() < 0 || l.DiscountPercentage.Cmp(hundred) >= 0 {
		return ErrInvalidDiscount
	}
	if l.CommissionPercentage.Sign() < 0 {
		return ErrInvalidCommission
	}
	return nil
}

// Subtotal computes the line subtotal from the line's own fields.
func (l Line) Subtotal() decimal.Decimal {
	return LineSubtotal(l.Quantity, l.UnitPrice, l.DiscountPercentage)
}

// Commission computes the unrounded line commission from the line's own fields.
func (l Line) Commission() decimal.Decimal {
	return LineCommission(l.Quantity, l.UnitPrice, l.DiscountPercentage, l.CommissionPercentage)
}

// DiscountedUnitPrice applies the discount percentage to the list price.
// A non-positive percentage leaves the price untouched. The result is not
// rounded; rounding happens only at the subtotal and order-total boundaries
// so it never compounds across the quantity multiplication.
func DiscountedUnitPrice(unitPrice, discountPercentage decimal.Decimal) decimal.Decimal {
	if discountPercentage.Sign() <= 0 {
		return unitPrice
	}
	return unitPrice.Mul(one.Sub(discountPercentage.Div(hundred)))
}

// LineSubtotal computes quantity x discounted unit price, rounded half-up to
// two decimal places. This is the only per-line rounding boundary, so
// recomputing from stored fields always reproduces the stored subtotal.
func LineSubtotal(quantity int, unitPrice, discountPercentage decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(quantity)).
		Mul(DiscountedUnitPrice(unitPrice, discountPercentage)).
		Round(2)
}

// LineCommission computes the sales commission earned on a line. The value is
// deliberately unrounded; summing rounded per-line commissions would drift on
// orders with many small lines. Status gating belongs to OrderTotals, not here.
func LineCommission(quantity int, unitPrice, discountPercentage, commissionPercentage decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(int64(quantity)).
		Mul(DiscountedUnitPrice(unitPrice, discountPercentage)).
		Mul(commissionPercentage.Div(hundred))
}

// ImpliedDiscount reverse-derives the discount percentage equivalent to a
// manually typed final unit price, so manual pricing parameterizes the normal
// discount path instead of bypassing it. A manual price at or above the list
// price implies no discount, never a negative one. The manual price must be
// positive; a free or negative line is rejected here rather than encoded as a
// 100% discount.
func ImpliedDiscount(unitPrice, manualFinalPrice decimal.Decimal) (decimal.Decimal, error) {
	if unitPrice.Sign() <= 0 {
		return decimal.Decimal{}, ErrZeroListPrice
	}
	if manualFinalPrice.Sign() <= 0 {
		return decimal.Decimal{}, ErrInvalidManualPrice
	}
	if manualFinalPrice.Cmp(unitPrice) >= 0 {
		return decimal.Zero, nil
	}
	pct := one.Sub(manualFinalPrice.Div(unitPrice)).Mul(hundred).Round(2)
	// A tiny positive manual price derives a percentage just under 100 that
	// rounds up to exactly 100.00, which Line.Validate rejects. The exact
	// value is strictly below 100 here, so cap the rounding artifact.
	if pct.Cmp(hundred) >= 0 {
		pct = decimal.RequireFromString("99.99")
	}
	return pct, nil
}

// PriceInput tags where a line's discount came from: a catalog tier the user
// picked, or a final unit price the user typed. At most one source applies;
// a manual price takes precedence so a stale tier percentage cannot leak
// into the math behind the user's back.
type PriceInput struct {
	TierPercentage *decimal.Decimal
	ManualPrice    *decimal.Decimal
}

// ResolveDiscount turns a PriceInput into the discount percentage the rest of
// the engine consumes.
func ResolveDiscount(unitPrice decimal.Decimal, in PriceInput) (decimal.Decimal, error) {
	if in.ManualPrice != nil {
		return ImpliedDiscount(unitPrice, *in.ManualPrice)
	}
	if in.TierPercentage != nil {
		pct := *in.TierPercentage
		if pct.Sign() < 0 || pct.Cmp(hundred) >= 0 {
			return decimal.Decimal{}, ErrInvalidDiscount
		}
		return pct, nil
	}
	return decimal.Zero, nil
}

// Totals aggregates order-level monetary results.
type Totals struct {
	Subtotal   decimal.Decimal
	Taxes      decimal.Decimal
	Total      decimal.Decimal
	Commission decimal.Decimal
}

// OrderTotals aggregates line results into order totals. Taxes is the flat
// freight surcharge, independent of the lines. Commission is reported only
// for confirmed orders; for a quotation it is zero regardless of the lines.
// An empty line list is legal and yields subtotal zero with total == taxes.
func OrderTotals(lines []Line, taxes decimal.Decimal, status string) Totals {
	subtotal := decimal.Zero
	commission := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
		commission = commission.Add(l.Commission())
	}
	subtotal = subtotal.Round(2)
	if status != StatusConfirmed {
		commission = decimal.Zero
	}
	return Totals{
		Subtotal:   subtotal,
		Taxes:      taxes,
		Total:      subtotal.Add(taxes).Round(2),
		Commission: commission.Round(2),
	}
}
