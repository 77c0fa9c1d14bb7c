package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func TestDiscountedUnitPrice(t *testing.T) {
	got := DiscountedUnitPrice(dec("100.00"), dec("20"))
	if !got.Equal(dec("80")) {
		t.Fatalf("expected 80, got %s", got)
	}
	// no discount leaves the list price untouched
	if !DiscountedUnitPrice(dec("49.90"), decimal.Zero).Equal(dec("49.90")) {
		t.Fatal("zero discount must return the list price unchanged")
	}
	if !DiscountedUnitPrice(dec("49.90"), dec("-5")).Equal(dec("49.90")) {
		t.Fatal("negative discount must return the list price unchanged")
	}
}

func TestLineSubtotalScenario(t *testing.T) {
	// 10 x 100.00 at 20% -> 800.00
	got := LineSubtotal(10, dec("100.00"), dec("20"))
	if !got.Equal(dec("800.00")) {
		t.Fatalf("expected 800.00, got %s", got)
	}
}

func TestLineSubtotalNoDiscountIdentity(t *testing.T) {
	cases := []struct {
		qty   int
		price string
	}{
		{1, "0.01"},
		{3, "33.33"},
		{7, "19.99"},
		{250, "1234.56"},
	}
	for _, tc := range cases {
		got := LineSubtotal(tc.qty, dec(tc.price), decimal.Zero)
		want := decimal.NewFromInt(int64(tc.qty)).Mul(dec(tc.price)).Round(2)
		if !got.Equal(want) {
			t.Fatalf("qty=%d price=%s: expected %s, got %s", tc.qty, tc.price, want, got)
		}
	}
}

func TestLineSubtotalIdempotent(t *testing.T) {
	first := LineSubtotal(7, dec("3.33"), dec("12.5"))
	second := LineSubtotal(7, dec("3.33"), dec("12.5"))
	if !first.Equal(second) {
		t.Fatalf("recomputation must be exact: %s vs %s", first, second)
	}
}

func TestLineCommissionScenario(t *testing.T) {
	// 10 x 80.00 x 5% -> 40.00
	got := LineCommission(10, dec("100.00"), dec("20"), dec("5"))
	if !got.Equal(dec("40.00")) {
		t.Fatalf("expected 40.00, got %s", got)
	}
}

func TestImpliedDiscountScenario(t *testing.T) {
	// list 50.00, typed 40.00 -> 20.00%
	got, err := ImpliedDiscount(dec("50.00"), dec("40.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("20.00")) {
		t.Fatalf("expected 20.00, got %s", got)
	}
}

func TestImpliedDiscountFullPriceBoundary(t *testing.T) {
	price := dec("50.00")
	atList, err := ImpliedDiscount(price, price)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !atList.IsZero() {
		t.Fatalf("manual price at list must imply zero discount, got %s", atList)
	}
	aboveList, err := ImpliedDiscount(price, dec("55.00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !aboveList.IsZero() {
		t.Fatalf("manual price above list must imply zero discount, got %s", aboveList)
	}
}

func TestImpliedDiscountZeroListPrice(t *testing.T) {
	if _, err := ImpliedDiscount(decimal.Zero, dec("10")); err != ErrZeroListPrice {
		t.Fatalf("expected ErrZeroListPrice, got %v", err)
	}
}

func TestImpliedDiscountNonPositiveManualPrice(t *testing.T) {
	for _, manual := range []string{"0", "-0.01", "-10"} {
		if _, err := ImpliedDiscount(dec("100.00"), dec(manual)); err != ErrInvalidManualPrice {
			t.Fatalf("manual %s: expected ErrInvalidManualPrice, got %v", manual, err)
		}
	}
}

func TestImpliedDiscountTinyManualPriceCapped(t *testing.T) {
	// list 100.00, typed 0.001 -> 99.999%, which would round to 100.00 and
	// trip line validation even though the user typed a legal price.
	got, err := ImpliedDiscount(dec("100.00"), dec("0.001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("99.99")) {
		t.Fatalf("expected cap at 99.99, got %s", got)
	}
	line := Line{Quantity: 1, UnitPrice: dec("100.00"), DiscountPercentage: got}
	if err := line.Validate(); err != nil {
		t.Fatalf("capped discount must pass validation: %v", err)
	}
}

func TestImpliedDiscountRoundTrip(t *testing.T) {
	price := dec("123.45")
	tolerance := dec("0.01")
	for _, pct := range []string{"0", "0.5", "5", "12.34", "33.33", "50", "75.25", "99.99"} {
		d := dec(pct)
		manual := DiscountedUnitPrice(price, d)
		back, err := ImpliedDiscount(price, manual)
		if err != nil {
			t.Fatalf("discount %s: unexpected error: %v", pct, err)
		}
		if back.Sub(d).Abs().Cmp(tolerance) > 0 {
			t.Fatalf("discount %s did not round-trip: got %s", pct, back)
		}
	}
}

func TestOrderTotalsCommissionGating(t *testing.T) {
	lines := []Line{
		{Quantity: 10, UnitPrice: dec("100.00"), DiscountPercentage: dec("20"), CommissionPercentage: dec("5")},
	}
	quotation := OrderTotals(lines, decimal.Zero, StatusQuotation)
	if !quotation.Commission.IsZero() {
		t.Fatalf("quotation must report zero commission, got %s", quotation.Commission)
	}
	confirmed := OrderTotals(lines, decimal.Zero, StatusConfirmed)
	if !confirmed.Commission.Equal(dec("40.00")) {
		t.Fatalf("expected commission 40.00, got %s", confirmed.Commission)
	}
	if !confirmed.Subtotal.Equal(dec("800.00")) {
		t.Fatalf("expected subtotal 800.00, got %s", confirmed.Subtotal)
	}
}

func TestOrderTotalsEmptyOrder(t *testing.T) {
	// empty orders are legal; the caller only warns, it does not block
	got := OrderTotals(nil, dec("15.00"), StatusQuotation)
	if !got.Subtotal.IsZero() {
		t.Fatalf("expected subtotal 0, got %s", got.Subtotal)
	}
	if !got.Total.Equal(dec("15.00")) {
		t.Fatalf("expected total 15.00, got %s", got.Total)
	}
	if !got.Commission.IsZero() {
		t.Fatalf("expected commission 0, got %s", got.Commission)
	}
}

func TestOrderTotalsAdditivity(t *testing.T) {
	lines := []Line{
		{Quantity: 2, UnitPrice: dec("10"), DiscountPercentage: decimal.Zero},
		{Quantity: 3, UnitPrice: dec("20"), DiscountPercentage: dec("50")},
	}
	if !lines[0].Subtotal().Equal(dec("20.00")) {
		t.Fatalf("expected first line 20.00, got %s", lines[0].Subtotal())
	}
	if !lines[1].Subtotal().Equal(dec("30.00")) {
		t.Fatalf("expected second line 30.00, got %s", lines[1].Subtotal())
	}
	totals := OrderTotals(lines, decimal.Zero, StatusQuotation)
	sum := lines[0].Subtotal().Add(lines[1].Subtotal()).Round(2)
	if !totals.Subtotal.Equal(sum) {
		t.Fatalf("order subtotal %s must equal line sum %s", totals.Subtotal, sum)
	}
	if !totals.Subtotal.Equal(dec("50.00")) {
		t.Fatalf("expected order subtotal 50.00, got %s", totals.Subtotal)
	}
}

func TestLineValidate(t *testing.T) {
	valid := Line{Quantity: 1, UnitPrice: dec("10"), DiscountPercentage: dec("5"), CommissionPercentage: dec("2")}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := []struct {
		name string
		line Line
		want error
	}{
		{"zero quantity", Line{Quantity: 0, UnitPrice: dec("10")}, ErrInvalidQuantity},
		{"negative quantity", Line{Quantity: -2, UnitPrice: dec("10")}, ErrInvalidQuantity},
		{"discount at 100", Line{Quantity: 1, UnitPrice: dec("10"), DiscountPercentage: dec("100")}, ErrInvalidDiscount},
		{"negative discount", Line{Quantity: 1, UnitPrice: dec("10"), DiscountPercentage: dec("-1")}, ErrInvalidDiscount},
		{"negative price", Line{Quantity: 1, UnitPrice: dec("-10")}, ErrZeroListPrice},
		{"negative commission", Line{Quantity: 1, UnitPrice: dec("10"), CommissionPercentage: dec("-1")}, ErrInvalidCommission},
	}
	for _, tc := range cases {
		if err := tc.line.Validate(); err != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestResolveDiscount(t *testing.T) {
	price := dec("50.00")
	tier := dec("10")
	manual := dec("40.00")

	got, err := ResolveDiscount(price, PriceInput{TierPercentage: &tier})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(tier) {
		t.Fatalf("expected tier percentage 10, got %s", got)
	}

	// manual price wins over a stale tier selection
	got, err = ResolveDiscount(price, PriceInput{TierPercentage: &tier, ManualPrice: &manual})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(dec("20.00")) {
		t.Fatalf("expected implied 20.00, got %s", got)
	}

	got, err = ResolveDiscount(price, PriceInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.IsZero() {
		t.Fatalf("expected zero discount, got %s", got)
	}

	badTier := dec("120")
	if _, err := ResolveDiscount(price, PriceInput{TierPercentage: &badTier}); err != ErrInvalidDiscount {
		t.Fatalf("expected ErrInvalidDiscount, got %v", err)
	}
}
